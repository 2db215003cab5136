package internaldefs

import (
	"strconv"
	"strings"

	"github.com/MrEthical07/rotauth"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   rotauth.MetricID
	Name string
	Help string
}

// HistogramDef names one exported latency histogram.
type HistogramDef struct {
	ID   rotauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: rotauth.MetricLoginSuccess, Name: "rotauth_login_success_total", Help: "Successful logins."},
	{ID: rotauth.MetricLoginFailure, Name: "rotauth_login_failure_total", Help: "Failed logins."},
	{ID: rotauth.MetricRefreshSuccess, Name: "rotauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: rotauth.MetricRefreshFailure, Name: "rotauth_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: rotauth.MetricRefreshReuseDetected, Name: "rotauth_refresh_reuse_detected_total", Help: "Refresh tokens presented after their family rotated."},
	{ID: rotauth.MetricFamilyRevokedOnReuse, Name: "rotauth_family_revoked_on_reuse_total", Help: "Token families revoked after reuse detection."},
	{ID: rotauth.MetricLogout, Name: "rotauth_logout_total", Help: "Logout operations."},
	{ID: rotauth.MetricRegistryUnavailable, Name: "rotauth_registry_unavailable_total", Help: "Operations failed because the session registry was unreachable."},
	{ID: rotauth.MetricSessionCreated, Name: "rotauth_session_created_total", Help: "Token families created by login."},
}

var HistogramDefs = []HistogramDef{
	{ID: rotauth.MetricValidateLatency, Name: "rotauth_validate_latency_seconds", Help: "Access token validation latency."},
	{ID: rotauth.MetricRefreshLatency, Name: "rotauth_refresh_latency_seconds", Help: "Refresh rotation latency."},
}

// HistogramBounds returns the Prometheus "le" labels, ending with +Inf.
func HistogramBounds() []string {
	bounds := rotauth.HistogramBounds()
	out := make([]string, 0, len(bounds)+1)
	for _, b := range bounds {
		out = append(out, strconv.FormatFloat(b.Seconds(), 'f', -1, 64))
	}
	return append(out, "+Inf")
}

// HistogramBoundSuffixes returns instrument-name-safe forms of HistogramBounds.
func HistogramBoundSuffixes() []string {
	labels := HistogramBounds()
	out := make([]string, len(labels))
	for i, l := range labels {
		if l == "+Inf" {
			out[i] = "inf"
			continue
		}
		out[i] = strings.ReplaceAll(l, ".", "_")
	}
	return out
}

// CumulativeBuckets converts non-cumulative bucket counts into the cumulative form
// exporters expect. Missing buckets count as zero.
func CumulativeBuckets(raw []uint64) [rotauth.HistogramBucketCount]uint64 {
	var out [rotauth.HistogramBucketCount]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
