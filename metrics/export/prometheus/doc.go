// Package prometheus renders rotauth metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] accepts an [rotauth.Engine] and exposes an [http.Handler].
// Counter names are prefixed rotauth_*_total; latency histograms are
// rotauth_validate_latency_seconds and rotauth_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
