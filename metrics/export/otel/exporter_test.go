package otel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/rotauth"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot rotauth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() rotauth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := rotauth.MetricsSnapshot{
		Counters:   make(map[rotauth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[rotauth.MetricID]rotauth.HistogramSnapshot, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, h := range f.snapshot.Histograms {
		buckets := make([]uint64, len(h.Buckets))
		copy(buckets, h.Buckets)
		out.Histograms[k] = rotauth.HistogramSnapshot{Buckets: buckets, Sum: h.Sum}
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findInt64(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			}
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("rotauth-test")

	src := &fakeSource{
		snapshot: rotauth.MetricsSnapshot{
			Counters: map[rotauth.MetricID]uint64{
				rotauth.MetricRefreshReuseDetected: 3,
			},
			Histograms: map[rotauth.MetricID]rotauth.HistogramSnapshot{
				rotauth.MetricValidateLatency: {Buckets: []uint64{1, 1, 1, 1, 1, 1, 1, 1}, Sum: time.Second},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if v, ok := findInt64(rm, "rotauth_refresh_reuse_detected_total"); !ok || v != 3 {
		t.Fatalf("expected reuse counter 3, got %d (found=%v)", v, ok)
	}
	if v, ok := findInt64(rm, "rotauth_validate_latency_seconds_count"); !ok || v != 8 {
		t.Fatalf("expected histogram count 8, got %d (found=%v)", v, ok)
	}
	if v, ok := findInt64(rm, "rotauth_audit_dropped_total"); !ok || v != 1 {
		t.Fatalf("expected audit dropped 1, got %d (found=%v)", v, ok)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newTestMeter()
	meter := provider.Meter("rotauth-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := NewOTelExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil engine, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("rotauth-test")

	src := &fakeSource{
		snapshot: rotauth.MetricsSnapshot{
			Counters: map[rotauth.MetricID]uint64{rotauth.MetricLoginSuccess: 1},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[rotauth.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
