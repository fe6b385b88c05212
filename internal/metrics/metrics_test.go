package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsRegistry_SeparateRegistries(t *testing.T) {
	// Two registries must not collide, otherwise every test would need a global one.
	first := NewMetricsRegistry(prometheus.NewRegistry())
	second := NewMetricsRegistry(prometheus.NewRegistry())

	first.JobRunsTotal.WithLabelValues("ingest", ResultOK).Inc()

	if got := testutil.ToFloat64(first.JobRunsTotal.WithLabelValues("ingest", ResultOK)); got != 1 {
		t.Errorf("Expected 1 run, got %v", got)
	}
	if got := testutil.ToFloat64(second.JobRunsTotal.WithLabelValues("ingest", ResultOK)); got != 0 {
		t.Errorf("Expected second registry to be independent, got %v", got)
	}
}

func TestNewMetricsRegistry_Gathers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsRegistry(reg)

	m.CheckpointLogsTotal.WithLabelValues(ActionCreated).Add(2)
	m.NotificationsActive.WithLabelValues("sos").Set(1)

	count, err := testutil.GatherAndCount(reg, "linker_checkpoint_logs_total", "linker_notifications_active")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 series, got %d", count)
	}
}
