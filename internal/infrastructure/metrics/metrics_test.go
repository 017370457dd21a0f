package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nerrad567/tsmigrate/internal/pipeline"
	"github.com/nerrad567/tsmigrate/internal/sink"
)

func TestObserver_Counters(t *testing.T) {
	o := New()

	o.RecordRead()
	o.RecordRead()
	o.RecordRead()
	o.PointWritten(2 * time.Millisecond)
	o.PointWritten(3 * time.Millisecond)

	if got := testutil.ToFloat64(o.recordsRead); got != 3 {
		t.Errorf("records_read_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(o.pointsWritten); got != 2 {
		t.Errorf("points_written_total = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(o.writeDuration); n != 1 {
		t.Errorf("write_duration_seconds series = %d, want 1", n)
	}
}

func TestObserver_WriteFailures(t *testing.T) {
	o := New()

	o.WriteFailed(sink.ClassNetwork, sink.Transient)
	o.WriteFailed(sink.ClassNetwork, sink.Transient)
	o.WriteFailed(sink.ClassAuth, sink.Fatal)

	if got := testutil.ToFloat64(o.writeFailures.WithLabelValues("network", "transient")); got != 2 {
		t.Errorf("network/transient = %v, want 2", got)
	}
	if got := testutil.ToFloat64(o.writeFailures.WithLabelValues("auth", "fatal")); got != 1 {
		t.Errorf("auth/fatal = %v, want 1", got)
	}
}

func TestObserver_State(t *testing.T) {
	o := New()

	if got := testutil.ToFloat64(o.state.WithLabelValues("created")); got != 1 {
		t.Fatalf("created = %v, want 1 on a new observer", got)
	}

	o.StateChanged(pipeline.StateCreated, pipeline.StateOpening)
	o.StateChanged(pipeline.StateOpening, pipeline.StateRunning)

	for _, s := range pipeline.States() {
		want := 0.0
		if s == pipeline.StateRunning {
			want = 1
		}
		if got := testutil.ToFloat64(o.state.WithLabelValues(string(s))); got != want {
			t.Errorf("pipeline_state{state=%q} = %v, want %v", s, got, want)
		}
	}
}

func TestObserver_QueueDepth(t *testing.T) {
	o := New()

	o.QueueDepth(7)
	o.QueueDepth(3)

	if got := testutil.ToFloat64(o.queueDepth); got != 3 {
		t.Errorf("queue_depth = %v, want 3", got)
	}
}

func TestObserver_Gatherer(t *testing.T) {
	o := New()
	o.RecordRead()

	expected := `
# HELP tsmigrate_records_read_total Records read from the source.
# TYPE tsmigrate_records_read_total counter
tsmigrate_records_read_total 1
`
	if err := testutil.GatherAndCompare(o.Gatherer(), strings.NewReader(expected), "tsmigrate_records_read_total"); err != nil {
		t.Error(err)
	}

	n, err := testutil.GatherAndCount(o.Gatherer(), "tsmigrate_pipeline_state")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != len(pipeline.States()) {
		t.Errorf("pipeline_state series = %d, want %d", n, len(pipeline.States()))
	}
}

func TestObserver_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.RecordRead()

	if got := testutil.ToFloat64(b.recordsRead); got != 0 {
		t.Errorf("second observer saw %v reads from the first", got)
	}
}
