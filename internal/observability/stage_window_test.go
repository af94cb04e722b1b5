package observability

import "testing"

func TestStageWindowSnapshotPercentiles(t *testing.T) {
	w := newStageWindow(8)
	for _, ms := range []float64{100, 200, 300, 400} {
		w.Observe(StageReplyGenerate, ms)
	}

	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("snapshot has %d stages, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != StageReplyGenerate {
		t.Fatalf("stage = %q", s.Stage)
	}
	if s.Samples != 4 {
		t.Fatalf("samples = %d, want 4", s.Samples)
	}
	if s.LastMS != 400 {
		t.Fatalf("last = %v, want 400", s.LastMS)
	}
	if s.AvgMS != 250 {
		t.Fatalf("avg = %v, want 250", s.AvgMS)
	}
	if s.P50MS != 250 {
		t.Fatalf("p50 = %v, want 250", s.P50MS)
	}
}

func TestStageWindowWrapsAtCapacity(t *testing.T) {
	w := newStageWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe(StageRequestTotal, float64(i))
	}

	snap := w.Snapshot()
	if snap.Stages[0].Samples != 4 {
		t.Fatalf("samples = %d, want window capacity 4", snap.Stages[0].Samples)
	}
	if snap.Stages[0].LastMS != 9 {
		t.Fatalf("last = %v, want 9", snap.Stages[0].LastMS)
	}
}

func TestStageWindowIgnoresInvalidObservations(t *testing.T) {
	w := newStageWindow(4)
	w.Observe("", 100)
	w.Observe(StagePersist, -5)
	if got := len(w.Snapshot().Stages); got != 0 {
		t.Fatalf("snapshot has %d stages, want 0", got)
	}
}
