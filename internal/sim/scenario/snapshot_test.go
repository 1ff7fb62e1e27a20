package scenario

import (
	"path/filepath"
	"testing"

	"voxelnav.ai/internal/persistence/snapshot"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	sc, err := Parse([]byte(walledYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r, err := Build(sc, teleportTuning(), BuildOptions{RunID: "run_s"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := r.RunTo(10); err != nil {
		t.Fatalf("RunTo: %v", err)
	}

	snap := r.Snapshot()
	if snap.Header.Tick != 10 || len(snap.Agents) != 2 {
		t.Fatalf("unexpected snapshot header=%+v agents=%d", snap.Header, len(snap.Agents))
	}
	a1 := snap.Agents[0]
	if a1.ID != "A1" || a1.Stuck.GlobalTimeout != 9 || a1.Stuck.PreviousDestination == nil {
		t.Fatalf("A1 engine state not captured: %+v", a1.Stuck)
	}

	path := filepath.Join(t.TempDir(), "snapshots", "10.snap.zst")
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	h, err := snapshot.ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.RunID != "run_s" || h.Tick != 10 {
		t.Fatalf("header %+v", h)
	}
	got, err := snapshot.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}

	w, err := RestoreWorld(got)
	if err != nil {
		t.Fatalf("RestoreWorld: %v", err)
	}
	if w.Digest() != r.World.Digest() {
		t.Fatalf("restored digest differs")
	}
	if w.IsEmpty(1, 0, 0) {
		t.Fatalf("wall around A1 missing after restore")
	}

	got.WorldDigest = "bogus"
	if _, err := RestoreWorld(got); err == nil {
		t.Fatalf("expected digest mismatch")
	}
}
