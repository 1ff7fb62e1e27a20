package scenario

import (
	"fmt"

	"voxelnav.ai/internal/nav/stuck"
	"voxelnav.ai/internal/persistence/snapshot"
	"voxelnav.ai/internal/sim/encoding"
	"voxelnav.ai/internal/sim/world/terrain/store"
)

// Snapshot exports the run at its current tick.
func (r *Run) Snapshot() snapshot.SnapshotV1 {
	sc := r.Scenario
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			RunID:   r.RunID,
			Tick:    r.System.CurrentTick(),
		},
		Scenario: sc.Name,
		Seed:     sc.Seed,
		World: snapshot.WorldV1{
			BoundaryR:        sc.World.BoundaryR,
			MinY:             sc.World.MinY,
			MaxY:             sc.World.MaxY,
			GroundY:          sc.World.GroundY,
			SpawnClearRadius: sc.World.SpawnClearRadius,
			ObstaclePermille: sc.World.ObstaclePermille,
		},
		WorldDigest: r.World.Digest(),
	}
	for _, k := range r.World.LoadedChunkKeys() {
		ch := r.World.Chunks[k]
		snap.Chunks = append(snap.Chunks, snapshot.ChunkV1{
			CX:     k.CX,
			CY:     k.CY,
			CZ:     k.CZ,
			Blocks: encoding.EncodeRLE(ch.Blocks),
		})
	}
	for _, id := range r.System.AgentIDs() {
		a := r.System.Agent(id)
		st := r.System.Engine(id).State()
		av := snapshot.AgentV1{
			ID:           a.ID,
			Type:         a.Type,
			Pos:          [3]float64{a.Pos.X, a.Pos.Y, a.Pos.Z},
			HP:           a.HP,
			MaxHP:        a.MaxHP,
			Destination:  cellPtr(a.Destination),
			Unsupervised: a.Unsupervised,
			TicksPerNode: a.TicksPerNode,
			Stuck: snapshot.StuckV1{
				StuckLevel:           st.StuckLevel,
				GlobalTimeout:        st.GlobalTimeout,
				ActionDelayRemaining: st.ActionDelayRemaining,
				PreviousDestination:  cellPtr(st.PreviousDestination),
				HadPathLastStep:      st.HadPathLastStep,
				LastActiveNodeIndex:  st.LastActiveNodeIndex,
				ProgressStreak:       st.ProgressStreak,
			},
		}
		snap.Agents = append(snap.Agents, av)
	}
	return snap
}

// RestoreWorld rebuilds the chunk store a snapshot was taken from and checks
// it against the recorded digest.
func RestoreWorld(snap snapshot.SnapshotV1) (*store.ChunkStore, error) {
	w := store.NewChunkStore(store.WorldGen{
		Seed:             snap.Seed,
		BoundaryR:        snap.World.BoundaryR,
		MinY:             snap.World.MinY,
		MaxY:             snap.World.MaxY,
		GroundY:          snap.World.GroundY,
		SpawnClearRadius: snap.World.SpawnClearRadius,
		ObstaclePermille: snap.World.ObstaclePermille,
	})
	const n = store.ChunkEdge * store.ChunkEdge * store.ChunkEdge
	for _, c := range snap.Chunks {
		blocks, err := encoding.DecodeRLE(c.Blocks, n)
		if err != nil {
			return nil, fmt.Errorf("chunk %d,%d,%d: %w", c.CX, c.CY, c.CZ, err)
		}
		if err := w.LoadChunk(c.CX, c.CY, c.CZ, blocks); err != nil {
			return nil, err
		}
	}
	if snap.WorldDigest != "" && w.Digest() != snap.WorldDigest {
		return nil, fmt.Errorf("world digest mismatch: got %s want %s", w.Digest(), snap.WorldDigest)
	}
	return w, nil
}

func cellPtr(p *stuck.GridPos) *[3]int {
	if p == nil {
		return nil
	}
	return &[3]int{p.X, p.Y, p.Z}
}
