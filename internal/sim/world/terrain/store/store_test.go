package store

import "testing"

func flatGen() WorldGen {
	return WorldGen{Seed: 7, MinY: -16, MaxY: 32, GroundY: 0}
}

func TestGetSetAcrossChunks(t *testing.T) {
	s := NewChunkStore(flatGen())
	s.SetBlock(-1, 3, 17, BlockLog)
	if got := s.GetBlock(-1, 3, 17); got != BlockLog {
		t.Fatalf("GetBlock=%d want %d", got, BlockLog)
	}
	if _, ok := s.Chunks[ChunkKey{CX: -1, CY: 0, CZ: 1}]; !ok {
		t.Fatalf("expected chunk (-1,0,1) to be loaded, have %v", s.LoadedChunkKeys())
	}
}

func TestGroundAndAir(t *testing.T) {
	s := NewChunkStore(flatGen())
	if s.IsEmpty(4, -1, 4) {
		t.Fatalf("below ground should be solid")
	}
	if !s.IsEmpty(4, 0, 4) || !s.IsEmpty(4, 1, 4) {
		t.Fatalf("ground layer should be walkable air")
	}
	if !s.IsEmpty(4, 99, 4) {
		t.Fatalf("out of bounds reads as air")
	}
}

func TestClear(t *testing.T) {
	s := NewChunkStore(flatGen())
	s.Fill(0, 0, 0, 2, 1, 0, BlockStone)
	if !s.Clear(1, 1, 0) {
		t.Fatalf("Clear on stone returned false")
	}
	if !s.IsEmpty(1, 1, 0) {
		t.Fatalf("block not cleared")
	}
	if s.Clear(1, 1, 0) {
		t.Fatalf("clearing air reported a removal")
	}
}

func TestObstaclesRespectSpawnClear(t *testing.T) {
	gen := flatGen()
	gen.ObstaclePermille = 1000
	gen.SpawnClearRadius = 2
	s := NewChunkStore(gen)
	if !s.IsEmpty(1, 0, -2) {
		t.Fatalf("spawn area should be clear")
	}
	if s.IsEmpty(5, 0, 5) || s.IsEmpty(5, 1, 5) {
		t.Fatalf("expected a two-block pillar outside spawn")
	}
	if !s.IsEmpty(5, 2, 5) {
		t.Fatalf("pillars are two blocks tall")
	}
}

func TestDigestTracksEdits(t *testing.T) {
	s := NewChunkStore(flatGen())
	_ = s.GetBlock(0, 0, 0)
	before := s.Digest()
	s.SetBlock(0, 0, 0, BlockDirt)
	if after := s.Digest(); after == before {
		t.Fatalf("digest unchanged after edit")
	}
}

func TestLoadChunkRestoresDigest(t *testing.T) {
	a := NewChunkStore(flatGen())
	a.SetBlock(3, 0, 3, BlockStone)
	a.SetBlock(20, 1, -5, BlockLog)

	b := NewChunkStore(flatGen())
	for _, k := range a.LoadedChunkKeys() {
		if err := b.LoadChunk(k.CX, k.CY, k.CZ, a.Chunks[k].Blocks); err != nil {
			t.Fatalf("LoadChunk: %v", err)
		}
	}
	if a.Digest() != b.Digest() {
		t.Fatalf("digest mismatch after restore")
	}
	if b.IsEmpty(20, 1, -5) {
		t.Fatalf("restored edit missing")
	}
	if err := b.LoadChunk(0, 0, 0, make([]uint16, 10)); err == nil {
		t.Fatalf("expected size error")
	}
}
