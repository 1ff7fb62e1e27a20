package store

import "voxelnav.ai/internal/sim/world/logic/mathx"

func (s *ChunkStore) GenerateChunk(ch *Chunk) {
	for y := 0; y < ChunkEdge; y++ {
		wy := ch.CY*ChunkEdge + y
		for z := 0; z < ChunkEdge; z++ {
			wz := ch.CZ*ChunkEdge + z
			for x := 0; x < ChunkEdge; x++ {
				wx := ch.CX*ChunkEdge + x
				ch.Blocks[ch.index(x, y, z)] = s.generatedBlock(wx, wy, wz)
			}
		}
	}
}

func (s *ChunkStore) generatedBlock(x, y, z int) uint16 {
	if y < s.Gen.MinY || y >= s.Gen.MaxY {
		return BlockAir
	}
	if y < s.Gen.GroundY {
		return BlockStone
	}
	if y > s.Gen.GroundY+1 || s.Gen.ObstaclePermille <= 0 {
		return BlockAir
	}
	if withinSpawnClear(x, z, s.Gen.SpawnClearRadius) {
		return BlockAir
	}
	roll := mathx.Hash3(s.Gen.Seed+701, x, 0, z) % 1000
	if roll < uint64(clampPermille(s.Gen.ObstaclePermille)) {
		return BlockLog
	}
	return BlockAir
}

func withinSpawnClear(x, z, r int) bool {
	if r <= 0 {
		return false
	}
	return mathx.AbsInt(x) <= r && mathx.AbsInt(z) <= r
}

func clampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}
