package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"

	"voxelnav.ai/internal/sim/world/logic/mathx"
)

func (s *ChunkStore) InBounds(x, y, z int) bool {
	if y < s.Gen.MinY || y >= s.Gen.MaxY {
		return false
	}
	if s.Gen.BoundaryR > 0 {
		if x < -s.Gen.BoundaryR || x > s.Gen.BoundaryR || z < -s.Gen.BoundaryR || z > s.Gen.BoundaryR {
			return false
		}
	}
	return true
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// GetBlock returns air outside the world bounds.
func (s *ChunkStore) GetBlock(x, y, z int) uint16 {
	if !s.InBounds(x, y, z) {
		return BlockAir
	}
	ch := s.GetOrGenChunk(mathx.FloorDiv(x, ChunkEdge), mathx.FloorDiv(y, ChunkEdge), mathx.FloorDiv(z, ChunkEdge))
	return ch.Get(mathx.Mod(x, ChunkEdge), mathx.Mod(y, ChunkEdge), mathx.Mod(z, ChunkEdge))
}

func (s *ChunkStore) SetBlock(x, y, z int, b uint16) {
	if !s.InBounds(x, y, z) {
		return
	}
	ch := s.GetOrGenChunk(mathx.FloorDiv(x, ChunkEdge), mathx.FloorDiv(y, ChunkEdge), mathx.FloorDiv(z, ChunkEdge))
	ch.Set(mathx.Mod(x, ChunkEdge), mathx.Mod(y, ChunkEdge), mathx.Mod(z, ChunkEdge), b)
}

func (s *ChunkStore) IsEmpty(x, y, z int) bool {
	return s.GetBlock(x, y, z) == BlockAir
}

// Clear sets the block to air and reports whether anything was removed.
func (s *ChunkStore) Clear(x, y, z int) bool {
	if s.IsEmpty(x, y, z) {
		return false
	}
	s.SetBlock(x, y, z, BlockAir)
	return true
}

// Fill sets every block in the inclusive box [min, max].
func (s *ChunkStore) Fill(x0, y0, z0, x1, y1, z1 int, b uint16) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if z0 > z1 {
		z0, z1 = z1, z0
	}
	for y := y0; y <= y1; y++ {
		for z := z0; z <= z1; z++ {
			for x := x0; x <= x1; x++ {
				s.SetBlock(x, y, z, b)
			}
		}
	}
}

// LoadChunk installs saved blocks in place of generated terrain.
func (s *ChunkStore) LoadChunk(cx, cy, cz int, blocks []uint16) error {
	if len(blocks) != ChunkEdge*ChunkEdge*ChunkEdge {
		return fmt.Errorf("chunk %d,%d,%d: %d blocks", cx, cy, cz, len(blocks))
	}
	ch := &Chunk{CX: cx, CY: cy, CZ: cz, Blocks: append([]uint16(nil), blocks...), dirty: true}
	_ = ch.Digest()
	s.Chunks[ChunkKey{CX: cx, CY: cy, CZ: cz}] = ch
	return nil
}

func (s *ChunkStore) GetOrGenChunk(cx, cy, cz int) *Chunk {
	k := ChunkKey{CX: cx, CY: cy, CZ: cz}
	if ch, ok := s.Chunks[k]; ok {
		return ch
	}
	ch := &Chunk{
		CX:     cx,
		CY:     cy,
		CZ:     cz,
		Blocks: make([]uint16, ChunkEdge*ChunkEdge*ChunkEdge),
	}
	s.GenerateChunk(ch)
	ch.dirty = true
	_ = ch.Digest()
	s.Chunks[k] = ch
	return ch
}

// Digest hashes every loaded chunk in key order.
func (s *ChunkStore) Digest() string {
	h := sha256.New()
	var tmp [8]byte
	for _, k := range s.LoadedChunkKeys() {
		for _, v := range []int{k.CX, k.CY, k.CZ} {
			binary.LittleEndian.PutUint64(tmp[:], uint64(int64(v)))
			h.Write(tmp[:])
		}
		d := s.Chunks[k].Digest()
		h.Write(d[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
