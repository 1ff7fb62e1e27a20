package store

import (
	"crypto/sha256"
	"encoding/binary"
)

const ChunkEdge = 16

const (
	BlockAir   uint16 = 0
	BlockStone uint16 = 1
	BlockDirt  uint16 = 2
	BlockLog   uint16 = 3
)

type ChunkKey struct {
	CX int
	CY int
	CZ int
}

type Chunk struct {
	CX, CY, CZ int
	Blocks     []uint16 // len = 16*16*16

	dirty bool
	hash  [32]byte
}

func (c *Chunk) index(x, y, z int) int {
	return x + z*ChunkEdge + y*ChunkEdge*ChunkEdge
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	i := c.index(x, y, z)
	if c.Blocks[i] == b {
		return
	}
	c.Blocks[i] = b
	c.dirty = true
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

type WorldGen struct {
	Seed      int64
	BoundaryR int // blocks, 0 = unbounded
	MinY      int
	MaxY      int // exclusive

	// GroundY is the first walkable layer; everything below it is stone.
	GroundY          int
	SpawnClearRadius int
	// ObstaclePermille is the per-column chance of a two-block log pillar.
	ObstaclePermille int
}

type ChunkStore struct {
	Gen    WorldGen
	Chunks map[ChunkKey]*Chunk
}

func NewChunkStore(gen WorldGen) *ChunkStore {
	return &ChunkStore{
		Gen:    gen,
		Chunks: map[ChunkKey]*Chunk{},
	}
}
