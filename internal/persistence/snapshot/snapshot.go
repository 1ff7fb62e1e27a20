package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 captures a run at one tick: the world as edited so far, every
// agent and the state of its stuck engine.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Scenario    string  `json:"scenario"`
	Seed        int64   `json:"seed"`
	World       WorldV1 `json:"world"`
	WorldDigest string  `json:"world_digest"`

	Chunks []ChunkV1 `json:"chunks"`
	Agents []AgentV1 `json:"agents"`
}

type WorldV1 struct {
	BoundaryR        int `json:"boundary_r"`
	MinY             int `json:"min_y"`
	MaxY             int `json:"max_y"`
	GroundY          int `json:"ground_y"`
	SpawnClearRadius int `json:"spawn_clear_radius,omitempty"`
	ObstaclePermille int `json:"obstacle_permille,omitempty"`
}

// ChunkV1 holds a 16x16x16 chunk as RLE (see sim/encoding).
type ChunkV1 struct {
	CX     int    `json:"cx"`
	CY     int    `json:"cy"`
	CZ     int    `json:"cz"`
	Blocks string `json:"blocks"`
}

type AgentV1 struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Pos          [3]float64 `json:"pos"`
	HP           float64    `json:"hp"`
	MaxHP        float64    `json:"max_hp"`
	Destination  *[3]int    `json:"destination,omitempty"`
	Unsupervised bool       `json:"unsupervised,omitempty"`
	TicksPerNode int        `json:"ticks_per_node"`

	Stuck StuckV1 `json:"stuck"`
}

type StuckV1 struct {
	StuckLevel           int     `json:"stuck_level"`
	GlobalTimeout        int     `json:"global_timeout"`
	ActionDelayRemaining int     `json:"action_delay_remaining"`
	PreviousDestination  *[3]int `json:"previous_destination,omitempty"`
	HadPathLastStep      bool    `json:"had_path_last_step"`
	LastActiveNodeIndex  int     `json:"last_active_node_index"`
	ProgressStreak       int     `json:"progress_streak"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// ReadHeader returns only the JSON header line, without decoding the body.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}
