package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE packs block ids as base64 of (block_id, run_len) uvarint pairs.
// Chunks are mostly stone below ground and air above, so runs are long.
func EncodeRLE(ids []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(ids); {
		b := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == b; j++ {
			run++
		}
		n := binary.PutUvarint(tmp[:], uint64(b))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])
		i += run
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. When want > 0 the decoded length must match
// it exactly, which catches truncated chunk payloads.
func DecodeRLE(b64 string, want int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, 0, want)
	for i := 0; i < len(raw); {
		b, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if b > 0xFFFF {
			return nil, fmt.Errorf("block id too large: %d", b)
		}
		if want > 0 && uint64(len(out))+run > uint64(want) {
			return nil, fmt.Errorf("run overflows %d blocks", want)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(b))
		}
	}
	if want > 0 && len(out) != want {
		return nil, fmt.Errorf("decoded %d blocks, want %d", len(out), want)
	}
	return out, nil
}
