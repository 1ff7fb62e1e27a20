package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"voxelnav.ai/internal/protocol"
)

// ListFiles returns prefix-*.jsonl.zst files in dir, oldest hour first.
func ListFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadEvents decodes every stuck event in one compressed log file and hands
// it to fn. Returning an error from fn stops the scan.
func ReadEvents(path string, fn func(protocol.StuckEvent) error) error {
	return scanJSONL(path, func(b []byte) error {
		var ev protocol.StuckEvent
		if err := json.Unmarshal(b, &ev); err != nil {
			return err
		}
		return fn(ev)
	})
}

// ReadRuns decodes every RUN_INFO record in one compressed run log.
func ReadRuns(path string, fn func(protocol.RunInfo) error) error {
	return scanJSONL(path, func(b []byte) error {
		var info protocol.RunInfo
		if err := json.Unmarshal(b, &info); err != nil {
			return err
		}
		return fn(info)
	})
}

// LastRun returns the most recent RUN_INFO recorded in dir. A run that
// stopped cleanly has a closing record with StoppedTick set.
func LastRun(dir string) (protocol.RunInfo, bool, error) {
	files, err := ListFiles(dir, "runs")
	if err != nil {
		return protocol.RunInfo{}, false, err
	}
	var last protocol.RunInfo
	found := false
	for _, path := range files {
		err := ReadRuns(path, func(info protocol.RunInfo) error {
			last = info
			found = true
			return nil
		})
		if err != nil {
			return protocol.RunInfo{}, false, err
		}
	}
	return last, found, nil
}

func scanJSONL(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		if err := fn(b); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
	}
	return sc.Err()
}
