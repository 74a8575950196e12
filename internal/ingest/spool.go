package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobsignal-engine/internal/domain"
)

// Spool intake: collaborators write a batch file elsewhere and rename it into
// the intake directory, one JSON document per line. Handled files move into a
// done/ subdirectory, so a crashed run re-reads at worst one file.

const spoolDoneDir = "done"

// DrainSpool ingests every pending observation batch under spoolDir and every
// macro-evidence batch under macroDir. Either directory may be "" (disabled).
func (ing *Ingester) DrainSpool(ctx context.Context, spoolDir, macroDir string) (Stats, MacroStats, error) {
	stats := Stats{RunID: uuid.NewString()}
	macroStats := MacroStats{RunID: stats.RunID}

	files, err := pendingFiles(spoolDir)
	if err != nil {
		return stats, macroStats, err
	}
	for _, f := range files {
		batch, bad := readObservationFile(f, ing.Log)
		s, err := ing.ProcessBatch(ctx, batch)
		stats.merge(s)
		stats.Skipped += bad
		if err != nil {
			return stats, macroStats, err
		}
		if err := archive(f); err != nil {
			stats.Errors++
			ing.Log.Warn("spool archive failed", zap.String("file", f), zap.Error(err))
		}
	}
	macroFiles, err := pendingFiles(macroDir)
	if err != nil {
		return stats, macroStats, err
	}
	for _, f := range macroFiles {
		batch, bad := readMacroFile(f, ing.Log)
		s, err := ing.IngestMacro(ctx, batch)
		macroStats.Received += s.Received
		macroStats.Added += s.Added
		macroStats.Duplicates += s.Duplicates
		macroStats.Skipped += s.Skipped + bad
		macroStats.Errors += s.Errors
		if err != nil {
			return stats, macroStats, err
		}
		if err := archive(f); err != nil {
			macroStats.Errors++
			ing.Log.Warn("spool archive failed", zap.String("file", f), zap.Error(err))
		}
	}
	return stats, macroStats, nil
}

// pendingFiles lists batch files oldest name first. A missing directory is an
// empty intake, not an error.
func pendingFiles(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".ndjson", ".jsonl", ".json":
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func readObservationFile(path string, log *zap.Logger) ([]domain.Observation, int) {
	var out []domain.Observation
	bad := 0
	err := eachLine(path, func(line []byte) {
		var obs domain.Observation
		if err := json.Unmarshal(line, &obs); err != nil {
			bad++
			return
		}
		out = append(out, obs)
	})
	if err != nil {
		log.Warn("spool file unreadable", zap.String("file", path), zap.Error(err))
	}
	if bad > 0 {
		log.Warn("spool file had undecodable lines", zap.String("file", path), zap.Int("lines", bad))
	}
	return out, bad
}

func readMacroFile(path string, log *zap.Logger) ([]domain.MacroEvidence, int) {
	var out []domain.MacroEvidence
	bad := 0
	err := eachLine(path, func(line []byte) {
		var m domain.MacroEvidence
		if err := json.Unmarshal(line, &m); err != nil {
			bad++
			return
		}
		out = append(out, m)
	})
	if err != nil {
		log.Warn("spool file unreadable", zap.String("file", path), zap.Error(err))
	}
	if bad > 0 {
		log.Warn("spool file had undecodable lines", zap.String("file", path), zap.Int("lines", bad))
	}
	return out, bad
}

func eachLine(path string, fn func(line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024) // raw descriptions can be large
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fn([]byte(line))
	}
	return sc.Err()
}

func archive(path string) error {
	done := filepath.Join(filepath.Dir(path), spoolDoneDir)
	if err := os.MkdirAll(done, 0o755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(done, filepath.Base(path)))
}
