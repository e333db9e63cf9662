package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

func mkSessionDir(outputsRoot, id string) (string, error) {
	ts := time.Now().Format("20060102-150405")
	sid := "analysis_" + ts
	if len(id) >= 8 {
		sid += "_" + id[:8]
	}
	dir := filepath.Join(outputsRoot, sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Persist writes the report to out, or to a fresh directory under
// paths.outputs when out is empty. With neither set nothing is written and
// the returned path is empty.
func (p *Pipeline) Persist(rep *Report, out string) (string, error) {
	if out == "" {
		if p.cfg.Paths.Outputs == "" {
			return "", nil
		}
		dir, err := mkSessionDir(p.cfg.Paths.Outputs, rep.AnalysisID)
		if err != nil {
			return "", err
		}
		out = filepath.Join(dir, "report.json")
	} else if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(out, rep); err != nil {
		return "", err
	}
	return out, nil
}
