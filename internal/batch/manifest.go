package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ManifestEntry represents one image in the output manifest.
type ManifestEntry struct {
	Input         string `json:"input"`
	Output        string `json:"output,omitempty"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	OutWidth      int    `json:"out_width,omitempty"`
	OutHeight     int    `json:"out_height,omitempty"`
	DiscardedCols int    `json:"discarded_cols,omitempty"`
	DiscardedRows int    `json:"discarded_rows,omitempty"`
	Error         string `json:"error,omitempty"`
}

// WriteManifest writes manifest.json describing every result. Output paths
// are made relative to the manifest's directory when possible.
func WriteManifest(path string, results []Result) error {
	base := filepath.Dir(path)
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		e := ManifestEntry{
			Input:         r.Input,
			Width:         r.Report.Input.X,
			Height:        r.Report.Input.Y,
			DiscardedCols: r.Report.Discarded.X,
			DiscardedRows: r.Report.Discarded.Y,
			Error:         r.Error,
		}
		if r.Success {
			e.Output = r.Output
			if rel, err := filepath.Rel(base, r.Output); err == nil {
				e.Output = rel
			}
			e.OutWidth = r.Report.Output.X
			e.OutHeight = r.Report.Output.Y
		}
		entries[i] = e
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
