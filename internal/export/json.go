package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/23skdu/longbow-spyglass/internal/heatmap"
)

// WriteJSON writes one snapshot as indented JSON.
func WriteJSON(w io.Writer, snap *heatmap.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// WriteJSONFile writes one snapshot as indented JSON at path.
func WriteJSONFile(path string, snap *heatmap.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, snap); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
