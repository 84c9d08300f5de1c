package export

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/23skdu/longbow-spyglass/internal/heatmap"
)

// WriteIPC writes one snapshot as an Arrow IPC file.
func WriteIPC(w io.Writer, snap *heatmap.Snapshot) error {
	mem := memory.DefaultAllocator
	rec := NewSnapshotRecord(mem, snap)
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(SnapshotSchema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("create arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	return fw.Close()
}

// WriteIPCFile writes one snapshot as an Arrow IPC file at path.
func WriteIPCFile(path string, snap *heatmap.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteIPC(f, snap); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadIPC decodes the snapshot rows from an Arrow IPC file.
func ReadIPC(r ipc.ReadAtSeeker) ([]heatmap.Row, error) {
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, fmt.Errorf("open arrow file: %w", err)
	}
	defer fr.Close()

	var rows []heatmap.Row
	for {
		rec, err := fr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read arrow record: %w", err)
		}
		batch, err := SnapshotRows(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	return rows, nil
}
