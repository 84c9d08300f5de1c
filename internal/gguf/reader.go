package gguf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/23skdu/longbow-spyglass/internal/logger"
)

// Open parses a GGUF header: magic, version, key-value metadata and tensor
// descriptors. It reads the file sequentially and stops before the data
// segment, so opening a multi-gigabyte model touches only the header bytes.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	file := &File{
		Path:     path,
		KV:       make(map[string]interface{}),
		FileSize: uint64(info.Size()),
	}

	h := &headerReader{r: bufio.NewReaderSize(f, 1<<20)}

	if file.Header.Magic, err = h.u32(); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if file.Header.Magic != GGUFMagic {
		return nil, ErrInvalidMagic{Magic: file.Header.Magic}
	}
	if file.Header.Version, err = h.u32(); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if file.Header.Version < 2 || file.Header.Version > 3 {
		return nil, ErrUnsupportedVersion{Version: file.Header.Version}
	}
	if file.Header.TensorCount, err = h.u64(); err != nil {
		return nil, fmt.Errorf("read tensor count: %w", err)
	}
	if file.Header.KVCount, err = h.u64(); err != nil {
		return nil, fmt.Errorf("read kv count: %w", err)
	}

	for i := uint64(0); i < file.Header.KVCount; i++ {
		key, err := h.str()
		if err != nil {
			return nil, fmt.Errorf("read kv %d key: %w", i, err)
		}
		rawType, err := h.u32()
		if err != nil {
			return nil, fmt.Errorf("read kv %s type: %w", key, err)
		}
		val, err := h.value(GGUFMetadataValueType(rawType))
		if err != nil {
			return nil, fmt.Errorf("read kv %s value: %w", key, err)
		}
		file.KV[key] = val
	}

	for i := uint64(0); i < file.Header.TensorCount; i++ {
		name, err := h.str()
		if err != nil {
			return nil, fmt.Errorf("read tensor %d name: %w", i, err)
		}
		nDims, err := h.u32()
		if err != nil {
			return nil, fmt.Errorf("read tensor %s dims: %w", name, err)
		}
		dims := make([]uint64, nDims)
		for j := uint32(0); j < nDims; j++ {
			if dims[j], err = h.u64(); err != nil {
				return nil, fmt.Errorf("read tensor %s dim %d: %w", name, j, err)
			}
		}
		rawType, err := h.u32()
		if err != nil {
			return nil, fmt.Errorf("read tensor %s type: %w", name, err)
		}
		offset, err := h.u64()
		if err != nil {
			return nil, fmt.Errorf("read tensor %s offset: %w", name, err)
		}
		file.Tensors = append(file.Tensors, &TensorInfo{
			Name:       name,
			Dimensions: dims,
			Type:       GGMLType(rawType),
			Offset:     offset,
		})
	}

	// Tensor offsets are relative to the data segment, which starts at the
	// header size rounded up to general.alignment.
	alignment := alignmentOf(file.KV)
	file.DataOffset = (h.n + alignment - 1) / alignment * alignment

	logger.Log.Debug("parsed gguf header",
		"path", path,
		"version", file.Header.Version,
		"tensors", file.Header.TensorCount,
		"kv", file.Header.KVCount,
		"data_offset", file.DataOffset,
	)

	return file, nil
}

func alignmentOf(kv map[string]interface{}) uint64 {
	switch v := kv["general.alignment"].(type) {
	case uint32:
		return uint64(v)
	case uint64:
		return v
	default:
		return DefaultAlignment
	}
}

// headerReader tracks bytes consumed so the data segment offset can be
// computed after the header is done.
type headerReader struct {
	r   *bufio.Reader
	n   uint64
	buf [8]byte
}

func (h *headerReader) read(n int) ([]byte, error) {
	if n <= len(h.buf) {
		b := h.buf[:n]
		if _, err := io.ReadFull(h.r, b); err != nil {
			return nil, err
		}
		h.n += uint64(n)
		return b, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(h.r, b); err != nil {
		return nil, err
	}
	h.n += uint64(n)
	return b, nil
}

func (h *headerReader) u8() (byte, error) {
	b, err := h.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (h *headerReader) u16() (uint16, error) {
	b, err := h.read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (h *headerReader) u32() (uint32, error) {
	b, err := h.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (h *headerReader) u64() (uint64, error) {
	b, err := h.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (h *headerReader) str() (string, error) {
	length, err := h.u64()
	if err != nil {
		return "", err
	}
	b, err := h.read(int(length))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *headerReader) value(typ GGUFMetadataValueType) (interface{}, error) {
	switch typ {
	case GGUFMetadataValueTypeUint8:
		return h.u8()
	case GGUFMetadataValueTypeInt8:
		v, err := h.u8()
		return int8(v), err
	case GGUFMetadataValueTypeUint16:
		return h.u16()
	case GGUFMetadataValueTypeInt16:
		v, err := h.u16()
		return int16(v), err
	case GGUFMetadataValueTypeUint32:
		return h.u32()
	case GGUFMetadataValueTypeInt32:
		v, err := h.u32()
		return int32(v), err
	case GGUFMetadataValueTypeFloat32:
		v, err := h.u32()
		return math.Float32frombits(v), err
	case GGUFMetadataValueTypeBool:
		v, err := h.u8()
		return v != 0, err
	case GGUFMetadataValueTypeString:
		return h.str()
	case GGUFMetadataValueTypeArray:
		rawType, err := h.u32()
		if err != nil {
			return nil, err
		}
		length, err := h.u64()
		if err != nil {
			return nil, err
		}
		arr := make([]interface{}, 0, length)
		for i := uint64(0); i < length; i++ {
			v, err := h.value(GGUFMetadataValueType(rawType))
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case GGUFMetadataValueTypeUint64:
		return h.u64()
	case GGUFMetadataValueTypeInt64:
		v, err := h.u64()
		return int64(v), err
	case GGUFMetadataValueTypeFloat64:
		v, err := h.u64()
		return math.Float64frombits(v), err
	default:
		return nil, fmt.Errorf("unsupported metadata type: %d", typ)
	}
}
