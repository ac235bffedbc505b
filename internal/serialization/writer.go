package serialization

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/born-ml/param/internal/tensor"
)

// BornWriter writes module state in .born format.
type BornWriter struct {
	file   *os.File
	closed bool
}

// NewBornWriter creates or truncates path for writing.
func NewBornWriter(path string) (*BornWriter, error) {
	file, err := os.Create(path) //nolint:gosec // G304: caller chooses the path
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &BornWriter{file: file}, nil
}

// WriteStateDict writes a state dictionary to the file in format v2.
//
// gradFlags holds the requires-grad flag of every parameter entry; entries
// without a flag are written as buffers. header supplies the model type,
// metadata and optional checkpoint information. Tensors, versions and the
// creation time are filled in by the writer.
func (w *BornWriter) WriteStateDict(stateDict map[string]*tensor.RawTensor, gradFlags map[string]bool, header Header) error {
	if w.closed {
		return ErrClosed
	}
	return WriteTo(w.file, stateDict, gradFlags, header)
}

// Close closes the file. Further calls are no-ops.
func (w *BornWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteTo encodes a state dictionary as a v2 file onto writer. Tensors are
// laid out in name order.
func WriteTo(writer io.Writer, stateDict map[string]*tensor.RawTensor, gradFlags map[string]bool, header Header) error {
	header.FormatVersion = FormatVersionV2
	header.BornVersion = LibraryVersion
	header.CreatedAt = cmp.Or(header.CreatedAt, time.Now().UTC())
	if header.Metadata == nil {
		header.Metadata = map[string]string{}
	}

	var data bytes.Buffer
	section := newSectionWriter(&data)
	header.Tensors = make([]TensorMeta, 0, len(stateDict))
	for _, name := range slices.Sorted(maps.Keys(stateDict)) {
		raw := stateDict[name]
		switch {
		case raw == nil:
			return fmt.Errorf("%w: %s", ErrNilTensor, name)
		case !raw.IsContiguous():
			return fmt.Errorf("%w: %s", ErrNonContiguous, name)
		}

		meta := TensorMeta{
			Name:   name,
			DType:  raw.DType().String(),
			Shape:  raw.Shape().Clone(),
			Offset: section.n,
			Size:   int64(raw.ByteSize()),
		}
		if flag, ok := gradFlags[name]; ok {
			meta.RequiresGrad = &flag
		}
		header.Tensors = append(header.Tensors, meta)
		if _, err := section.Write(raw.Data()); err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}
	}

	encoded, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	p := preamble{
		version:    FormatVersionV2,
		flags:      header.Flags(),
		headerSize: uint64(len(encoded)),
		dataSize:   uint64(data.Len()),
		checksum:   section.Sum(),
	}

	out := bytes.NewBuffer(p.encode())
	out.Write(encoded)
	out.Write(make([]byte, alignPadding(int64(out.Len()))))
	if _, err := out.WriteTo(writer); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := data.WriteTo(writer); err != nil {
		return fmt.Errorf("write tensor data: %w", err)
	}
	return nil
}

// alignPadding returns the bytes needed after pos to reach HeaderAlignment.
func alignPadding(pos int64) int64 {
	return (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
}
