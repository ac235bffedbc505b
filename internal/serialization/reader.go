package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/param/internal/envconfig"
	"github.com/born-ml/param/internal/tensor"
)

// BornReader gives random access to the tensors of a .born file. The
// header is parsed and validated up front; tensor bytes are read on demand.
type BornReader struct {
	file     *os.File
	header   Header
	pre      preamble
	dataSize int64
	opts     ReaderOptions
	closed   bool
}

// ReaderOptions controls integrity checking.
type ReaderOptions struct {
	SkipChecksumValidation bool
	ValidationLevel        ValidationLevel
}

// DefaultReaderOptions returns options taken from BORN_VALIDATION and
// BORN_SKIP_CHECKSUM.
func DefaultReaderOptions() ReaderOptions {
	level, err := ParseValidationLevel(envconfig.Validation())
	if err != nil {
		level = ValidationStrict
	}
	return ReaderOptions{
		SkipChecksumValidation: envconfig.SkipChecksum(),
		ValidationLevel:        level,
	}
}

// NewBornReader opens path with DefaultReaderOptions.
func NewBornReader(path string) (*BornReader, error) {
	return NewBornReaderWithOptions(path, DefaultReaderOptions())
}

// NewBornReaderWithOptions opens path and checks its header, and for v2
// files the data checksum unless opts skips it.
func NewBornReaderWithOptions(path string, opts ReaderOptions) (*BornReader, error) {
	file, err := os.Open(path) //nolint:gosec // G304: caller chooses the path
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r := &BornReader{file: file, opts: opts}
	if err := r.open(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func (r *BornReader) open() (err error) {
	if r.pre, err = readPreamble(r.file); err != nil {
		return err
	}
	if r.header, err = readHeader(r.file, r.pre); err != nil {
		return err
	}

	info, err := r.file.Stat()
	if err != nil {
		return err
	}
	r.dataSize = info.Size() - r.pre.dataOffset()
	if r.pre.version == FormatVersionV2 {
		//nolint:gosec // G115: checked against the file size
		declared := int64(r.pre.dataSize)
		if declared < 0 || declared > r.dataSize {
			return fmt.Errorf("%w: data section of %d bytes, file holds %d", ErrOutOfBounds, r.pre.dataSize, r.dataSize)
		}
		r.dataSize = declared
		if !r.opts.SkipChecksumValidation {
			sum, err := SumSection(r.file, r.pre.dataOffset(), r.dataSize)
			if err != nil {
				return fmt.Errorf("checksum data section: %w", err)
			}
			if err := sum.Verify(r.pre.checksum); err != nil {
				return err
			}
		}
	}

	return ValidateHeader(&r.header, r.dataSize, r.opts.ValidationLevel)
}

func (r *BornReader) Header() Header              { return r.header }
func (r *BornReader) Version() uint32             { return r.pre.version }
func (r *BornReader) Flags() uint32               { return r.pre.flags }
func (r *BornReader) Metadata() map[string]string { return r.header.Metadata }

// Checksum returns the stored data checksum. It is zero for v1 files.
func (r *BornReader) Checksum() Checksum { return r.pre.checksum }

// TensorNames lists the tensors in file order.
func (r *BornReader) TensorNames() []string {
	names := make([]string, 0, len(r.header.Tensors))
	for _, meta := range r.header.Tensors {
		names = append(names, meta.Name)
	}
	return names
}

// TensorInfo returns the header entry for name.
func (r *BornReader) TensorInfo(name string) (*TensorMeta, error) {
	meta, ok := r.header.Tensor(name)
	if !ok {
		return nil, fmt.Errorf("tensor %s not found", name)
	}
	return &meta, nil
}

// GradFlags returns the requires-grad flag of every parameter entry.
// Buffers have no flag and are absent from the result.
func (r *BornReader) GradFlags() map[string]bool {
	return GradFlags(r.header)
}

// GradFlags extracts the requires-grad flags recorded in a header.
func GradFlags(h Header) map[string]bool {
	flags := make(map[string]bool)
	for _, meta := range h.Tensors {
		if meta.IsParameter() {
			flags[meta.Name] = *meta.RequiresGrad
		}
	}
	return flags
}

// ReadTensorData returns a copy of name's bytes.
func (r *BornReader) ReadTensorData(name string) ([]byte, error) {
	meta, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return r.read(meta)
}

// LoadTensor reads name into a RawTensor on backend's device.
func (r *BornReader) LoadTensor(name string, backend tensor.Backend) (*tensor.RawTensor, error) {
	meta, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	data, err := r.read(meta)
	if err != nil {
		return nil, err
	}
	return newTensor(*meta, data, backend.Device())
}

// ReadStateDict loads every tensor in the file.
func (r *BornReader) ReadStateDict(backend tensor.Backend) (map[string]*tensor.RawTensor, error) {
	if r.closed {
		return nil, ErrClosed
	}
	stateDict := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for _, meta := range r.header.Tensors {
		raw, err := r.LoadTensor(meta.Name, backend)
		if err != nil {
			return nil, err
		}
		stateDict[meta.Name] = raw
	}
	return stateDict, nil
}

func (r *BornReader) lookup(name string) (*TensorMeta, error) {
	if r.closed {
		return nil, ErrClosed
	}
	return r.TensorInfo(name)
}

func (r *BornReader) read(meta *TensorMeta) ([]byte, error) {
	if !meta.within(r.dataSize) {
		return nil, fmt.Errorf("%w: tensor %s", ErrOutOfBounds, meta.Name)
	}
	data := make([]byte, meta.Size)
	if _, err := r.file.ReadAt(data, r.pre.dataOffset()+meta.Offset); err != nil {
		return nil, fmt.Errorf("tensor %s: %w", meta.Name, err)
	}
	return data, nil
}

// Close closes the file. Further calls are no-ops.
func (r *BornReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// ReadFrom decodes a whole .born stream, applying the same checks as
// NewBornReaderWithOptions.
func ReadFrom(reader io.Reader, backend tensor.Backend, opts ReaderOptions) (map[string]*tensor.RawTensor, Header, error) {
	p, err := readPreamble(reader)
	if err != nil {
		return nil, Header{}, err
	}
	header, err := readHeader(reader, p)
	if err != nil {
		return nil, Header{}, err
	}
	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	if _, err := io.CopyN(io.Discard, reader, alignPadding(p.fixedSize()+int64(p.headerSize))); err != nil {
		return nil, Header{}, fmt.Errorf("skip padding: %w", err)
	}

	// v1 records no data size; the section ends with the last tensor.
	//nolint:gosec // G115: validated below
	dataSize := int64(p.dataSize)
	if p.version == FormatVersion {
		for _, meta := range header.Tensors {
			dataSize = max(dataSize, meta.End())
		}
	}
	if err := ValidateHeader(&header, dataSize, opts.ValidationLevel); err != nil {
		return nil, Header{}, err
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, Header{}, fmt.Errorf("read tensor data: %w", err)
	}
	if p.version == FormatVersionV2 && !opts.SkipChecksumValidation {
		if err := SumData(data).Verify(p.checksum); err != nil {
			return nil, Header{}, err
		}
	}

	stateDict := make(map[string]*tensor.RawTensor, len(header.Tensors))
	for _, meta := range header.Tensors {
		if !meta.within(dataSize) {
			return nil, Header{}, fmt.Errorf("%w: tensor %s", ErrOutOfBounds, meta.Name)
		}
		raw, err := newTensor(meta, data[meta.Offset:meta.End()], backend.Device())
		if err != nil {
			return nil, Header{}, err
		}
		stateDict[meta.Name] = raw
	}
	return stateDict, header, nil
}

// preamble is the fixed-size part of a .born file.
type preamble struct {
	version    uint32
	flags      uint32
	headerSize uint64
	dataSize   uint64   // v2 only
	checksum   Checksum // v2 only
}

// fixedSize returns the number of bytes before the JSON header.
func (p preamble) fixedSize() int64 {
	if p.version == FormatVersion {
		return FixedHeaderSizeV1
	}
	return FixedHeaderSizeV2
}

// dataOffset returns where the aligned tensor data starts.
func (p preamble) dataOffset() int64 {
	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	pos := p.fixedSize() + int64(p.headerSize)
	return pos + alignPadding(pos)
}

// encode lays out a v2 preamble: magic, version, flags, four reserved
// bytes, header size, data size and checksum.
func (p preamble) encode() []byte {
	buf := make([]byte, 8, FixedHeaderSizeV2)
	copy(buf, MagicBytes)
	binary.LittleEndian.PutUint32(buf[4:], p.version)
	buf = binary.LittleEndian.AppendUint32(buf, p.flags)
	buf = append(buf, 0, 0, 0, 0)
	buf = binary.LittleEndian.AppendUint64(buf, p.headerSize)
	buf = binary.LittleEndian.AppendUint64(buf, p.dataSize)
	return append(buf, p.checksum[:]...)
}

func readPreamble(r io.Reader) (preamble, error) {
	var p preamble

	head := make([]byte, 8)
	if _, err := io.ReadFull(r, head); err != nil {
		return p, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if string(head[:4]) != MagicBytes {
		return p, ErrInvalidMagic
	}
	p.version = binary.LittleEndian.Uint32(head[4:8])

	switch p.version {
	case FormatVersion:
		rest := make([]byte, FixedHeaderSizeV1-8)
		if _, err := io.ReadFull(r, rest); err != nil {
			return p, fmt.Errorf("failed to read v1 header: %w", err)
		}
		p.flags = binary.LittleEndian.Uint32(rest[0:4])
		p.headerSize = binary.LittleEndian.Uint64(rest[4:12])
	case FormatVersionV2:
		// Offsets below are relative to byte 8 of the fixed header
		rest := make([]byte, FixedHeaderSizeV2-8)
		if _, err := io.ReadFull(r, rest); err != nil {
			return p, fmt.Errorf("failed to read fixed header: %w", err)
		}
		p.flags = binary.LittleEndian.Uint32(rest[0:4])
		p.headerSize = binary.LittleEndian.Uint64(rest[8:16])
		p.dataSize = binary.LittleEndian.Uint64(rest[16:24])
		copy(p.checksum[:], rest[ChecksumOffsetV2-8:ChecksumOffsetV2-8+ChecksumSize])
	default:
		return p, fmt.Errorf("%w: got %d, expected %d or %d", ErrUnsupportedVersion, p.version, FormatVersion, FormatVersionV2)
	}

	if p.headerSize > MaxHeaderSize {
		return p, ErrHeaderTooLarge
	}
	return p, nil
}

func readHeader(r io.Reader, p preamble) (Header, error) {
	var header Header
	headerBytes := make([]byte, p.headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return header, fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return header, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	return header, nil
}

// newTensor builds a RawTensor from a header entry and its bytes.
func newTensor(meta TensorMeta, data []byte, device tensor.Device) (*tensor.RawTensor, error) {
	dtype, err := meta.DataType()
	if err != nil {
		return nil, err
	}

	shape := tensor.Shape(meta.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", meta.Name, err)
	}

	raw, err := tensor.NewRawFromBytes(shape, dtype, device, data)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", meta.Name, err)
	}
	return raw, nil
}
