package serialization

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// Checksum is the SHA-256 digest of a v2 file's data section.
type Checksum [ChecksumSize]byte

// String returns the digest in hex.
func (c Checksum) String() string {
	return hex.EncodeToString(c[:])
}

// Verify compares c, computed from the data, against the stored digest.
func (c Checksum) Verify(stored Checksum) error {
	if c != stored {
		return fmt.Errorf("%w: stored %.12s, computed %.12s", ErrChecksumMismatch, stored, c)
	}
	return nil
}

// SumData hashes an in-memory data section.
func SumData(data []byte) Checksum {
	return sha256.Sum256(data)
}

// SumSection hashes size bytes of r starting at off without loading them.
func SumSection(r io.ReaderAt, off, size int64) (Checksum, error) {
	h := sha256.New()
	n, err := io.Copy(h, io.NewSectionReader(r, off, size))
	if err != nil {
		return Checksum{}, err
	}
	if n != size {
		return Checksum{}, fmt.Errorf("%w: hashed %d of %d data bytes", io.ErrUnexpectedEOF, n, size)
	}
	return digest(h), nil
}

// sectionWriter buffers the data section and hashes it as it is laid out.
type sectionWriter struct {
	h hash.Hash
	n int64
	w io.Writer
}

func newSectionWriter(w io.Writer) *sectionWriter {
	h := sha256.New()
	return &sectionWriter{h: h, w: io.MultiWriter(w, h)}
}

func (s *sectionWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.n += int64(n)
	return n, err
}

func (s *sectionWriter) Sum() Checksum {
	return digest(s.h)
}

func digest(h hash.Hash) Checksum {
	var c Checksum
	copy(c[:], h.Sum(nil))
	return c
}
