package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

const (
	// Magic identifies metal index files (ASCII "MTL1").
	Magic = 0x314C544D
	// Version is the current container version.
	Version = 1

	// HeaderSize is the size of the file header in bytes.
	HeaderSize = 32
	// FrameSize is the size of a section frame in bytes.
	FrameSize = 32

	// MaxSectionSize bounds a single decoded section.
	MaxSectionSize = 1 << 40
)

// Header is the fixed-size file header.
type Header struct {
	Magic       uint32
	Version     uint32
	Compression Compression
	Sections    uint32
}

func (h Header) marshal() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:], h.Magic)
	binary.LittleEndian.PutUint32(b[4:], h.Version)
	b[8] = byte(h.Compression)
	binary.LittleEndian.PutUint32(b[12:], h.Sections)
	return b
}

// Writer writes a container. The number of sections is fixed up front.
type Writer struct {
	w       io.Writer
	codec   Compression
	planned uint32
	written uint32
	started bool
}

// NewWriter returns a writer compressing sections with codec.
func NewWriter(w io.Writer, codec Compression) *Writer {
	return &Writer{w: w, codec: codec}
}

// WriteHeader writes the file header announcing the number of sections.
func (w *Writer) WriteHeader(sections uint32) error {
	if w.started {
		return errors.New("persistence: header already written")
	}
	w.started = true
	w.planned = sections
	h := Header{Magic: Magic, Version: Version, Compression: w.codec, Sections: sections}
	_, err := w.w.Write(h.marshal())
	return err
}

// WriteSection writes one section.
func (w *Writer) WriteSection(id uint32, payload []byte) error {
	if !w.started {
		return errors.New("persistence: header not written")
	}
	if w.written >= w.planned {
		return fmt.Errorf("persistence: more than %d sections", w.planned)
	}

	stored, codec, err := compress(payload, w.codec)
	if err != nil {
		return fmt.Errorf("persistence: compress section %d: %w", id, err)
	}

	frame := marshalFrame(id, codec, uint64(len(payload)), uint64(len(stored)))
	crc := crc32.Update(crc32.Checksum(frame[:24], crcTable), crcTable, stored)
	binary.LittleEndian.PutUint32(frame[24:], crc)

	if _, err := w.w.Write(frame); err != nil {
		return err
	}
	if _, err := w.w.Write(stored); err != nil {
		return err
	}
	w.written++
	return nil
}

// Close verifies that every announced section was written.
func (w *Writer) Close() error {
	if w.written != w.planned {
		return fmt.Errorf("persistence: wrote %d of %d sections", w.written, w.planned)
	}
	return nil
}

func marshalFrame(id uint32, codec Compression, raw, stored uint64) []byte {
	b := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(b[0:], id)
	b[4] = byte(codec)
	binary.LittleEndian.PutUint64(b[8:], raw)
	binary.LittleEndian.PutUint64(b[16:], stored)
	return b
}

// Reader reads a container written by Writer.
type Reader struct {
	r      io.Reader
	header Header
	read   uint32
}

// NewReader returns a reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadHeader reads and validates the file header.
func (r *Reader) ReadHeader() (Header, error) {
	b := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return Header{}, truncated(err)
	}

	h := Header{
		Magic:       binary.LittleEndian.Uint32(b[0:]),
		Version:     binary.LittleEndian.Uint32(b[4:]),
		Compression: Compression(b[8]),
		Sections:    binary.LittleEndian.Uint32(b[12:]),
	}
	if h.Magic != Magic {
		return Header{}, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: got %d", ErrInvalidVersion, h.Version)
	}
	if h.Compression > CompressionZstd {
		return Header{}, fmt.Errorf("%w: unknown compression %d", ErrInvalidFormat, h.Compression)
	}
	r.header = h
	return h, nil
}

// ReadSection reads the next section, which must have the given id, and
// returns its decoded payload.
func (r *Reader) ReadSection(id uint32) ([]byte, error) {
	if r.read >= r.header.Sections {
		return nil, &SectionError{ID: id, Reason: "missing"}
	}

	frame := make([]byte, FrameSize)
	if _, err := io.ReadFull(r.r, frame); err != nil {
		return nil, truncated(err)
	}

	got := binary.LittleEndian.Uint32(frame[0:])
	if got != id {
		return nil, &SectionError{ID: id, Reason: fmt.Sprintf("found section %d", got)}
	}
	codec := Compression(frame[4])
	raw := binary.LittleEndian.Uint64(frame[8:])
	storedLen := binary.LittleEndian.Uint64(frame[16:])
	want := binary.LittleEndian.Uint32(frame[24:])

	if raw > MaxSectionSize || storedLen > MaxSectionSize {
		return nil, &SectionError{ID: id, Reason: "section too large"}
	}

	stored, err := readN(r.r, storedLen)
	if err != nil {
		return nil, err
	}

	crc := crc32.Update(crc32.Checksum(frame[:24], crcTable), crcTable, stored)
	if crc != want {
		return nil, &ChecksumMismatchError{Section: id, Expected: want, Actual: crc}
	}

	payload, err := decompress(stored, codec, raw)
	if err != nil {
		return nil, fmt.Errorf("section %d: %w", id, err)
	}
	r.read++
	return payload, nil
}

// Close reports sections announced in the header that were never read.
func (r *Reader) Close() error {
	if r.read != r.header.Sections {
		return fmt.Errorf("%w: %d of %d sections read", ErrInvalidFormat, r.read, r.header.Sections)
	}
	return nil
}

// readN reads exactly n bytes without trusting n for the allocation size.
func readN(r io.Reader, n uint64) ([]byte, error) {
	const chunk = 1 << 20
	if n <= chunk {
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, truncated(err)
		}
		return b, nil
	}

	var buf bytes.Buffer
	m, err := io.CopyN(&buf, r, int64(n))
	if err != nil || uint64(m) != n {
		return nil, truncated(err)
	}
	return buf.Bytes(), nil
}

func truncated(err error) error {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}
