package persistence

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeContainer(t *testing.T, codec Compression, sections map[uint32][]byte, order []uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf, codec)
	require.NoError(t, w.WriteHeader(uint32(len(order))))
	for _, id := range order {
		require.NoError(t, w.WriteSection(id, sections[id]))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestContainer_RoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte("CGCGATTA"), 4096)
	sections := map[uint32][]byte{
		1: []byte("params"),
		2: compressible,
		3: {},
	}
	order := []uint32{1, 2, 3}

	for _, codec := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(codec.String(), func(t *testing.T) {
			data := writeContainer(t, codec, sections, order)
			if codec != CompressionNone {
				assert.Less(t, len(data), len(compressible))
			}

			r := NewReader(bytes.NewReader(data))
			h, err := r.ReadHeader()
			require.NoError(t, err)
			assert.Equal(t, uint32(3), h.Sections)
			assert.Equal(t, codec, h.Compression)

			for _, id := range order {
				payload, err := r.ReadSection(id)
				require.NoError(t, err)
				assert.Equal(t, len(sections[id]), len(payload))
				assert.True(t, bytes.Equal(sections[id], payload))
			}
			assert.NoError(t, r.Close())
		})
	}
}

func TestContainer_Rejects(t *testing.T) {
	sections := map[uint32][]byte{1: bytes.Repeat([]byte{7}, 128), 2: []byte("tail")}
	good := writeContainer(t, CompressionNone, sections, []uint32{1, 2})

	readAll := func(data []byte) error {
		r := NewReader(bytes.NewReader(data))
		if _, err := r.ReadHeader(); err != nil {
			return err
		}
		for _, id := range []uint32{1, 2} {
			if _, err := r.ReadSection(id); err != nil {
				return err
			}
		}
		return r.Close()
	}
	require.NoError(t, readAll(good))

	t.Run("BadMagic", func(t *testing.T) {
		bad := bytes.Clone(good)
		bad[0] ^= 0xFF
		assert.ErrorIs(t, readAll(bad), ErrInvalidMagic)
		assert.ErrorIs(t, readAll(bad), ErrInvalidFormat)
	})

	t.Run("BadVersion", func(t *testing.T) {
		bad := bytes.Clone(good)
		bad[4] = 9
		assert.ErrorIs(t, readAll(bad), ErrInvalidVersion)
	})

	t.Run("Truncated", func(t *testing.T) {
		for _, n := range []int{0, 10, HeaderSize + 5, len(good) - 1} {
			assert.ErrorIs(t, readAll(good[:n]), ErrInvalidFormat, "length %d", n)
		}
	})

	t.Run("Corrupted", func(t *testing.T) {
		bad := bytes.Clone(good)
		bad[HeaderSize+FrameSize+3] ^= 0x01
		err := readAll(bad)
		var mismatch *ChecksumMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, uint32(1), mismatch.Section)
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("CorruptedLength", func(t *testing.T) {
		bad := bytes.Clone(good)
		bad[HeaderSize+8]++
		assert.ErrorIs(t, readAll(bad), ErrInvalidFormat)
	})

	t.Run("OutOfOrder", func(t *testing.T) {
		swapped := writeContainer(t, CompressionNone, sections, []uint32{2, 1})
		var se *SectionError
		require.ErrorAs(t, readAll(swapped), &se)
		assert.ErrorIs(t, readAll(swapped), ErrInvalidFormat)
	})
}

func TestWriter_SectionCount(t *testing.T) {
	w := NewWriter(io.Discard, CompressionNone)
	assert.Error(t, w.WriteSection(1, nil))
	require.NoError(t, w.WriteHeader(1))
	require.NoError(t, w.WriteSection(1, nil))
	assert.Error(t, w.WriteSection(2, nil))
	assert.NoError(t, w.Close())
}

func TestEncoderDecoder(t *testing.T) {
	e := NewEncoder(64)
	e.Uint8(3)
	e.Bool(true)
	e.Uint16(0xBEEF)
	e.Uint32(42)
	e.Uint64(1 << 40)
	e.Text("chr1")
	e.Blob([]byte{1, 2, 3})
	e.Uint64s([]uint64{5, 6, 7})
	e.Uint32s([]uint32{8, 9})
	e.Uint64s(nil)
	e.Uint32s([]uint32{})

	d := NewDecoder(e.Bytes())
	assert.Equal(t, uint8(3), d.Uint8())
	assert.True(t, d.Bool())
	assert.Equal(t, uint16(0xBEEF), d.Uint16())
	assert.Equal(t, uint32(42), d.Uint32())
	assert.Equal(t, uint64(1<<40), d.Uint64())
	assert.Equal(t, "chr1", d.Text())
	assert.Equal(t, []byte{1, 2, 3}, d.Blob())
	assert.Equal(t, []uint64{5, 6, 7}, d.Uint64s())
	assert.Equal(t, []uint32{8, 9}, d.Uint32s())
	assert.Nil(t, d.Uint64s())
	assert.Nil(t, d.Uint32s())
	require.NoError(t, d.Finish())

	short := NewDecoder(e.Bytes()[:5])
	short.Uint8()
	short.Bool()
	short.Uint64()
	assert.Equal(t, uint32(0), short.Uint32())
	assert.ErrorIs(t, short.Finish(), ErrInvalidFormat)

	huge := NewEncoder(8)
	huge.Uint64(1 << 50)
	hd := NewDecoder(huge.Bytes())
	assert.Nil(t, hd.Uint64s())
	assert.ErrorIs(t, hd.Err(), ErrTruncated)
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]Compression{"": CompressionNone, "LZ4": CompressionLZ4, "zstd": CompressionZstd} {
		got, err := ParseCompression(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCompression("gzip")
	assert.Error(t, err)
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mtl")
	payload := []byte("persisted")

	require.NoError(t, SaveToFile(path, func(w io.Writer) error {
		_, err := w.Write(payload)
		return err
	}))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	for _, load := range []func(string, func(io.Reader) error) error{LoadFromFile, LoadMapped} {
		var got []byte
		require.NoError(t, load(path, func(r io.Reader) error {
			var err error
			got, err = io.ReadAll(r)
			return err
		}))
		assert.Equal(t, payload, got)
	}

	failing := errors.New("boom")
	err = SaveToFile(filepath.Join(t.TempDir(), "x"), func(io.Writer) error { return failing })
	assert.ErrorIs(t, err, failing)

	err = LoadMapped(filepath.Join(t.TempDir(), "missing"), func(io.Reader) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)
}
