package persistence

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"
)

// Encoder appends little-endian values to a section payload.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder with the given initial capacity.
func NewEncoder(capacity int) *Encoder {
	return &Encoder{buf: make([]byte, 0, capacity)}
}

// Bytes returns the encoded payload.
func (e *Encoder) Bytes() []byte { return e.buf }

func (e *Encoder) Uint8(v uint8) { e.buf = append(e.buf, v) }

func (e *Encoder) Bool(v bool) {
	if v {
		e.Uint8(1)
	} else {
		e.Uint8(0)
	}
}

func (e *Encoder) Uint16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }

func (e *Encoder) Uint32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }

func (e *Encoder) Uint64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

// Text writes a u32 length followed by the bytes of s.
func (e *Encoder) Text(s string) {
	e.Uint32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// Blob writes a u64 length followed by b.
func (e *Encoder) Blob(b []byte) {
	e.Uint64(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// Uint64s writes a u64 count followed by the raw values.
func (e *Encoder) Uint64s(s []uint64) {
	e.Uint64(uint64(len(s)))
	if len(s) == 0 {
		return
	}
	if littleEndian {
		e.buf = append(e.buf, unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)...)
		return
	}
	for _, v := range s {
		e.Uint64(v)
	}
}

// Uint32s writes a u64 count followed by the raw values.
func (e *Encoder) Uint32s(s []uint32) {
	e.Uint64(uint64(len(s)))
	if len(s) == 0 {
		return
	}
	if littleEndian {
		e.buf = append(e.buf, unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)...)
		return
	}
	for _, v := range s {
		e.Uint32(v)
	}
}

// Decoder reads values written by Encoder. The first failure is sticky:
// later reads return zero values and Err reports the failure.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder decodes payload.
func NewDecoder(payload []byte) *Decoder {
	return &Decoder{buf: payload}
}

// Err returns the first decoding error.
func (d *Decoder) Err() error { return d.err }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// Finish returns an error if decoding failed or bytes are left over.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if d.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrInvalidFormat, d.Remaining())
	}
	return nil
}

// Fail records err unless an earlier error exists.
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > d.Remaining() {
		d.err = ErrTruncated
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *Decoder) Uint8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) Bool() bool { return d.Uint8() != 0 }

func (d *Decoder) Uint16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *Decoder) Uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *Decoder) Uint64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *Decoder) Text() string {
	return string(d.take(int(d.Uint32())))
}

// Blob returns a copy of a length-prefixed byte slice.
func (d *Decoder) Blob() []byte {
	n := d.count(1)
	b := d.take(n)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// count reads a u64 element count and checks that count*size bytes remain.
func (d *Decoder) count(size int) int {
	n := d.Uint64()
	if d.err != nil {
		return 0
	}
	if n > math.MaxInt32*8 || n*uint64(size) > uint64(d.Remaining()) {
		d.err = ErrTruncated
		return 0
	}
	return int(n)
}

// Uint64s returns a length-prefixed slice. An empty slice decodes as nil.
func (d *Decoder) Uint64s() []uint64 {
	n := d.count(8)
	b := d.take(n * 8)
	if b == nil || n == 0 {
		return nil
	}
	out := make([]uint64, n)
	if littleEndian && n > 0 {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), n*8), b)
		return out
	}
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	return out
}

func (d *Decoder) Uint32s() []uint32 {
	n := d.count(4)
	b := d.take(n * 4)
	if b == nil || n == 0 {
		return nil
	}
	out := make([]uint32, n)
	if littleEndian && n > 0 {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), n*4), b)
		return out
	}
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}
