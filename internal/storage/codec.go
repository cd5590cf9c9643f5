package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// maxLength bounds length prefixes and element counts read from disk so a
// corrupt file cannot make us allocate gigabytes.
const maxLength = 1 << 30

// Encoder writes little-endian fields and remembers the first error, so
// serialization code can be written as a flat sequence of calls followed by
// a single Err check.
//
// EDUCATIONAL NOTE:
// -----------------
// Every file in the store (pages, table metadata, the catalog) is written
// with this encoder. Strings are an 8-byte length followed by the raw bytes
// with no terminator.
type Encoder struct {
	w   io.Writer
	buf [8]byte
	err error
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder { return &Encoder{w: w} }

// Err returns the first write error, if any.
func (e *Encoder) Err() error { return e.err }

func (e *Encoder) write(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

// Bool writes a single byte, 1 for true.
func (e *Encoder) Bool(v bool) {
	e.buf[0] = 0
	if v {
		e.buf[0] = 1
	}
	e.write(e.buf[:1])
}

func (e *Encoder) Int32(v int32) {
	binary.LittleEndian.PutUint32(e.buf[:4], uint32(v))
	e.write(e.buf[:4])
}

func (e *Encoder) Int64(v int64) { e.Uint64(uint64(v)) }

func (e *Encoder) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[:8], v)
	e.write(e.buf[:8])
}

func (e *Encoder) Float64(v float64) { e.Uint64(math.Float64bits(v)) }

// String writes an 8-byte length followed by the raw bytes.
func (e *Encoder) String(s string) {
	e.Uint64(uint64(len(s)))
	e.write([]byte(s))
}

// Decoder is the reading counterpart of Encoder.
type Decoder struct {
	r   io.Reader
	buf [8]byte
	err error
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder { return &Decoder{r: r} }

// Err returns the first read error, if any.
func (d *Decoder) Err() error { return d.err }

// Fail records err unless an earlier error is already stored.
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) read(n int) []byte {
	if d.err != nil {
		clear(d.buf[:n])
		return d.buf[:n]
	}
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		d.err = err
		clear(d.buf[:n])
	}
	return d.buf[:n]
}

func (d *Decoder) Bool() bool { return d.read(1)[0] != 0 }

func (d *Decoder) Int32() int32 { return int32(binary.LittleEndian.Uint32(d.read(4))) }

func (d *Decoder) Int64() int64 { return int64(d.Uint64()) }

func (d *Decoder) Uint64() uint64 { return binary.LittleEndian.Uint64(d.read(8)) }

func (d *Decoder) Float64() float64 { return math.Float64frombits(d.Uint64()) }

// String reads a length-prefixed string.
func (d *Decoder) String() string {
	n := d.Uint64()
	if d.err != nil {
		return ""
	}
	if n > maxLength {
		d.Fail(fmt.Errorf("string length %d exceeds limit", n))
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.Fail(err)
		return ""
	}
	return string(b)
}

// Count reads a uint64 element count.
func (d *Decoder) Count() int {
	n := d.Uint64()
	if n > maxLength {
		d.Fail(fmt.Errorf("element count %d exceeds limit", n))
		return 0
	}
	return int(n)
}
