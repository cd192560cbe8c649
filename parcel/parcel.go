// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package parcel implements the flat, 4-byte aligned buffer that carries
// request and reply fields between the media player proxy and dispatcher.
//
// Writes happen at the current data position and grow the buffer as needed.
// Reads advance the data position; the first failed read records a sticky
// error (see Err) and every later read returns a zero value, so decoders can
// read a whole field list and check once at the end.
package parcel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrShortRead     = errors.New("parcel: not enough data")
	ErrBadLength     = errors.New("parcel: invalid length")
	ErrBadObject     = errors.New("parcel: unexpected object type")
	ErrUnterminated  = errors.New("parcel: unterminated string")
	ErrRangeOverflow = errors.New("parcel: range out of bounds")
)

// Object tags written in front of handle and file descriptor fields.
const (
	objectNull   int32 = 0
	objectHandle int32 = 0x73682a85
	objectFD     int32 = 0x66642a85
)

// Pair is one entry of an ordered (text, text) list.
type Pair struct {
	Key   string
	Value string
}

// Parcel is a growable request/reply buffer. The zero value is an empty
// parcel ready for writing. A Parcel is not safe for concurrent use.
type Parcel struct {
	data []byte
	pos  int
	err  error
}

// New returns an empty parcel.
func New() *Parcel {
	return &Parcel{}
}

// From wraps b without copying it. The data position starts at 0.
func From(b []byte) *Parcel {
	return &Parcel{data: b}
}

// Bytes returns the parcel contents. The slice aliases the parcel's storage.
func (p *Parcel) Bytes() []byte { return p.data }

// Len returns the number of bytes of data in the parcel.
func (p *Parcel) Len() int { return len(p.data) }

// DataPosition returns the current read/write offset.
func (p *Parcel) DataPosition() int { return p.pos }

// SetDataPosition moves the read/write offset, clamped to [0, Len()].
func (p *Parcel) SetDataPosition(pos int) {
	switch {
	case pos < 0:
		pos = 0
	case pos > len(p.data):
		pos = len(p.data)
	}
	p.pos = pos
}

// DataAvail returns the number of unread bytes after the data position.
func (p *Parcel) DataAvail() int { return len(p.data) - p.pos }

// Err returns the first decode error, if any.
func (p *Parcel) Err() error { return p.err }

// Reset empties the parcel and clears any decode error.
func (p *Parcel) Reset() {
	p.data = p.data[:0]
	p.pos = 0
	p.err = nil
}

func pad4(n int) int { return (n + 3) &^ 3 }

// grow reserves n bytes at the data position and returns them.
func (p *Parcel) grow(n int) []byte {
	end := p.pos + n
	if end > len(p.data) {
		if end > cap(p.data) {
			buf := make([]byte, end, max(end, 2*cap(p.data), 64))
			copy(buf, p.data)
			p.data = buf
		} else {
			p.data = p.data[:end]
		}
	}
	b := p.data[p.pos:end]
	p.pos = end
	return b
}

func (p *Parcel) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

// next consumes n bytes, or records ErrShortRead.
func (p *Parcel) next(n int) []byte {
	if p.err != nil {
		return nil
	}
	if n < 0 || n > len(p.data)-p.pos {
		p.fail(fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortRead, n, p.pos, len(p.data)-p.pos))
		return nil
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	return b
}

func (p *Parcel) WriteInt32(v int32) {
	binary.LittleEndian.PutUint32(p.grow(4), uint32(v))
}

func (p *Parcel) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(p.grow(4), v)
}

func (p *Parcel) WriteInt64(v int64) {
	binary.LittleEndian.PutUint64(p.grow(8), uint64(v))
}

func (p *Parcel) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(p.grow(8), v)
}

func (p *Parcel) WriteFloat32(v float32) {
	p.WriteUint32(math.Float32bits(v))
}

func (p *Parcel) WriteFloat64(v float64) {
	p.WriteUint64(math.Float64bits(v))
}

// WriteBool writes b as 0 or 1 in a 32-bit slot.
func (p *Parcel) WriteBool(b bool) {
	var v int32
	if b {
		v = 1
	}
	p.WriteInt32(v)
}

// Write appends raw bytes followed by zero padding to the next 4-byte boundary.
func (p *Parcel) Write(b []byte) {
	dst := p.grow(pad4(len(b)))
	n := copy(dst, b)
	clear(dst[n:])
}

// WriteRaw appends b verbatim, without padding.
func (p *Parcel) WriteRaw(b []byte) {
	copy(p.grow(len(b)), b)
}

// WriteCString writes s followed by a NUL terminator, padded.
func (p *Parcel) WriteCString(s string) {
	dst := p.grow(pad4(len(s) + 1))
	n := copy(dst, s)
	clear(dst[n:])
}

// WriteString8 writes a 32-bit length followed by s as a C string.
func (p *Parcel) WriteString8(s string) {
	p.WriteInt32(int32(len(s)))
	p.WriteCString(s)
}

// WriteByteArray writes a signed 32-bit length followed by the bytes, which
// are only present when the length is positive.
func (p *Parcel) WriteByteArray(b []byte) {
	p.WriteInt32(int32(len(b)))
	if len(b) > 0 {
		p.Write(b)
	}
}

// WritePairs writes a count followed by each pair as two String8 values.
// A nil list encodes as zero pairs.
func (p *Parcel) WritePairs(pairs []Pair) {
	p.WriteInt32(int32(len(pairs)))
	for _, kv := range pairs {
		p.WriteString8(kv.Key)
		p.WriteString8(kv.Value)
	}
}

// WriteHandle writes a reference to a live object by identity. Zero is the
// null reference.
func (p *Parcel) WriteHandle(h uint64) {
	if h == 0 {
		p.WriteInt32(objectNull)
	} else {
		p.WriteInt32(objectHandle)
	}
	p.WriteUint64(h)
}

// WriteFileDescriptor writes a file descriptor reference.
func (p *Parcel) WriteFileDescriptor(fd uintptr) {
	p.WriteInt32(objectFD)
	p.WriteInt64(int64(fd))
}

// WriteInterfaceToken writes the interface descriptor that prefixes requests.
func (p *Parcel) WriteInterfaceToken(descriptor string) {
	p.WriteString8(descriptor)
}

// AppendFrom copies length bytes of src starting at offset to the data
// position of p, verbatim.
func (p *Parcel) AppendFrom(src *Parcel, offset, length int) error {
	if offset < 0 || length < 0 || offset+length > len(src.data) {
		return fmt.Errorf("%w: offset %d length %d of %d", ErrRangeOverflow, offset, length, len(src.data))
	}
	p.WriteRaw(src.data[offset : offset+length])
	return nil
}

// InsertInt32 inserts v at the data position, shifting the bytes after it.
func (p *Parcel) InsertInt32(v int32) {
	tail := len(p.data) - p.pos
	p.data = append(p.data, 0, 0, 0, 0)
	copy(p.data[p.pos+4:], p.data[p.pos:p.pos+tail])
	binary.LittleEndian.PutUint32(p.data[p.pos:], uint32(v))
	p.pos += 4
}

func (p *Parcel) ReadInt32() int32 {
	b := p.next(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (p *Parcel) ReadUint32() uint32 {
	b := p.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (p *Parcel) ReadInt64() int64 {
	b := p.next(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (p *Parcel) ReadUint64() uint64 {
	b := p.next(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (p *Parcel) ReadFloat32() float32 {
	return math.Float32frombits(p.ReadUint32())
}

func (p *Parcel) ReadFloat64() float64 {
	return math.Float64frombits(p.ReadUint64())
}

// ReadBool reads a 32-bit slot; any non-zero value is true.
func (p *Parcel) ReadBool() bool {
	return p.ReadInt32() != 0
}

// Read consumes n raw bytes plus their padding and returns a copy.
func (p *Parcel) Read(n int) []byte {
	if n < 0 {
		p.fail(fmt.Errorf("%w: %d", ErrBadLength, n))
		return nil
	}
	b := p.next(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	p.skipPadding(n)
	return out
}

// skipPadding advances past the alignment bytes that follow an n byte field.
// A missing trailer at the very end of the data is tolerated.
func (p *Parcel) skipPadding(n int) {
	p.pos = min(p.pos+pad4(n)-n, len(p.data))
}

// ReadCString reads a NUL-terminated string and its padding.
func (p *Parcel) ReadCString() string {
	if p.err != nil {
		return ""
	}
	for i := p.pos; i < len(p.data); i++ {
		if p.data[i] == 0 {
			s := string(p.data[p.pos:i])
			n := i - p.pos + 1
			p.pos = i + 1
			p.skipPadding(n)
			return s
		}
	}
	p.fail(fmt.Errorf("%w at offset %d", ErrUnterminated, p.pos))
	return ""
}

// ReadString8 reads a length-prefixed string. A negative length is the null
// string and decodes as "".
func (p *Parcel) ReadString8() string {
	n := p.ReadInt32()
	if p.err != nil || n < 0 {
		return ""
	}
	b := p.next(int(n) + 1)
	if b == nil {
		return ""
	}
	if b[n] != 0 {
		p.fail(fmt.Errorf("%w at offset %d", ErrUnterminated, p.pos-1))
		return ""
	}
	p.skipPadding(int(n) + 1)
	return string(b[:n])
}

// ReadByteArray reads a signed length followed by that many bytes. Zero and
// negative lengths carry no payload; a negative length decodes as nil.
func (p *Parcel) ReadByteArray() []byte {
	n := p.ReadInt32()
	if p.err != nil || n < 0 {
		return nil
	}
	if n == 0 {
		return []byte{}
	}
	return p.Read(int(n))
}

// ReadPairs reads a count followed by that many String8 pairs. The count is
// validated against the remaining data before anything is allocated.
func (p *Parcel) ReadPairs() []Pair {
	n := p.ReadInt32()
	if p.err != nil {
		return nil
	}
	// Each pair occupies at least two length words and two terminators.
	if n < 0 || int(n) > p.DataAvail()/16 {
		p.fail(fmt.Errorf("%w: %d pairs with %d bytes left", ErrBadLength, n, p.DataAvail()))
		return nil
	}
	pairs := make([]Pair, 0, n)
	for i := int32(0); i < n; i++ {
		k := p.ReadString8()
		v := p.ReadString8()
		if p.err != nil {
			return nil
		}
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	return pairs
}

// ReadHandle reads an object reference written by WriteHandle.
func (p *Parcel) ReadHandle() uint64 {
	tag := p.ReadInt32()
	h := p.ReadUint64()
	if p.err != nil {
		return 0
	}
	switch tag {
	case objectNull:
		return 0
	case objectHandle:
		return h
	}
	p.fail(fmt.Errorf("%w: tag %#x, want handle", ErrBadObject, uint32(tag)))
	return 0
}

// ReadFileDescriptor reads a descriptor written by WriteFileDescriptor.
func (p *Parcel) ReadFileDescriptor() uintptr {
	tag := p.ReadInt32()
	fd := p.ReadInt64()
	if p.err != nil {
		return 0
	}
	if tag != objectFD {
		p.fail(fmt.Errorf("%w: tag %#x, want file descriptor", ErrBadObject, uint32(tag)))
		return 0
	}
	return uintptr(fd)
}

// EnforceInterface reads an interface token and reports whether it matches
// descriptor. A missing or truncated token reports false.
func (p *Parcel) EnforceInterface(descriptor string) bool {
	s := p.ReadString8()
	return p.err == nil && s == descriptor
}

// ReadRemaining returns a copy of every unread byte and moves the data
// position to the end.
func (p *Parcel) ReadRemaining() []byte {
	if p.err != nil {
		return nil
	}
	out := make([]byte, len(p.data)-p.pos)
	copy(out, p.data[p.pos:])
	p.pos = len(p.data)
	return out
}
