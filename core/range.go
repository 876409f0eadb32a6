package core

import "encoding/binary"

// Range is a cursor-style view over a contiguous byte slice. All read/write
// operations advance begin; end is fixed at construction. It is the Go
// translation of the client's original C `range` type, made memory-safe:
// every operation that would run past end returns an error instead of
// trusting the caller.
type Range struct {
	buf   []byte
	begin int
	end   int
}

// NewRange returns a Range over buf[0:len(buf)].
func NewRange(buf []byte) Range {
	return Range{buf: buf, begin: 0, end: len(buf)}
}

// sliceRange returns a Range over buf[begin:end].
func sliceRange(buf []byte, begin, end int) Range {
	return Range{buf: buf, begin: begin, end: end}
}

// Len returns the number of unread/unwritten bytes remaining.
func (r Range) Len() int {
	if r.buf == nil {
		return 0
	}
	return r.end - r.begin
}

// IsEmpty reports whether the range has no bytes remaining.
func (r Range) IsEmpty() bool { return r.Len() == 0 }

// Begin returns the current cursor offset into the backing buffer.
func (r Range) Begin() int { return r.begin }

// Bytes returns the unread/unwritten remainder as a slice (no copy).
func (r Range) Bytes() []byte { return r.buf[r.begin:r.end] }

func (r *Range) room(n int) bool { return r.end-r.begin >= n }

// WriteBytes copies src into the range and advances begin by len(src).
func (r *Range) WriteBytes(src []byte) error {
	if !r.room(len(src)) {
		return ErrBufferFull
	}
	copy(r.buf[r.begin:], src)
	r.begin += len(src)
	return nil
}

// ReadBytes copies the next n bytes into a new slice and advances begin.
func (r *Range) ReadBytes(n int) ([]byte, error) {
	if !r.room(n) {
		return nil, ErrBufferUnderflow
	}
	out := make([]byte, n)
	copy(out, r.buf[r.begin:r.begin+n])
	r.begin += n
	return out, nil
}

// CopyInto copies the next n bytes of the range into dst (which must have
// room for n bytes starting at dst's own cursor) and advances both ranges.
func (r *Range) CopyInto(dst *Range, n int) error {
	if !r.room(n) {
		return ErrBufferUnderflow
	}
	if !dst.room(n) {
		return ErrBufferFull
	}
	copy(dst.buf[dst.begin:], r.buf[r.begin:r.begin+n])
	r.begin += n
	dst.begin += n
	return nil
}

// ClearBytes writes n zero bytes and advances begin; used to reserve header
// fields that are patched in place later.
func (r *Range) ClearBytes(n int) error {
	if !r.room(n) {
		return ErrBufferFull
	}
	for i := r.begin; i < r.begin+n; i++ {
		r.buf[i] = 0
	}
	r.begin += n
	return nil
}

// SkipBytes advances begin by n without reading.
func (r *Range) SkipBytes(n int) error {
	if !r.room(n) {
		return ErrBufferUnderflow
	}
	r.begin += n
	return nil
}

func (r *Range) WriteUint8(v uint8) error {
	if !r.room(1) {
		return ErrBufferFull
	}
	r.buf[r.begin] = v
	r.begin++
	return nil
}

func (r *Range) ReadUint8() (uint8, error) {
	if !r.room(1) {
		return 0, ErrBufferUnderflow
	}
	v := r.buf[r.begin]
	r.begin++
	return v, nil
}

func (r *Range) WriteInt8(v int8) error { return r.WriteUint8(uint8(v)) }

func (r *Range) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

func (r *Range) WriteUint16(v uint16) error {
	if !r.room(2) {
		return ErrBufferFull
	}
	binary.LittleEndian.PutUint16(r.buf[r.begin:], v)
	r.begin += 2
	return nil
}

func (r *Range) ReadUint16() (uint16, error) {
	if !r.room(2) {
		return 0, ErrBufferUnderflow
	}
	v := binary.LittleEndian.Uint16(r.buf[r.begin:])
	r.begin += 2
	return v, nil
}

func (r *Range) WriteUint32(v uint32) error {
	if !r.room(4) {
		return ErrBufferFull
	}
	binary.LittleEndian.PutUint32(r.buf[r.begin:], v)
	r.begin += 4
	return nil
}

func (r *Range) ReadUint32() (uint32, error) {
	if !r.room(4) {
		return 0, ErrBufferUnderflow
	}
	v := binary.LittleEndian.Uint32(r.buf[r.begin:])
	r.begin += 4
	return v, nil
}

func (r *Range) WriteInt32(v int32) error { return r.WriteUint32(uint32(v)) }

func (r *Range) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Range) WriteUint64(v uint64) error {
	if !r.room(8) {
		return ErrBufferFull
	}
	binary.LittleEndian.PutUint64(r.buf[r.begin:], v)
	r.begin += 8
	return nil
}

func (r *Range) ReadUint64() (uint64, error) {
	if !r.room(8) {
		return 0, ErrBufferUnderflow
	}
	v := binary.LittleEndian.Uint64(r.buf[r.begin:])
	r.begin += 8
	return v, nil
}

func (r *Range) WriteInt64(v int64) error { return r.WriteUint64(uint64(v)) }

func (r *Range) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}
