package core

import (
	"bytes"
	"testing"
)

func TestRangeWriteReadRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	w := NewRange(buf)

	if err := w.WriteUint8(7); err != nil {
		t.Fatalf("WriteUint8: %v", err)
	}
	if err := w.WriteUint16(1234); err != nil {
		t.Fatalf("WriteUint16: %v", err)
	}
	if err := w.WriteUint32(987654321); err != nil {
		t.Fatalf("WriteUint32: %v", err)
	}
	if err := w.WriteUint64(0x0102030405060708); err != nil {
		t.Fatalf("WriteUint64: %v", err)
	}
	if err := w.WriteBytes([]byte("hi")); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}

	r := NewRange(buf)
	if v, err := r.ReadUint8(); err != nil || v != 7 {
		t.Fatalf("ReadUint8 = %d, %v", v, err)
	}
	if v, err := r.ReadUint16(); err != nil || v != 1234 {
		t.Fatalf("ReadUint16 = %d, %v", v, err)
	}
	if v, err := r.ReadUint32(); err != nil || v != 987654321 {
		t.Fatalf("ReadUint32 = %d, %v", v, err)
	}
	if v, err := r.ReadUint64(); err != nil || v != 0x0102030405060708 {
		t.Fatalf("ReadUint64 = %d, %v", v, err)
	}
	if v, err := r.ReadBytes(2); err != nil || !bytes.Equal(v, []byte("hi")) {
		t.Fatalf("ReadBytes = %q, %v", v, err)
	}
}

func TestRangeWriteOverflow(t *testing.T) {
	buf := make([]byte, 2)
	w := NewRange(buf)
	if err := w.WriteUint32(1); err != ErrBufferFull {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
}

func TestRangeReadUnderflow(t *testing.T) {
	buf := make([]byte, 2)
	r := NewRange(buf)
	if _, err := r.ReadUint32(); err != ErrBufferUnderflow {
		t.Fatalf("expected ErrBufferUnderflow, got %v", err)
	}
}

func TestRangeSkipAndClear(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	r := NewRange(buf)
	if err := r.SkipBytes(2); err != nil {
		t.Fatalf("SkipBytes: %v", err)
	}
	if v, err := r.ReadUint8(); err != nil || v != 3 {
		t.Fatalf("ReadUint8 after skip = %d, %v", v, err)
	}

	w := NewRange(buf)
	if err := w.ClearBytes(5); err != nil {
		t.Fatalf("ClearBytes: %v", err)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("buf[%d] = %d, want 0", i, b)
		}
	}
}

func TestRangeLenAndIsEmpty(t *testing.T) {
	r := sliceRange(make([]byte, 10), 2, 5)
	if got := r.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	if r.IsEmpty() {
		t.Fatalf("IsEmpty() = true, want false")
	}
	if _, err := r.ReadBytes(3); err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !r.IsEmpty() {
		t.Fatalf("IsEmpty() = false after draining, want true")
	}
}
