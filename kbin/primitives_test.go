package kbin

import (
	"bytes"
	"encoding/binary"
	"testing"
	"testing/quick"
)

func TestVarint(t *testing.T) {
	if err := quick.Check(func(x int32) bool {
		var expPut [10]byte
		n := binary.PutVarint(expPut[:], int64(x))

		gotPut := AppendVarint(nil, x)
		if !bytes.Equal(expPut[:n], gotPut) {
			return false
		}
		if VarintLen(int64(x)) != n {
			return false
		}

		expRead, expN := binary.Varint(expPut[:n])
		gotRead, gotN := Varint(gotPut)
		return expN == gotN && expRead == int64(gotRead)
	}, nil); err != nil {
		t.Error(err)
	}
}

func TestVarlong(t *testing.T) {
	if err := quick.Check(func(x int64) bool {
		var expPut [10]byte
		n := binary.PutVarint(expPut[:], x)

		gotPut := AppendVarlong(nil, x)
		if len(gotPut) < n {
			return false
		}

		expRead, expN := binary.Varint(expPut[:n])
		gotRead, gotN := Varlong(gotPut)
		return expN == gotN && expRead == gotRead
	}, nil); err != nil {
		t.Error(err)
	}
}

func TestAppendReadRoundTrip(t *testing.T) {
	var w Writer
	w.WriteInt8(-5)
	w.WriteInt16(-1234)
	w.WriteInt32(987654)
	w.WriteInt64(-123456789012)
	s := "client-id"
	w.WriteStr(&s)
	w.WriteStr(nil)
	w.WriteBytes([]byte("payload"), false)
	w.WriteBytes(nil, true)

	r := Reader{Src: w.Bytes()}
	if got := r.Int8(); got != -5 {
		t.Fatalf("Int8: got %d", got)
	}
	if got := r.Int16(); got != -1234 {
		t.Fatalf("Int16: got %d", got)
	}
	if got := r.Int32(); got != 987654 {
		t.Fatalf("Int32: got %d", got)
	}
	if got := r.Int64(); got != -123456789012 {
		t.Fatalf("Int64: got %d", got)
	}
	if got := r.NullableString(); got == nil || *got != "client-id" {
		t.Fatalf("NullableString: got %v", got)
	}
	if got := r.NullableString(); got != nil {
		t.Fatalf("NullableString: expected nil, got %v", *got)
	}
	if got := r.NullableBytes(); got == nil || string(*got) != "payload" {
		t.Fatalf("NullableBytes: got %v", got)
	}
	if got := r.NullableBytes(); got != nil {
		t.Fatalf("NullableBytes: expected nil, got %v", *got)
	}
	if err := r.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestNullVsEmptyString(t *testing.T) {
	var w Writer
	empty := ""
	w.WriteStr(&empty)
	w.WriteStr(nil)

	r := Reader{Src: w.Bytes()}
	got := r.NullableString()
	if got == nil || *got != "" {
		t.Fatalf("expected non-nil empty string, got %v", got)
	}
	if got := r.NullableString(); got != nil {
		t.Fatalf("expected nil string, got %q", *got)
	}
}

func TestReserveAndUpdate(t *testing.T) {
	var w Writer
	tok := w.ReserveArrayLen()
	count := 0
	for _, topic := range []string{"a", "b", "c"} {
		w.WriteNonNullStr(topic)
		count++
	}
	w.FinishArray(tok, count)

	r := Reader{Src: w.Bytes()}
	n := r.ArrayLen()
	if n != 3 {
		t.Fatalf("expected patched count 3, got %d", n)
	}
	for i := 0; i < int(n); i++ {
		_ = r.String()
	}
	if err := r.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestReaderUnderflowIsSticky(t *testing.T) {
	r := Reader{Src: []byte{0, 1}} // too short for an Int32
	_ = r.Int32()
	if !r.Bad() {
		t.Fatal("expected Bad() after underflow")
	}
	// Further reads must no-op rather than panic or mutate further.
	if got := r.Int64(); got != 0 {
		t.Fatalf("expected 0 after bad read, got %d", got)
	}
	if err := r.Complete(); err != ErrNotEnoughData {
		t.Fatalf("expected ErrNotEnoughData, got %v", err)
	}
}
