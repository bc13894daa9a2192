package rmt

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func encodeMTGetNative(g MTGet) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.NativeEndian, g)
	return buf.Bytes()
}

func TestDecodeMTGetNoSwapNeeded(t *testing.T) {
	want := MTGet{Type: 42, ErrReg: 0, Resid: 0, DSReg: 0, GStat: 7, FileNo: 1, BlkNo: 2}
	buf := encodeMTGetNative(want)

	got, err := decodeMTGet(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDecodeMTGetAppliesByteSwapHeuristic(t *testing.T) {
	want := MTGet{Type: 3, GStat: 99}
	buf := encodeMTGetNative(want)

	// Simulate a peer of the opposite byte order: every adjacent byte pair
	// is swapped relative to what we'd naturally produce.
	swapAdjacentBytePairs(buf)

	got, err := decodeMTGet(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v (swap heuristic should have undone the mismatch)", got, want)
	}
}

func TestDecodeMTGetWrongSizeFails(t *testing.T) {
	if _, err := decodeMTGet([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for wrong-sized status buffer")
	}
}

func TestSwapAdjacentBytePairsOddLengthLeavesLastByte(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	swapAdjacentBytePairs(buf)
	want := []byte{2, 1, 4, 3, 5}
	if !bytes.Equal(buf, want) {
		t.Fatalf("got %v, want %v", buf, want)
	}
}
