package rmt

import (
	"bytes"
	"encoding/binary"

	"github.com/gopherarchive/rmt/internal/errors"
)

// The two ioctl request codes the protocol understands, matching the
// Linux mtio.h MTIOCTOP/MTIOCGET values a tar/dump-style caller would pass
// through a generic ioctl(2)-shaped entry point. Any other request is
// rejected by Ioctl without touching the wire, per §4.5.
const (
	MTIOCTOP = 0x40086d01
	MTIOCGET = 0x801c6d02
)

// MTOp is the argument to the "issue tape op" ioctl (the MTIOCTOP
// equivalent): an operation code and a repeat count, per §4.5.
type MTOp struct {
	Op    int32
	Count int32
}

// MTGet is the status structure returned by the "get tape status" ioctl
// (the MTIOCGET equivalent), per §4.5. Type is the designated
// small-integer field the byte-swap heuristic inspects.
type MTGet struct {
	Type   int16
	ErrReg int16
	Resid  int32
	DSReg  int32
	GStat  int32
	FileNo int32
	BlkNo  int32
}

// mtGetSize is the wire size of MTGet: the protocol transmits it as a raw,
// fixed-width byte blob with no framing beyond the preceding ack count, so
// the ack must equal exactly this many bytes.
const mtGetSize = 2 + 2 + 4 + 4 + 4 + 4 + 4

// decodeMTGet deserializes buf (which must be exactly mtGetSize bytes) into
// an MTGet, applying the legacy byte-swap heuristic first if needed.
//
// The heuristic, preserved exactly per §9: a remote host of different byte
// order will produce a Type field that looks implausibly large once
// misinterpreted in our native order (tape drive type codes are always
// small positive numbers well under 256). When that happens, every adjacent
// byte pair in the whole structure is swapped before decoding, which
// corrects a simple big/little-endian mismatch without either side needing
// to know the other's architecture.
func decodeMTGet(buf []byte) (MTGet, error) {
	if len(buf) != mtGetSize {
		return MTGet{}, errors.Fatalf("rmt: ioctl-get status has wrong size %d, want %d", len(buf), mtGetSize)
	}

	work := append([]byte(nil), buf...)

	var g MTGet
	if err := binary.Read(bytes.NewReader(work), binary.NativeEndian, &g); err != nil {
		return MTGet{}, errors.Fatalf("rmt: decoding ioctl-get status: %v", err)
	}

	if int(g.Type) > 255 {
		swapAdjacentBytePairs(work)
		g = MTGet{}
		if err := binary.Read(bytes.NewReader(work), binary.NativeEndian, &g); err != nil {
			return MTGet{}, errors.Fatalf("rmt: decoding byte-swapped ioctl-get status: %v", err)
		}
	}

	return g, nil
}

// swapAdjacentBytePairs swaps buf[0]<->buf[1], buf[2]<->buf[3], and so on,
// in place. If len(buf) is odd the trailing byte is left untouched.
func swapAdjacentBytePairs(buf []byte) {
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = buf[i+1], buf[i]
	}
}
