// Package codec serializes engine outputs, label volumes and merge event
// logs, as compressed binary frames.
//
// The frame layout is a breaking-change boundary: bytes written by one frame
// version only decode with the same version. Affinity volume I/O is the
// caller's responsibility and deliberately not handled here.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/voxelize/watergo/agglo"
)

// Compression selects the frame payload compression.
type Compression uint8

const (
	// CompressionNone stores payloads uncompressed.
	CompressionNone Compression = iota
	// CompressionLZ4 uses LZ4 block compression.
	CompressionLZ4
	// CompressionZSTD uses zstd compression.
	CompressionZSTD
)

// String returns a string representation of the Compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionLZ4:
		return "LZ4"
	case CompressionZSTD:
		return "ZSTD"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// Options contains configuration options for frame writers.
type Options struct {
	// Compression selects the payload compression.
	Compression Compression
}

// DefaultOptions contains the default writer options.
var DefaultOptions = Options{
	Compression: CompressionZSTD,
}

var (
	labelsMagic  = [4]byte{'W', 'G', 'L', '1'}
	historyMagic = [4]byte{'W', 'G', 'H', '1'}
)

// ErrBadFrame indicates a truncated or corrupt frame.
var ErrBadFrame = errors.New("codec: bad frame")

// maxFrameSize caps a single decoded payload. Real volumes run to gigabytes;
// a corrupt size header must not be allowed to demand an arbitrary
// allocation before any payload byte is read.
const maxFrameSize = 1 << 34 // 16 GiB

// WriteLabels writes a label volume as one compressed frame.
func WriteLabels(w io.Writer, shape []int, labels []uint64, optFns ...func(o *Options)) error {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	header := make([]byte, 0, 4+1+1+8*len(shape))
	header = append(header, labelsMagic[:]...)
	header = append(header, byte(opts.Compression))
	header = append(header, byte(len(shape)))
	for _, dim := range shape {
		header = binary.LittleEndian.AppendUint64(header, uint64(dim))
	}
	if _, err := w.Write(header); err != nil {
		return err
	}

	payload := make([]byte, 8*len(labels))
	for i, lbl := range labels {
		binary.LittleEndian.PutUint64(payload[8*i:], lbl)
	}
	return writeBlock(w, payload, opts.Compression)
}

// ReadLabels reads a frame written by WriteLabels.
func ReadLabels(r io.Reader) (shape []int, labels []uint64, err error) {
	var head [6]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, nil, err
	}
	if [4]byte(head[:4]) != labelsMagic {
		return nil, nil, fmt.Errorf("%w: bad magic", ErrBadFrame)
	}
	ndim := int(head[5])
	if ndim == 0 {
		return nil, nil, fmt.Errorf("%w: no dimensions", ErrBadFrame)
	}
	dims := make([]byte, 8*ndim)
	if _, err := io.ReadFull(r, dims); err != nil {
		return nil, nil, err
	}
	shape = make([]int, ndim)
	for d := range shape {
		shape[d] = int(binary.LittleEndian.Uint64(dims[8*d:]))
	}

	payload, err := readBlock(r, Compression(head[4]))
	if err != nil {
		return nil, nil, err
	}
	if len(payload)%8 != 0 {
		return nil, nil, fmt.Errorf("%w: payload not label-aligned", ErrBadFrame)
	}
	labels = make([]uint64, len(payload)/8)
	for i := range labels {
		labels[i] = binary.LittleEndian.Uint64(payload[8*i:])
	}
	return shape, labels, nil
}

// WriteHistory writes a merge event log as one compressed frame.
func WriteHistory(w io.Writer, events []agglo.MergeEvent, optFns ...func(o *Options)) error {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	header := make([]byte, 0, 5)
	header = append(header, historyMagic[:]...)
	header = append(header, byte(opts.Compression))
	if _, err := w.Write(header); err != nil {
		return err
	}

	payload := make([]byte, 0, 48*len(events))
	for _, ev := range events {
		payload = binary.LittleEndian.AppendUint64(payload, ev.Seq)
		payload = binary.LittleEndian.AppendUint64(payload, ev.A)
		payload = binary.LittleEndian.AppendUint64(payload, ev.B)
		payload = binary.LittleEndian.AppendUint64(payload, ev.Result)
		payload = binary.LittleEndian.AppendUint64(payload, math.Float64bits(ev.Score))
		payload = binary.LittleEndian.AppendUint64(payload, ev.Size)
	}
	return writeBlock(w, payload, opts.Compression)
}

// ReadHistory reads a frame written by WriteHistory.
func ReadHistory(r io.Reader) ([]agglo.MergeEvent, error) {
	var head [5]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, err
	}
	if [4]byte(head[:4]) != historyMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrBadFrame)
	}
	payload, err := readBlock(r, Compression(head[4]))
	if err != nil {
		return nil, err
	}
	if len(payload)%48 != 0 {
		return nil, fmt.Errorf("%w: payload not event-aligned", ErrBadFrame)
	}
	events := make([]agglo.MergeEvent, len(payload)/48)
	for i := range events {
		b := payload[48*i:]
		events[i] = agglo.MergeEvent{
			Seq:    binary.LittleEndian.Uint64(b),
			A:      binary.LittleEndian.Uint64(b[8:]),
			B:      binary.LittleEndian.Uint64(b[16:]),
			Result: binary.LittleEndian.Uint64(b[24:]),
			Score:  math.Float64frombits(binary.LittleEndian.Uint64(b[32:])),
			Size:   binary.LittleEndian.Uint64(b[40:]),
		}
	}
	return events, nil
}

// writeBlock writes a u64 uncompressed-size, u64 stored-size header followed
// by the payload. A stored size of zero marks an uncompressed payload, which
// is also the fallback when compression does not help.
func writeBlock(w io.Writer, data []byte, comp Compression) error {
	compressed, err := compress(data, comp)
	if err != nil {
		return err
	}

	var head [16]byte
	binary.LittleEndian.PutUint64(head[0:], uint64(len(data)))
	if compressed == nil || len(compressed) >= len(data) {
		binary.LittleEndian.PutUint64(head[8:], 0)
		if _, err := w.Write(head[:]); err != nil {
			return err
		}
		_, err := w.Write(data)
		return err
	}
	binary.LittleEndian.PutUint64(head[8:], uint64(len(compressed)))
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	_, err = w.Write(compressed)
	return err
}

func readBlock(r io.Reader, comp Compression) ([]byte, error) {
	var head [16]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, err
	}
	rawLen := binary.LittleEndian.Uint64(head[0:])
	storedLen := binary.LittleEndian.Uint64(head[8:])
	if rawLen > maxFrameSize {
		return nil, fmt.Errorf("%w: payload size %d exceeds limit", ErrBadFrame, rawLen)
	}

	if storedLen == 0 {
		data := make([]byte, rawLen)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		return data, nil
	}

	// writeBlock stores a compressed payload only when it is strictly
	// smaller than the raw one.
	if storedLen >= rawLen {
		return nil, fmt.Errorf("%w: stored size %d not below payload size %d", ErrBadFrame, storedLen, rawLen)
	}

	stored := make([]byte, storedLen)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, err
	}
	data, err := decompress(stored, rawLen, comp)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) != rawLen {
		return nil, fmt.Errorf("%w: decompressed size mismatch", ErrBadFrame)
	}
	return data, nil
}

func compress(data []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionNone:
		return nil, nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil // incompressible
		}
		return buf[:n], nil
	case CompressionZSTD:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("codec: unsupported compression %d", comp)
	}
}

func decompress(stored []byte, rawLen uint64, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionLZ4:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, err
		}
		return out[:n], nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(stored, make([]byte, 0, rawLen))
	default:
		return nil, fmt.Errorf("codec: unsupported compression %d", comp)
	}
}
