// Package opaquebody demonstrates that a feature body is an opaque blob
// to the container format: the reader never interprets it, so a caller
// is free to store it pre-compressed with any codec it likes. The codecs
// here exist for tests and the fcbdump --peek inspector; the container
// itself applies no container-level compression.
package opaquebody

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/s2"
	kzstd "github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec compresses and decompresses opaque feature bodies.
type Codec interface {
	Name() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// NoOp returns data unchanged; it documents the default "bodies are
// stored as-is" behavior.
type NoOp struct{}

func (NoOp) Name() string                          { return "noop" }
func (NoOp) Compress(data []byte) ([]byte, error)   { return data, nil }
func (NoOp) Decompress(data []byte) ([]byte, error) { return data, nil }

// LZ4 compresses feature bodies with the LZ4 block format, favoring
// compression/decompression speed over ratio.
type LZ4 struct{}

func (LZ4) Name() string { return "lz4" }

var lz4CompressorPool = sync.Pool{
	New: func() any { return &lz4.Compressor{} },
}

func (LZ4) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	c, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(c)

	n, err := c.CompressBlock(data, dst)
	if err != nil {
		return nil, err
	}

	return dst[:n], nil
}

func (LZ4) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	bufSize := len(data) * 4
	const maxSize = 128 * 1024 * 1024

	for bufSize <= maxSize {
		buf := make([]byte, bufSize)

		n, err := lz4.UncompressBlock(data, buf)
		if err == nil {
			return buf[:n], nil
		}

		bufSize *= 2
	}

	return nil, fmt.Errorf("opaquebody: lz4 decompressed size exceeds %d bytes", maxSize)
}

// ZstdPure compresses feature bodies with the pure-Go zstd implementation
// (github.com/klauspost/compress/zstd), for builds without cgo.
type ZstdPure struct{}

func (ZstdPure) Name() string { return "zstd-pure" }

func (ZstdPure) Compress(data []byte) ([]byte, error) {
	enc, err := kzstd.NewWriter(nil, kzstd.WithEncoderLevel(kzstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	return enc.EncodeAll(data, nil), nil
}

func (ZstdPure) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dec, err := kzstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return dec.DecodeAll(data, nil)
}

// S2 compresses feature bodies with the S2 format
// (github.com/klauspost/compress/s2), a Snappy-compatible codec tuned for
// speed.
type S2 struct{}

func (S2) Name() string { return "s2" }

func (S2) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

func (S2) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}

// ByName returns the codec identified by name, or false if unknown.
// cmd/fcbdump --peek does not use it; it tries a fixed list of codecs.
func ByName(name string) (Codec, bool) {
	switch name {
	case "noop":
		return NoOp{}, true
	case "lz4":
		return LZ4{}, true
	case "zstd-cgo":
		return ZstdCGO{}, true
	case "zstd-pure":
		return ZstdPure{}, true
	case "s2":
		return S2{}, true
	default:
		return nil, false
	}
}
