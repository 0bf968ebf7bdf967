//go:build cgo

package opaquebody

import "github.com/valyala/gozstd"

// ZstdCGO compresses feature bodies with cgo-backed zstd
// (github.com/valyala/gozstd), favoring compression ratio over the
// pure-Go ZstdPure codec. Only available in cgo-enabled builds.
type ZstdCGO struct{ Level int }

func (ZstdCGO) Name() string { return "zstd-cgo" }

func (z ZstdCGO) Compress(data []byte) ([]byte, error) {
	level := z.Level
	if level == 0 {
		level = 3
	}

	return gozstd.CompressLevel(nil, data, level), nil
}

func (ZstdCGO) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return gozstd.Decompress(nil, data)
}
