//go:build !cgo

package opaquebody

import "fmt"

// ZstdCGO is a stub in non-cgo builds: the real cgo-backed implementation
// lives in codec_cgo.go. Bodies compressed with it elsewhere still
// decompress fine under ZstdPure-compatible zstd readers; this stub only
// means *this* build cannot produce or consume it directly.
type ZstdCGO struct{ Level int }

func (ZstdCGO) Name() string { return "zstd-cgo" }

func (ZstdCGO) Compress([]byte) ([]byte, error) {
	return nil, fmt.Errorf("opaquebody: zstd-cgo codec requires a cgo build")
}

func (ZstdCGO) Decompress([]byte) ([]byte, error) {
	return nil, fmt.Errorf("opaquebody: zstd-cgo codec requires a cgo build")
}
