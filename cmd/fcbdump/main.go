// Command fcbdump is a thin reference CLI over the fcb package: it opens a
// container, prints its header, and optionally walks every feature. It
// lives outside the fcb/container/rtree/index/query packages on purpose —
// nothing in the core imports it — and is the only place in this module
// that uses the standard library's log package.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fcb-io/fcb/container"
	"github.com/fcb-io/fcb/internal/opaquebody"
)

func main() {
	var (
		path string
		peek bool
		all  bool
	)

	flag.StringVar(&path, "file", "", "path to an FCB container")
	flag.BoolVar(&peek, "peek", false, "for each feature, report which opaque-body codec (if any) its bytes round-trip through")
	flag.BoolVar(&all, "all", false, "walk every feature instead of just printing the header")
	flag.Parse()

	if path == "" {
		log.Fatal("fcbdump: -file is required")
	}

	if err := run(path, peek, all); err != nil {
		log.Fatalf("fcbdump: %v", err)
	}
}

func run(path string, peek, all bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := container.Open(f)
	if err != nil {
		return err
	}

	h := r.Header()

	fmt.Printf("version: %s\n", h.Version)
	fmt.Printf("features: %d\n", h.FeaturesCount)
	fmt.Printf("spatial index: %v (node size %d)\n", h.HasSpatialIndex(), h.IndexNodeSize)
	fmt.Printf("attribute indices: %d\n", len(h.AttributeIndex))
	fmt.Printf("content hash: %016x\n", h.ContentHash())

	if !all && !peek {
		return nil
	}

	it := r.SelectAll()
	defer it.Close()

	codecs := []opaquebody.Codec{opaquebody.NoOp{}, opaquebody.LZ4{}, opaquebody.ZstdPure{}, opaquebody.S2{}}

	for i := 0; ; i++ {
		body, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		if all {
			fmt.Printf("feature %d: %d bytes\n", i, len(body))
		}

		if peek {
			reportOpaqueBody(i, body, codecs)
		}
	}

	return nil
}

// reportOpaqueBody demonstrates that the core never interprets a feature
// body: it tries decompressing it with each codec in codecs (noop, lz4,
// zstd-pure and s2; zstd-cgo is not tried) and reports which ones succeed,
// without the container format itself being aware any of this happened.
func reportOpaqueBody(index int, body []byte, codecs []opaquebody.Codec) {
	for _, c := range codecs {
		if _, err := c.Decompress(body); err == nil {
			fmt.Printf("feature %d: body decompresses cleanly as %s\n", index, c.Name())
		}
	}
}
