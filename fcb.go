// Package fcb provides convenient top-level wrappers around the container
// package for the common case of writing and reading a single FCB
// container: a cloud-native binary format for 3D city feature datasets,
// combining a packed Hilbert R-tree spatial index with sorted per-field
// attribute indices so a client can fetch only the bytes a spatial or
// attribute query needs.
//
// # Basic usage
//
// Writing a container:
//
//	header := container.Header{Version: "1.0", Transform: transform}
//	w, _ := fcb.NewWriter(header, schema)
//	w.AddFeature(box, body, values)
//	w.Finalize(sink)
//
// Reading it back:
//
//	r, _ := fcb.Open(src)
//	it, _ := r.SelectBBox(queryBox)
//	for {
//	    body, ok, err := it.Next()
//	    if err != nil || !ok {
//	        break
//	    }
//	    // use body
//	}
//
// This package provides convenient top-level wrappers around the container
// package, simplifying the most common use cases. For advanced usage
// (custom node sizes, disabling the spatial index, tuning HTTP range
// batching), use the container and internal/httprange packages directly.
package fcb

import (
	"context"
	"io"

	"github.com/fcb-io/fcb/container"
	"github.com/fcb-io/fcb/internal/httprange"
	"github.com/fcb-io/fcb/key"
	"github.com/fcb-io/fcb/rtree"
)

// NewWriter creates a container writer with the given header metadata and
// indexed-attribute schema.
//
// Parameters:
//   - header: the container's descriptive metadata. Version and Transform
//     must already be set; FeaturesCount, IndexNodeSize, Columns and
//     AttributeIndex are overwritten by Finalize.
//   - schema: the attribute fields the writer builds a sorted index for.
//   - opts: optional configuration (container.WithNodeSize,
//     container.WithSpatialIndex).
func NewWriter(header container.Header, schema []container.AttrField, opts ...container.WriterOption) (*container.Writer, error) {
	return container.NewWriter(header, schema, opts...)
}

// Open opens a container for reading from src (a local file or an
// internal/httprange.Client, both of which satisfy container.Source).
func Open(src container.Source) (*container.Reader, error) {
	return container.Open(src)
}

// OpenHTTP opens a container served at url over HTTP range requests,
// without downloading it in full: both the header and every subsequent
// section read (R-tree nodes, attribute index entries, feature bodies) are
// fetched lazily via Range headers.
func OpenHTTP(ctx context.Context, url string, opts ...httprange.Option) (*container.Reader, error) {
	client, err := httprange.NewClient(ctx, url, opts...)
	if err != nil {
		return nil, err
	}

	return container.Open(client)
}

// WriteFile is a convenience one-shot: build a writer, add every feature in
// features, and finalize to sink in a single call.
func WriteFile(header container.Header, schema []container.AttrField, features []Feature, sink io.Writer, opts ...container.WriterOption) error {
	w, err := container.NewWriter(header, schema, opts...)
	if err != nil {
		return err
	}

	for _, f := range features {
		if err := w.AddFeature(f.Box, f.Body, f.Values); err != nil {
			return err
		}
	}

	return w.Finalize(sink)
}

// Feature bundles one staged feature's bounding box, opaque body, and
// indexed attribute values for WriteFile.
type Feature struct {
	Box    rtree.Box
	Body   []byte
	Values map[string]key.Key
}
