// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ziphdr

import (
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
)

// CompressionMethod represents the compression algorithm used for a file in the ZIP archive
type CompressionMethod uint16

// Compression method IDs from PKWARE APPNOTE.TXT section 4.4.5
const (
	Stored    CompressionMethod = 0  // No compression - file stored as-is
	Deflated  CompressionMethod = 8  // DEFLATE compression (most common)
	Deflate64 CompressionMethod = 9  // DEFLATE64(tm) enhanced compression
	BZIP2     CompressionMethod = 12 // BZIP2 compression
	LZMA      CompressionMethod = 14 // LZMA compression
	ZStandard CompressionMethod = 93 // Zstandard compression
)

// Decompressor transforms compressed data back into raw data.
type Decompressor interface {
	// Decompress returns a stream of uncompressed data.
	Decompress(src io.Reader) (io.ReadCloser, error)
}

type decompressorsMap map[CompressionMethod]Decompressor

// defaultDecompressors returns the built-in codecs. Registered ones in
// custom take precedence.
func defaultDecompressors(custom decompressorsMap, zstdMaxMemory uint64) decompressorsMap {
	m := decompressorsMap{
		Stored:    new(StoredDecompressor),
		Deflated:  new(DeflateDecompressor),
		ZStandard: &ZstdDecompressor{MaxMemory: zstdMaxMemory},
	}
	for method, d := range custom {
		m[method] = d
	}
	return m
}

// StoredDecompressor implements the "Store" method (no compression)
type StoredDecompressor struct{}

func (sd *StoredDecompressor) Decompress(src io.Reader) (io.ReadCloser, error) {
	if rc, ok := src.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(src), nil
}

// DeflateDecompressor implements the "Deflate" method
type DeflateDecompressor struct{}

func (dd *DeflateDecompressor) Decompress(src io.Reader) (io.ReadCloser, error) {
	return flate.NewReader(src), nil
}

// ZstdDecompressor implements method 93. Each call creates a single-threaded
// decoder that is released when the returned reader is closed.
type ZstdDecompressor struct {
	// MaxMemory caps decoder allocations. Zero means no limit.
	MaxMemory uint64
}

func (zd *ZstdDecompressor) Decompress(src io.Reader) (io.ReadCloser, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if zd.MaxMemory > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(zd.MaxMemory))
	}
	dec, err := zstd.NewReader(src, opts...)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}
