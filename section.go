// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ziphdr

import (
	"context"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/lemon4ksan/ziphdr/internal"
)

// EntryRange returns the half-open byte range [start, end) occupied by fh:
// its local header, its compressed data and a trailing data descriptor if any.
//
// Unlike NextEntryOffset, a record taken from m is resolved by its position,
// so records whose names differ only in case get their own ranges. Records
// not present in m are resolved by name as IndexOf does.
func EntryRange(m *Model, fh *FileHeader) (start, end uint64, err error) {
	i, err := entryPosition(m, fh)
	if err != nil {
		return 0, 0, err
	}
	return entryRangeAt(m, fh, i)
}

func entryRangeAt(m *Model, fh *FileHeader, i int) (start, end uint64, err error) {
	end, err = nextOffsetAt(m, i)
	if err != nil {
		return 0, 0, err
	}
	start = fh.LocalHeaderOffset
	if end < start {
		return 0, 0, fmt.Errorf("%w: entry %q ends at %d before it starts at %d", ErrFormat, fh.Name, end, start)
	}
	return start, end, nil
}

// entryPosition returns the position of fh in m, matching the record itself
// before falling back to a lookup by name.
func entryPosition(m *Model, fh *FileHeader) (int, error) {
	if m == nil || fh == nil {
		return -1, fmt.Errorf("%w: model and file header are required", ErrInvalidInput)
	}
	if m.CentralDirectory != nil {
		for i, candidate := range m.CentralDirectory.FileHeaders {
			if candidate == fh {
				return i, nil
			}
		}
	}
	i, err := IndexOf(m, fh)
	if err != nil {
		return -1, err
	}
	if i < 0 {
		return -1, fmt.Errorf("%w: %q is not in the central directory", ErrInvalidInput, fh.Name)
	}
	return i, nil
}

// RawSection returns the bytes of src in the range reported by EntryRange.
func RawSection(m *Model, fh *FileHeader, src io.ReaderAt) (*io.SectionReader, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: source is nil", ErrInvalidInput)
	}
	start, end, err := EntryRange(m, fh)
	if err != nil {
		return nil, err
	}
	return io.NewSectionReader(src, int64(start), int64(end-start)), nil
}

// OpenEntry returns a reader over the uncompressed content of fh. The CRC-32
// and uncompressed size are verified when the reader is closed.
//
// The compressed stream is bounded by the entry's raw section, so a corrupt
// size field cannot make the reader run into the following entry.
func OpenEntry(ctx context.Context, m *Model, fh *FileHeader, src io.ReaderAt, opts ...Option) (io.ReadCloser, error) {
	c := newConfig(opts)
	i, err := entryPosition(m, fh)
	if err != nil {
		return nil, err
	}
	return openEntry(ctx, m, fh, i, src, defaultDecompressors(c.decompressors, c.zstdMaxMemory))
}

// openEntry opens fh, the record at position i of m.
func openEntry(ctx context.Context, m *Model, fh *FileHeader, i int, src io.ReaderAt, decompressors decompressorsMap) (io.ReadCloser, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: source is nil", ErrInvalidInput)
	}
	if fh.IsDir {
		return nil, fmt.Errorf("%w: %q is a directory", ErrInvalidInput, fh.Name)
	}
	if fh.IsEncrypted() {
		return nil, fmt.Errorf("%w: %q", ErrEncryption, fh.Name)
	}

	start, end, err := entryRangeAt(m, fh, i)
	if err != nil {
		return nil, err
	}
	raw := io.NewSectionReader(src, int64(start), int64(end-start))

	lh, err := internal.ReadLocalFileHeader(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: read local header of %q: %v", ErrFormat, fh.Name, err)
	}

	available := raw.Size() - lh.Len()
	packed := fh.PackedSize()
	if available < 0 || packed > uint64(available) {
		return nil, fmt.Errorf("%w: data of %q overruns its section", ErrFormat, fh.Name)
	}
	data := io.NewSectionReader(raw, lh.Len(), int64(packed))

	decompressor, ok := decompressors[CompressionMethod(fh.Method)]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrAlgorithm, fh.Method)
	}

	rc, err := decompressor.Decompress(&contextReader{ctx: ctx, r: data})
	if err != nil {
		return nil, fmt.Errorf("decompress data: %w", err)
	}

	return &checksumReader{
		rc:   rc,
		hash: crc32.NewIEEE(),
		want: fh.CRC32,
		size: fh.Size(),
	}, nil
}

// checksumReader wraps an io.ReadCloser to verify CRC32 checksum and size during reading.
type checksumReader struct {
	rc   io.ReadCloser
	hash hash.Hash32
	want uint32
	read uint64
	size uint64
}

func (cr *checksumReader) Read(p []byte) (int, error) {
	n, err := cr.rc.Read(p)
	if n > 0 {
		cr.read += uint64(n)
		if cr.read > cr.size {
			return n, ErrSizeMismatch
		}
		cr.hash.Write(p[:n])
	}
	return n, err
}

// Close verifies CRC32 and size after reading completes
func (cr *checksumReader) Close() error {
	defer cr.rc.Close()

	if cr.read != cr.size {
		return fmt.Errorf("%w: read %d, want %d", ErrSizeMismatch, cr.read, cr.size)
	}

	if got := cr.hash.Sum32(); got != cr.want {
		return fmt.Errorf("%w: got %x, want %x", ErrChecksum, got, cr.want)
	}
	return nil
}
