// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ziphdr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Archive is a read-only ZIP archive opened for lookups and extraction.
// It is safe for concurrent use.
type Archive struct {
	mu            sync.RWMutex     // Guards decompressors
	src           io.ReaderAt      // Archive bytes
	closer        io.Closer        // Set when the archive owns src
	model         *Model           // Parsed central directory
	index         *Index           // Case-insensitive name table over model
	decompressors decompressorsMap // Registered decompression codecs
	logger        *slog.Logger
}

// Open opens the named file and reads its central directory.
// The returned Archive must be closed to release the file.
func Open(ctx context.Context, name string, opts ...Option) (*Archive, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	a, err := NewArchive(ctx, f, stat.Size(), opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// NewArchive reads the central directory of the size-byte archive in src.
// src must stay readable for as long as entries are opened.
func NewArchive(ctx context.Context, src io.ReaderAt, size int64, opts ...Option) (*Archive, error) {
	c := newConfig(opts)

	m, err := ReadModel(ctx, src, size, opts...)
	if err != nil {
		return nil, err
	}
	idx, err := NewIndex(m)
	if err != nil {
		return nil, err
	}

	return &Archive{
		src:           src,
		model:         m,
		index:         idx,
		decompressors: defaultDecompressors(c.decompressors, c.zstdMaxMemory),
		logger:        c.log(),
	}, nil
}

// Model returns the parsed archive model. It must not be modified.
func (a *Archive) Model() *Model {
	return a.model
}

// Comment returns the decoded archive comment.
func (a *Archive) Comment() string {
	return a.model.Comment
}

// RegisterDecompressor adds support for reading a custom compression method.
func (a *Archive) RegisterDecompressor(method CompressionMethod, d Decompressor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.decompressors[method] = d
}

// Files returns a copy of the list of records in central directory order.
func (a *Archive) Files() []*FileHeader {
	headers := a.model.CentralDirectory.FileHeaders
	result := make([]*FileHeader, len(headers))
	copy(result, headers)
	return result
}

// File returns the record matching name, ignoring case and separator style.
// Returns ErrFileNotFound if nothing matches.
func (a *Archive) File(name string) (*FileHeader, error) {
	fh, err := a.index.FileHeader(name)
	if err != nil {
		return nil, err
	}
	if fh == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return fh, nil
}

// Range returns the half-open byte range [start, end) occupied by the named
// entry: its local header, data and optional data descriptor.
func (a *Archive) Range(name string) (start, end uint64, err error) {
	fh, i, err := a.lookup(name)
	if err != nil {
		return 0, 0, err
	}
	return entryRangeAt(a.model, fh, i)
}

// lookup resolves name to its record and that record's position.
func (a *Archive) lookup(name string) (*FileHeader, int, error) {
	fh, err := a.File(name)
	if err != nil {
		return nil, -1, err
	}
	i, err := a.index.IndexOf(fh)
	if err != nil {
		return nil, -1, err
	}
	return fh, i, nil
}

// Entries returns the named directory and every record nested under it.
// It returns an empty slice when name is a regular file.
func (a *Archive) Entries(name string) ([]*FileHeader, error) {
	fh, err := a.File(name)
	if err != nil {
		return nil, err
	}
	return EntriesUnder(a.model.CentralDirectory.FileHeaders, fh), nil
}

// DirSize returns the total uncompressed size of the named directory's
// subtree, or the size of the entry itself when name is a regular file.
func (a *Archive) DirSize(name string) (uint64, error) {
	fh, err := a.File(name)
	if err != nil {
		return 0, err
	}
	if !fh.IsDir {
		return fh.Size(), nil
	}
	return TotalUncompressedSize(EntriesUnder(a.model.CentralDirectory.FileHeaders, fh)), nil
}

// OpenFile returns a reader over the uncompressed content of the named entry.
func (a *Archive) OpenFile(ctx context.Context, name string) (io.ReadCloser, error) {
	fh, i, err := a.lookup(name)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	rc, err := openEntry(ctx, a.model, fh, i, a.src, a.decompressors)
	a.mu.RUnlock()

	if err != nil {
		a.logger.Debug("open entry failed", slog.String("name", fh.Name), slog.Any("error", err))
		return nil, err
	}
	return rc, nil
}

// Close releases the underlying file if the archive was created by Open.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
