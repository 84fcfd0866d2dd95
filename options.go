// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ziphdr

import (
	"log/slog"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Option configures ReadModel and Archive.
type Option func(c *config)

type config struct {
	logger        *slog.Logger
	charset       encoding.Encoding
	decompressors decompressorsMap
	zstdMaxMemory uint64
}

func newConfig(opts []Option) config {
	c := config{
		charset:       unicode.UTF8,
		decompressors: make(decompressorsMap),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *config) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// WithLogger sets a logger for archive reading.
// If nil, a discard logger is used (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithCharset sets the charset requested for entry names and comments.
// Default: UTF-8, which reads records without the UTF-8 flag as CP437.
// A nil encoding selects plain UTF-8 for every record.
func WithCharset(cs encoding.Encoding) Option {
	return func(c *config) {
		c.charset = cs
	}
}

// WithDecompressor registers a decompressor for a compression method,
// replacing the built-in one if present.
func WithDecompressor(method CompressionMethod, d Decompressor) Option {
	return func(c *config) {
		if d != nil {
			c.decompressors[method] = d
		}
	}
}

// WithZstdMaxMemory limits the memory a Zstandard decoder may allocate.
// Zero means no limit.
func WithZstdMaxMemory(n uint64) Option {
	return func(c *config) {
		c.zstdMaxMemory = n
	}
}
