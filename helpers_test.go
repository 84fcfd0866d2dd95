// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ziphdr

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/lemon4ksan/ziphdr/internal"
)

type testEntry struct {
	name    string
	content string
	method  uint16
	comment string
}

// buildZip writes entries with the standard library writer. Names ending in
// '/' become directories.
func buildZip(t *testing.T, comment string, entries ...testEntry) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	zw.RegisterCompressor(uint16(ZStandard), func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w)
	})

	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:    e.name,
			Method:  e.method,
			Comment: e.comment,
		})
		require.NoError(t, err)
		if e.content != "" {
			_, err = io.WriteString(w, e.content)
			require.NoError(t, err)
		}
	}
	if comment != "" {
		require.NoError(t, zw.SetComment(comment))
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func le(buf *bytes.Buffer, values ...any) {
	for _, v := range values {
		binary.Write(buf, binary.LittleEndian, v)
	}
}

// buildZip64 writes a single stored entry whose central directory record
// defers its sizes to a Zip64 extra field, followed by Zip64 end records and
// a saturated legacy end record.
func buildZip64(name, content string) []byte {
	buf := new(bytes.Buffer)
	crc := crc32.ChecksumIEEE([]byte(content))
	size := uint32(len(content))

	// Local file header
	le(buf, internal.LocalFileHeaderSignature,
		uint16(45), uint16(0), uint16(0), uint16(0), uint16(0x21),
		crc, size, size, uint16(len(name)), uint16(0))
	buf.WriteString(name)
	buf.WriteString(content)

	// Central directory
	cdOffset := uint64(buf.Len())
	le(buf, internal.CentralDirectorySignature,
		uint16(45), uint16(45), uint16(0), uint16(0), uint16(0), uint16(0x21),
		crc, uint32(0xFFFFFFFF), uint32(0xFFFFFFFF),
		uint16(len(name)), uint16(20), uint16(0),
		uint16(0), uint16(0), uint32(0), uint32(0))
	buf.WriteString(name)
	le(buf, internal.Zip64ExtraFieldTag, uint16(16), uint64(len(content)), uint64(len(content)))
	cdSize := uint64(buf.Len()) - cdOffset

	// Zip64 end of central directory record and locator
	zip64Offset := uint64(buf.Len())
	le(buf, internal.Zip64EndOfCentralDirSignature,
		uint64(44), uint16(45), uint16(45), uint32(0), uint32(0),
		uint64(1), uint64(1), cdSize, cdOffset)
	le(buf, internal.Zip64EndOfCentralDirLocatorSignature,
		uint32(0), zip64Offset, uint32(1))

	// Legacy end record with saturated fields
	le(buf, internal.EndOfCentralDirSignature,
		uint16(0), uint16(0), uint16(0xFFFF), uint16(0xFFFF),
		uint32(0xFFFFFFFF), uint32(0xFFFFFFFF), uint16(0))

	return buf.Bytes()
}

// newTestModel builds a model whose records sit at the given offsets and
// whose central directory starts at cdOffset.
func newTestModel(cdOffset uint32, names []string, offsets []uint64) *Model {
	headers := make([]*FileHeader, len(names))
	for i, name := range names {
		headers[i] = &FileHeader{Name: name, LocalHeaderOffset: offsets[i]}
	}
	return &Model{
		CentralDirectory:      &CentralDirectory{FileHeaders: headers},
		EndOfCentralDirectory: &EndOfCentralDirectory{CentralDirectoryOffset: cdOffset},
	}
}
