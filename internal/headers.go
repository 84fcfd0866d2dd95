// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package internal decodes the fixed-layout ZIP records.
package internal

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Each record type is identified by a signature starting with the marker
// 0x4b50 ("PK").
const (
	CentralDirectorySignature            uint32 = 0x02014b50
	LocalFileHeaderSignature             uint32 = 0x04034b50
	EndOfCentralDirSignature             uint32 = 0x06054b50
	Zip64EndOfCentralDirSignature        uint32 = 0x06064b50
	Zip64EndOfCentralDirLocatorSignature uint32 = 0x07064b50
)

// Record sizes without the signature and variable-length tails.
const (
	LocalFileHeaderLen             = 26
	CentralDirEntryLen             = 42
	EndOfCentralDirLen             = 18
	Zip64EndOfCentralDirLen        = 52
	Zip64EndOfCentralDirLocatorLen = 16
)

// Zip64ExtraFieldTag identifies the extra field carrying 64-bit sizes and offsets.
const Zip64ExtraFieldTag uint16 = 0x0001

// CentralDirEntry is a central directory file header as stored on disk.
type CentralDirEntry struct {
	VersionMadeBy          uint16
	VersionNeededToExtract uint16
	GeneralPurposeBitFlag  uint16
	CompressionMethod      uint16
	LastModFileTime        uint16
	LastModFileDate        uint16
	CRC32                  uint32
	CompressedSize         uint32
	UncompressedSize       uint32
	FilenameLength         uint16
	ExtraFieldLength       uint16
	FileCommentLength      uint16
	DiskNumberStart        uint16
	InternalFileAttributes uint16
	ExternalFileAttributes uint32
	LocalHeaderOffset      uint32
	Filename               []byte
	ExtraField             map[uint16][]byte
	Comment                []byte
}

// ReadCentralDirEntry decodes a central directory entry. The signature must
// already have been consumed.
func ReadCentralDirEntry(src io.Reader) (CentralDirEntry, error) {
	var buf [CentralDirEntryLen]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return CentralDirEntry{}, fmt.Errorf("read source: %w", err)
	}

	entry := CentralDirEntry{
		VersionMadeBy:          binary.LittleEndian.Uint16(buf[0:2]),
		VersionNeededToExtract: binary.LittleEndian.Uint16(buf[2:4]),
		GeneralPurposeBitFlag:  binary.LittleEndian.Uint16(buf[4:6]),
		CompressionMethod:      binary.LittleEndian.Uint16(buf[6:8]),
		LastModFileTime:        binary.LittleEndian.Uint16(buf[8:10]),
		LastModFileDate:        binary.LittleEndian.Uint16(buf[10:12]),
		CRC32:                  binary.LittleEndian.Uint32(buf[12:16]),
		CompressedSize:         binary.LittleEndian.Uint32(buf[16:20]),
		UncompressedSize:       binary.LittleEndian.Uint32(buf[20:24]),
		FilenameLength:         binary.LittleEndian.Uint16(buf[24:26]),
		ExtraFieldLength:       binary.LittleEndian.Uint16(buf[26:28]),
		FileCommentLength:      binary.LittleEndian.Uint16(buf[28:30]),
		DiskNumberStart:        binary.LittleEndian.Uint16(buf[30:32]),
		InternalFileAttributes: binary.LittleEndian.Uint16(buf[32:34]),
		ExternalFileAttributes: binary.LittleEndian.Uint32(buf[34:38]),
		LocalHeaderOffset:      binary.LittleEndian.Uint32(buf[38:42]),
	}

	var err error
	if entry.Filename, err = readBytes(src, entry.FilenameLength); err != nil {
		return CentralDirEntry{}, fmt.Errorf("read filename: %w", err)
	}

	extraField, err := readBytes(src, entry.ExtraFieldLength)
	if err != nil {
		return CentralDirEntry{}, fmt.Errorf("read extra field: %w", err)
	}
	entry.ExtraField = ParseExtraField(extraField)

	if entry.Comment, err = readBytes(src, entry.FileCommentLength); err != nil {
		return CentralDirEntry{}, fmt.Errorf("read comment: %w", err)
	}

	return entry, nil
}

// LocalFileHeader holds the fixed part of a local file header.
type LocalFileHeader struct {
	VersionNeededToExtract uint16
	GeneralPurposeBitFlag  uint16
	CompressionMethod      uint16
	LastModFileTime        uint16
	LastModFileDate        uint16
	CRC32                  uint32
	CompressedSize         uint32
	UncompressedSize       uint32
	FilenameLength         uint16
	ExtraFieldLength       uint16
}

// Len returns the full size of the local header including signature,
// filename and extra field.
func (h LocalFileHeader) Len() int64 {
	return 4 + LocalFileHeaderLen + int64(h.FilenameLength) + int64(h.ExtraFieldLength)
}

// ReadLocalFileHeader decodes a local file header including its signature.
func ReadLocalFileHeader(src io.Reader) (LocalFileHeader, error) {
	var buf [4 + LocalFileHeaderLen]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return LocalFileHeader{}, fmt.Errorf("read source: %w", err)
	}
	if sig := binary.LittleEndian.Uint32(buf[0:4]); sig != LocalFileHeaderSignature {
		return LocalFileHeader{}, fmt.Errorf("unexpected signature %#08x", sig)
	}
	return LocalFileHeader{
		VersionNeededToExtract: binary.LittleEndian.Uint16(buf[4:6]),
		GeneralPurposeBitFlag:  binary.LittleEndian.Uint16(buf[6:8]),
		CompressionMethod:      binary.LittleEndian.Uint16(buf[8:10]),
		LastModFileTime:        binary.LittleEndian.Uint16(buf[10:12]),
		LastModFileDate:        binary.LittleEndian.Uint16(buf[12:14]),
		CRC32:                  binary.LittleEndian.Uint32(buf[14:18]),
		CompressedSize:         binary.LittleEndian.Uint32(buf[18:22]),
		UncompressedSize:       binary.LittleEndian.Uint32(buf[22:26]),
		FilenameLength:         binary.LittleEndian.Uint16(buf[26:28]),
		ExtraFieldLength:       binary.LittleEndian.Uint16(buf[28:30]),
	}, nil
}

// EndOfCentralDir is the legacy end of central directory record.
type EndOfCentralDir struct {
	ThisDiskNum                     uint16
	DiskNumWithTheStartOfCentralDir uint16
	TotalNumberOfEntriesOnThisDisk  uint16
	TotalNumberOfEntries            uint16
	CentralDirSize                  uint32
	CentralDirOffset                uint32
	CommentLength                   uint16
	Comment                         []byte
}

// ReadEndOfCentralDir decodes the record following its signature.
func ReadEndOfCentralDir(src io.Reader) (EndOfCentralDir, error) {
	var buf [EndOfCentralDirLen]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return EndOfCentralDir{}, fmt.Errorf("read source: %w", err)
	}
	end := EndOfCentralDir{
		ThisDiskNum:                     binary.LittleEndian.Uint16(buf[0:2]),
		DiskNumWithTheStartOfCentralDir: binary.LittleEndian.Uint16(buf[2:4]),
		TotalNumberOfEntriesOnThisDisk:  binary.LittleEndian.Uint16(buf[4:6]),
		TotalNumberOfEntries:            binary.LittleEndian.Uint16(buf[6:8]),
		CentralDirSize:                  binary.LittleEndian.Uint32(buf[8:12]),
		CentralDirOffset:                binary.LittleEndian.Uint32(buf[12:16]),
		CommentLength:                   binary.LittleEndian.Uint16(buf[16:18]),
	}

	var err error
	if end.Comment, err = readBytes(src, end.CommentLength); err != nil {
		return EndOfCentralDir{}, fmt.Errorf("read comment: %w", err)
	}
	return end, nil
}

// Zip64EndOfCentralDir is the Zip64 end of central directory record
// without its extensible data sector.
type Zip64EndOfCentralDir struct {
	Size                            uint64
	VersionMadeBy                   uint16
	VersionNeededToExtract          uint16
	ThisDiskNum                     uint32
	DiskNumWithTheStartOfCentralDir uint32
	TotalNumberOfEntriesOnThisDisk  uint64
	TotalNumberOfEntries            uint64
	CentralDirSize                  uint64
	CentralDirOffset                uint64
}

// ReadZip64EndOfCentralDir decodes the record following its signature.
func ReadZip64EndOfCentralDir(src io.Reader) (Zip64EndOfCentralDir, error) {
	var buf [Zip64EndOfCentralDirLen]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return Zip64EndOfCentralDir{}, fmt.Errorf("read source: %w", err)
	}
	return Zip64EndOfCentralDir{
		Size:                            binary.LittleEndian.Uint64(buf[0:8]),
		VersionMadeBy:                   binary.LittleEndian.Uint16(buf[8:10]),
		VersionNeededToExtract:          binary.LittleEndian.Uint16(buf[10:12]),
		ThisDiskNum:                     binary.LittleEndian.Uint32(buf[12:16]),
		DiskNumWithTheStartOfCentralDir: binary.LittleEndian.Uint32(buf[16:20]),
		TotalNumberOfEntriesOnThisDisk:  binary.LittleEndian.Uint64(buf[20:28]),
		TotalNumberOfEntries:            binary.LittleEndian.Uint64(buf[28:36]),
		CentralDirSize:                  binary.LittleEndian.Uint64(buf[36:44]),
		CentralDirOffset:                binary.LittleEndian.Uint64(buf[44:52]),
	}, nil
}

// Zip64EndOfCentralDirLocator points at the Zip64 end record.
type Zip64EndOfCentralDirLocator struct {
	EndOfCentralDirStartDiskNum uint32
	Zip64EndOfCentralDirOffset  uint64
	TotalNumberOfDisks          uint32
}

// ReadZip64EndOfCentralDirLocator decodes the locator following its signature.
func ReadZip64EndOfCentralDirLocator(src io.Reader) (Zip64EndOfCentralDirLocator, error) {
	var buf [Zip64EndOfCentralDirLocatorLen]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return Zip64EndOfCentralDirLocator{}, fmt.Errorf("read source: %w", err)
	}
	return Zip64EndOfCentralDirLocator{
		EndOfCentralDirStartDiskNum: binary.LittleEndian.Uint32(buf[0:4]),
		Zip64EndOfCentralDirOffset:  binary.LittleEndian.Uint64(buf[4:12]),
		TotalNumberOfDisks:          binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// ParseExtraField splits raw extra field bytes into a map keyed by tag.
// Values exclude the 4-byte tag and size prefix. A truncated trailing
// block is ignored.
func ParseExtraField(extraField []byte) map[uint16][]byte {
	m := make(map[uint16][]byte)

	for offset := 0; offset+4 <= len(extraField); {
		tag := binary.LittleEndian.Uint16(extraField[offset : offset+2])
		size := int(binary.LittleEndian.Uint16(extraField[offset+2 : offset+4]))

		offset += 4
		if offset+size > len(extraField) {
			break
		}

		m[tag] = extraField[offset : offset+size]
		offset += size
	}
	return m
}

// Zip64Fields holds the values decoded from a Zip64 extra field.
type Zip64Fields struct {
	UncompressedSize  uint64
	CompressedSize    uint64
	LocalHeaderOffset uint64
	DiskNumberStart   uint32
}

// ParseZip64ExtraField decodes a Zip64 extra field value. Only the fields
// whose legacy counterparts are saturated are present, in fixed order.
func ParseZip64ExtraField(data []byte, needUncompressed, needCompressed, needOffset, needDisk bool) Zip64Fields {
	var z Zip64Fields
	pos := 0
	if needUncompressed && len(data) >= pos+8 {
		z.UncompressedSize = binary.LittleEndian.Uint64(data[pos : pos+8])
		pos += 8
	}
	if needCompressed && len(data) >= pos+8 {
		z.CompressedSize = binary.LittleEndian.Uint64(data[pos : pos+8])
		pos += 8
	}
	if needOffset && len(data) >= pos+8 {
		z.LocalHeaderOffset = binary.LittleEndian.Uint64(data[pos : pos+8])
		pos += 8
	}
	if needDisk && len(data) >= pos+4 {
		z.DiskNumberStart = binary.LittleEndian.Uint32(data[pos : pos+4])
	}
	return z
}

func readBytes(src io.Reader, n uint16) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(src, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
