// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ziphdr resolves ZIP archive headers: it maps entry names to central
// directory records, computes the byte range each entry occupies and
// aggregates sizes across directory subtrees.
//
// The query functions ([LookupFileHeader], [IndexOf], [NextEntryOffset],
// [EntriesUnder], [TotalUncompressedSize] and [DecodeString]) operate on an
// in-memory [Model] and perform no I/O. They never modify the model, so a
// single Model may be queried from many goroutines as long as nobody writes
// to it at the same time.
//
// A Model is usually produced by [ReadModel]:
//
//	f, _ := os.Open("archive.zip")
//	st, _ := f.Stat()
//	m, _ := ziphdr.ReadModel(ctx, f, st.Size())
//
//	fh, _ := ziphdr.LookupFileHeader(m, `docs\README.md`) // matches "docs/readme.md"
//	end, _ := ziphdr.NextEntryOffset(m, fh)
//	raw := io.NewSectionReader(f, int64(fh.LocalHeaderOffset), int64(end-fh.LocalHeaderOffset))
//
// [Archive] bundles the model, the source and a prebuilt [Index] for callers
// that only need lookups and extraction.
package ziphdr

import (
	"io/fs"
	"time"

	"github.com/lemon4ksan/ziphdr/internal/sys"
)

// Model is the parsed view of an archive's central directory and end records.
//
// Zip64Format selects which end record is authoritative for the central
// directory offset. Zip64EndOfCentralDirectory is only set when the archive
// carries a Zip64 end record.
type Model struct {
	CentralDirectory           *CentralDirectory
	EndOfCentralDirectory      *EndOfCentralDirectory
	Zip64EndOfCentralDirectory *Zip64EndOfCentralDirectory
	Zip64Format                bool

	// Comment is the decoded archive comment.
	Comment string
}

// CentralDirectory holds the entry records in on-disk order.
//
// A nil FileHeaders slice means the directory was never populated and is
// rejected by lookups; a non-nil empty slice is a valid empty archive.
type CentralDirectory struct {
	FileHeaders []*FileHeader
}

// FileHeader is a single central directory record.
type FileHeader struct {
	// Name is the decoded entry name. Depending on the tool that wrote the
	// archive it may use '/' or '\' as separator.
	Name    string
	RawName []byte
	IsDir   bool

	// LocalHeaderOffset is the absolute offset of the entry's local header,
	// already resolved through the Zip64 extra field when needed.
	LocalHeaderOffset uint64

	// UncompressedSize and CompressedSize are the legacy 32-bit fields as
	// stored in the record. Use Size and PackedSize for effective values.
	UncompressedSize uint32
	CompressedSize   uint32

	// Zip64ExtendedInfo is set when the record carried a Zip64 extra field.
	Zip64ExtendedInfo *Zip64ExtendedInfo

	CRC32         uint32
	Method        uint16
	Flags         uint16
	VersionMadeBy uint16
	ExternalAttrs uint32
	Modified      time.Time

	Comment    string
	RawComment []byte
}

// Zip64ExtendedInfo holds the 64-bit overrides from the Zip64 extra field.
// Fields that were not present in the extra field are zero.
type Zip64ExtendedInfo struct {
	UncompressedSize  uint64
	CompressedSize    uint64
	LocalHeaderOffset uint64
	DiskNumberStart   uint32
}

// HasUncompressedSize reports whether zi carries an authoritative uncompressed size.
// It is safe to call on a nil receiver.
func (zi *Zip64ExtendedInfo) HasUncompressedSize() bool {
	return zi != nil && zi.UncompressedSize > 0
}

// HasCompressedSize reports whether zi carries an authoritative compressed size.
func (zi *Zip64ExtendedInfo) HasCompressedSize() bool {
	return zi != nil && zi.CompressedSize > 0
}

// Size returns the effective uncompressed size of the entry.
func (fh *FileHeader) Size() uint64 {
	if fh.Zip64ExtendedInfo.HasUncompressedSize() {
		return fh.Zip64ExtendedInfo.UncompressedSize
	}
	return uint64(fh.UncompressedSize)
}

// PackedSize returns the effective compressed size of the entry.
func (fh *FileHeader) PackedSize() uint64 {
	if fh.Zip64ExtendedInfo.HasCompressedSize() {
		return fh.Zip64ExtendedInfo.CompressedSize
	}
	return uint64(fh.CompressedSize)
}

// Mode returns the permission and type bits derived from the external
// attributes, interpreted according to the host system that wrote the entry.
func (fh *FileHeader) Mode() fs.FileMode {
	return sys.FileMode(sys.HostSystemOf(fh.VersionMadeBy), fh.ExternalAttrs, fh.IsDir)
}

// IsUTF8 reports whether the language encoding flag (bit 11) is set.
func (fh *FileHeader) IsUTF8() bool {
	return fh.Flags&flagUTF8 != 0
}

// IsEncrypted reports whether the entry data is encrypted.
func (fh *FileHeader) IsEncrypted() bool {
	return fh.Flags&flagEncrypted != 0
}

// HasDataDescriptor reports whether the CRC and sizes follow the entry data.
func (fh *FileHeader) HasDataDescriptor() bool {
	return fh.Flags&flagDataDescriptor != 0
}

// General purpose bit flags
const (
	flagEncrypted      uint16 = 0x0001
	flagDataDescriptor uint16 = 0x0008
	flagUTF8           uint16 = 0x0800
)

// EndOfCentralDirectory is the legacy end of central directory record.
type EndOfCentralDirectory struct {
	DiskNumber             uint16
	CentralDirectoryDisk   uint16
	EntriesOnDisk          uint16
	TotalEntries           uint16
	CentralDirectorySize   uint32
	CentralDirectoryOffset uint32
	Comment                []byte
}

// Zip64EndOfCentralDirectory is the Zip64 end of central directory record.
type Zip64EndOfCentralDirectory struct {
	VersionMadeBy          uint16
	VersionNeeded          uint16
	DiskNumber             uint32
	CentralDirectoryDisk   uint32
	EntriesOnDisk          uint64
	TotalEntries           uint64
	CentralDirectorySize   uint64
	CentralDirectoryOffset uint64
}
