// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ziphdr

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/lemon4ksan/ziphdr/internal"
	"github.com/lemon4ksan/ziphdr/internal/sys"
)

const (
	directoryEndLen = 22 // Size of EOCD without comment
	zip64LocatorLen = 20 // Size of Zip64 Locator
)

// modelReader handles low-level reading of ZIP archive structure.
type modelReader struct {
	src      io.ReaderAt       // Source stream for reading archive data
	fileSize int64             // Total size of the archive
	charset  encoding.Encoding // Requested charset for names and comments
	logger   *slog.Logger
}

// ReadModel reads the end records and the central directory of the archive
// in src and returns the resulting Model. Entry data is not read.
//
// The archive is treated as Zip64 when a Zip64 end of central directory
// locator immediately precedes the end record. Context is checked between
// central directory entries.
func ReadModel(ctx context.Context, src io.ReaderAt, size int64, opts ...Option) (*Model, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: source is nil", ErrInvalidInput)
	}
	c := newConfig(opts)
	zr := &modelReader{
		src:      src,
		fileSize: size,
		charset:  c.charset,
		logger:   c.log(),
	}
	return zr.readModel(ctx)
}

func (zr *modelReader) readModel(ctx context.Context) (*Model, error) {
	endDir, endOffset, err := zr.findAndReadEndOfCentralDir(ctx)
	if err != nil {
		return nil, err
	}
	zr.logger.Debug("found end of central directory",
		slog.Int64("offset", endOffset),
		slog.Int("entries", int(endDir.TotalNumberOfEntries)))

	m := &Model{
		EndOfCentralDirectory: &EndOfCentralDirectory{
			DiskNumber:             endDir.ThisDiskNum,
			CentralDirectoryDisk:   endDir.DiskNumWithTheStartOfCentralDir,
			EntriesOnDisk:          endDir.TotalNumberOfEntriesOnThisDisk,
			TotalEntries:           endDir.TotalNumberOfEntries,
			CentralDirectorySize:   endDir.CentralDirSize,
			CentralDirectoryOffset: endDir.CentralDirOffset,
			Comment:                endDir.Comment,
		},
		Comment: DecodeString(endDir.Comment, false, zr.charset),
	}
	centralDirOffset, entriesNum := uint64(endDir.CentralDirOffset), uint64(endDir.TotalNumberOfEntries)

	zip64End, ok, err := zr.findAndReadZip64EndOfCentralDir(ctx, endOffset)
	if err != nil {
		return nil, err
	}
	if ok {
		zr.logger.Debug("archive uses zip64 end records",
			slog.Uint64("central_dir_offset", zip64End.CentralDirOffset),
			slog.Uint64("entries", zip64End.TotalNumberOfEntries))
		m.Zip64Format = true
		m.Zip64EndOfCentralDirectory = &Zip64EndOfCentralDirectory{
			VersionMadeBy:          zip64End.VersionMadeBy,
			VersionNeeded:          zip64End.VersionNeededToExtract,
			DiskNumber:             zip64End.ThisDiskNum,
			CentralDirectoryDisk:   zip64End.DiskNumWithTheStartOfCentralDir,
			EntriesOnDisk:          zip64End.TotalNumberOfEntriesOnThisDisk,
			TotalEntries:           zip64End.TotalNumberOfEntries,
			CentralDirectorySize:   zip64End.CentralDirSize,
			CentralDirectoryOffset: zip64End.CentralDirOffset,
		}
		centralDirOffset, entriesNum = zip64End.CentralDirOffset, zip64End.TotalNumberOfEntries
	} else if endDir.CentralDirOffset == math.MaxUint32 {
		return nil, fmt.Errorf("%w: central directory offset is saturated but no zip64 locator found", ErrFormat)
	}

	headers, err := zr.readCentralDir(ctx, centralDirOffset, entriesNum)
	if err != nil {
		return nil, err
	}
	m.CentralDirectory = &CentralDirectory{FileHeaders: headers}
	zr.logger.Debug("read central directory", slog.Int("entries", len(headers)))

	return m, nil
}

// findAndReadEndOfCentralDir scans backwards for the End of Central Directory
// record and returns it together with the offset of its signature.
//
// A record whose comment ends exactly at EOF is preferred, so a signature
// embedded in the archive comment is not mistaken for the real record. If
// no record ends at EOF, the last one that fits in the file is used.
func (zr *modelReader) findAndReadEndOfCentralDir(ctx context.Context) (internal.EndOfCentralDir, int64, error) {
	var (
		end            internal.EndOfCentralDir
		fallback       internal.EndOfCentralDir
		fallbackOffset int64 = -1
	)

	if zr.fileSize < directoryEndLen {
		return end, 0, fmt.Errorf("%w: file too small", ErrFormat)
	}

	const bufSize = 1024
	buf := make([]byte, bufSize+3)

	searchLimit := max(zr.fileSize-(math.MaxUint16+directoryEndLen), 0)

	// Walk windows from the end of the file towards searchLimit. Each window
	// overlaps the previous one by 3 bytes so that signatures crossing a
	// boundary are still seen.
	for windowEnd := zr.fileSize; windowEnd > searchLimit; {
		if err := ctx.Err(); err != nil {
			return end, 0, err
		}

		readPos := max(windowEnd-bufSize, searchLimit)
		readSize := min(windowEnd-readPos+3, zr.fileSize-readPos)

		n, err := zr.src.ReadAt(buf[:readSize], readPos)
		if err != nil && err != io.EOF {
			return end, 0, fmt.Errorf("read at %d: %w", readPos, err)
		}
		chunk := buf[:n]

		for p := len(chunk) - 4; p >= 0; p-- {
			if binary.LittleEndian.Uint32(chunk[p:p+4]) != internal.EndOfCentralDirSignature {
				continue
			}
			recordOffset := readPos + int64(p)

			// Ensure we can read the full 22-byte EOCD header
			if recordOffset+directoryEndLen > zr.fileSize {
				continue
			}

			sr := io.NewSectionReader(zr.src, recordOffset+4, zr.fileSize-(recordOffset+4))
			rec, err := internal.ReadEndOfCentralDir(sr)
			if err != nil {
				// A signature inside the comment can claim a comment running past EOF.
				continue
			}
			if recordOffset+directoryEndLen+int64(rec.CommentLength) == zr.fileSize {
				return rec, recordOffset, nil
			}
			if fallbackOffset < 0 {
				fallback, fallbackOffset = rec, recordOffset
			}
		}

		windowEnd = readPos
	}

	if fallbackOffset >= 0 {
		zr.logger.Debug("end of central directory is followed by trailing data",
			slog.Int64("offset", fallbackOffset))
		return fallback, fallbackOffset, nil
	}
	return end, 0, fmt.Errorf("%w: no end of central directory signature found", ErrFormat)
}

// findAndReadZip64EndOfCentralDir reads the Zip64 end record if a locator
// directly precedes the end record at endOffset. ok is false when the
// archive has no locator.
func (zr *modelReader) findAndReadZip64EndOfCentralDir(ctx context.Context, endOffset int64) (internal.Zip64EndOfCentralDir, bool, error) {
	var zip64End internal.Zip64EndOfCentralDir

	if err := ctx.Err(); err != nil {
		return zip64End, false, err
	}

	locatorOffset := endOffset - zip64LocatorLen
	if locatorOffset < 0 {
		return zip64End, false, nil
	}

	locReader := io.NewSectionReader(zr.src, locatorOffset, zip64LocatorLen)
	if !zr.verifySignature(locReader, internal.Zip64EndOfCentralDirLocatorSignature) {
		return zip64End, false, nil
	}

	locator, err := internal.ReadZip64EndOfCentralDirLocator(locReader)
	if err != nil {
		return zip64End, false, fmt.Errorf("read zip64 end of central dir locator: %w", err)
	}

	recordOffset := int64(locator.Zip64EndOfCentralDirOffset)
	if recordOffset < 0 || recordOffset >= locatorOffset {
		return zip64End, false, fmt.Errorf("%w: invalid zip64 end of central directory offset", ErrFormat)
	}

	recReader := io.NewSectionReader(zr.src, recordOffset, locatorOffset-recordOffset)
	if !zr.verifySignature(recReader, internal.Zip64EndOfCentralDirSignature) {
		return zip64End, false, fmt.Errorf("%w: expected zip64 end of central directory signature", ErrFormat)
	}

	zip64End, err = internal.ReadZip64EndOfCentralDir(recReader)
	if err != nil {
		return zip64End, false, fmt.Errorf("read zip64 end of central dir: %w", err)
	}
	return zip64End, true, nil
}

// readCentralDir reads the central directory entries starting at the specified offset.
// Checks context cancellation between entries.
func (zr *modelReader) readCentralDir(ctx context.Context, offset uint64, entries uint64) ([]*FileHeader, error) {
	if offset > uint64(zr.fileSize) {
		return nil, fmt.Errorf("%w: central directory offset %d beyond end of file", ErrFormat, offset)
	}

	safeCap := min(entries, 1024)
	headers := make([]*FileHeader, 0, safeCap)

	cdReader := io.NewSectionReader(zr.src, int64(offset), zr.fileSize-int64(offset))

	for i := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !zr.verifySignature(cdReader, internal.CentralDirectorySignature) {
			return nil, fmt.Errorf("%w: expected central directory signature at entry %d", ErrFormat, i)
		}

		entry, err := internal.ReadCentralDirEntry(cdReader)
		if err != nil {
			return nil, fmt.Errorf("decode central dir entry: %w", err)
		}

		headers = append(headers, zr.newFileHeader(entry))
	}

	return headers, nil
}

// newFileHeader creates a FileHeader from a central directory entry.
func (zr *modelReader) newFileHeader(entry internal.CentralDirEntry) *FileHeader {
	isUTF8 := entry.GeneralPurposeBitFlag&flagUTF8 != 0
	host := sys.HostSystemOf(entry.VersionMadeBy)

	name := DecodeString(entry.Filename, isUTF8, zr.charset)
	isDir := strings.HasSuffix(name, "/") || strings.HasSuffix(name, `\`) ||
		sys.IsDirAttr(host, entry.ExternalFileAttributes)
	if isDir && name != "" && !strings.HasSuffix(name, "/") && !strings.HasSuffix(name, `\`) {
		name += "/"
	}

	fh := &FileHeader{
		Name:              name,
		RawName:           entry.Filename,
		IsDir:             isDir,
		LocalHeaderOffset: uint64(entry.LocalHeaderOffset),
		UncompressedSize:  entry.UncompressedSize,
		CompressedSize:    entry.CompressedSize,
		CRC32:             entry.CRC32,
		Method:            entry.CompressionMethod,
		Flags:             entry.GeneralPurposeBitFlag,
		VersionMadeBy:     entry.VersionMadeBy,
		ExternalAttrs:     entry.ExternalFileAttributes,
		Modified:          msDosToTime(entry.LastModFileDate, entry.LastModFileTime),
		Comment:           DecodeString(entry.Comment, isUTF8, zr.charset),
		RawComment:        entry.Comment,
	}

	if data, ok := entry.ExtraField[internal.Zip64ExtraFieldTag]; ok {
		z := internal.ParseZip64ExtraField(data,
			entry.UncompressedSize == math.MaxUint32,
			entry.CompressedSize == math.MaxUint32,
			entry.LocalHeaderOffset == math.MaxUint32,
			entry.DiskNumberStart == math.MaxUint16,
		)
		fh.Zip64ExtendedInfo = &Zip64ExtendedInfo{
			UncompressedSize:  z.UncompressedSize,
			CompressedSize:    z.CompressedSize,
			LocalHeaderOffset: z.LocalHeaderOffset,
			DiskNumberStart:   z.DiskNumberStart,
		}
		if entry.LocalHeaderOffset == math.MaxUint32 && z.LocalHeaderOffset > 0 {
			fh.LocalHeaderOffset = z.LocalHeaderOffset
		}
	}

	return fh
}

// verifySignature checks whether the next 4 bytes match the given signature.
func (zr *modelReader) verifySignature(r io.Reader, s uint32) bool {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return false
	}
	return binary.LittleEndian.Uint32(buf[:]) == s
}
