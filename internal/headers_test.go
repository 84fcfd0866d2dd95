// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// Fixed-size mirrors of the on-disk layouts, written with binary.Write
// to produce test input.
type rawLocalHeader struct {
	Signature              uint32
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

type rawCentralDirectory struct {
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
}

func extraBlock(tag uint16, data []byte) []byte {
	buf := make([]byte, 4, 4+len(data))
	binary.LittleEndian.PutUint16(buf[0:2], tag)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(data)))
	return append(buf, data...)
}

func TestReadLocalFileHeader(t *testing.T) {
	tests := []struct {
		name   string
		header rawLocalHeader
		tail   string
	}{
		{
			name: "Standard file",
			header: rawLocalHeader{
				Signature:              LocalFileHeaderSignature,
				VersionNeededToExtract: 20,
				CompressionMethod:      8,
				CRC32:                  0x12345678,
				CompressedSize:         100,
				UncompressedSize:       200,
				FilenameLength:         8,
			},
			tail: "test.txt",
		},
		{
			name: "File with extra field",
			header: rawLocalHeader{
				Signature:        LocalFileHeaderSignature,
				FilenameLength:   14,
				ExtraFieldLength: 4,
			},
			tail: "folder/doc.txt\x01\x00\x00\x00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			binary.Write(buf, binary.LittleEndian, tt.header)
			buf.WriteString(tt.tail)
			total := int64(buf.Len())

			h, err := ReadLocalFileHeader(buf)
			if err != nil {
				t.Fatalf("ReadLocalFileHeader failed: %v", err)
			}
			if h.CRC32 != tt.header.CRC32 {
				t.Errorf("CRC32 mismatch: got %x, want %x", h.CRC32, tt.header.CRC32)
			}
			if h.CompressionMethod != tt.header.CompressionMethod {
				t.Errorf("CompressionMethod mismatch: got %d, want %d", h.CompressionMethod, tt.header.CompressionMethod)
			}
			if h.Len() != total {
				t.Errorf("Len mismatch: got %d, want %d", h.Len(), total)
			}
			// Variable-length fields are left in the stream.
			if buf.String() != tt.tail {
				t.Errorf("unexpected remaining bytes %q", buf.String())
			}
		})
	}

	t.Run("Wrong signature", func(t *testing.T) {
		buf := new(bytes.Buffer)
		binary.Write(buf, binary.LittleEndian, rawLocalHeader{Signature: CentralDirectorySignature})
		if _, err := ReadLocalFileHeader(buf); err == nil {
			t.Error("expected error for wrong signature")
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := ReadLocalFileHeader(bytes.NewReader([]byte("PK\x03\x04")))
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("expected ErrUnexpectedEOF, got %v", err)
		}
	})
}

func TestReadCentralDirEntry(t *testing.T) {
	extra := append(extraBlock(0xaaaa, []byte{0x01, 0x02, 0x03}), extraBlock(Zip64ExtraFieldTag, make([]byte, 8))...)
	raw := rawCentralDirectory{
		VersionMadeBy:          0x0314,
		CRC32:                  0xAABBCCDD,
		FilenameLength:         9,
		ExtraFieldLength:       uint16(len(extra)),
		FileCommentLength:      13,
		ExternalFileAttributes: 0x81a40000,
		LocalHeaderOffset:      12345,
	}

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, raw)
	buf.WriteString("image.png")
	buf.Write(extra)
	buf.WriteString("Hello Archive")

	entry, err := ReadCentralDirEntry(buf)
	if err != nil {
		t.Fatalf("ReadCentralDirEntry failed: %v", err)
	}

	if string(entry.Filename) != "image.png" {
		t.Errorf("Filename mismatch: got %q", entry.Filename)
	}
	if string(entry.Comment) != "Hello Archive" {
		t.Errorf("Comment mismatch: got %q", entry.Comment)
	}
	if entry.LocalHeaderOffset != 12345 || entry.CRC32 != 0xAABBCCDD {
		t.Errorf("fixed fields mismatch: offset %d, crc %x", entry.LocalHeaderOffset, entry.CRC32)
	}
	if entry.VersionMadeBy != 0x0314 || entry.ExternalFileAttributes != 0x81a40000 {
		t.Errorf("attribute fields mismatch: %x %x", entry.VersionMadeBy, entry.ExternalFileAttributes)
	}
	if !bytes.Equal(entry.ExtraField[0xaaaa], []byte{0x01, 0x02, 0x03}) {
		t.Errorf("Extra field data mismatch: %v", entry.ExtraField)
	}
	if len(entry.ExtraField[Zip64ExtraFieldTag]) != 8 {
		t.Errorf("Zip64 extra field missing: %v", entry.ExtraField)
	}

	t.Run("Truncated name", func(t *testing.T) {
		buf := new(bytes.Buffer)
		binary.Write(buf, binary.LittleEndian, rawCentralDirectory{FilenameLength: 10})
		buf.WriteString("short")
		if _, err := ReadCentralDirEntry(buf); err == nil {
			t.Error("expected error for truncated filename")
		}
	})
}

func TestReadEndOfCentralDir(t *testing.T) {
	comment := "End of Archive"

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, []uint16{0, 0, 5, 5})
	binary.Write(buf, binary.LittleEndian, []uint32{1024, 2048})
	binary.Write(buf, binary.LittleEndian, uint16(len(comment)))
	buf.WriteString(comment)

	end, err := ReadEndOfCentralDir(buf)
	if err != nil {
		t.Fatalf("ReadEndOfCentralDir failed: %v", err)
	}
	if end.TotalNumberOfEntries != 5 {
		t.Errorf("TotalNumberOfEntries mismatch: got %d, want 5", end.TotalNumberOfEntries)
	}
	if end.CentralDirSize != 1024 || end.CentralDirOffset != 2048 {
		t.Errorf("central directory mismatch: size %d, offset %d", end.CentralDirSize, end.CentralDirOffset)
	}
	if string(end.Comment) != comment {
		t.Errorf("Comment content mismatch: got %q, want %q", end.Comment, comment)
	}

	t.Run("Truncated comment", func(t *testing.T) {
		data := make([]byte, EndOfCentralDirLen)
		binary.LittleEndian.PutUint16(data[16:18], 10)
		if _, err := ReadEndOfCentralDir(bytes.NewReader(data)); err == nil {
			t.Error("expected error for truncated comment")
		}
	})
}

func TestZip64Records(t *testing.T) {
	t.Run("Zip64 End Of Central Directory", func(t *testing.T) {
		buf := new(bytes.Buffer)
		binary.Write(buf, binary.LittleEndian, uint64(44))
		binary.Write(buf, binary.LittleEndian, []uint16{45, 45})
		binary.Write(buf, binary.LittleEndian, []uint32{0, 0})
		binary.Write(buf, binary.LittleEndian, []uint64{100, 100, 5000, 10000})
		if buf.Len() != Zip64EndOfCentralDirLen {
			t.Fatalf("test record has %d bytes, want %d", buf.Len(), Zip64EndOfCentralDirLen)
		}

		rec, err := ReadZip64EndOfCentralDir(buf)
		if err != nil {
			t.Fatalf("ReadZip64EndOfCentralDir failed: %v", err)
		}
		if rec.Size != 44 {
			t.Errorf("Size of rest mismatch: got %d, want 44", rec.Size)
		}
		if rec.TotalNumberOfEntries != 100 || rec.CentralDirSize != 5000 || rec.CentralDirOffset != 10000 {
			t.Errorf("unexpected record %+v", rec)
		}
	})

	t.Run("Zip64 Locator", func(t *testing.T) {
		buf := new(bytes.Buffer)
		binary.Write(buf, binary.LittleEndian, uint32(0))
		binary.Write(buf, binary.LittleEndian, uint64(9999))
		binary.Write(buf, binary.LittleEndian, uint32(1))

		loc, err := ReadZip64EndOfCentralDirLocator(buf)
		if err != nil {
			t.Fatalf("ReadZip64EndOfCentralDirLocator failed: %v", err)
		}
		if loc.Zip64EndOfCentralDirOffset != 9999 || loc.TotalNumberOfDisks != 1 {
			t.Errorf("unexpected locator %+v", loc)
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		if _, err := ReadZip64EndOfCentralDir(bytes.NewReader(make([]byte, 10))); err == nil {
			t.Error("expected error for truncated zip64 record")
		}
		if _, err := ReadZip64EndOfCentralDirLocator(bytes.NewReader(make([]byte, 10))); err == nil {
			t.Error("expected error for truncated locator")
		}
	})
}

func TestParseExtraField(t *testing.T) {
	data := append(extraBlock(0x0001, []byte{1, 2}), extraBlock(0x5455, []byte{9})...)

	m := ParseExtraField(data)
	if len(m) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(m))
	}
	if !bytes.Equal(m[0x0001], []byte{1, 2}) || !bytes.Equal(m[0x5455], []byte{9}) {
		t.Errorf("unexpected blocks %v", m)
	}

	// A block claiming more bytes than remain is dropped.
	truncated := append(extraBlock(0x0001, []byte{1}), 0x02, 0x00, 0x10, 0x00, 0xff)
	m = ParseExtraField(truncated)
	if len(m) != 1 {
		t.Errorf("expected truncated block to be ignored, got %v", m)
	}

	if len(ParseExtraField(nil)) != 0 {
		t.Error("expected empty map for nil input")
	}
}

func TestParseZip64ExtraField(t *testing.T) {
	data := make([]byte, 28)
	binary.LittleEndian.PutUint64(data[0:8], 5_000_000_000)
	binary.LittleEndian.PutUint64(data[8:16], 4_000_000_000)
	binary.LittleEndian.PutUint64(data[16:24], 6_000_000_000)
	binary.LittleEndian.PutUint32(data[24:28], 2)

	tests := []struct {
		name                            string
		data                            []byte
		needU, needC, needOff, needDisk bool
		want                            Zip64Fields
	}{
		{
			name: "All fields",
			data: data, needU: true, needC: true, needOff: true, needDisk: true,
			want: Zip64Fields{5_000_000_000, 4_000_000_000, 6_000_000_000, 2},
		},
		{
			name: "Only offset",
			data: data[:8], needOff: true,
			want: Zip64Fields{LocalHeaderOffset: 5_000_000_000},
		},
		{
			name: "Compressed and offset",
			data: data[:16], needC: true, needOff: true,
			want: Zip64Fields{CompressedSize: 5_000_000_000, LocalHeaderOffset: 4_000_000_000},
		},
		{
			name: "Short data",
			data: data[:4], needU: true,
			want: Zip64Fields{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseZip64ExtraField(tt.data, tt.needU, tt.needC, tt.needOff, tt.needDisk)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
