// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sys interprets the host-dependent parts of a central directory record.
package sys

import "io/fs"

// HostSystem is the upper byte of "version made by": the system whose
// attribute conventions apply to the external attributes field.
type HostSystem uint8

// Host systems from APPNOTE.TXT section 4.4.2 that affect attribute mapping.
const (
	HostSystemFAT       HostSystem = 0  // MS-DOS and OS/2 (FAT / VFAT / FAT32 file systems)
	HostSystemUNIX      HostSystem = 3  // UNIX
	HostSystemOS2HPFS   HostSystem = 6  // OS/2 H.P.F.S.
	HostSystemMacintosh HostSystem = 7  // Macintosh
	HostSystemNTFS      HostSystem = 10 // Windows NTFS
	HostSystemVFAT      HostSystem = 14 // VFAT
	HostSystemDarwin    HostSystem = 19 // OS X (Darwin)
)

// HostSystemOf extracts the host system from a "version made by" value.
func HostSystemOf(versionMadeBy uint16) HostSystem {
	return HostSystem(versionMadeBy >> 8)
}

func (h HostSystem) String() string {
	switch h {
	case HostSystemFAT:
		return "MS-DOS/OS2 (FAT)"
	case HostSystemUNIX:
		return "UNIX"
	case HostSystemOS2HPFS:
		return "OS/2 HPFS"
	case HostSystemMacintosh:
		return "Macintosh"
	case HostSystemNTFS:
		return "Windows NTFS"
	case HostSystemVFAT:
		return "VFAT"
	case HostSystemDarwin:
		return "OS X (Darwin)"
	}
	return "Unknown"
}

// IsUnix reports whether the high 16 bits of the external attributes hold a Unix mode.
func (h HostSystem) IsUnix() bool {
	return h == HostSystemUNIX || h == HostSystemDarwin || h == HostSystemMacintosh
}

// IsWindows reports whether the low byte of the external attributes holds MS-DOS attributes.
func (h HostSystem) IsWindows() bool {
	return h == HostSystemFAT || h == HostSystemNTFS || h == HostSystemVFAT || h == HostSystemOS2HPFS
}

// Unix constants for file types (standard POSIX)
const (
	S_IFMT  = 0170000
	S_IFDIR = 0040000
	S_IFLNK = 0120000
)

// MS-DOS attribute bits
const (
	dosReadOnly  = 0x01
	dosDirectory = 0x10
)

// IsDirAttr reports whether the external attributes mark a directory.
func IsDirAttr(h HostSystem, external uint32) bool {
	switch {
	case h.IsUnix():
		return (external>>16)&S_IFMT == S_IFDIR
	case h.IsWindows():
		return external&dosDirectory != 0
	}
	return false
}

// FileMode converts the external attributes to an fs.FileMode.
func FileMode(h HostSystem, external uint32, isDir bool) fs.FileMode {
	if h.IsUnix() && external>>16 != 0 {
		unixMode := external >> 16
		mode := fs.FileMode(unixMode & 0777)
		switch unixMode & S_IFMT {
		case S_IFDIR:
			mode |= fs.ModeDir
		case S_IFLNK:
			mode |= fs.ModeSymlink
		}
		return mode
	}

	mode := fs.FileMode(0644)
	if isDir {
		mode = 0755 | fs.ModeDir
	}
	if h.IsWindows() && external&dosReadOnly != 0 {
		mode &^= 0222
	}
	return mode
}
