// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ziphdr

import "fmt"

// NextEntryOffset returns the offset immediately after the region occupied by
// fh: the local header offset of the next record in the central directory,
// or the start of the central directory when fh is the last record.
//
// The central directory start is read from the Zip64 end record when
// m.Zip64Format is set and from the legacy end record otherwise.
//
// NextEntryOffset fails with ErrInvalidInput under the same conditions as
// IndexOf, and also when fh is not part of the central directory.
func NextEntryOffset(m *Model, fh *FileHeader) (uint64, error) {
	i, err := IndexOf(m, fh)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("%w: %q is not in the central directory", ErrInvalidInput, fh.Name)
	}
	return nextOffsetAt(m, i)
}

// nextOffsetAt returns the end offset of the record at position i.
func nextOffsetAt(m *Model, i int) (uint64, error) {
	headers := m.CentralDirectory.FileHeaders
	if i == len(headers)-1 {
		return CentralDirectoryOffset(m)
	}
	return headers[i+1].LocalHeaderOffset, nil
}

// CentralDirectoryOffset returns the offset at which the central directory
// starts, taken from the authoritative end record.
func CentralDirectoryOffset(m *Model) (uint64, error) {
	if m == nil {
		return 0, fmt.Errorf("%w: model is nil", ErrInvalidInput)
	}
	if m.Zip64Format {
		if m.Zip64EndOfCentralDirectory == nil {
			return 0, fmt.Errorf("%w: zip64 end of central directory record is missing", ErrInvalidInput)
		}
		return m.Zip64EndOfCentralDirectory.CentralDirectoryOffset, nil
	}
	if m.EndOfCentralDirectory == nil {
		return 0, fmt.Errorf("%w: end of central directory record is missing", ErrInvalidInput)
	}
	return uint64(m.EndOfCentralDirectory.CentralDirectoryOffset), nil
}
