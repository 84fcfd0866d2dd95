// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ziphdr

import "strings"

// EntriesUnder returns the records of all whose name starts with root.Name,
// in their original order. The root itself is included when present in all.
//
// The match is a plain case-sensitive prefix test. Directory names are
// expected to end with a separator; for a root named "abc" an entry named
// "abcd.txt" is included as well.
//
// EntriesUnder returns an empty slice when root is nil or not a directory.
func EntriesUnder(all []*FileHeader, root *FileHeader) []*FileHeader {
	if root == nil || !root.IsDir {
		return []*FileHeader{}
	}

	result := make([]*FileHeader, 0)
	for _, fh := range all {
		if fh != nil && strings.HasPrefix(fh.Name, root.Name) {
			result = append(result, fh)
		}
	}
	return result
}

// TotalUncompressedSize sums the uncompressed sizes of fhs. A Zip64 size is
// used in place of the legacy field whenever it is present and positive.
func TotalUncompressedSize(fhs []*FileHeader) uint64 {
	var total uint64
	for _, fh := range fhs {
		if fh == nil {
			continue
		}
		total += fh.Size()
	}
	return total
}
