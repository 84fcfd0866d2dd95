// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ziphdr

import (
	"fmt"
	"strings"
	"unicode"
)

// LookupFileHeader returns the first central directory record whose name
// matches name, ignoring case.
//
// If there is no exact match, the lookup is repeated with every '\' in name
// replaced by '/', and then with every '/' replaced by '\', so that names
// written on Windows and Unix resolve to each other.
//
// A missing entry is not an error: LookupFileHeader returns nil, nil when
// nothing matches or the directory is empty. ErrInvalidInput is returned when
// m, its central directory or its header list is nil, or when name is empty.
func LookupFileHeader(m *Model, name string) (*FileHeader, error) {
	if err := checkDirectory(m, name); err != nil {
		return nil, err
	}

	headers := m.CentralDirectory.FileHeaders
	for _, candidate := range nameCandidates(name) {
		if fh := findExact(headers, candidate); fh != nil {
			return fh, nil
		}
	}
	return nil, nil
}

// IndexOf returns the position of fh in the central directory.
//
// The position is found by name, not by identity: the first record whose
// name equals fh.Name ignoring case wins, so duplicate names always resolve
// to the earliest record. IndexOf returns -1 if no record matches or if the
// directory is nil or empty.
func IndexOf(m *Model, fh *FileHeader) (int, error) {
	if m == nil || fh == nil {
		return -1, fmt.Errorf("%w: model and file header are required to determine index", ErrInvalidInput)
	}

	if m.CentralDirectory == nil || len(m.CentralDirectory.FileHeaders) == 0 {
		return -1, nil
	}

	if fh.Name == "" {
		return -1, fmt.Errorf("%w: file header has an empty name, cannot determine index", ErrInvalidInput)
	}

	for i, candidate := range m.CentralDirectory.FileHeaders {
		if candidate == nil || candidate.Name == "" {
			continue
		}
		if strings.EqualFold(fh.Name, candidate.Name) {
			return i, nil
		}
	}
	return -1, nil
}

// checkDirectory validates the arguments of a lookup by name.
func checkDirectory(m *Model, name string) error {
	switch {
	case m == nil:
		return fmt.Errorf("%w: model is nil, cannot look up %q", ErrInvalidInput, name)
	case name == "":
		return fmt.Errorf("%w: file name is empty", ErrInvalidInput)
	case m.CentralDirectory == nil:
		return fmt.Errorf("%w: central directory is nil, cannot look up %q", ErrInvalidInput, name)
	case m.CentralDirectory.FileHeaders == nil:
		return fmt.Errorf("%w: file headers are nil, cannot look up %q", ErrInvalidInput, name)
	}
	return nil
}

// nameCandidates returns name followed by its separator-normalized variants,
// in the order they are tried. Repeated variants are dropped.
func nameCandidates(name string) []string {
	slashed := strings.ReplaceAll(name, `\`, "/")
	backslashed := strings.ReplaceAll(slashed, "/", `\`)

	candidates := []string{name}
	if slashed != name {
		candidates = append(candidates, slashed)
	}
	if backslashed != name && backslashed != slashed {
		candidates = append(candidates, backslashed)
	}
	return candidates
}

// findExact returns the first header whose name equals name ignoring case.
func findExact(headers []*FileHeader, name string) *FileHeader {
	for _, fh := range headers {
		if fh == nil || fh.Name == "" {
			continue
		}
		if strings.EqualFold(name, fh.Name) {
			return fh
		}
	}
	return nil
}

// Index is a prebuilt case-insensitive name table over a Model.
//
// It answers the same questions as LookupFileHeader and IndexOf in constant
// average time and preserves their first-match-wins behavior. An Index is
// immutable and must be rebuilt if the model changes.
type Index struct {
	headers   []*FileHeader
	positions map[string]int // folded name -> first position
}

// NewIndex builds an Index over m. It fails with ErrInvalidInput when m, its
// central directory or its header list is nil.
func NewIndex(m *Model) (*Index, error) {
	switch {
	case m == nil:
		return nil, fmt.Errorf("%w: model is nil, cannot build index", ErrInvalidInput)
	case m.CentralDirectory == nil:
		return nil, fmt.Errorf("%w: central directory is nil, cannot build index", ErrInvalidInput)
	case m.CentralDirectory.FileHeaders == nil:
		return nil, fmt.Errorf("%w: file headers are nil, cannot build index", ErrInvalidInput)
	}

	headers := m.CentralDirectory.FileHeaders
	idx := &Index{
		headers:   headers,
		positions: make(map[string]int, len(headers)),
	}
	for i, fh := range headers {
		if fh == nil || fh.Name == "" {
			continue
		}
		key := foldName(fh.Name)
		if _, ok := idx.positions[key]; !ok {
			idx.positions[key] = i
		}
	}
	return idx, nil
}

// Len returns the number of records covered by the index.
func (idx *Index) Len() int {
	return len(idx.headers)
}

// FileHeader is the indexed equivalent of the package-level LookupFileHeader.
func (idx *Index) FileHeader(name string) (*FileHeader, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: file name is empty", ErrInvalidInput)
	}
	for _, candidate := range nameCandidates(name) {
		if i, ok := idx.positions[foldName(candidate)]; ok {
			return idx.headers[i], nil
		}
	}
	return nil, nil
}

// IndexOf is the indexed equivalent of the package-level IndexOf.
func (idx *Index) IndexOf(fh *FileHeader) (int, error) {
	if fh == nil {
		return -1, fmt.Errorf("%w: file header is nil, cannot determine index", ErrInvalidInput)
	}
	if len(idx.headers) == 0 {
		return -1, nil
	}
	if fh.Name == "" {
		return -1, fmt.Errorf("%w: file header has an empty name, cannot determine index", ErrInvalidInput)
	}
	if i, ok := idx.positions[foldName(fh.Name)]; ok {
		return i, nil
	}
	return -1, nil
}

// foldName maps every rune of s to the smallest rune of its simple case
// folding orbit. Two strings fold to the same key exactly when
// strings.EqualFold reports them equal.
func foldName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(minFold(r))
	}
	return b.String()
}

func minFold(r rune) rune {
	lowest := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < lowest {
			lowest = f
		}
	}
	return lowest
}
