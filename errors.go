package ziphdr

import "errors"

var (
	// ErrInvalidInput is returned when a required argument (model, header, name,
	// central directory or its header list) is missing or empty.
	ErrInvalidInput = errors.New("zip: invalid input")

	// ErrFormat is returned when the input is not a valid ZIP archive.
	ErrFormat = errors.New("zip: not a valid zip file")

	// ErrAlgorithm is returned when a compression algorithm is not supported.
	ErrAlgorithm = errors.New("unsupported compression algorithm")

	// ErrEncryption is returned when an entry is encrypted.
	ErrEncryption = errors.New("zip: encrypted entries are not supported")

	// ErrChecksum is returned when reading a file checksum does not match.
	ErrChecksum = errors.New("zip: checksum error")

	// ErrSizeMismatch is returned when the uncompressed size does not match the header.
	ErrSizeMismatch = errors.New("zip: uncompressed size mismatch")

	// ErrFileNotFound is returned by Archive when the requested file is not found.
	// Lookups on a Model report a missing entry as a nil header instead.
	ErrFileNotFound = errors.New("zip: file not found")
)
