// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ziphdr

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// legacyCharset is the encoding the ZIP format mandates for names and
// comments that do not have the language encoding flag set.
var legacyCharset encoding.Encoding = charmap.CodePage437

// DecodeString converts a raw name or comment to a string.
//
// When cs is UTF-8 but the record is not flagged as UTF-8, the bytes are
// decoded as IBM Code Page 437, the format's legacy default, because many
// writers emit plain ASCII or CP437 without setting the flag. Otherwise cs is
// used when it is non-nil, and UTF-8 when it is nil.
//
// DecodeString never fails: malformed input is replaced with U+FFFD.
func DecodeString(data []byte, isUTF8 bool, cs encoding.Encoding) string {
	return decodeStringWith(legacyCharset, data, isUTF8, cs)
}

func decodeStringWith(legacy encoding.Encoding, data []byte, isUTF8 bool, cs encoding.Encoding) string {
	if IsUTF8(cs) && !isUTF8 {
		if legacy == nil {
			return platformString(data)
		}
		return decodeWith(legacy, data)
	}
	if cs != nil {
		return decodeWith(cs, data)
	}
	return decodeWith(unicode.UTF8, data)
}

// decodeWith decodes data with enc, degrading to a UTF-8 reading of the raw
// bytes if the decoder rejects the input.
func decodeWith(enc encoding.Encoding, data []byte) string {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return platformString(data)
	}
	return string(out)
}

// platformString interprets data in Go's native string encoding.
func platformString(data []byte) string {
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

// IsUTF8 reports whether cs denotes UTF-8.
func IsUTF8(cs encoding.Encoding) bool {
	if cs == nil {
		return false
	}
	if cs == unicode.UTF8 {
		return true
	}
	name, err := htmlindex.Name(cs)
	return err == nil && name == "utf-8"
}

// LookupCharset returns the encoding registered under name. Both WHATWG
// labels ("utf-8", "shift_jis", "windows-1251") and IANA names or aliases
// ("IBM437", "cp866") are accepted.
func LookupCharset(name string) (encoding.Encoding, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: charset name is empty", ErrInvalidInput)
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: unsupported charset %q", ErrInvalidInput, name)
	}
	return enc, nil
}
