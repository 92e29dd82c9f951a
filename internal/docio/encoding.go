// Package docio reads LaTeX sources in the encodings found in the wild and
// writes translated documents, keeping a backup of any file it replaces.
package docio

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	"ltxtrans/internal/logger"
)

// Encoding names a file encoding.
type Encoding string

const (
	UTF8    Encoding = "UTF-8"
	UTF8BOM Encoding = "UTF-8-BOM"
	UTF16LE Encoding = "UTF-16LE"
	UTF16BE Encoding = "UTF-16BE"
	GBK     Encoding = "GBK"
	Unknown Encoding = "UNKNOWN"
)

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// DetectEncoding detects the encoding of raw file contents.
func DetectEncoding(data []byte) Encoding {
	// Check for BOM markers
	if bytes.HasPrefix(data, bomUTF8) {
		return UTF8BOM
	}
	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) {
		return UTF16LE
	}
	if bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		return UTF16BE
	}

	if utf8.Valid(data) {
		return UTF8
	}
	if isValidGBK(data) {
		return GBK
	}
	return Unknown
}

// isValidGBK checks if data is valid GBK encoding
func isValidGBK(data []byte) bool {
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
	if err != nil {
		return false
	}
	return utf8.Valid(decoded) && !bytes.ContainsRune(decoded, utf8.RuneError)
}

// Decode converts raw file contents to a UTF-8 string.
func Decode(data []byte) (string, Encoding, error) {
	enc := DetectEncoding(data)
	logger.Debug("detected file encoding", logger.String("encoding", string(enc)))

	var decoded []byte
	var err error
	switch enc {
	case UTF8:
		decoded = data
	case UTF8BOM:
		decoded = data[len(bomUTF8):]
	case UTF16LE:
		decoded, err = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(data)
	case UTF16BE:
		decoded, err = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes(data)
	case GBK:
		decoded, err = simplifiedchinese.GBK.NewDecoder().Bytes(data)
	default:
		return "", enc, fmt.Errorf("unsupported file encoding")
	}
	if err != nil {
		return "", enc, fmt.Errorf("failed to decode from %s: %w", enc, err)
	}
	return string(decoded), enc, nil
}

// Encode converts text to the given encoding.
func Encode(text string, enc Encoding) ([]byte, error) {
	switch enc {
	case UTF8, "":
		return []byte(text), nil
	case UTF8BOM:
		return append(append([]byte{}, bomUTF8...), text...), nil
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	case GBK:
		out, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("failed to encode to GBK: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported target encoding: %s", enc)
	}
}
