package payload

import (
	"encoding/base64"
	"strings"
	"unicode"
)

const (
	base64PaddingRuneConstant     = '='
	base64QuantumLengthConstant   = 4
	base64DanglingLengthConstant  = 1
	urlSafeAlphabetMinusConstant  = '-'
	urlSafeAlphabetUnderConstant  = '_'
	standardAlphabetPlusConstant  = '+'
	standardAlphabetSlashConstant = '/'
)

// UploadRecord is the payload declared by an issue: where to write and what to write.
type UploadRecord struct {
	Path    string `json:"path" mapstructure:"path"`
	Content string `json:"content" mapstructure:"content"`
}

// Valid reports whether both the path and the content are non-empty.
func (record UploadRecord) Valid() bool {
	return len(record.Path) > 0 && len(record.Content) > 0
}

// DecodedContent returns the bytes encoded by the record content.
func (record UploadRecord) DecodedContent() []byte {
	return DecodeContent(record.Content)
}

// DecodeContent strips whitespace from base64 text and decodes it leniently.
//
// Decoding stops at the first padding character, characters outside the base64
// alphabets are skipped, URL-safe characters are accepted, and a trailing
// sextet that cannot form a byte is dropped. Malformed input therefore yields
// whatever bytes can be recovered instead of an error.
func DecodeContent(content string) []byte {
	var normalized strings.Builder
	normalized.Grow(len(content))

	for _, character := range content {
		if unicode.IsSpace(character) {
			continue
		}
		if character == base64PaddingRuneConstant {
			break
		}
		switch {
		case character == urlSafeAlphabetMinusConstant:
			normalized.WriteRune(standardAlphabetPlusConstant)
		case character == urlSafeAlphabetUnderConstant:
			normalized.WriteRune(standardAlphabetSlashConstant)
		case isStandardBase64Rune(character):
			normalized.WriteRune(character)
		}
	}

	encoded := normalized.String()
	if len(encoded)%base64QuantumLengthConstant == base64DanglingLengthConstant {
		encoded = encoded[:len(encoded)-1]
	}

	decoded := make([]byte, base64.RawStdEncoding.DecodedLen(len(encoded)))
	decodedLength, _ := base64.RawStdEncoding.Decode(decoded, []byte(encoded))
	return decoded[:decodedLength]
}

func isStandardBase64Rune(character rune) bool {
	switch {
	case character >= 'A' && character <= 'Z':
		return true
	case character >= 'a' && character <= 'z':
		return true
	case character >= '0' && character <= '9':
		return true
	case character == standardAlphabetPlusConstant || character == standardAlphabetSlashConstant:
		return true
	default:
		return false
	}
}
