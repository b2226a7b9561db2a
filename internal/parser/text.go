package parser

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// plainText returns UTF-8 data as is and decodes anything else as Latin-1.
func plainText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
