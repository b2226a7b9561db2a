// Package parser extracts plain text from document files.
package parser

import (
	"os"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists the file types Parser reads.
var SupportedExtensions = []string{".txt", ".md", ".pdf", ".docx"}

// Parser reads text, PDF and DOCX files. A file that cannot be read or
// decoded is reported as absent; Parse never panics.
type Parser struct {
	maxBytes int64
}

// New creates a parser that refuses files larger than maxBytes.
// maxBytes <= 0 disables the limit.
func New(maxBytes int64) *Parser {
	return &Parser{maxBytes: maxBytes}
}

// Supported reports whether path has a supported extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Parse returns the file's text. ok is false for unsupported, unreadable,
// oversized, corrupt or blank files.
func (p *Parser) Parse(path string) (string, bool) {
	if !Supported(path) {
		return "", false
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	if p.maxBytes > 0 && info.Size() > p.maxBytes {
		return "", false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = pdfText(data)
	case ".docx":
		text, err = docxText(data, p.expandedLimit())
	default:
		text, err = plainText(data)
	}
	if err != nil {
		return "", false
	}

	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// expandedLimit bounds decompressed DOCX content.
func (p *Parser) expandedLimit() int64 {
	const ratio, floor = 20, 64 << 20
	if p.maxBytes <= 0 || p.maxBytes*ratio < floor {
		return floor
	}
	return p.maxBytes * ratio
}
