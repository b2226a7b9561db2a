package service

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/extract"
	"github.com/cloo-solutions/askdocs/internal/telemetry"
)

// MaxExtractChars bounds the text an extraction works on. Supplied text
// over the limit is rejected; document text is cut to it.
const MaxExtractChars = 20000

// Extractor turns supplied text or a document from the docs directory into
// key/value pairs, a preview and shipment fields.
type Extractor struct {
	parser  DocumentParser
	docsDir string
}

func NewExtractor(parser DocumentParser, docsDir string) *Extractor {
	return &Extractor{parser: parser, docsDir: docsDir}
}

// Extract resolves the request's text and extracts from it.
func (e *Extractor) Extract(ctx context.Context, req domain.ExtractRequest) (*domain.Extraction, error) {
	_, span := telemetry.StartSpan(ctx, "Extractor.Extract", telemetry.SpanAttributes{
		Operation: "extract",
	})
	defer span.End()

	text, source, err := e.resolve(req)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	log.Printf("extractor: extracting from %s (%d chars)", describeSource(source), utf8.RuneCountInString(text))
	return &domain.Extraction{
		Source:      source,
		TextPreview: extract.Preview(text, extract.PreviewChars),
		KeyValues:   extract.KeyValues(text, extract.MaxKeyValues),
		Shipment:    extract.ShipmentFields(text),
	}, nil
}

func (e *Extractor) resolve(req domain.ExtractRequest) (text, source string, err error) {
	if text := strings.TrimSpace(req.Text); text != "" {
		if utf8.RuneCountInString(text) > MaxExtractChars {
			return "", "", domain.ErrTextTooLong
		}
		return text, "", nil
	}

	var path string
	switch {
	case req.Source != "":
		name := filepath.Base(req.Source)
		if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, ".") {
			return "", "", domain.ErrDocumentNotFound
		}
		path = filepath.Join(e.docsDir, name)
		if _, err := os.Stat(path); err != nil {
			return "", "", domain.ErrDocumentNotFound
		}
	case req.UseLatest:
		path = e.latestDocument()
	}
	if path == "" {
		return "", "", domain.ErrNothingToExtract
	}

	text, ok := e.parser.Parse(path)
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		return "", "", domain.ErrNothingToExtract
	}
	return extract.Truncate(text, MaxExtractChars), filepath.Base(path), nil
}

// latestDocument returns the most recently modified visible file in the docs
// directory, or "" when there is none.
func (e *Extractor) latestDocument() string {
	entries, err := os.ReadDir(e.docsDir)
	if err != nil {
		return ""
	}

	type candidate struct {
		path    string
		modUnix int64
	}
	var files []candidate
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{path: filepath.Join(e.docsDir, entry.Name()), modUnix: info.ModTime().UnixNano()})
	}
	if len(files) == 0 {
		return ""
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].modUnix != files[j].modUnix {
			return files[i].modUnix > files[j].modUnix
		}
		return files[i].path > files[j].path
	})
	return files[0].path
}

func describeSource(source string) string {
	if source == "" {
		return "supplied text"
	}
	return source
}
