package extract

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"docindex/index"
)

// ExtractionError is a per-document failure: the file could not be
// opened, is encrypted, or yielded no extractable pages. The pipeline
// records it and moves on; it never aborts a run.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func extractionErr(path string, format string, args ...interface{}) error {
	return &ExtractionError{Path: path, Err: fmt.Errorf(format, args...)}
}

// Extractor produces the ordered page sequence for one document. Pages
// are numbered from 1 in physical order; a failure discards any partial
// pages and the whole document is retried on the next run.
type Extractor interface {
	Extract(path string) ([]index.Page, error)
}

// Registry holds extractors keyed by lowercase file extension.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates a registry with the built-in extractors.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	r.registerBuiltIns()
	return r
}

func (r *Registry) registerBuiltIns() {
	// PDFs are the primary corpus
	r.extractors["pdf"] = &PDFExtractor{}

	// Email formats
	r.extractors["eml"] = &EMLExtractor{}
	r.extractors["mbox"] = &MBOXExtractor{}
	r.extractors["msg"] = &MSGExtractor{}

	// Office document formats
	r.extractors["docx"] = &DOCXExtractor{}
	r.extractors["odt"] = &ODTExtractor{}

	// Web formats
	r.extractors["html"] = &HTMLExtractor{}
	r.extractors["htm"] = &HTMLExtractor{}
	r.extractors["xml"] = &HTMLExtractor{}

	// Plain text
	r.extractors["txt"] = &PlainTextExtractor{}
	r.extractors["md"] = &PlainTextExtractor{}
	r.extractors["log"] = &PlainTextExtractor{}
}

// Get returns the extractor for a file extension (with or without dot).
func (r *Registry) Get(ext string) (Extractor, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	e, ok := r.extractors[ext]
	return e, ok
}

// Register adds or replaces the extractor for an extension.
func (r *Registry) Register(ext string, e Extractor) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	r.extractors[ext] = e
}

// PlainTextExtractor maps a text file to a single page.
type PlainTextExtractor struct{}

// Extract implements the Extractor interface for plain text files.
func (e *PlainTextExtractor) Extract(path string) ([]index.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	return []index.Page{{Number: 1, Text: NormalizeText(string(data))}}, nil
}

// HTMLExtractor maps an HTML or XML file to a single page of stripped text.
type HTMLExtractor struct{}

// Extract implements the Extractor interface for HTML/XML files.
func (e *HTMLExtractor) Extract(path string) ([]index.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	text := NormalizeText(stripMarkup(string(data)))
	return []index.Page{{Number: 1, Text: text}}, nil
}

// DOCXExtractor maps a .docx file (Office Open XML) to a single page.
type DOCXExtractor struct{}

// Extract implements the Extractor interface for DOCX files.
func (e *DOCXExtractor) Extract(path string) ([]index.Page, error) {
	return extractZipEntry(path, "word/document.xml")
}

// ODTExtractor maps an .odt file (OpenDocument Text) to a single page.
type ODTExtractor struct{}

// Extract implements the Extractor interface for ODT files.
func (e *ODTExtractor) Extract(path string) ([]index.Page, error) {
	return extractZipEntry(path, "content.xml")
}

// extractZipEntry pulls one XML member out of a zip container and
// strips it to plain text.
func extractZipEntry(path, member string) ([]index.Page, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, extractionErr(path, "open container: %v", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != member {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, extractionErr(path, "open %s: %v", member, err)
		}
		content, err := readAllAndClose(rc)
		if err != nil {
			return nil, extractionErr(path, "read %s: %v", member, err)
		}
		text := NormalizeText(stripMarkup(string(content)))
		return []index.Page{{Number: 1, Text: text}}, nil
	}
	return nil, extractionErr(path, "no %s member in %s container", member, filepath.Ext(path))
}

func readAllAndClose(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}
