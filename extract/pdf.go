package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"docindex/index"
)

// PDFExtractor produces one page of normalized text per physical PDF
// page. pdfcpu validates the file first (catching corrupt and encrypted
// documents with a clear error), then the pdf library reads the text
// content page by page. The library can panic on malformed files, so
// every call into it is guarded.
type PDFExtractor struct{}

// Extract implements the Extractor interface for PDF files.
func (e *PDFExtractor) Extract(path string) ([]index.Page, error) {
	if err := e.preflight(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}

	var reader *pdf.Reader
	rerr := withRecover(func() error {
		var err error
		reader, err = pdf.NewReader(f, stat.Size())
		return err
	})
	if rerr != nil {
		return nil, extractionErr(path, "open pdf: %v", rerr)
	}

	// Safely obtain number of pages (library may panic on malformed PDFs).
	pageCount := 0
	_ = withRecover(func() error {
		pageCount = reader.NumPage()
		return nil
	})
	if pageCount <= 0 {
		return nil, extractionErr(path, "no extractable pages")
	}

	pages := make([]index.Page, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		var b strings.Builder
		// Per-page panic protection: a bad page yields empty text,
		// page order and count stay intact.
		_ = withRecover(func() error {
			page := reader.Page(i)
			if page.V.IsNull() {
				return nil
			}
			for _, item := range page.Content().Text {
				b.WriteString(item.S)
				b.WriteString(" ")
			}
			return nil
		})
		pages = append(pages, index.Page{Number: i, Text: NormalizeText(b.String())})
	}
	return pages, nil
}

// preflight validates the PDF with pdfcpu before any text extraction.
// Encrypted documents and files pdfcpu cannot parse fail here with a
// reason the run report can show.
func (e *PDFExtractor) preflight(path string) error {
	return withRecover(func() error {
		ctx, err := api.ReadContextFile(path)
		if err != nil {
			return extractionErr(path, "invalid pdf: %v", err)
		}
		if ctx.XRefTable != nil && ctx.XRefTable.Encrypt != nil {
			return extractionErr(path, "pdf is encrypted")
		}
		if ctx.PageCount <= 0 {
			return extractionErr(path, "no extractable pages")
		}
		return nil
	})
}

// withRecover runs fn, converting a library panic into an error result.
func withRecover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("library panic: %v", r)
		}
	}()
	return fn()
}
