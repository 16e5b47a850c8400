package extract

import (
	"bytes"
	"io"
	"os"
	"strings"
	"unicode/utf16"

	"github.com/emersion/go-mbox"
	"github.com/jhillyerd/enmime"
	"github.com/richardlehane/mscfb"

	"docindex/index"
)

// EMLExtractor maps a MIME message to a single page: searchable header
// lines (subject, sender, recipients, date) followed by the body, the
// same shape the original email index used.
type EMLExtractor struct{}

// Extract implements the Extractor interface for EML files.
func (e *EMLExtractor) Extract(path string) ([]index.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	text, err := envelopeText(data)
	if err != nil {
		return nil, extractionErr(path, "parse message: %v", err)
	}
	return []index.Page{{Number: 1, Text: text}}, nil
}

// envelopeText renders one MIME message as normalized searchable text.
func envelopeText(data []byte) (string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	var parts []string
	for _, h := range []struct{ label, header string }{
		{"Subject", "Subject"},
		{"From", "From"},
		{"To", "To"},
		{"CC", "Cc"},
		{"Date", "Date"},
	} {
		if v := env.GetHeader(h.header); v != "" {
			parts = append(parts, h.label+": "+v)
		}
	}

	body := env.Text
	if body == "" && env.HTML != "" {
		body = stripMarkup(env.HTML)
	}
	if body != "" {
		parts = append(parts, body)
	}

	// Attachment names are searchable too
	var names []string
	for _, att := range env.Attachments {
		if att.FileName != "" {
			names = append(names, att.FileName)
		}
	}
	if len(names) > 0 {
		parts = append(parts, "Attachments: "+strings.Join(names, ", "))
	}

	return NormalizeText(strings.Join(parts, "\n")), nil
}

// MBOXExtractor maps a mailbox file to one page per contained message,
// numbered in mailbox order.
type MBOXExtractor struct{}

// Extract implements the Extractor interface for MBOX files.
func (e *MBOXExtractor) Extract(path string) ([]index.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	reader := mbox.NewReader(f)
	var pages []index.Page
	for {
		msg, err := reader.NextMessage()
		if err != nil {
			break
		}
		raw, err := io.ReadAll(msg)
		if err != nil {
			continue
		}
		text, err := envelopeText(raw)
		if err != nil {
			// Keep numbering stable even when one message is unreadable
			text = ""
		}
		pages = append(pages, index.Page{Number: len(pages) + 1, Text: text})
	}

	if len(pages) == 0 {
		return nil, extractionErr(path, "no extractable pages")
	}
	return pages, nil
}

// MSGExtractor maps an Outlook .msg file (OLE compound document) to a
// single page. Subject, sender, recipients and body are read from the
// well-known property streams.
type MSGExtractor struct{}

// msgStreams maps MAPI property IDs to display labels; the stream name
// suffix selects the encoding (001F UTF-16LE, 001E 8-bit).
var msgStreams = []struct {
	prop  string
	label string
}{
	{"0037", "Subject"},
	{"0C1A", "From"},
	{"0E04", "To"},
	{"1000", ""},
}

// Extract implements the Extractor interface for MSG files.
func (e *MSGExtractor) Extract(path string) ([]index.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	cf, err := mscfb.New(f)
	if err != nil {
		return nil, extractionErr(path, "open compound file: %v", err)
	}

	values := make(map[string]string)
	for entry, err := cf.Next(); err == nil; entry, err = cf.Next() {
		prop, unicode, ok := msgPropertyStream(entry.Name)
		if !ok || values[prop] != "" {
			continue
		}
		data, rerr := io.ReadAll(io.LimitReader(entry, 4*1024*1024))
		if rerr != nil || len(data) == 0 {
			continue
		}
		if unicode {
			values[prop] = decodeUTF16LE(data)
		} else {
			values[prop] = string(data)
		}
	}

	var parts []string
	for _, s := range msgStreams {
		v := strings.TrimSpace(values[s.prop])
		if v == "" {
			continue
		}
		if s.label != "" {
			parts = append(parts, s.label+": "+v)
		} else {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return nil, extractionErr(path, "no extractable pages")
	}
	return []index.Page{{Number: 1, Text: NormalizeText(strings.Join(parts, "\n"))}}, nil
}

// msgPropertyStream parses a "__substg1.0_PPPPTTTT" stream name into
// its property ID and whether the payload is UTF-16.
func msgPropertyStream(name string) (prop string, unicode bool, ok bool) {
	const prefix = "__substg1.0_"
	if !strings.HasPrefix(name, prefix) || len(name) != len(prefix)+8 {
		return "", false, false
	}
	prop = name[len(prefix) : len(prefix)+4]
	switch name[len(prefix)+4:] {
	case "001F":
		return prop, true, true
	case "001E":
		return prop, false, true
	}
	return "", false, false
}

// decodeUTF16LE converts little-endian UTF-16 bytes to a string.
func decodeUTF16LE(data []byte) string {
	u16 := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		u16 = append(u16, uint16(data[i])|uint16(data[i+1])<<8)
	}
	return string(utf16.Decode(u16))
}
