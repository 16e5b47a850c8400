// Package index owns the on-disk index: per-document text payloads,
// the extraction state database, and the immutable snapshot the search
// engine loads at startup.
package index

// Page is one page of extracted, normalized text.
type Page struct {
	Number int    `json:"page_num"`
	Text   string `json:"text"`
}

// Document is the indexed form of one source file. Filepath is the
// relative path from the source root and is the stable identity key.
type Document struct {
	Filename    string `json:"filename"`
	Filepath    string `json:"path"`
	Fingerprint string `json:"fingerprint"`
	Pages       []Page `json:"pages"`
}

// PageCount returns the number of pages, including pages whose
// normalized text is empty.
func (d *Document) PageCount() int {
	return len(d.Pages)
}
