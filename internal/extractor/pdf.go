package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxTextLength caps how much PDF text is forwarded for extraction.
const MaxTextLength = 12000

// ErrNoTextLayer means the PDF has pages but none of them carries text, as with scans.
var ErrNoTextLayer = errors.New("pdf has no extractable text")

// Text is the readable content of a PDF.
type Text struct {
	Content   string
	Pages     int
	Truncated bool
}

// ExtractPDF reads every page's text layer. Pages that fail to decode are
// skipped; the content is cut to MaxTextLength runes.
func ExtractPDF(data []byte) (result *Text, err error) {
	// The pdf package panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	pages := make([]string, 0, doc.NumPage())
	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return nil, ErrNoTextLayer
	}

	content := strings.Join(pages, "\n\n")
	cut := Truncate(content, MaxTextLength)
	return &Text{
		Content:   cut,
		Pages:     doc.NumPage(),
		Truncated: cut != content,
	}, nil
}

// Truncate cuts s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
