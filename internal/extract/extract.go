// Package extract converts raw document bytes into plain text.
// Dispatch is driven by a closed [Format] enum so adding a format is a
// compile-time-visible change rather than a string-matching edit.
//
// PDF extraction shells out to pdfcpu via a scratch file because pdfcpu's
// content extraction operates on file paths; all other formats are parsed
// directly from the byte buffer.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/54b3r/docai-go/internal/logging"
)

// Format identifies a supported document format.
type Format string

const (
	PDF  Format = "pdf"
	DOCX Format = "docx"
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	XLS  Format = "xls"
	JSON Format = "json"
	XML  Format = "xml"
	TXT  Format = "txt"
	MD   Format = "md"
)

// ErrUnsupportedFormat is returned when a declared format is outside the
// closed format set, or a MIME type / extension cannot be mapped to one.
var ErrUnsupportedFormat = errors.New("extract: unsupported format")

// ExtractionError wraps a parser failure for a supported format. Callers use
// it to distinguish "bad document" from infrastructure errors.
type ExtractionError struct {
	// Format is the format whose parser failed.
	Format Format
	// Err is the underlying parser error.
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract: %s extraction failed: %v", e.Format, e.Err)
}

// Unwrap returns the underlying parser error.
func (e *ExtractionError) Unwrap() error { return e.Err }

// Formats returns the closed set of supported formats.
func Formats() []Format {
	return []Format{PDF, DOCX, CSV, XLSX, XLS, JSON, XML, TXT, MD}
}

// Valid reports whether f is a member of the supported format set.
func Valid(f Format) bool {
	switch f {
	case PDF, DOCX, CSV, XLSX, XLS, JSON, XML, TXT, MD:
		return true
	}
	return false
}

// Tabular reports whether f is a row-oriented format that should be chunked
// with fixed-width windows rather than prose-boundary splitting.
func Tabular(f Format) bool {
	switch f {
	case CSV, XLSX, XLS:
		return true
	}
	return false
}

// InferFormat maps a MIME type and filename to a [Format]. MIME takes
// precedence; the file extension is the fallback. Returns
// [ErrUnsupportedFormat] when neither matches a supported format.
func InferFormat(filename, mimeType string) (Format, error) {
	mime := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mime, "pdf"):
		return PDF, nil
	// OOXML MIME types contain "xml" (via "openxmlformats"), so they must be
	// matched before the generic json/xml cases.
	case strings.Contains(mime, "spreadsheetml"):
		return XLSX, nil
	case strings.Contains(mime, "ms-excel"):
		return XLS, nil
	case strings.Contains(mime, "wordprocessingml") || strings.Contains(mime, "msword"):
		return DOCX, nil
	case strings.Contains(mime, "json"):
		return JSON, nil
	case strings.Contains(mime, "xml"):
		return XML, nil
	case strings.Contains(mime, "csv"):
		return CSV, nil
	case strings.Contains(mime, "markdown"):
		return MD, nil
	case mime == "text/plain":
		return TXT, nil
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if f := Format(ext); Valid(f) {
		return f, nil
	}

	return "", fmt.Errorf("%w: mime %q, file %q", ErrUnsupportedFormat, mimeType, filename)
}

// Extractor converts raw document bytes into plain text.
type Extractor struct {
	// tempDir is where PDF scratch files are written. Created lazily.
	tempDir string
}

// New constructs an Extractor. If tempDir is empty, a docai subdirectory of
// the OS temp dir is used.
func New(tempDir string) *Extractor {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "docai-extract")
	}
	return &Extractor{tempDir: tempDir}
}

// Extract converts data in the declared format into plain text. Parser
// failures for supported formats return an [*ExtractionError]; formats
// outside the closed set return [ErrUnsupportedFormat].
func (e *Extractor) Extract(ctx context.Context, data []byte, format Format) (string, error) {
	var (
		text string
		err  error
	)

	switch format {
	case PDF:
		text, err = e.extractPDF(ctx, data)
	case DOCX:
		text, err = extractDOCX(data)
	case CSV, XLS:
		text, err = extractCSV(data)
	case XLSX:
		text, err = extractXLSX(data)
	case JSON, XML, TXT, MD:
		text, err = extractPlainText(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if err != nil {
		return "", &ExtractionError{Format: format, Err: err}
	}
	return strings.TrimSpace(text), nil
}

// extractPlainText validates the buffer as UTF-8 and returns it unchanged.
// json, xml, txt, and md are all embedded as-is; structure is left intact
// so the splitter can work with it.
func extractPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("content is not valid UTF-8 text")
	}
	return string(data), nil
}

// cleanupScratch removes a scratch path, logging rather than escalating on
// failure. Extraction already succeeded or failed on its own terms by the
// time cleanup runs.
func cleanupScratch(ctx context.Context, path string) {
	if err := os.RemoveAll(path); err != nil {
		logging.FromContext(ctx).Warn("extract: scratch cleanup failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
