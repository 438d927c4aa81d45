package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestInferFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		mime     string
		want     Format
	}{
		{"pdf mime", "report.bin", "application/pdf", PDF},
		{"json mime", "data", "application/json", JSON},
		{"xml mime", "feed", "text/xml", XML},
		{"csv mime", "rows", "text/csv", CSV},
		{"xlsx mime", "book", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", XLSX},
		{"xls mime", "legacy", "application/vnd.ms-excel", XLS},
		{"docx mime", "letter", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", DOCX},
		{"docx mime beats xml substring", "letter.xml", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", DOCX},
		{"plain text mime", "notes", "text/plain", TXT},
		{"markdown mime", "readme", "text/markdown", MD},
		{"extension fallback pdf", "report.pdf", "application/octet-stream", PDF},
		{"extension fallback md", "README.md", "", MD},
		{"extension fallback xlsx", "book.XLSX", "", XLSX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := InferFormat(tt.filename, tt.mime)
			if err != nil {
				t.Fatalf("InferFormat(%q, %q): %v", tt.filename, tt.mime, err)
			}
			if got != tt.want {
				t.Errorf("InferFormat(%q, %q) = %q, want %q", tt.filename, tt.mime, got, tt.want)
			}
		})
	}
}

func TestInferFormat_Unsupported(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct{ filename, mime string }{
		{"page.html", "text/html"},
		{"archive.tar.gz", "application/gzip"},
		{"noext", ""},
	} {
		if _, err := InferFormat(tt.filename, tt.mime); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("InferFormat(%q, %q): expected ErrUnsupportedFormat, got %v", tt.filename, tt.mime, err)
		}
	}
}

func TestExtract_PlainTextFormats(t *testing.T) {
	t.Parallel()

	e := New(t.TempDir())
	content := `{"key": "value"}`

	for _, format := range []Format{JSON, XML, TXT, MD} {
		got, err := e.Extract(context.Background(), []byte(content), format)
		if err != nil {
			t.Fatalf("Extract(%s): %v", format, err)
		}
		if got != content {
			t.Errorf("Extract(%s) = %q, want %q", format, got, content)
		}
	}
}

func TestExtract_PlainTextRejectsBinary(t *testing.T) {
	t.Parallel()

	e := New(t.TempDir())
	var extErr *ExtractionError
	_, err := e.Extract(context.Background(), []byte{0xff, 0xfe, 0x00, 0x80}, TXT)
	if !errors.As(err, &extErr) {
		t.Fatalf("expected *ExtractionError for non-UTF-8 input, got %v", err)
	}
	if extErr.Format != TXT {
		t.Errorf("ExtractionError.Format = %q, want %q", extErr.Format, TXT)
	}
}

func TestExtract_CSV(t *testing.T) {
	t.Parallel()

	e := New(t.TempDir())
	data := []byte("name,qty\nwidget,3\ngadget,7\n")

	got, err := e.Extract(context.Background(), data, CSV)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "name, qty\nwidget, 3\ngadget, 7"
	if got != want {
		t.Errorf("Extract(csv) = %q, want %q", got, want)
	}
}

func TestExtract_XLSAsDelimitedText(t *testing.T) {
	t.Parallel()

	e := New(t.TempDir())
	got, err := e.Extract(context.Background(), []byte("a,b\n1,2"), XLS)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "a, b\n1, 2" {
		t.Errorf("Extract(xls) = %q", got)
	}
}

// buildZip assembles an in-memory ZIP archive from name→content pairs.
func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestExtract_DOCX(t *testing.T) {
	t.Parallel()

	docXML := `<?xml version="1.0"?>
<document xmlns="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <body>
    <p><r><t>First paragraph.</t></r></p>
    <p><r><t>Second </t></r><r><t>paragraph.</t></r></p>
  </body>
</document>`

	data := buildZip(t, map[string]string{"word/document.xml": docXML})

	e := New(t.TempDir())
	got, err := e.Extract(context.Background(), data, DOCX)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "First paragraph.\nSecond paragraph."
	if got != want {
		t.Errorf("Extract(docx) = %q, want %q", got, want)
	}
}

func TestExtract_DOCXInvalidArchive(t *testing.T) {
	t.Parallel()

	e := New(t.TempDir())
	var extErr *ExtractionError
	if _, err := e.Extract(context.Background(), []byte("not a zip"), DOCX); !errors.As(err, &extErr) {
		t.Fatalf("expected *ExtractionError, got %v", err)
	}
}

func TestExtract_XLSX(t *testing.T) {
	t.Parallel()

	shared := `<?xml version="1.0"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <si><t>name</t></si>
  <si><t>widget</t></si>
</sst>`
	sheet := `<?xml version="1.0"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row><c t="s"><v>0</v></c><c><v>1</v></c></row>
    <row><c t="s"><v>1</v></c><c><v>42</v></c></row>
  </sheetData>
</worksheet>`

	data := buildZip(t, map[string]string{
		"xl/sharedStrings.xml":     shared,
		"xl/worksheets/sheet1.xml": sheet,
	})

	e := New(t.TempDir())
	got, err := e.Extract(context.Background(), data, XLSX)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "name, 1\nwidget, 42"
	if got != want {
		t.Errorf("Extract(xlsx) = %q, want %q", got, want)
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	e := New(t.TempDir())
	if _, err := e.Extract(context.Background(), []byte("<html/>"), Format("html")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

// TestExtract_InvalidPDFCleansScratch verifies a corrupt PDF produces an
// ExtractionError and leaves no scratch files behind.
func TestExtract_InvalidPDFCleansScratch(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	e := New(tempDir)

	var extErr *ExtractionError
	_, err := e.Extract(context.Background(), []byte("definitely not a pdf"), PDF)
	if !errors.As(err, &extErr) {
		t.Fatalf("expected *ExtractionError, got %v", err)
	}
	if extErr.Format != PDF {
		t.Errorf("ExtractionError.Format = %q, want %q", extErr.Format, PDF)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("reading temp dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("scratch files left behind: %s", strings.Join(names, ", "))
	}
}

func TestTabular(t *testing.T) {
	t.Parallel()

	for _, f := range []Format{CSV, XLSX, XLS} {
		if !Tabular(f) {
			t.Errorf("Tabular(%s) = false, want true", f)
		}
	}
	for _, f := range []Format{PDF, DOCX, JSON, XML, TXT, MD} {
		if Tabular(f) {
			t.Errorf("Tabular(%s) = true, want false", f)
		}
	}
}
