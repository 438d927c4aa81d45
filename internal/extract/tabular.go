package extract

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// extractCSV parses comma-separated content and renders each record as one
// line with fields joined by ", ". Ragged rows are tolerated.
func extractCSV(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var b strings.Builder
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing csv: %w", err)
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(record, ", "))
	}

	return b.String(), nil
}

// sharedStringsXML mirrors xl/sharedStrings.xml: an ordered list of strings
// that worksheet cells reference by index.
type sharedStringsXML struct {
	Items []struct {
		Text string `xml:"t"`
	} `xml:"si"`
}

// worksheetXML mirrors the row/cell structure of an xl/worksheets sheet.
type worksheetXML struct {
	Rows []struct {
		Cells []struct {
			Type   string `xml:"t,attr"`
			Value  string `xml:"v"`
			Inline struct {
				Text string `xml:"t"`
			} `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

// extractXLSX extracts cell text from an XLSX workbook. XLSX is a ZIP
// archive of XML parts: string cells hold an index into the shared string
// table, numeric and inline cells hold their value directly. Rows are
// rendered one per line with cells joined by ", ", sheets in part order.
func extractXLSX(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening xlsx archive: %w", err)
	}

	shared, err := readSharedStrings(reader)
	if err != nil {
		return "", err
	}

	var sheetNames []string
	for _, file := range reader.File {
		if strings.HasPrefix(file.Name, "xl/worksheets/") && strings.HasSuffix(file.Name, ".xml") {
			sheetNames = append(sheetNames, file.Name)
		}
	}
	if len(sheetNames) == 0 {
		return "", fmt.Errorf("archive has no worksheets")
	}
	sort.Strings(sheetNames)

	var b strings.Builder
	for _, name := range sheetNames {
		content, err := readZipFile(reader, name)
		if err != nil {
			return "", err
		}

		var sheet worksheetXML
		if err := xml.Unmarshal(content, &sheet); err != nil {
			return "", fmt.Errorf("parsing %s: %w", name, err)
		}

		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cellText(cell.Type, cell.Value, cell.Inline.Text, shared))
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(strings.Join(cells, ", "))
		}
	}

	return b.String(), nil
}

// cellText resolves a cell's display text. Type "s" is a shared-string
// index, "inlineStr" carries its text inline, anything else is a literal.
func cellText(cellType, value, inline string, shared []string) string {
	switch cellType {
	case "s":
		idx, err := strconv.Atoi(value)
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx]
	case "inlineStr":
		return inline
	default:
		return value
	}
}

// readSharedStrings loads the shared string table, which is optional: a
// workbook of purely numeric cells has none.
func readSharedStrings(reader *zip.Reader) ([]string, error) {
	content, err := readZipFile(reader, "xl/sharedStrings.xml")
	if err != nil {
		return nil, nil
	}

	var table sharedStringsXML
	if err := xml.Unmarshal(content, &table); err != nil {
		return nil, fmt.Errorf("parsing shared strings: %w", err)
	}

	out := make([]string, len(table.Items))
	for i, item := range table.Items {
		out[i] = item.Text
	}
	return out, nil
}

// readZipFile reads a single named file out of a ZIP archive.
func readZipFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("archive has no %s", name)
}
