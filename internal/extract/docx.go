package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// documentXML mirrors the subset of word/document.xml needed for text
// extraction: paragraphs containing runs containing text elements.
type documentXML struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []struct {
					Content string `xml:",chardata"`
				} `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

// extractDOCX extracts paragraph text from a DOCX archive. DOCX files are
// ZIP containers; the document body lives in word/document.xml.
func extractDOCX(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening docx archive: %w", err)
	}

	var content []byte
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("opening document.xml: %w", err)
		}
		content, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("reading document.xml: %w", err)
		}
		break
	}
	if content == nil {
		return "", fmt.Errorf("archive has no word/document.xml")
	}

	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parsing document.xml: %w", err)
	}

	var b strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, run := range para.Runs {
			for _, text := range run.Text {
				b.WriteString(text.Content)
			}
		}
	}

	return b.String(), nil
}
