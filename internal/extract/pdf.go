package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractPDF extracts page text from a PDF using pdfcpu. The library
// operates on file paths, so the buffer is written to a scratch file and the
// per-page content files it produces are read back in page order.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, error) {
	if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}

	scratch, err := os.MkdirTemp(e.tempDir, "pdf-*")
	if err != nil {
		return "", fmt.Errorf("creating scratch dir: %w", err)
	}
	defer cleanupScratch(ctx, scratch)

	pdfPath := filepath.Join(scratch, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return "", fmt.Errorf("writing scratch file: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(scratch, "pages")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(pdfPath, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("extracting content: %w", err)
	}

	// pdfcpu names its output files Content_page_<n>; read them back in
	// page order so the text stream matches the document.
	pageTexts := make(map[int]string)
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("reading output dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(entry.Name(), "Content_page_%d", &pageNum); err != nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			return "", fmt.Errorf("reading page %d content: %w", pageNum, err)
		}
		pageTexts[pageNum] = string(content)
	}

	var b strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text, ok := pageTexts[pageNum]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	return b.String(), nil
}
