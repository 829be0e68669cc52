// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document turns an uploaded CV file into plain text. PDFs are
// validated with pdfcpu and read with ledongthuc/pdf; scanned PDFs without a
// text layer fall back to pdftotext and then tesseract OCR. Word documents
// are read with go-docx.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fumiama/go-docx"
	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/pdiddy/cv-verify/internal/container"
	"github.com/pdiddy/cv-verify/internal/logging"
)

// ErrNoText is returned when a document yields no text at all, even after OCR.
var ErrNoText = errors.New("no text could be extracted")

// Extractor produces the plain text of a document.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// executor abstracts external command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) { return exec.LookPath(file) }

func (osExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDFExtractor implements Extractor for PDF and plain-text files.
type PDFExtractor struct {
	Logger *zap.Logger

	// OCR enables the pdftotext/tesseract fallback for PDFs without a text layer.
	OCR bool

	// OCRImage names a container image that reads a PDF on stdin and writes
	// its text to stdout. It runs when the local OCR tools are missing or
	// produce nothing. Empty disables the container fallback.
	OCRImage string

	exec    executor
	runtime func(context.Context) (container.Runtime, error)
}

// NewPDFExtractor returns an extractor with OCR fallback enabled.
func NewPDFExtractor(logger *zap.Logger) *PDFExtractor {
	return &PDFExtractor{Logger: logging.OrNop(logger), OCR: true, exec: osExecutor{}}
}

// Extract returns the text of the document at path. Files ending in .txt or
// .md are read directly and .docx files are read paragraph by paragraph.
func (p *PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	log := logging.OrNop(p.Logger).With(zap.String("document", filepath.Base(path)))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", fmt.Errorf("%s: %w", path, ErrNoText)
		}
		return string(data), nil
	case ".docx":
		text, err := readDOCX(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("%s: %w", path, ErrNoText)
		}
		return text, nil
	}

	pages, err := pageCount(path)
	if err != nil {
		return "", fmt.Errorf("validating %s: %w", path, err)
	}
	log.Debug("pdf validated", zap.Int("pages", pages))

	text, err := readTextLayer(path)
	if err != nil {
		log.Warn("text layer unreadable", zap.Error(err))
	}
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	if !p.OCR {
		return "", fmt.Errorf("%s: %w", path, ErrNoText)
	}
	log.Info("no text layer, falling back to OCR")
	text, err = p.ocr(ctx, path)
	if err != nil {
		return "", fmt.Errorf("ocr %s: %w", path, err)
	}
	return text, nil
}

func pageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}

func readTextLayer(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

// readDOCX returns one line per non-empty paragraph, so headings stay on
// lines of their own for the segmenter.
func readDOCX(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("parsing docx: %w", err)
	}

	var lines []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if t := paragraphText(para); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func paragraphText(para *docx.Paragraph) string {
	var b strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				b.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// ocr runs the local OCR tools, then the OCR container when one is configured.
func (p *PDFExtractor) ocr(ctx context.Context, path string) (string, error) {
	text, err := p.localOCR(ctx, path)
	if err == nil || !errors.Is(err, ErrNoText) || p.OCRImage == "" {
		return text, err
	}
	return p.containerOCR(ctx, path)
}

func (p *PDFExtractor) containerOCR(ctx context.Context, path string) (string, error) {
	detect := p.runtime
	if detect == nil {
		detect = container.Detect
	}
	rt, err := detect(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoText, err)
	}
	if err := rt.ImageExists(ctx, p.OCRImage); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoText, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	logging.OrNop(p.Logger).Info("running OCR container",
		zap.String("runtime", rt.Name()), zap.String("image", p.OCRImage))
	var buf strings.Builder
	if err := rt.Run(ctx, p.OCRImage, nil, f, &buf); err != nil {
		return "", err
	}
	if strings.TrimSpace(buf.String()) == "" {
		return "", ErrNoText
	}
	return buf.String(), nil
}

// localOCR tries pdftotext first, then rasterizes pages with pdftoppm and
// runs tesseract on each image.
func (p *PDFExtractor) localOCR(ctx context.Context, path string) (string, error) {
	ex := p.exec
	if ex == nil {
		ex = osExecutor{}
	}

	if _, err := ex.LookPath("pdftotext"); err == nil {
		out, err := ex.Output(ctx, "pdftotext", "-layout", path, "-")
		if err == nil && strings.TrimSpace(string(out)) != "" {
			return string(out), nil
		}
	}

	if _, err := ex.LookPath("tesseract"); err != nil {
		return "", ErrNoText
	}
	if _, err := ex.LookPath("pdftoppm"); err != nil {
		return "", ErrNoText
	}

	dir, err := os.MkdirTemp("", "cv-verify-ocr-*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	if _, err := ex.Output(ctx, "pdftoppm", "-r", "300", "-png", path, prefix); err != nil {
		return "", fmt.Errorf("pdftoppm: %w", err)
	}

	images, _ := filepath.Glob(prefix + "*.png")
	sort.Strings(images)

	var buf strings.Builder
	for _, img := range images {
		out, err := ex.Output(ctx, "tesseract", img, "stdout")
		if err != nil {
			logging.OrNop(p.Logger).Warn("tesseract failed", zap.String("image", filepath.Base(img)), zap.Error(err))
			continue
		}
		buf.Write(out)
		buf.WriteString("\n")
	}

	if strings.TrimSpace(buf.String()) == "" {
		return "", ErrNoText
	}
	return buf.String(), nil
}
