package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
)

type call struct {
	name string
	args []string
}

type stubRunner struct {
	mu    sync.Mutex
	calls []call
	fn    func(name string, args []string) ([]byte, []byte, error)
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, call{name: name, args: args})
	s.mu.Unlock()
	return s.fn(name, args)
}

func (s *stubRunner) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.name
	}
	return out
}

const tsv = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t20\t10\t90\tTotal:\n" +
	"5\t1\t1\t1\t1\t2\t40\t10\t20\t10\t70\t$45.99\n"

func TestExtractor_Image(t *testing.T) {
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		if args[len(args)-1] == "tsv" {
			return []byte(tsv), nil, nil
		}
		return []byte("STARBUCKS\n-----\nTotal: $45.99\n"), nil, nil
	}}
	e := NewExtractor(Config{}, nil, WithRunner(r))

	res, err := e.Extract(context.Background(), "receipt.PNG")
	require.NoError(t, err)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, 1, res.Pages)
	assert.Contains(t, res.Text, "Total: $45.99")
	assert.NotContains(t, res.Text, "-----")
	assert.Greater(t, res.Confidence, float32(0.5))
	assert.Equal(t, []string{"tesseract", "tesseract"}, r.names())
}

func TestExtractor_PDFTextLayer(t *testing.T) {
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		require.Equal(t, "pdftotext", name)
		return []byte("Invoice Date: 2024-03-03\nAmount Due: $45.99\f"), nil, nil
	}}
	e := NewExtractor(Config{}, nil, WithRunner(r))

	res, err := e.Extract(context.Background(), "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, []string{"pdftotext"}, r.names())
}

func TestExtractor_ScannedPDFFallsBackToOCR(t *testing.T) {
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftotext":
			return []byte("  \f"), nil, nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, p := range []string{"-1.png", "-2.png"} {
				if err := os.WriteFile(prefix+p, []byte("png"), 0o600); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		default:
			return []byte("page of " + filepath.Base(args[0])), nil, nil
		}
	}}
	e := NewExtractor(Config{}, nil, WithRunner(r))

	res, err := e.Extract(context.Background(), "scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 2, strings.Count(res.Text, "page of"))
	assert.Equal(t, []string{"pdftotext", "pdftoppm", "tesseract", "tesseract"}, r.names())
}

func TestExtractor_TesseractFailure(t *testing.T) {
	r := &stubRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("cannot read image"), errors.New("exit status 1")
	}}
	e := NewExtractor(Config{}, nil, WithRunner(r))

	res, err := e.Extract(context.Background(), "broken.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract")
	assert.Equal(t, []string{"cannot read image"}, res.Warnings)
}

func TestExtractor_UnsupportedExtension(t *testing.T) {
	e := NewExtractor(Config{}, nil, WithRunner(&stubRunner{}))
	_, err := e.Extract(context.Background(), "notes.docx")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsupportedFile)
}

func TestMeanTSVConfidence(t *testing.T) {
	assert.InDelta(t, 0.8, meanTSVConfidence(tsv), 0.0001)
	assert.Zero(t, meanTSVConfidence("level\tconf\n"))
}
