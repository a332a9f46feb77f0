package merge

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// composeFunc merges the input PDFs into outFile. Split out so bundling
// logic can be tested without producing valid PDF input.
type composeFunc func(inFiles []string, outFile string) error

// pdfWriter composes page PDFs into one document per bundle.
type pdfWriter struct {
	compose composeFunc
}

// NewPDFWriter returns the writer used for PDF bundles, backed by pdfcpu.
func NewPDFWriter() BundleWriter {
	return &pdfWriter{
		compose: func(inFiles []string, outFile string) error {
			return api.MergeCreateFile(inFiles, outFile, false, nil)
		},
	}
}

// PDF pages are self-contained; nothing is inserted between them.
func (*pdfWriter) joinOverhead() int64 {
	return 0
}

func (w *pdfWriter) write(dst string, items []Artifact) (int64, error) {
	inFiles := make([]string, len(items))
	for i, art := range items {
		inFiles[i] = art.Path
	}
	if err := w.compose(inFiles, dst); err != nil {
		return 0, fmt.Errorf("compose pdf bundle: %w", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		return 0, fmt.Errorf("stat pdf bundle: %w", err)
	}
	return info.Size(), nil
}
