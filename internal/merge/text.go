package merge

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// textSeparator sits between pages in text and markdown bundles.
var textSeparator = []byte("\n\n" + strings.Repeat("=", 40) + "\n\n")

// textWriter concatenates artifact files with a visible separator. It
// serves both plain-text and markdown bundles.
type textWriter struct{}

// NewTextWriter returns the writer used for text and markdown bundles.
func NewTextWriter() BundleWriter {
	return textWriter{}
}

func (textWriter) joinOverhead() int64 {
	return int64(len(textSeparator))
}

func (textWriter) write(dst string, items []Artifact) (int64, error) {
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create bundle: %w", err)
	}
	defer out.Close()

	var written int64
	for i, art := range items {
		if i > 0 {
			n, err := out.Write(textSeparator)
			written += int64(n)
			if err != nil {
				return written, fmt.Errorf("write separator: %w", err)
			}
		}
		n, err := copyArtifact(out, art.Path)
		written += n
		if err != nil {
			return written, err
		}
	}
	if err := out.Sync(); err != nil {
		return written, fmt.Errorf("sync bundle: %w", err)
	}
	return written, nil
}

func copyArtifact(out io.Writer, path string) (int64, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open artifact: %w", err)
	}
	defer in.Close()
	n, err := io.Copy(out, in)
	if err != nil {
		return n, fmt.Errorf("copy artifact %s: %w", path, err)
	}
	return n, nil
}
