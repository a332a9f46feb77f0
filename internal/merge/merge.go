// Package merge combines per-page artifacts into numbered output bundles,
// sealing a bundle whenever the next artifact would push it past the size
// cap.
package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagefold/pagefold/internal/progress"
	"github.com/pagefold/pagefold/internal/queue"
)

// Artifact is one converted page on disk, ready for bundling.
type Artifact struct {
	Path string
	URL  string
	Size int64
}

// Part records one sealed output bundle.
type Part struct {
	Path  string
	Items int
	Bytes int64
}

// Config sizes and names the output bundles.
type Config struct {
	OutputDir string
	Name      string
	Ext       string
	MaxBytes  int64
	// MaxItems caps items per bundle; <= 0 means unbounded. Only the PDF
	// composer needs this, large merges degrade it badly.
	MaxItems int
}

// BundleWriter composes accumulated artifacts into one output file and
// reports the bytes written.
type BundleWriter interface {
	write(dst string, items []Artifact) (int64, error)
	// joinOverhead is the byte cost added between two consecutive items,
	// counted toward the bundle size cap.
	joinOverhead() int64
}

// Merger drains the artifact queue strictly in arrival order and seals
// bundles greedily. Write failures are logged and skipped so one bad
// bundle never aborts the run.
type Merger struct {
	cfg     Config
	writer  BundleWriter
	logger  *zap.Logger
	emitter progress.Emitter
	runID   uuid.UUID

	pending      []Artifact
	pendingBytes int64
	partNum      int
	parts        []Part
}

// NewMerger builds a merger for the given writer.
func NewMerger(cfg Config, writer BundleWriter, runID uuid.UUID, logger *zap.Logger, emitter progress.Emitter) (*Merger, error) {
	if cfg.MaxBytes <= 0 {
		return nil, fmt.Errorf("max bundle bytes must be > 0")
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("output name is required")
	}
	if writer == nil {
		return nil, fmt.Errorf("bundle writer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = progress.Nop{}
	}
	return &Merger{
		cfg:     cfg,
		writer:  writer,
		logger:  logger,
		emitter: emitter,
		runID:   runID,
	}, nil
}

// Run consumes artifacts until the queue closes, then seals whatever is
// still pending. It returns every bundle written.
func (m *Merger) Run(ctx context.Context, in *queue.Queue[Artifact]) ([]Part, error) {
	if err := os.MkdirAll(m.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	for {
		art, ok, err := in.Get(ctx)
		if err != nil {
			return m.parts, err
		}
		if !ok {
			break
		}
		m.add(art)
	}
	m.seal()
	return m.parts, nil
}

// add accumulates one artifact, sealing the pending bundle first when the
// artifact would not fit. An artifact that exceeds the cap on its own
// becomes a single-item bundle sealed immediately.
func (m *Merger) add(art Artifact) {
	if !m.usable(art) {
		return
	}
	if len(m.pending) > 0 && !m.fits(art) {
		m.seal()
	}
	m.pending = append(m.pending, art)
	if m.pendingBytes > 0 {
		m.pendingBytes += m.writer.joinOverhead()
	}
	m.pendingBytes += art.Size

	if art.Size >= m.cfg.MaxBytes {
		m.logger.Warn("artifact exceeds bundle cap, sealing it alone",
			zap.String("url", art.URL),
			zap.Int64("bytes", art.Size),
		)
		m.seal()
	}
}

func (m *Merger) fits(art Artifact) bool {
	if m.cfg.MaxItems > 0 && len(m.pending) >= m.cfg.MaxItems {
		return false
	}
	projected := m.pendingBytes + m.writer.joinOverhead() + art.Size
	return projected <= m.cfg.MaxBytes
}

// usable filters out artifacts that vanished or came out empty; both are
// logged and skipped rather than failing the run.
func (m *Merger) usable(art Artifact) bool {
	info, err := os.Stat(art.Path)
	if err != nil {
		m.logger.Warn("skipping unreadable artifact", zap.String("path", art.Path), zap.Error(err))
		return false
	}
	if info.Size() == 0 {
		m.logger.Debug("skipping empty artifact", zap.String("url", art.URL))
		return false
	}
	return true
}

// seal writes the pending artifacts as the next numbered part and resets
// the accumulator.
func (m *Merger) seal() {
	if len(m.pending) == 0 {
		return
	}
	items := m.pending
	m.pending = nil
	m.pendingBytes = 0

	m.partNum++
	dst := filepath.Join(m.cfg.OutputDir, fmt.Sprintf("%s_part%d%s", m.cfg.Name, m.partNum, m.cfg.Ext))

	written, err := m.writer.write(dst, items)
	if err != nil {
		m.logger.Warn("bundle write failed",
			zap.String("path", dst),
			zap.Int("items", len(items)),
			zap.Error(err),
		)
		return
	}

	part := Part{Path: dst, Items: len(items), Bytes: written}
	m.parts = append(m.parts, part)
	m.logger.Info("sealed bundle",
		zap.String("path", dst),
		zap.Int("items", part.Items),
		zap.Int64("bytes", part.Bytes),
	)
	m.emitter.Emit(progress.Event{
		RunID: m.runID,
		TS:    time.Now().UTC(),
		Stage: progress.StageBundleSealed,
		Part:  m.partNum,
		Count: int64(part.Items),
		Bytes: part.Bytes,
	})
}

// Parts returns the bundles sealed so far.
func (m *Merger) Parts() []Part {
	return m.parts
}
