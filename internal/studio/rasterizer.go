package studio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	rasterDPI        = 150
	rasterTimeout    = 5 * time.Minute
	maxRasterStderr  = 8 * 1024
	rasterPagePrefix = "page"
)

// PdftoppmRasterizer shells out to poppler's pdftoppm to render one PNG
// per page.
type PdftoppmRasterizer struct {
	binPath string
	logger  *slog.Logger
}

func NewPdftoppmRasterizer(binPath string, logger *slog.Logger) *PdftoppmRasterizer {
	return &PdftoppmRasterizer{binPath: binPath, logger: logger}
}

func (r *PdftoppmRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	if r.binPath == "" {
		return nil, fmt.Errorf("pdftoppm is not available")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create raster dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, rasterTimeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binPath,
		"-png",
		"-r", strconv.Itoa(rasterDPI),
		pdfPath,
		filepath.Join(outDir, rasterPagePrefix),
	)
	cmd.Stderr = io.Writer(&boundedBuffer{buf: &stderr, limit: maxRasterStderr})
	cmd.Stdout = io.Discard

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	pages, err := r.collectPages(outDir)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no pages for %s", filepath.Base(pdfPath))
	}

	r.logger.Info("rasterised pdf",
		"pdf", filepath.Base(pdfPath),
		"pages", len(pages),
		"duration_ms", time.Since(start).Milliseconds())
	return pages, nil
}

// collectPages orders the produced files by the page number pdftoppm
// embeds in the filename (page-1.png, page-02.png and so on).
func (r *PdftoppmRasterizer) collectPages(outDir string) ([]string, error) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read raster dir: %w", err)
	}

	type page struct {
		num  int
		path string
	}
	var pages []page
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, rasterPagePrefix+"-") || !strings.HasSuffix(name, ".png") {
			continue
		}
		numStr := strings.TrimSuffix(strings.TrimPrefix(name, rasterPagePrefix+"-"), ".png")
		num, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		pages = append(pages, page{num: num, path: filepath.Join(outDir, name)})
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })

	paths := make([]string, len(pages))
	for i, p := range pages {
		paths[i] = p.path
	}
	return paths, nil
}

// boundedBuffer keeps only the last limit bytes written.
type boundedBuffer struct {
	buf   *bytes.Buffer
	limit int
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	b.buf.Write(p)
	if b.buf.Len() > b.limit {
		tail := make([]byte, b.limit)
		copy(tail, b.buf.Bytes()[b.buf.Len()-b.limit:])
		b.buf.Reset()
		b.buf.Write(tail)
	}
	return n, nil
}
