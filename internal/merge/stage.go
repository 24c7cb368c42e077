// Package merge assembles ordered pages into the final PDF file.
//
// Pages are always written to an uncompressed scratch document first. The
// scratch file is then either moved to the output path or run through a
// structural compressor that writes the output. The output path never
// observes a partially written file.
package merge

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/pdf-merger/internal/model"
)

// uncompressedQuality is the JPEG quality used when compression is off.
const uncompressedQuality = 100

// Stage merges pages into a PDF using a shared scratch directory.
type Stage struct {
	scratchDir string
	compressor Compressor
}

// NewStage creates a Stage writing scratch files into scratchDir.
func NewStage(scratchDir string, c Compressor) *Stage {
	return &Stage{scratchDir: scratchDir, compressor: c}
}

// ScratchDir returns the directory holding in-flight scratch documents.
func (s *Stage) ScratchDir() string {
	return s.scratchDir
}

// Merge writes pages to outputPath and reports whether an output was
// produced. Failures are logged and never returned; the scratch file is
// removed on every path.
func (s *Stage) Merge(pages []model.PageImage, outputPath string, compress bool, quality int) bool {
	log := zlog.Logger.With().Str("output", outputPath).Logger()

	if len(pages) == 0 {
		log.Error().Msg("merge failed: no pages")
		return false
	}

	scratch, err := reserve(s.scratchDir, "scratch-*.pdf")
	if err != nil {
		log.Error().Err(err).Msg("failed to create scratch file")
		return false
	}
	defer func() {
		if err := os.Remove(scratch); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("scratch", scratch).Msg("failed to remove scratch file")
		}
	}()

	start := time.Now()

	if !compress {
		quality = uncompressedQuality
	}
	log.Info().
		Int("pages", len(pages)).
		Bool("compress", compress).
		Int("quality", quality).
		Msg("merging pages")

	if err := WriteDocument(scratch, pages, quality); err != nil {
		log.Error().Err(err).Msg("merge failed")
		return false
	}

	if !compress {
		if err := moveFile(scratch, outputPath); err != nil {
			log.Error().Err(err).Msg("failed to publish output")
			return false
		}
	} else if err := s.compressInto(scratch, outputPath); err != nil {
		log.Error().Err(err).Msg("merge and compression failed")
		return false
	}

	log.Info().
		Str("size", sizeMB(outputPath)).
		Dur("elapsed", time.Since(start)).
		Msg("merge complete")

	return true
}

// compressInto compresses scratch into a temporary file beside outputPath and
// renames it into place. When compression would grow the document, the
// scratch file itself is published instead.
func (s *Stage) compressInto(scratch, outputPath string) error {
	if s.compressor == nil {
		return errors.New("no compressor configured")
	}

	tmp, err := reserve(filepath.Dir(outputPath), "."+filepath.Base(outputPath)+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := s.compressor.Compress(scratch, tmp); err != nil {
		return err
	}

	before, after := fileSize(scratch), fileSize(tmp)

	ratio := 0.0
	if before > 0 {
		ratio = (1 - float64(after)/float64(before)) * 100
	}
	zlog.Logger.Info().
		Str("before", sizeMB(scratch)).
		Str("after", sizeMB(tmp)).
		Str("reduction", fmt.Sprintf("%.0f%%", ratio)).
		Msg("pdf compressed")

	if after > before {
		zlog.Logger.Warn().Msg("compressed pdf is larger than the scratch document, publishing it uncompressed")
		return moveFile(scratch, outputPath)
	}

	return os.Rename(tmp, outputPath)
}

// Cleanup removes the scratch directory if nothing else is left in it.
func (s *Stage) Cleanup() {
	err := os.Remove(s.scratchDir)
	switch {
	case err == nil, errors.Is(err, fs.ErrNotExist):
	default:
		zlog.Logger.Debug().Err(err).Str("dir", s.scratchDir).Msg("scratch directory not removed")
	}
}

// reserveAttempts bounds how often reserve recreates a directory that
// another stage's Cleanup removed underneath it.
const reserveAttempts = 5

// reserve creates dir if needed and an empty file matching pattern in it,
// and returns the file's name.
func reserve(dir, pattern string) (string, error) {
	var err error
	for range reserveAttempts {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create directory %s: %w", dir, err)
		}

		var f *os.File
		f, err = os.CreateTemp(dir, pattern)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}

		name := f.Name()
		if err := f.Close(); err != nil {
			os.Remove(name)
			return "", err
		}

		return name, nil
	}

	return "", fmt.Errorf("reserve file in %s: %w", dir, err)
}

// moveFile renames src to dst, copying through a temporary file in dst's
// directory when a plain rename is impossible (e.g. across devices).
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), dst)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func sizeMB(path string) string {
	return fmt.Sprintf("%.1fMB", float64(fileSize(path))/(1024*1024))
}
