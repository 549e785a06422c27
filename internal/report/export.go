package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// compressedSuffix marks export paths written as LZ4 frames.
const compressedSuffix = ".lz4"

// Export renders r in format and writes it to path, replacing any existing
// file. A ".lz4" suffix compresses the output.
func Export(path string, format Format, r Report, opts Options) (err error) {
	var buf bytes.Buffer

	// Files never carry ANSI escapes.
	opts.NoColor = true

	err = Write(&buf, format, r, opts)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}

	defer func() {
		if err != nil {
			err = errors.Join(err, os.Remove(f.Name()))
		}
	}()

	err = writeMaybeCompressed(f, buf.Bytes(), isCompressed(path))
	if err != nil {
		return errors.Join(err, f.Close())
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("close export: %w", err)
	}

	err = os.Rename(f.Name(), path)
	if err != nil {
		return fmt.Errorf("rename export: %w", err)
	}

	return nil
}

// ReadExport returns the rendered bytes of an export, decompressing ".lz4" files.
func ReadExport(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if isCompressed(path) {
		r = lz4.NewReader(f)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	return data, nil
}

// FormatForPath guesses a format from an export file name, ignoring a
// trailing ".lz4". It reports false for unrecognized extensions.
func FormatForPath(path string) (Format, bool) {
	name := strings.TrimSuffix(strings.ToLower(path), compressedSuffix)

	switch filepath.Ext(name) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".html", ".htm":
		return FormatPlot, true
	case ".txt":
		return FormatText, true
	default:
		return "", false
	}
}

func isCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), compressedSuffix)
}

func writeMaybeCompressed(w io.Writer, data []byte, compress bool) error {
	if !compress {
		_, err := w.Write(data)
		if err != nil {
			return fmt.Errorf("write export: %w", err)
		}

		return nil
	}

	zw := lz4.NewWriter(w)

	_, err := zw.Write(data)
	if err != nil {
		return fmt.Errorf("compress export: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("compress export: %w", err)
	}

	return nil
}
