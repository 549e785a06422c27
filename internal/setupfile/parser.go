// Package setupfile parses the plain-text setup export format: "[section]"
// headers, "key=value" lines and ";" comments.
package setupfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/tfunk1030/setupcompare/pkg/setup"
)

// DefaultMaxSize is the default upper bound on setup file size.
const DefaultMaxSize = 2 << 20

// rootSection names keys that appear before any section header.
const rootSection = "root"

// Sentinel errors for setup parsing.
var (
	// ErrTooLarge indicates input larger than the configured limit.
	ErrTooLarge = errors.New("setup file too large")
)

// Parser reads setup files up to a size limit.
type Parser struct {
	maxSize int64
}

// NewParser returns a parser that rejects input larger than maxSize bytes.
// A non-positive maxSize selects DefaultMaxSize.
func NewParser(maxSize int64) *Parser {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &Parser{maxSize: maxSize}
}

// MaxSize returns the parser's size limit in bytes.
func (p *Parser) MaxSize() int64 {
	return p.maxSize
}

// ParseFile parses the file at path, naming the result after its base name.
func (p *Parser) ParseFile(path string) (setup.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return setup.File{}, fmt.Errorf("open setup: %w", err)
	}
	defer f.Close()

	file, err := p.Parse(filepath.Base(path), f)
	if err != nil {
		return setup.File{}, fmt.Errorf("%s: %w", path, err)
	}

	return file, nil
}

// Parse reads a setup from r.
func (p *Parser) Parse(name string, r io.Reader) (setup.File, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.maxSize+1))
	if err != nil {
		return setup.File{}, fmt.Errorf("read setup: %w", err)
	}

	if int64(len(data)) > p.maxSize {
		return setup.File{}, fmt.Errorf("%w: limit is %s", ErrTooLarge, humanize.IBytes(uint64(p.maxSize)))
	}

	return ParseString(name, string(data)), nil
}

// ParseString parses setup text. Malformed lines are skipped; parsing never fails.
func ParseString(name, content string) setup.File {
	file := setup.File{Name: name, Parameters: make([]setup.Parameter, 0)}
	section := rootSection

	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), len(content)+1)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		switch {
		case line == "" || strings.HasPrefix(line, ";"):
			continue
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			section = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))

			continue
		}

		rawKey, rawValue, ok := strings.Cut(line, "=")
		rawKey = strings.TrimSpace(rawKey)

		if !ok || rawKey == "" {
			continue
		}

		key := strings.ToLower(section + "." + rawKey)
		meta, _ := Lookup(key)

		file.Parameters = append(file.Parameters, setup.Parameter{
			Key:      key,
			Label:    meta.Label,
			Category: meta.Category,
			Value:    setup.ParseValue(strings.TrimSpace(rawValue)),
			Unit:     meta.Unit,
		})
	}

	return file
}
