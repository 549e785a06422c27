// Package telemetry decodes simplified lap telemetry exports. Each row is
//
//	lap,lapTimeMs,fl_i,fl_m,fl_o,fr_i,fr_m,fr_o,rl_i,rl_m,rl_o,rr_i,rr_m,rr_o,fl_ws,fr_ws,rl_ws,rr_ws
//
// with an optional header line.
package telemetry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/tfunk1030/setupcompare/pkg/setup"
)

// Columns is the number of fields in a lap row.
const Columns = 18

// DefaultMaxSize is the default upper bound on telemetry file size.
const DefaultMaxSize = 5 << 20

// headerMarker identifies a header line.
const headerMarker = "laptime"

// ErrTooLarge indicates input larger than the configured limit.
var ErrTooLarge = errors.New("telemetry file too large")

// Decoder reads telemetry exports up to a size limit.
type Decoder struct {
	maxSize int64
	now     func() time.Time
	newID   func() string
}

// NewDecoder returns a decoder that rejects input larger than maxSize bytes.
// A non-positive maxSize selects DefaultMaxSize.
func NewDecoder(maxSize int64) *Decoder {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &Decoder{
		maxSize: maxSize,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// DecodeFile decodes the file at path, using its base name as source name.
func (d *Decoder) DecodeFile(comparisonID, path string) (*setup.TelemetrySummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry: %w", err)
	}
	defer f.Close()

	summary, err := d.Decode(comparisonID, filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return summary, nil
}

// Decode reads a telemetry export from r. Rows with fewer than Columns
// fields are skipped. Non-numeric fields decode as NaN, except the lap
// number, which falls back to the row's sequence number, and the lap time,
// which falls back to zero.
func (d *Decoder) Decode(comparisonID, sourceName string, r io.Reader) (*setup.TelemetrySummary, error) {
	data, err := io.ReadAll(io.LimitReader(r, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read telemetry: %w", err)
	}

	if int64(len(data)) > d.maxSize {
		return nil, fmt.Errorf("%w: limit is %s", ErrTooLarge, humanize.IBytes(uint64(d.maxSize)))
	}

	return &setup.TelemetrySummary{
		ID:           d.newID(),
		ComparisonID: comparisonID,
		SourceName:   sourceName,
		Laps:         parseLaps(string(data)),
		CreatedAt:    d.now().UTC(),
	}, nil
}

func parseLaps(content string) []setup.LapSample {
	laps := make([]setup.LapSample, 0)

	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), len(content)+1)

	first := true

	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		if first {
			first = false

			if strings.Contains(strings.ToLower(line), headerMarker) {
				continue
			}
		}

		parts := strings.Split(line, ",")
		if len(parts) < Columns {
			continue
		}

		v := make([]float64, Columns)
		for i := range Columns {
			v[i] = number(parts[i])
		}

		laps = append(laps, lapFrom(v, len(laps)+1))
	}

	return laps
}

func lapFrom(v []float64, seq int) setup.LapSample {
	lap := seq
	if finite(v[0]) {
		lap = int(v[0])
	}

	lapTime := 0.0
	if finite(v[1]) {
		lapTime = v[1]
	}

	corner := func(i int) setup.CornerTemps {
		return setup.CornerTemps{Inner: v[i], Middle: v[i+1], Outer: v[i+2]}
	}

	return setup.LapSample{
		Lap:       lap,
		LapTimeMs: lapTime,
		TyreTemps: setup.TyreTemps{
			FrontLeft:  corner(2),
			FrontRight: corner(5),
			RearLeft:   corner(8),
			RearRight:  corner(11),
		},
		WheelSpeeds: setup.WheelSpeeds{
			FrontLeft:  v[14],
			FrontRight: v[15],
			RearLeft:   v[16],
			RearRight:  v[17],
		},
	}
}

func number(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}

	return f
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
