package telemetry_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfunk1030/setupcompare/internal/telemetry"
	"github.com/tfunk1030/setupcompare/pkg/setup"
)

const export = `lap,lapTime,fl_i,fl_m,fl_o,fr_i,fr_m,fr_o,rl_i,rl_m,rl_o,rr_i,rr_m,rr_o,fl_ws,fr_ws,rl_ws,rr_ws
1,92000,80,82,84,81,83,85,90,88,86,91,89,87,200,201,202,203
2,91500,80,82,84,81,83,85,90,88,86,91,89,87,200,201,202,203
short,row
x,oops,80,82,84,81,83,85,90,88,86,91,89,87,200,201,202,203
`

func TestDecode(t *testing.T) {
	t.Parallel()

	summary, err := telemetry.NewDecoder(0).Decode("cmp-1", "laps.csv", strings.NewReader(export))
	require.NoError(t, err)

	assert.Equal(t, "cmp-1", summary.ComparisonID)
	assert.Equal(t, "laps.csv", summary.SourceName)
	assert.False(t, summary.CreatedAt.IsZero())

	_, err = uuid.Parse(summary.ID)
	require.NoError(t, err)

	require.Len(t, summary.Laps, 3)

	first := summary.Laps[0]
	assert.Equal(t, 1, first.Lap)
	assert.InDelta(t, 92000.0, first.LapTimeMs, 1e-9)
	assert.Equal(t, setup.CornerTemps{Inner: 80, Middle: 82, Outer: 84}, first.TyreTemps.FrontLeft)
	assert.Equal(t, setup.CornerTemps{Inner: 91, Middle: 89, Outer: 87}, first.TyreTemps.RearRight)
	assert.Equal(t, setup.WheelSpeeds{FrontLeft: 200, FrontRight: 201, RearLeft: 202, RearRight: 203}, first.WheelSpeeds)

	// Non-numeric lap and lap time fall back to sequence number and zero.
	last := summary.Laps[2]
	assert.Equal(t, 3, last.Lap)
	assert.Zero(t, last.LapTimeMs)
}

func TestDecode_NoHeader(t *testing.T) {
	t.Parallel()

	body := "5,90000,1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16\n"

	summary, err := telemetry.NewDecoder(0).Decode("", "x.csv", strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, summary.Laps, 1)
	assert.Equal(t, 5, summary.Laps[0].Lap)
	assert.InDelta(t, 16.0, summary.Laps[0].WheelSpeeds.RearRight, 1e-9)
}

func TestDecode_Empty(t *testing.T) {
	t.Parallel()

	summary, err := telemetry.NewDecoder(0).Decode("", "empty.csv", strings.NewReader(""))
	require.NoError(t, err)
	assert.NotNil(t, summary.Laps)
	assert.Empty(t, summary.Laps)
}

func TestDecode_EdgesFeedRules(t *testing.T) {
	t.Parallel()

	summary, err := telemetry.NewDecoder(0).Decode("", "laps.csv", strings.NewReader(export))
	require.NoError(t, err)

	edges, ok := setup.Edges(summary.Laps)
	require.True(t, ok)
	assert.InDelta(t, 84.5, edges.FrontOuter, 1e-9)
	assert.InDelta(t, 80.5, edges.FrontInner, 1e-9)
	assert.InDelta(t, 86.5, edges.RearOuter, 1e-9)
	assert.InDelta(t, 90.5, edges.RearInner, 1e-9)
}

func TestDecode_SizeLimit(t *testing.T) {
	t.Parallel()

	_, err := telemetry.NewDecoder(8).Decode("", "big.csv", strings.NewReader(strings.Repeat("1", 9)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, telemetry.ErrTooLarge))
}

func TestDecodeFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.csv")
	require.NoError(t, os.WriteFile(path, []byte(export), 0o600))

	summary, err := telemetry.NewDecoder(0).DecodeFile("c", path)
	require.NoError(t, err)
	assert.Equal(t, "run.csv", summary.SourceName)
	assert.Len(t, summary.Laps, 3)

	_, err = telemetry.NewDecoder(0).DecodeFile("c", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}
