package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfunk1030/setupcompare/internal/config"
	"github.com/tfunk1030/setupcompare/internal/report"
	"github.com/tfunk1030/setupcompare/pkg/severity"
)

func TestValidate_Default_NoError(t *testing.T) {
	t.Parallel()

	require.NoError(t, config.Default().Validate())
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{
			name:   "threshold order",
			mutate: func(c *config.Config) { c.Thresholds.Minor = 5 },
			want:   severity.ErrThresholdOrder,
		},
		{
			name:   "negative threshold",
			mutate: func(c *config.Config) { c.Thresholds.Minor = -1 },
			want:   severity.ErrNegativeThreshold,
		},
		{
			name:   "setup size",
			mutate: func(c *config.Config) { c.Input.MaxSetupSize = "lots" },
			want:   config.ErrInvalidSize,
		},
		{
			name:   "zero telemetry size",
			mutate: func(c *config.Config) { c.Input.MaxTelemetrySize = "0" },
			want:   config.ErrInvalidSize,
		},
		{
			name:   "log level",
			mutate: func(c *config.Config) { c.Logging.Level = "verbose" },
			want:   config.ErrInvalidLogLevel,
		},
		{
			name:   "format",
			mutate: func(c *config.Config) { c.Output.Format = "xml" },
			want:   config.ErrInvalidFormat,
		},
		{
			name:   "timeout",
			mutate: func(c *config.Config) { c.Server.ReadTimeout = -1 },
			want:   config.ErrInvalidTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(cfg)

			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestInputLimits(t *testing.T) {
	t.Parallel()

	in := config.InputConfig{MaxSetupSize: "2MB", MaxTelemetrySize: "1KiB"}

	setupLimit, err := in.SetupLimit()
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000), setupLimit)

	telemetryLimit, err := in.TelemetryLimit()
	require.NoError(t, err)
	assert.Equal(t, int64(1024), telemetryLimit)
}

func TestApply(t *testing.T) {
	t.Parallel()

	minor, major := 0.5, 10.0

	cfg := config.Default()
	require.NoError(t, cfg.Apply(config.Overrides{
		Minor:     &minor,
		Major:     &major,
		RulesPath: "custom.yaml",
		Format:    string(report.FormatJSON),
		NoColor:   true,
	}))

	assert.Equal(t, severity.Thresholds{Minor: 0.5, Moderate: 1, Major: 10}, cfg.Thresholds)
	assert.Equal(t, "custom.yaml", cfg.Rules.Path)
	assert.Equal(t, string(report.FormatJSON), cfg.Output.Format)
	assert.True(t, cfg.Output.NoColor)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
}

func TestApply_Empty_KeepsLoaded(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	require.NoError(t, cfg.Apply(config.Overrides{}))
	assert.Equal(t, config.Default(), cfg)
}

func TestApply_Invalid(t *testing.T) {
	t.Parallel()

	moderate := 100.0

	cfg := config.Default()
	err := cfg.Apply(config.Overrides{Moderate: &moderate})
	assert.ErrorIs(t, err, severity.ErrThresholdOrder)
}
