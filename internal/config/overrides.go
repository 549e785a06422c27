package config

import "fmt"

// Overrides are command-line values layered on top of a loaded Config.
// Nil pointers and empty strings leave the loaded value in place.
type Overrides struct {
	Minor     *float64
	Moderate  *float64
	Major     *float64
	RulesPath string
	Format    string
	NoColor   bool
	LogLevel  string
}

// Apply merges o into c and revalidates the result.
func (c *Config) Apply(o Overrides) error {
	applyFloat(&c.Thresholds.Minor, o.Minor)
	applyFloat(&c.Thresholds.Moderate, o.Moderate)
	applyFloat(&c.Thresholds.Major, o.Major)
	applyNonEmpty(&c.Rules.Path, o.RulesPath)
	applyNonEmpty(&c.Output.Format, o.Format)
	applyNonEmpty(&c.Logging.Level, o.LogLevel)

	// A set flag can only turn color off.
	if o.NoColor {
		c.Output.NoColor = true
	}

	err := c.Validate()
	if err != nil {
		return fmt.Errorf("apply overrides: %w", err)
	}

	return nil
}

func applyFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func applyNonEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
