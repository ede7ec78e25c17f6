package config

import (
	"fmt"
	"strings"
)

// ModeConfig adjusts a build for a named mode (e.g. "stage")
type ModeConfig struct {
	Include []string `mapstructure:"include"` // Packages bundled in this mode even though they are dependencies
	Formats []string `mapstructure:"formats"` // Replaces the top-level formats when set
}

// Validate validates a mode
func (mc *ModeConfig) Validate() error {
	for _, pkg := range mc.Include {
		if strings.TrimSpace(pkg) == "" {
			return fmt.Errorf("include cannot contain empty package names")
		}
	}
	return nil
}
