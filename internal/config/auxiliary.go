package config

import "fmt"

// Auxiliary build ordering relative to the primary pass
const (
	OrderBefore = "before" // built and awaited before the primary pass
	OrderAfter  = "after"  // launched once the primary pass is done
)

// AuxiliaryConfig describes extra entries (typically web workers) built
// independently of the library entry
type AuxiliaryConfig struct {
	Entries     []string `mapstructure:"entries"`       // Files or doublestar globs, relative to the project root
	OutDir      string   `mapstructure:"out_dir"`       // Shared output directory (default: the build out_dir)
	FileName    string   `mapstructure:"file_name"`     // Template, supports [dir] [name] [format] [ext] [extname] [assetExtname]
	Formats     []string `mapstructure:"formats"`       // Output formats per entry
	EmptyOutDir bool     `mapstructure:"empty_out_dir"` // Clear OutDir first; ignored when OutDir is the source root
	Order       string   `mapstructure:"order"`         // before or after
}

// Enabled reports whether any auxiliary entry is configured
func (ac *AuxiliaryConfig) Enabled() bool {
	return len(ac.Entries) > 0
}

// Validate validates auxiliary entry configuration
func (ac *AuxiliaryConfig) Validate() error {
	if !ac.Enabled() {
		return nil // No validation needed if no entries
	}

	if ac.Order != OrderBefore && ac.Order != OrderAfter {
		return fmt.Errorf("invalid order: %s (must be one of: %s, %s)", ac.Order, OrderBefore, OrderAfter)
	}

	if ac.FileName == "" {
		return fmt.Errorf("file_name cannot be empty when entries are set")
	}

	if len(ac.Formats) == 0 {
		return fmt.Errorf("formats cannot be empty when entries are set")
	}

	return nil
}
