package config

import (
	"context"
	"fmt"
	"time"
)

// Mode selects how the plugin answers style resolutions. It is chosen once
// at startup and never changes for the lifetime of the plugin instance.
type Mode int

const (
	// ModeSuppressed excludes styles from the build entirely; every style
	// resolution maps to an empty sentinel document.
	ModeSuppressed Mode = iota
	// ModePassthrough substitutes the raw style-language source for the
	// compiled output and otherwise stays out of the way.
	ModePassthrough
	// ModeAggregated collects every style source into one shared artifact
	// written after the module graph settles.
	ModeAggregated
	// ModeConfigured behaves like ModeAggregated resolution-wise but also
	// prefixes an explicit configuration entry to every generated
	// stylesheet document.
	ModeConfigured
)

// String returns the configuration spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSuppressed:
		return "suppressed"
	case ModePassthrough:
		return "passthrough"
	case ModeAggregated:
		return "aggregated"
	case ModeConfigured:
		return "configured"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode translates the configuration spelling into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "suppressed":
		return ModeSuppressed, nil
	case "passthrough":
		return ModePassthrough, nil
	case "aggregated":
		return ModeAggregated, nil
	case "configured":
		return ModeConfigured, nil
	}
	return 0, fmt.Errorf("unknown styles mode %q: must be 'suppressed', 'passthrough', 'aggregated', or 'configured'", s)
}

// Defaults applied by Normalize when the corresponding option is unset.
const (
	DefaultStylesTimeout = 10 * time.Second
	DefaultStylePackage  = "vuetify/styles"
)

// DefaultExtensions lists the style-file extensions recognized when the
// configuration does not name its own set.
var DefaultExtensions = []string{"css", "sass", "scss", "less", "styl"}

// Options is the format-agnostic configuration model for one plugin
// instance. Loaders translate their source format into this struct.
type Options struct {
	// Mode picks the resolution state machine variant.
	Mode Mode

	// StylesTimeout bounds how long a settle cycle waits for the module
	// graph to stop producing new work before flushing anyway.
	StylesTimeout time.Duration

	// ConfigFile is the style-configuration entry prefixed to every
	// generated document in ModeConfigured.
	ConfigFile string

	// UseLayers wraps generated documents in a cascade layer block.
	UseLayers bool

	// LibraryRoot is the directory the style package lives under. Virtual
	// keys are derived from paths relative to it.
	LibraryRoot string

	// StylePackage is the canonical specifier of the aggregated style
	// entry point.
	StylePackage string

	// Extensions are the style-file extensions, without leading dots.
	Extensions []string

	// ArtifactPath is where the aggregated stylesheet is written.
	ArtifactPath string

	// DevAddr, when set, is the listen address for the dev-server
	// live-reload notifier.
	DevAddr string
}

// Normalize fills unset options with their defaults and validates the rest.
func (o *Options) Normalize() error {
	if o.StylesTimeout <= 0 {
		o.StylesTimeout = DefaultStylesTimeout
	}
	if o.StylePackage == "" {
		o.StylePackage = DefaultStylePackage
	}
	if len(o.Extensions) == 0 {
		o.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if o.Mode == ModeConfigured && o.ConfigFile == "" {
		return fmt.Errorf("styles mode 'configured' requires config_file")
	}
	return nil
}

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given path and translates it into
	// the format-agnostic options model.
	Load(ctx context.Context, path string) (*Options, error)
}
