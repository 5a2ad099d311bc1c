// Package hclconf is the HCL-specific implementation of the config.Loader
// interface. It decodes a single `styles` block into the format-agnostic
// options model.
package hclconf

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/nmarshall23/vuetify-loader/internal/config"
	"github.com/nmarshall23/vuetify-loader/internal/ctxlog"
)

// Loader parses plugin options from an HCL file.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes the top-level blocks of an options file. Unknown blocks
// are tolerated so a shared project file can carry other tools' sections.
type fileRoot struct {
	Styles *stylesBlock `hcl:"styles,block"`
	Remain hcl.Body     `hcl:",remain"`
}

// stylesBlock mirrors the `styles` block attribute-for-attribute. Every
// attribute is optional; defaults come from Options.Normalize.
type stylesBlock struct {
	Mode          *string        `hcl:"mode,optional"`
	StylesTimeout *string        `hcl:"styles_timeout,optional"`
	ConfigFile    *string        `hcl:"config_file,optional"`
	UseLayers     *bool          `hcl:"use_layers,optional"`
	LibraryRoot   *string        `hcl:"library_root,optional"`
	StylePackage  *string        `hcl:"style_package,optional"`
	Extensions    hcl.Expression `hcl:"extensions,optional"`
	Artifact      *string        `hcl:"artifact,optional"`
	DevAddr       *string        `hcl:"dev_addr,optional"`
}

// Load reads the options file at path and translates it into the model.
func (l *Loader) Load(ctx context.Context, path string) (*config.Options, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	opts, err := l.translate(root.Styles)
	if err != nil {
		return nil, err
	}
	if err := opts.Normalize(); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.", "mode", opts.Mode, "timeout", opts.StylesTimeout, "extensions", opts.Extensions)
	return opts, nil
}

// translate applies the decoded block onto a zero options model.
func (l *Loader) translate(block *stylesBlock) (*config.Options, error) {
	opts := &config.Options{Mode: config.ModeAggregated}
	if block == nil {
		return opts, nil
	}

	if block.Mode != nil {
		mode, err := config.ParseMode(*block.Mode)
		if err != nil {
			return nil, err
		}
		opts.Mode = mode
	}
	if block.StylesTimeout != nil {
		d, err := time.ParseDuration(*block.StylesTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid styles_timeout: %w", err)
		}
		opts.StylesTimeout = d
	}
	if block.ConfigFile != nil {
		opts.ConfigFile = *block.ConfigFile
	}
	if block.UseLayers != nil {
		opts.UseLayers = *block.UseLayers
	}
	if block.LibraryRoot != nil {
		opts.LibraryRoot = *block.LibraryRoot
	}
	if block.StylePackage != nil {
		opts.StylePackage = *block.StylePackage
	}
	if block.Artifact != nil {
		opts.ArtifactPath = *block.Artifact
	}
	if block.DevAddr != nil {
		opts.DevAddr = *block.DevAddr
	}

	exts, err := stringList(block.Extensions)
	if err != nil {
		return nil, fmt.Errorf("invalid extensions: %w", err)
	}
	opts.Extensions = exts

	return opts, nil
}

// stringList evaluates an attribute expression into a []string. A nil or
// absent expression yields nil so defaults apply downstream.
func stringList(expr hcl.Expression) ([]string, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.CanIterateElements() {
		return nil, fmt.Errorf("expected a list of strings, got %s", val.Type().FriendlyName())
	}

	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.Type() != cty.String || elem.IsNull() {
			return nil, fmt.Errorf("expected a list of strings, got element of %s", elem.Type().FriendlyName())
		}
		out = append(out, elem.AsString())
	}
	return out, nil
}
