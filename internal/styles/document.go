package styles

import (
	"fmt"
	"strings"
)

// layerName is the cascade layer generated documents are wrapped in when
// layering is enabled.
const layerName = "vuetify"

// ConfiguredDocument synthesizes the stylesheet served for one virtual
// module in configured mode: the explicit configuration entry first, then
// the resolved source file, optionally wrapped in a cascade layer block.
func ConfiguredDocument(configFile, sourcePath string, layered bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "@use %q\n", configFile)
	fmt.Fprintf(&b, "@use %q\n", sourcePath)
	if !layered {
		return b.String()
	}

	var wrapped strings.Builder
	fmt.Fprintf(&wrapped, "@layer %s {\n", layerName)
	for line := range strings.Lines(b.String()) {
		wrapped.WriteString("  " + line)
	}
	wrapped.WriteString("}\n")
	return wrapped.String()
}

// AggregateDocument synthesizes the shared aggregated stylesheet: one @use
// directive per registered fragment, in registration order.
func AggregateDocument(fragments []string) string {
	var b strings.Builder
	for _, fragment := range fragments {
		fmt.Fprintf(&b, "@use %q\n", fragment)
	}
	return b.String()
}
