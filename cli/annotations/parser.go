// Package annotations provides parsing of @lambdagen: annotations from handler
// source comments. They let a handler carry its own bundle settings next to
// the code instead of in .lambdagen.yaml.
package annotations

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fluxbase-eu/lambdagen/cli/bundler"
)

// HandlerConfig contains parsed @lambdagen: annotations for one entrypoint
type HandlerConfig struct {
	ConstructName *string // @lambdagen:construct-name OrdersCode
	ConstructFile *string // @lambdagen:construct-file lib/orders-code.ts
	Bundle        bundler.Options
}

// IsZero reports whether no annotation was found.
func (c HandlerConfig) IsZero() bool {
	b := c.Bundle
	return c.ConstructName == nil && c.ConstructFile == nil &&
		b.Target == nil && b.Platform == nil && b.Format == nil && b.Externals == nil &&
		b.Sourcemap == nil && b.SourcesContent == nil && b.Minify == nil &&
		b.MainFields == nil && b.Banner == nil && b.Loaders == nil &&
		b.Tsconfig == nil && b.Outfile == nil && b.Metafile == nil && b.ExtraArgs == nil
}

// An annotation must open a comment line: "// @lambdagen:x", "/* @lambdagen:x"
// or " * @lambdagen:x" inside a JSDoc block.
const commentPrefix = `(?m)^\s*(?://|/\*|\*)\s*@lambdagen:`

var (
	stringPatterns = map[string]*regexp.Regexp{
		"construct-name": valuePattern("construct-name", `([A-Za-z_$][A-Za-z0-9_$]*)`),
		"construct-file": valuePattern("construct-file", `(\S+)`),
		"target":         valuePattern("target", `(\S+)`),
		"platform":       valuePattern("platform", `(browser|node|neutral)`),
		"format":         valuePattern("format", `(esm|cjs|iife)`),
		"main-fields":    valuePattern("main-fields", `(\S+)`),
		"tsconfig":       valuePattern("tsconfig", `(\S+)`),
		"outfile":        valuePattern("outfile", `(\S+)`),
	}

	boolPatterns = map[string]*regexp.Regexp{
		"sourcemap":       flagPattern("sourcemap"),
		"sources-content": flagPattern("sources-content"),
		"minify":          flagPattern("minify"),
		"metafile":        flagPattern("metafile"),
	}

	externalPattern = valuePattern("external", `(.+?)`)
	loaderPattern   = valuePattern("loader", `\.?([A-Za-z0-9]+)=([a-z-]+)`)
	bannerPattern   = valuePattern("banner", `(.+?)`)
)

func valuePattern(name, value string) *regexp.Regexp {
	return regexp.MustCompile(commentPrefix + regexp.QuoteMeta(name) + `\s+` + value + `\s*(?:\*/)?\s*$`)
}

// flagPattern matches "@lambdagen:name" with an optional true/false value.
func flagPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(commentPrefix + regexp.QuoteMeta(name) + `(?:\s+(true|false))?\s*(?:\*/)?\s*$`)
}

// Parse parses @lambdagen: annotations from handler code. Single-valued
// annotations use the first occurrence; external and loader may repeat.
func Parse(code string) HandlerConfig {
	var config HandlerConfig
	b := &config.Bundle

	str := func(key string) *string {
		if matches := stringPatterns[key].FindStringSubmatch(code); len(matches) > 1 {
			value := strings.TrimSpace(matches[1])
			return &value
		}
		return nil
	}
	config.ConstructName = str("construct-name")
	config.ConstructFile = str("construct-file")
	b.Target = str("target")
	b.Platform = str("platform")
	b.Format = str("format")
	b.MainFields = str("main-fields")
	b.Tsconfig = str("tsconfig")
	b.Outfile = str("outfile")

	flag := func(key string) *bool {
		matches := boolPatterns[key].FindStringSubmatch(code)
		if matches == nil {
			return nil
		}
		// A bare flag means true
		value := true
		if len(matches) > 1 && matches[1] != "" {
			value, _ = strconv.ParseBool(matches[1])
		}
		return &value
	}
	b.Sourcemap = flag("sourcemap")
	b.SourcesContent = flag("sources-content")
	b.Minify = flag("minify")
	b.Metafile = flag("metafile")

	// Match @lambdagen:banner, the rest of the line is the banner text
	if matches := bannerPattern.FindStringSubmatch(code); len(matches) > 1 {
		value := strings.TrimSpace(matches[1])
		b.Banner = &value
	}

	// Parse external (supports comma-separated lists and repeated lines)
	for _, match := range externalPattern.FindAllStringSubmatch(code, -1) {
		for _, name := range strings.Split(match[1], ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				b.Externals = append(b.Externals, name)
			}
		}
	}

	// Parse loader, e.g. @lambdagen:loader .json=text
	for _, match := range loaderPattern.FindAllStringSubmatch(code, -1) {
		if b.Loaders == nil {
			b.Loaders = make(map[string]string)
		}
		b.Loaders[match[1]] = match[2]
	}

	return config
}
