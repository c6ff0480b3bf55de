// Package construct renders the generated TypeScript files that expose a
// bundle's output directory as a CDK Lambda code asset.
package construct

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"unicode"

	"github.com/go-openapi/inflect"

	"github.com/fluxbase-eu/lambdagen/cli/bundler"
)

// NameSuffix is appended to every derived construct name.
const NameSuffix = "FunctionCode"

// FileSuffix replaces the entrypoint extension in default construct file names.
const FileSuffix = "-code.ts"

// ErrConstructExtension is returned when a construct file is not a .ts file.
var ErrConstructExtension = errors.New("construct file must have a .ts extension")

// cdkModules maps CDK major versions to the module exporting lambda.Code.
var cdkModules = map[int]string{
	1: "@aws-cdk/aws-lambda",
	2: "aws-cdk-lib/aws-lambda",
}

var nonIdentifier = regexp.MustCompile(`[^A-Za-z0-9]+`)

// DeriveName returns the exported identifier for a bundle: the last segment
// of the bundle identifier in PascalCase followed by NameSuffix. Bundles in
// different directories that share a last segment get the same name.
func DeriveName(bundleName string) string {
	last := path.Base(bundler.ToPortablePath(bundleName))
	words := nonIdentifier.ReplaceAllString(last, "-")
	name := inflect.Camelize(strings.Trim(words, "-"))
	if name == "" || unicode.IsDigit(rune(name[0])) {
		name = "_" + name
	}
	return name + NameSuffix
}

// DefaultFile returns the construct file generated next to an entrypoint:
// "<entrypoint dir>/<base name>-code.ts".
func DefaultFile(entrypoint, extension string) string {
	return filepath.Join(filepath.Dir(entrypoint), bundler.BaseName(entrypoint, extension)+FileSuffix)
}

// ModuleForCDK returns the import path of the lambda module for a CDK major
// version.
func ModuleForCDK(version int) (string, error) {
	m, ok := cdkModules[version]
	if !ok {
		return "", fmt.Errorf("unsupported CDK version %d", version)
	}
	return m, nil
}

// Construct is one generated file.
type Construct struct {
	// Name is the exported constant.
	Name string
	// File is the construct file path relative to the project directory.
	File string
	// AssetPath is the forward-slash path from the construct file's directory
	// to the bundle output directory.
	AssetPath string
	// Module is the import path of the CDK lambda module.
	Module string
	// Bundle is the bundle identifier the construct refers to.
	Bundle string
}

// New validates the construct file and computes the asset path to outdir.
// file and outdir are both relative to the project directory.
func New(file, name, bundle, outdir string, cdkVersion int) (*Construct, error) {
	if filepath.Ext(file) != ".ts" {
		return nil, fmt.Errorf("%w: %s", ErrConstructExtension, file)
	}
	module, err := ModuleForCDK(cdkVersion)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(filepath.Dir(file), filepath.FromSlash(outdir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve asset path for %s: %w", file, err)
	}

	return &Construct{
		Name:      name,
		File:      file,
		AssetPath: bundler.ToPortablePath(rel),
		Module:    module,
		Bundle:    bundle,
	}, nil
}

var fileTemplate = template.Must(template.New("construct").Parse(
	`// ~~ Generated by lambdagen. To modify, edit .lambdagen.yaml and run "lambdagen generate".
import * as path from 'path';
import * as lambda from '{{ .Module }}';

export const {{ .Name }} = lambda.Code.fromAsset(path.join(__dirname, {{ printf "%q" .AssetPath }}));
`))

// Render returns the generated file contents.
func (c *Construct) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, c); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", c.File, err)
	}
	return buf.Bytes(), nil
}
