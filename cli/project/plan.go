// Package project turns a project configuration and a set of entrypoints
// into bundle invocations, generated construct files and tasks, and carries
// them out.
package project

import (
	"strconv"
	"strings"

	"github.com/fluxbase-eu/lambdagen/cli/bundler"
	"github.com/fluxbase-eu/lambdagen/cli/construct"
	"github.com/fluxbase-eu/lambdagen/cli/output"
)

// BundleTask is the name of the task that builds every bundle.
const BundleTask = "bundle"

// Bundle ties an entrypoint to its invocation and its construct file. Both
// refer to the same bundle identifier.
type Bundle struct {
	Entrypoint string
	Invocation *bundler.Invocation
	Construct  *construct.Construct
}

// Name returns the bundle identifier.
func (b *Bundle) Name() string { return b.Invocation.Name() }

// Task is a named list of shell commands.
type Task struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Commands    []string `json:"commands" yaml:"commands"`
}

// IgnoreEntry is a line that must be present in an ignore file.
type IgnoreEntry struct {
	File  string `json:"file" yaml:"file"`
	Entry string `json:"entry" yaml:"entry"`
}

// Plan is everything a run produces, computed before anything is written.
type Plan struct {
	Bundles []*Bundle
	Tasks   []Task
	Ignores []IgnoreEntry
}

// Invocations returns the bundle invocations in plan order.
func (p *Plan) Invocations() []*bundler.Invocation {
	out := make([]*bundler.Invocation, 0, len(p.Bundles))
	for _, b := range p.Bundles {
		out = append(out, b.Invocation)
	}
	return out
}

// WatchInvocations returns the watch variant of every invocation.
func (p *Plan) WatchInvocations() []*bundler.Invocation {
	out := make([]*bundler.Invocation, 0, len(p.Bundles))
	for _, b := range p.Bundles {
		out = append(out, b.Invocation.Watch())
	}
	return out
}

// Select returns the bundles whose identifiers are in names, in plan order.
// Unknown names are returned separately.
func (p *Plan) Select(names []string) ([]*Bundle, []string) {
	if len(names) == 0 {
		return p.Bundles, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.TrimPrefix(n, BundleTask+":")] = true
	}

	var out []*Bundle
	for _, b := range p.Bundles {
		if want[b.Name()] {
			out = append(out, b)
			delete(want, b.Name())
		}
	}

	var unknown []string
	for _, n := range names {
		if want[strings.TrimPrefix(n, BundleTask+":")] {
			unknown = append(unknown, n)
		}
	}
	return out, unknown
}

// Row is the tabular form of one bundle.
type Row struct {
	Bundle        string `json:"bundle" yaml:"bundle"`
	Entrypoint    string `json:"entrypoint" yaml:"entrypoint"`
	Outfile       string `json:"outfile" yaml:"outfile"`
	ConstructFile string `json:"construct_file" yaml:"construct_file"`
	ConstructName string `json:"construct_name" yaml:"construct_name"`
	Command       string `json:"command" yaml:"command"`
}

// Rows is the serializable summary of the plan's bundles.
type Rows []Row

// Rows summarizes the plan for output.
func (p *Plan) Rows() Rows {
	rows := make(Rows, 0, len(p.Bundles))
	for _, b := range p.Bundles {
		rows = append(rows, Row{
			Bundle:        b.Name(),
			Entrypoint:    b.Invocation.Entrypoint(),
			Outfile:       b.Invocation.Outfile(),
			ConstructFile: bundler.ToPortablePath(b.Construct.File),
			ConstructName: b.Construct.Name,
			Command:       b.Invocation.Command(),
		})
	}
	return rows
}

// Table implements output.Tabular.
func (r Rows) Table() output.TableData {
	data := output.TableData{Headers: []string{"BUNDLE", "ENTRYPOINT", "OUTFILE", "CONSTRUCT"}}
	for _, row := range r {
		data.Rows = append(data.Rows, []string{
			row.Bundle,
			row.Entrypoint,
			row.Outfile,
			row.ConstructName + " (" + row.ConstructFile + ")",
		})
	}
	return data
}

// Tasks is the serializable task list.
type Tasks []Task

// Table implements output.Tabular.
func (t Tasks) Table() output.TableData {
	data := output.TableData{Headers: []string{"TASK", "DESCRIPTION", "STEPS"}}
	for _, task := range t {
		data.Rows = append(data.Rows, []string{task.Name, task.Description, strconv.Itoa(len(task.Commands))})
	}
	return data
}
