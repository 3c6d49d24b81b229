package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/pcdshub/tcparse/internal/twincat"
)

const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// MotorInfo is one drive symbol resolved to its NC axis.
type MotorInfo struct {
	Symbol  string `json:"symbol" yaml:"symbol"`
	Program string `json:"program" yaml:"program"`
	Motor   string `json:"motor" yaml:"motor"`
	Axis    string `json:"axis" yaml:"axis"`
	AxisID  int    `json:"axis_id" yaml:"axis_id"`
	Units   string `json:"units" yaml:"units"`
}

// ProjectReport is the summary of one project plus its motors.
type ProjectReport struct {
	twincat.ProjectSummary `yaml:",inline"`
	Motors                 []MotorInfo `json:"motors" yaml:"motors"`
}

// NewProjectReport summarizes p. Motor resolution failures are fatal.
func NewProjectReport(p *twincat.Project, withSymbols bool) (*ProjectReport, error) {
	summary, err := p.Summarize(withSymbols)
	if err != nil {
		return nil, err
	}
	r := &ProjectReport{ProjectSummary: *summary}
	motors, err := twincat.Motors(p.Node)
	if err != nil {
		return nil, err
	}
	for _, m := range motors {
		prog, _ := m.Symbol.ProgramName()
		motor, _ := m.Symbol.MotorName()
		id, _ := m.Axis.AxisNumber()
		r.Motors = append(r.Motors, MotorInfo{
			Symbol:  m.Symbol.Name,
			Program: prog,
			Motor:   motor,
			Axis:    m.Axis.Name,
			AxisID:  id,
			Units:   m.Axis.Units(),
		})
	}
	return r, nil
}

// UseColor resolves a color mode (auto, always, never) for f.
func UseColor(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type Formatter struct {
	writer io.Writer
	title  func(format string, a ...interface{}) string
	key    func(format string, a ...interface{}) string
	faint  func(format string, a ...interface{}) string
}

func NewFormatter(w io.Writer, colorize bool) *Formatter {
	f := &Formatter{writer: w, title: fmt.Sprintf, key: fmt.Sprintf, faint: fmt.Sprintf}
	if colorize {
		f.title = enabled(color.New(color.FgCyan, color.Bold)).SprintfFunc()
		f.key = enabled(color.New(color.FgYellow)).SprintfFunc()
		f.faint = enabled(color.New(color.FgHiBlack)).SprintfFunc()
	}
	return f
}

func enabled(c *color.Color) *color.Color {
	c.EnableColor()
	return c
}

// Encode writes v as YAML or JSON.
func Encode(w io.Writer, format string, v interface{}) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown format %q", format)
}

// Projects writes the reports in the requested format.
func (f *Formatter) Projects(format string, reports []*ProjectReport) error {
	if format != FormatText {
		return Encode(f.writer, format, reports)
	}
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(f.writer)
		}
		f.project(r)
	}
	return nil
}

func (f *Formatter) project(r *ProjectReport) {
	fmt.Fprintln(f.writer, f.title("%s", r.File))
	fmt.Fprintf(f.writer, "  %s %s\n", f.key("AMS Net ID:"), r.AmsID)
	fmt.Fprintf(f.writer, "  %s %s\n", f.key("Target IP:"), r.TargetIP)
	for _, plc := range r.PLCs {
		fmt.Fprintf(f.writer, "  %s %s", f.key("PLC:"), plc.Name)
		if plc.AdsPort != 0 {
			fmt.Fprintf(f.writer, " %s", f.faint("(port %d)", plc.AdsPort))
		}
		fmt.Fprintln(f.writer)
		for _, prog := range plc.Programs {
			fmt.Fprintf(f.writer, "    program %s\n", prog)
		}
		for _, src := range plc.Sources {
			fmt.Fprintf(f.writer, "    %s\n", f.faint("%s", src))
		}
		for _, s := range plc.Symbols {
			fmt.Fprintf(f.writer, "    %s : %s %s\n", s.Name, s.Type, f.faint("[%s bits @ %s]", s.BitSize, s.BitOffs))
		}
	}
	for _, ax := range r.Axes {
		fmt.Fprintf(f.writer, "  %s %d %s %s\n", f.key("Axis:"), ax.ID, ax.Name, f.faint("(%s)", ax.Units))
	}
	for _, m := range r.Motors {
		fmt.Fprintf(f.writer, "  %s %s -> %s\n", f.key("Motor:"), m.Symbol, m.Axis)
	}
}

// Routes writes a routes table sorted by name.
func (f *Formatter) Routes(format string, routes *twincat.Routes) error {
	entries := append([]twincat.Route(nil), routes.Entries...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i]["Name"] < entries[j]["Name"] })
	if format != FormatText {
		return Encode(f.writer, format, entries)
	}
	for _, r := range entries {
		fmt.Fprintf(f.writer, "%s\t%s\t%s\t%s\n", f.title("%s", r["Name"]), r["Address"], r["NetId"], f.faint("%s", r["Type"]))
	}
	return nil
}

// NodeLine is the flattened form of a found node.
type NodeLine struct {
	Path string `json:"path" yaml:"path"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
}

// Nodes writes one line per node.
func (f *Formatter) Nodes(format string, nodes []*twincat.Node) error {
	lines := make([]NodeLine, 0, len(nodes))
	for _, n := range nodes {
		lines = append(lines, NodeLine{Path: n.QualifiedPath(), Name: n.Name, File: n.SourceFile, Line: n.Line})
	}
	if format != FormatText {
		return Encode(f.writer, format, lines)
	}
	for _, l := range lines {
		name := ""
		if l.Name != "" {
			name = " " + f.key("%s", l.Name)
		}
		fmt.Fprintf(f.writer, "%s%s %s\n", l.Path, name, f.faint("%s:%d", l.File, l.Line))
	}
	return nil
}
