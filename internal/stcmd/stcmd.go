package stcmd

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/pcdshub/tcparse/internal/logger"
	"github.com/pcdshub/tcparse/internal/twincat"
)

//go:embed templates/st.cmd.tmpl
var defaultTemplate string

type Options struct {
	Name           string
	Prefix         string
	Binary         string
	Delim          string
	Template       string
	MotorPort      string
	AsynPort       string
	DefaultADSPort int
	Precision      int
}

// Motor is the per-axis block of the startup script.
type Motor struct {
	AxisConfig string
	Name       string
	AxisNo     int
	Desc       string
	EGU        string
	Prec       int
}

// Data is everything the template sees.
type Data struct {
	BinaryName string
	Name       string
	Prefix     string
	Delim      string
	User       string
	MotorPort  string
	AsynPort   string
	PLCAmsID   string
	PLCIP      string
	PLCAdsPort int
	Motors     []Motor
}

type Builder struct {
	Options Options
	tmpl    *template.Template
}

// NewBuilder parses the template named in opts, or the built-in one.
func NewBuilder(opts Options) (*Builder, error) {
	text := defaultTemplate
	name := "st.cmd"
	if opts.Template != "" {
		content, err := os.ReadFile(opts.Template)
		if err != nil {
			return nil, fmt.Errorf("template: %w", err)
		}
		text = string(content)
		name = filepath.Base(opts.Template)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return &Builder{Options: opts, tmpl: tmpl}, nil
}

// Data resolves every drive symbol of p to its axis and fills the template
// data. The name defaults to the project file stem, the prefix to the
// upper-cased name.
func (b *Builder) Data(p *twincat.Project) (*Data, error) {
	opts := b.Options
	if opts.Name == "" {
		base := filepath.Base(p.SourceFile)
		opts.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if opts.Prefix == "" {
		opts.Prefix = strings.ToUpper(opts.Name)
	}

	motors, err := twincat.Motors(p.Node)
	if err != nil {
		return nil, err
	}

	d := &Data{
		BinaryName: opts.Binary,
		Name:       opts.Name,
		Prefix:     opts.Prefix,
		Delim:      opts.Delim,
		User:       currentUser(),
		MotorPort:  opts.MotorPort,
		AsynPort:   opts.AsynPort,
		PLCAmsID:   p.AmsID(),
		PLCIP:      p.TargetIP(),
		PLCAdsPort: opts.DefaultADSPort,
	}
	for _, m := range motors {
		no, err := m.Axis.AxisNumber()
		if err != nil {
			return nil, err
		}
		short := m.Axis.ShortName()
		d.Motors = append(d.Motors, Motor{
			Name:   b.pvName(short),
			AxisNo: no,
			Desc:   m.Symbol.Name + " / " + short,
			EGU:    m.Axis.Units(),
			Prec:   opts.Precision,
		})
	}

	// All motors are assumed to live in a single PLC.
	if len(motors) > 0 {
		module, err := motors[0].Symbol.Module()
		if err != nil {
			return nil, err
		}
		if d.PLCAdsPort, err = module.ADSPort(); err != nil {
			return nil, err
		}
	}
	logger.Debug("stcmd data", "project", p.SourceFile, "motors", len(d.Motors), "ads_port", d.PLCAdsPort)
	return d, nil
}

func (b *Builder) pvName(name string) string {
	return strings.NewReplacer(" ", b.Options.Delim, "_", b.Options.Delim).Replace(name)
}

// Build renders the startup script for p to w.
func (b *Builder) Build(p *twincat.Project, w io.Writer) error {
	d, err := b.Data(p)
	if err != nil {
		return err
	}
	return b.tmpl.Execute(w, d)
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
