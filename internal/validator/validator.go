package validator

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/pcdshub/tcparse/internal/twincat"
)

type DiagnosticLevel int

const (
	LevelError DiagnosticLevel = iota
	LevelWarning
)

func (l DiagnosticLevel) String() string {
	if l == LevelWarning {
		return "WARNING"
	}
	return "ERROR"
}

func (l DiagnosticLevel) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(l.String())), nil
}

type Diagnostic struct {
	Level   DiagnosticLevel `json:"level" yaml:"level"`
	Tag     string          `json:"tag" yaml:"tag"`
	Message string          `json:"message" yaml:"message"`
	Path    string          `json:"path" yaml:"path"`
	File    string          `json:"file" yaml:"file"`
	Line    int             `json:"line" yaml:"line"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s: %s [%s]", d.File, d.Line, d.Level, d.Message, d.Tag)
}

// Diagnostic tags. Any of them can be allowed globally or with an
// allow(tag) / ignore(tag) comment on the node or one of its ancestors.
const (
	TagUnresolvedMotor = "unresolved_motor"
	TagSymbolInfo      = "symbol_info"
	TagAxisNumber      = "axis_number"
	TagDuplicateAxisID = "duplicate_axis_id"
	TagUnknownUnits    = "unknown_units"
	TagUnlinkedAxis    = "unlinked_axis"
	TagMissingPlcProj  = "missing_plcproj"
	TagMissingTmc      = "missing_tmc"
	TagADSPort         = "ads_port"
	TagDeclaration     = "declaration"
)

type Validator struct {
	Diagnostics []Diagnostic
	Project     *twincat.Project
	allowed     map[string]bool
	mu          sync.Mutex
}

func NewValidator(p *twincat.Project, allow []string) *Validator {
	v := &Validator{Project: p, allowed: make(map[string]bool)}
	for _, tag := range allow {
		v.allowed[tag] = true
	}
	return v
}

// ValidateProject runs every check and leaves the findings, ordered by file
// and line, in Diagnostics.
func (v *Validator) ValidateProject(ctx context.Context) {
	if v.Project == nil {
		return
	}

	var wg sync.WaitGroup
	for _, plc := range v.Project.PLCs() {
		wg.Go(func() { v.checkPLC(ctx, plc) })
	}
	wg.Wait()
	if ctx.Err() != nil {
		return
	}

	linked := v.CheckMotors(ctx)
	v.CheckAxes(ctx, linked)

	slices.SortStableFunc(v.Diagnostics, func(a, b Diagnostic) int {
		return cmp.Or(cmp.Compare(a.File, b.File), cmp.Compare(a.Line, b.Line))
	})
}

// Errors counts the error level diagnostics.
func (v *Validator) Errors() int {
	n := 0
	for _, d := range v.Diagnostics {
		if d.Level == LevelError {
			n++
		}
	}
	return n
}

func (v *Validator) checkPLC(ctx context.Context, plc *twincat.NestedPlcProject) {
	if plc.Project == nil {
		v.report(plc.Node, TagMissingPlcProj, LevelWarning,
			fmt.Sprintf("PLC %s: project file not found, sources are not loaded", plc.ProjectName()))
	}
	if plc.TMC == nil {
		v.report(plc.Node, TagMissingTmc, LevelWarning,
			fmt.Sprintf("PLC %s: TMC file not found, symbols are not available", plc.ProjectName()))
	}
	for _, m := range plc.Modules() {
		if _, err := m.ADSPort(); err != nil {
			v.report(m.Node, TagADSPort, LevelError, err.Error())
		}
	}
	for _, src := range plc.Sources.All() {
		if ctx.Err() != nil {
			return
		}
		for n := range src.Find("POU") {
			pou, ok := twincat.AsPOU(n)
			if !ok {
				continue
			}
			if _, err := pou.Variables(); err != nil {
				v.report(pou.Node, TagDeclaration, LevelError, err.Error())
			}
		}
	}
}

// CheckMotors resolves every symbol and drive symbol and returns the axis
// bodies that a drive symbol links to.
func (v *Validator) CheckMotors(ctx context.Context) map[*twincat.Node]bool {
	linked := make(map[*twincat.Node]bool)
	for n := range v.Project.Find(twincat.KindSymbol) {
		if ctx.Err() != nil {
			break
		}
		if sym, ok := twincat.AsSymbol(n); ok {
			if _, err := sym.Info(); err != nil {
				v.report(n, TagSymbolInfo, LevelError, err.Error())
			}
		}
		drive, ok := twincat.AsDriveSymbol(n)
		if !ok {
			continue
		}
		axis, err := drive.NcAxis()
		if err != nil {
			v.report(n, TagUnresolvedMotor, LevelError,
				fmt.Sprintf("drive %s does not resolve to an NC axis: %v", drive.Name, err))
			continue
		}
		linked[axis.Node] = true
	}
	return linked
}

func (v *Validator) CheckAxes(ctx context.Context, linked map[*twincat.Node]bool) {
	for _, nc := range v.Project.NCs() {
		if ctx.Err() != nil {
			return
		}
		seen := make(map[string]*twincat.Node)
		for _, stub := range nc.ChildrenOf("Axis") {
			id, ok := stub.Attr("Id")
			if !ok {
				continue
			}
			if first, dup := seen[id]; dup {
				v.report(stub, TagDuplicateAxisID, LevelError,
					fmt.Sprintf("axis Id %s is already used on line %d", id, first.Line))
				continue
			}
			seen[id] = stub
		}

		for _, name := range slices.Sorted(maps.Keys(nc.AxisByName)) {
			axis, err := nc.AxisBody(name)
			if err != nil {
				v.report(nc.AxisByName[name], TagAxisNumber, LevelError, err.Error())
				continue
			}
			if _, err := axis.AxisNumber(); err != nil {
				v.report(axis.Node, TagAxisNumber, LevelError, err.Error())
			}
			if axis.Units() == "Unknown" {
				v.report(axis.Node, TagUnknownUnits, LevelWarning,
					fmt.Sprintf("axis %s has no UnitName", axis.Name))
			}
			if !linked[axis.Node] {
				v.report(axis.Node, TagUnlinkedAxis, LevelWarning,
					fmt.Sprintf("axis %s is not linked to any drive symbol", axis.Name))
			}
		}
	}
}

func (v *Validator) isSuppressed(tag string, node *twincat.Node) bool {
	if v.allowed[tag] {
		return true
	}
	for n := node; n != nil; n = n.Parent {
		for _, c := range n.Comments {
			normalized := strings.ReplaceAll(c, " ", "")
			if strings.Contains(normalized, "allow("+tag+")") || strings.Contains(normalized, "ignore("+tag+")") {
				return true
			}
		}
	}
	return false
}

func (v *Validator) report(node *twincat.Node, tag string, level DiagnosticLevel, msg string) {
	if v.isSuppressed(tag, node) {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Diagnostics = append(v.Diagnostics, Diagnostic{
		Level:   level,
		Tag:     tag,
		Message: msg,
		Path:    node.QualifiedPath(),
		File:    node.SourceFile,
		Line:    node.Line,
	})
}
