// Package stparse extracts variable tables and call-site arguments from
// structured text embedded in PLC source documents.
package stparse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pcdshub/tcparse/internal/ordered"
)

var ErrDeclarationSyntax = errors.New("declaration syntax error")

// SyntaxError reports a VAR block line that is not of the form name: type.
type SyntaxError struct {
	Line int
	Text string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d: expected 'name : type', got %q", e.Line, e.Text)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrDeclarationSyntax
}

type Variable struct {
	Name string
	Type string
	// Spec holds whatever followed the name, e.g. the %I* of an AT clause.
	Spec string
}

// Variables is ordered by first declaration; redeclaring a name replaces
// its entry in place.
type Variables = ordered.Map[string, Variable]

type declLine struct {
	num  int
	text string
}

// linesBetween yields trimmed, non-blank lines inside every block opened by
// a line equal to start and closed by a line equal to end.
func linesBetween(text, start, end string) []declLine {
	var out []declLine
	inside := false
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.EqualFold(line, start):
			inside = true
		case strings.EqualFold(line, end):
			inside = false
		case inside && line != "":
			out = append(out, declLine{num: i + 1, text: line})
		}
	}
	return out
}

func stripComments(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	for {
		open := strings.Index(line, "(*")
		if open < 0 {
			break
		}
		closing := strings.Index(line[open:], "*)")
		if closing < 0 {
			line = line[:open]
			break
		}
		line = line[:open] + line[open+closing+2:]
	}
	return strings.TrimSpace(line)
}

// VariablesFromDeclaration builds the variable table of the plain VAR
// blocks in a POU declaration. STRUCT bodies are skipped, not expanded.
func VariablesFromDeclaration(declaration string) (*Variables, error) {
	vars := ordered.New[string, Variable]()
	inStruct := false
	for _, dl := range linesBetween(declaration, "VAR", "END_VAR") {
		line := stripComments(dl.text)
		if line == "" || strings.HasPrefix(line, "{") {
			// comment-only line or pragma
			continue
		}
		if inStruct {
			if strings.HasPrefix(strings.ToLower(line), "end_struct") {
				inStruct = false
			}
			continue
		}

		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 2 {
			return nil, &SyntaxError{Line: dl.num, Text: dl.text}
		}

		names, spec := splitNameSpec(strings.TrimSpace(parts[0]))
		dtype := strings.Trim(parts[1], "; \t")
		if strings.EqualFold(dtype, "STRUCT") {
			inStruct = true
		}
		for _, name := range names {
			if name == "" {
				return nil, &SyntaxError{Line: dl.num, Text: dl.text}
			}
			vars.Set(name, Variable{Name: name, Type: dtype, Spec: spec})
		}
	}
	return vars, nil
}

// splitNameSpec separates "name AT %I*" into its name and specifier.
// Comma separated name lists share one specifier.
func splitNameSpec(head string) ([]string, string) {
	spec := ""
	if i := strings.IndexAny(head, " \t"); i >= 0 && !strings.Contains(head[:i], ",") {
		head, spec = head[:i], strings.TrimSpace(head[i:])
	} else if strings.Contains(head, ",") {
		// a, b, c -- no specifier allowed on lists
		var names []string
		for _, n := range strings.Split(head, ",") {
			names = append(names, strings.TrimSpace(n))
		}
		return names, ""
	}
	if strings.HasPrefix(strings.ToLower(spec), "at ") {
		spec = strings.TrimSpace(spec[2:])
	}
	return []string{head}, spec
}

// ProgramName returns the name following the PROGRAM keyword, or "".
func ProgramName(declaration string) string {
	for _, raw := range strings.Split(declaration, "\n") {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(strings.ToLower(line), "program ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 1 {
			return strings.TrimSuffix(fields[1], ";")
		}
		return ""
	}
	return ""
}
