package query

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pcdshub/tcparse/internal/twincat"
)

const doc = `<TcSmItem ClassName="CNcDef">
	<NC>
		<Axis Id="1"><Name>Axis 1</Name></Axis>
		<Axis Id="2"><Name>Axis 2</Name></Axis>
		<Axis Id="3"><Name>Slit</Name></Axis>
	</NC>
</TcSmItem>`

func load(t *testing.T) *twincat.Node {
	t.Helper()
	path := filepath.Join(t.TempDir(), "NC.xti")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	root, err := twincat.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return root
}

func names(nodes []*twincat.Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestSelect(t *testing.T) {
	root := load(t)
	tests := []struct {
		where string
		want  []string
	}{
		{"", []string{"Axis 1", "Axis 2", "Slit"}},
		{`name startsWith "Axis"`, []string{"Axis 1", "Axis 2"}},
		{`attrs["Id"] == "3"`, []string{"Slit"}},
		{`Attr("Id") in ["1", "3"]`, []string{"Axis 1", "Slit"}},
		{`parent == "NC" && Is("TwincatItem")`, []string{"Axis 1", "Axis 2", "Slit"}},
		{`Is("TcSmItem")`, nil},
	}
	for _, tt := range tests {
		f, err := Compile(tt.where)
		if err != nil {
			t.Fatalf("Compile(%q): %v", tt.where, err)
		}
		got, err := Select(root, "Axis", f)
		if err != nil {
			t.Fatalf("Select(%q): %v", tt.where, err)
		}
		if g := names(got); len(g) != len(tt.want) {
			t.Errorf("%q: got %v, want %v", tt.where, g, tt.want)
		} else {
			for i := range g {
				if g[i] != tt.want[i] {
					t.Errorf("%q: got %v, want %v", tt.where, g, tt.want)
					break
				}
			}
		}
	}
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{`name +`, `line + 1`, `unknown == 1`} {
		if _, err := Compile(src); err == nil {
			t.Errorf("Compile(%q) should fail", src)
		}
	}
}

func TestEnvPath(t *testing.T) {
	root := load(t)
	env := NewEnv(root.FirstChild("NC").ChildrenOf("Axis")[0])
	if env.Path != "TcSmItem_CNcDef/NC/Axis" {
		t.Errorf("path = %q", env.Path)
	}
	if env.Kind != "Axis" || env.Tag != "Axis" {
		t.Errorf("kind/tag = %q/%q", env.Kind, env.Tag)
	}
}
