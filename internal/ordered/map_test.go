package ordered

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMapOrder(t *testing.T) {
	m := New[string, int]()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("c", 3)
	m.Set("b", 4)

	if diff := cmp.Diff([]string{"b", "a", "c"}, m.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := m.Get("b"); v != 4 {
		t.Errorf("Get(b) = %d, want 4", v)
	}
}

func TestMapPop(t *testing.T) {
	m := New[string, string]()
	m.Set("Name", "Foo")
	m.Set("Id", "1")

	v, ok := m.Pop("Name")
	if !ok || v != "Foo" {
		t.Fatalf("Pop(Name) = %q, %v", v, ok)
	}
	if m.Has("Name") {
		t.Error("Name still present after Pop")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
	if _, ok := m.Pop("Missing"); ok {
		t.Error("Pop of missing key reported ok")
	}
}

func TestMapAll(t *testing.T) {
	m := New[string, int]()
	m.Set("x", 1)
	m.Set("y", 2)
	m.Delete("x")
	m.Set("x", 3)

	var got []string
	for k := range m.All() {
		got = append(got, k)
	}
	if diff := cmp.Diff([]string{"y", "x"}, got); diff != "" {
		t.Errorf("All order mismatch (-want +got):\n%s", diff)
	}
}
