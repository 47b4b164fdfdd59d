package scenedesc

import (
	"testing"

	"github.com/lumenray/lumenray/vecmath"
)

func TestNodeAddPropertyRejectsRedefinition(t *testing.T) {
	n := NewNode("a", TagShape)
	if err := n.AddProperty("radius", NumberListValue(1)); err != nil {
		t.Fatalf("first AddProperty: %v", err)
	}
	if err := n.AddProperty("radius", NumberListValue(2)); err == nil {
		t.Fatalf("expected redefinition error")
	}
}

func TestFloatRequiredMissingReturnsSourceError(t *testing.T) {
	n := NewNode("a", TagShape)
	if _, err := n.Float("radius"); err == nil {
		t.Fatalf("expected error for missing property")
	} else if _, ok := err.(*SourceError); !ok {
		t.Fatalf("expected *SourceError, got %T", err)
	}
}

func TestFloatOrDefaultFallsBackWhenMissing(t *testing.T) {
	n := NewNode("a", TagShape)
	if got := n.FloatOrDefault("radius", 5); got != 5 {
		t.Fatalf("got %v, want 5", got)
	}
}

func TestFloatExtraValuesAreDiscardedWithWarning(t *testing.T) {
	n := NewNode("a", TagShape)
	_ = n.AddProperty("radius", NumberListValue(1, 2, 3))
	got, err := n.Float("radius")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("got %v, want first value 1", got)
	}
}

func TestFloatInsufficientValuesErrors(t *testing.T) {
	n := NewNode("a", TagShape)
	_ = n.AddProperty("center", NumberListValue(1, 2))
	if _, err := n.Float3("center"); err == nil {
		t.Fatalf("expected error for insufficient values")
	}
}

func TestFloat3RoundTrip(t *testing.T) {
	n := NewNode("a", TagShape)
	_ = n.AddProperty("center", NumberListValue(1, 2, 3))
	got, err := n.Float3("center")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := vecmath.V3(1, 2, 3)
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestIntTruncatesWithPrecisionLossWarning(t *testing.T) {
	n := NewNode("a", TagShape)
	_ = n.AddProperty("count", NumberListValue(3.7))
	got, err := n.Int("count")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Fatalf("got %v, want 3", got)
	}
}

func TestIntExactNoWarningPath(t *testing.T) {
	n := NewNode("a", TagShape)
	_ = n.AddProperty("count", NumberListValue(4))
	got, err := n.Int("count")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4 {
		t.Fatalf("got %v, want 4", got)
	}
}

func TestWrongKindIsError(t *testing.T) {
	n := NewNode("a", TagShape)
	_ = n.AddProperty("name", StringListValue("diffuse"))
	if _, err := n.Float("name"); err == nil {
		t.Fatalf("expected error for kind mismatch")
	}
}

func TestBoolRoundTrip(t *testing.T) {
	n := NewNode("a", TagSurface)
	_ = n.AddProperty("two_sided", BoolListValue(true))
	got, err := n.Bool("two_sided")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Fatalf("got false, want true")
	}
}

func TestNodePropertyRoundTrip(t *testing.T) {
	parent := NewNode("shape", TagShape)
	surface := NewNode("surface", TagSurface)
	_ = parent.AddProperty("surface", NodeListValue(surface))
	got, err := parent.Node("surface")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != surface {
		t.Fatalf("got %v, want %v", got, surface)
	}
}

func TestDefineInternalRegistersPropertyAndChild(t *testing.T) {
	parent := NewNode("surface", TagSurface)
	child := parent.DefineInternal("normal_map", "image", SourceLocation{File: "scene.lumenray", Line: 10, Column: 4})
	if len(parent.InternalNodes()) != 1 || parent.InternalNodes()[0] != child {
		t.Fatalf("expected DefineInternal to register the child node")
	}
	got, err := parent.Node("normal_map")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != child {
		t.Fatalf("got %v, want %v", got, child)
	}
	if child.Tag != TagInternal || child.ImplType != "image" {
		t.Fatalf("unexpected child fields: %+v", child)
	}
}

func TestNumberListHasNoCountRequirement(t *testing.T) {
	n := NewNode("a", TagShape)
	_ = n.AddProperty("points", NumberListValue(1, 2, 3, 4, 5))
	got, err := n.NumberList("points")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d values, want 5", len(got))
	}
}

func TestIntListConvertsEachElement(t *testing.T) {
	n := NewNode("a", TagShape)
	_ = n.AddProperty("indices", NumberListValue(0, 1, 2))
	got, err := n.IntList("indices")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSourceErrorFormatsLocation(t *testing.T) {
	err := &SourceError{Location: SourceLocation{File: "scene.lumenray", Line: 3, Column: 7}, Message: "boom"}
	want := "scene.lumenray:3:7: boom"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestSourceErrorWithoutLocationOmitsPrefix(t *testing.T) {
	err := &SourceError{Message: "boom"}
	if err.Error() != "boom" {
		t.Fatalf("got %q, want %q", err.Error(), "boom")
	}
}

func TestMacroTableOverrideWinsOverLocal(t *testing.T) {
	m := NewMacroTable(map[string]string{"spp": "64"})
	m.Define("spp", "16")
	got, ok := m.Lookup("spp")
	if !ok || got != "64" {
		t.Fatalf("got (%q, %v), want (64, true)", got, ok)
	}
}

func TestMacroTableLocalDefineIsVisible(t *testing.T) {
	m := NewMacroTable(nil)
	m.Define("spp", "16")
	got, ok := m.Lookup("spp")
	if !ok || got != "16" {
		t.Fatalf("got (%q, %v), want (16, true)", got, ok)
	}
}

func TestMacroTableRedefinitionReplacesValue(t *testing.T) {
	m := NewMacroTable(nil)
	m.Define("spp", "16")
	m.Define("spp", "32")
	got, ok := m.Lookup("spp")
	if !ok || got != "32" {
		t.Fatalf("got (%q, %v), want (32, true)", got, ok)
	}
}

func TestMacroTableUnknownLookupMisses(t *testing.T) {
	m := NewMacroTable(nil)
	if _, ok := m.Lookup("missing"); ok {
		t.Fatalf("expected miss for undefined macro")
	}
}
