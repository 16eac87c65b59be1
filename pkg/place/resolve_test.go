package place

import (
	"testing"

	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/kicad"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/machine"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/stack"
)

func testRegistry(t *testing.T, parts ...string) *stack.Registry {
	t.Helper()
	reg := stack.New()
	overrides := stack.Overrides{Slot: make([]string, len(parts))}
	for i, p := range parts {
		overrides.Slot[i] = p
	}
	if err := reg.Apply(overrides, machine.Default()); err != nil {
		t.Fatal(err)
	}
	return reg
}

func row(ref, name string, x, y, rot float64, layer kicad.Layer) kicad.Placement {
	return kicad.Placement{Ref: ref, Name: name, X: x, Y: y, Rotation: rot, Layer: layer}
}

func TestResolveJoinsRegistry(t *testing.T) {
	reg := stack.New()
	if err := reg.Apply(stack.Overrides{
		Slot:     []string{"10uF:1"},
		Rotation: []string{"10uF:90"},
	}, machine.Default()); err != nil {
		t.Fatal(err)
	}

	rows := []kicad.Placement{row("C1", "10uF", 5, 5, 45, kicad.LayerTop)}
	resolved, report := Resolve(rows, reg, "")

	if len(resolved) != 1 {
		t.Fatalf("len(resolved) = %d, want 1", len(resolved))
	}
	r := resolved[0]
	if r.Rotation != 135 {
		t.Errorf("Rotation = %v, want raw sum 135", r.Rotation)
	}
	if r.Slot != 1 || !r.SlotSet || r.Head != 1 || r.Order != 0 {
		t.Errorf("resolved = %+v, want slot 1 head 1 order 0", r)
	}
	if report.Layer != kicad.LayerTop {
		t.Errorf("report.Layer = %q, want auto-detected top", report.Layer)
	}
}

func TestResolveLayerAutoDetect(t *testing.T) {
	reg := testRegistry(t, "10uF:1", "MCU:2")
	rows := []kicad.Placement{
		row("U1", "MCU", 1, 1, 0, kicad.LayerBottom), // first row decides
		row("C1", "10uF", 2, 2, 0, kicad.LayerTop),
		row("C2", "10uF", 3, 3, 0, kicad.LayerBottom),
	}

	resolved, report := Resolve(rows, reg, "")
	if report.Layer != kicad.LayerBottom {
		t.Fatalf("report.Layer = %q, want bottom", report.Layer)
	}
	if len(resolved) != 2 {
		t.Fatalf("len(resolved) = %d, want 2 (top row silently skipped)", len(resolved))
	}
	for _, e := range report.Events {
		if e.Code == DiagPartNotInStack {
			t.Errorf("unexpected warning for layer-skipped row: %+v", e)
		}
	}
}

func TestResolveExplicitLayer(t *testing.T) {
	reg := testRegistry(t, "10uF:1")
	rows := []kicad.Placement{
		row("C1", "10uF", 1, 1, 0, kicad.LayerBottom),
		row("C2", "10uF", 2, 2, 0, kicad.LayerTop),
	}

	resolved, report := Resolve(rows, reg, kicad.LayerTop)
	if report.Layer != kicad.LayerTop {
		t.Fatalf("report.Layer = %q, want explicit top", report.Layer)
	}
	if len(resolved) != 1 || resolved[0].Ref != "C2" {
		t.Fatalf("resolved = %+v, want only C2", resolved)
	}
}

func TestResolveDropsDNP(t *testing.T) {
	reg := testRegistry(t, "10uF:1")
	rows := []kicad.Placement{
		row("C1", "DNP_10uF", 1, 1, 0, kicad.LayerTop),
		row("C2", "10uF", 2, 2, 0, kicad.LayerTop),
	}

	resolved, report := Resolve(rows, reg, "")
	if len(resolved) != 1 || resolved[0].Ref != "C2" {
		t.Fatalf("resolved = %+v, want only C2", resolved)
	}
	for _, e := range report.Events {
		if e.Part == "DNP_10uF" {
			t.Errorf("DNP parts must be dropped without a diagnostic, got %+v", e)
		}
	}
}

func TestResolveMissingPartWarnsOnce(t *testing.T) {
	reg := testRegistry(t, "10uF:1")
	rows := []kicad.Placement{
		row("R1", "1kOhm", 1, 1, 0, kicad.LayerTop),
		row("R2", "1kOhm", 2, 2, 0, kicad.LayerTop),
		row("R3", "1kOhm", 3, 3, 0, kicad.LayerTop),
		row("C1", "10uF", 4, 4, 0, kicad.LayerTop),
	}

	resolved, report := Resolve(rows, reg, "")
	if len(resolved) != 1 {
		t.Fatalf("len(resolved) = %d, want 1", len(resolved))
	}

	var missing int
	for _, e := range report.Warnings() {
		if e.Code == DiagPartNotInStack && e.Part == "1kOhm" {
			missing++
		}
	}
	if missing != 1 {
		t.Errorf("missing-part warnings = %d, want exactly 1 for 3 rows", missing)
	}
}

func TestResolveUnusedEntryNotice(t *testing.T) {
	reg := testRegistry(t, "10uF:1", "100nF:2")
	rows := []kicad.Placement{row("C1", "10uF", 1, 1, 0, kicad.LayerTop)}

	_, report := Resolve(rows, reg, "")

	notices := report.Notices()
	if len(notices) != 1 {
		t.Fatalf("len(Notices()) = %d, want 1", len(notices))
	}
	if notices[0].Code != DiagUnusedStackEntry || notices[0].Part != "100nF" {
		t.Errorf("notice = %+v, want unused-stack-entry for 100nF", notices[0])
	}
}

// Emission order is the registry's insertion order, not input-file order.
func TestResolveOrdersByRegistry(t *testing.T) {
	reg := testRegistry(t, "10uF:1", "100nF:2", "MCU:3")
	rows := []kicad.Placement{
		row("U1", "MCU", 1, 1, 0, kicad.LayerTop),
		row("C5", "100nF", 2, 2, 0, kicad.LayerTop),
		row("C1", "10uF", 3, 3, 0, kicad.LayerTop),
		row("C6", "100nF", 4, 4, 0, kicad.LayerTop),
	}

	resolved, _ := Resolve(rows, reg, "")

	var refs []string
	for _, r := range resolved {
		refs = append(refs, r.Ref)
	}
	want := []string{"C1", "C5", "C6", "U1"}
	if len(refs) != len(want) {
		t.Fatalf("refs = %v, want %v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Fatalf("refs = %v, want %v (stable registry order)", refs, want)
		}
	}
}

func TestResolveEmptyInput(t *testing.T) {
	reg := testRegistry(t, "10uF:1")
	resolved, report := Resolve(nil, reg, "")
	if len(resolved) != 0 {
		t.Errorf("resolved = %v, want empty", resolved)
	}
	if len(report.Notices()) != 1 {
		t.Errorf("Notices() = %v, want one unused-entry notice", report.Notices())
	}
}
