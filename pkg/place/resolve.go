// Package place turns raw footprint positions into machine-ready placements.
//
// The work happens in two pure stages. Resolve selects the active board
// layer and joins each position row against the feeder-stack registry,
// producing an ordered slice of resolved placements plus a diagnostics
// report. Transform rewrites the resolved coordinates and rotations into the
// canonical lower-left-origin frame the machine expects. Each stage returns
// new slices; nothing is mutated in place, so the invariants between stages
// stay checkable.
package place

import (
	"sort"
	"strings"

	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/kicad"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/stack"
)

// Layer is re-exported for callers that only deal with this package.
type Layer = kicad.Layer

// DNPPrefix marks parts that are intentionally never placed.
const DNPPrefix = "DNP"

// Resolved is a placement joined with its stack entry. Rotation is the raw
// sum of the row rotation and the stack's rotation offset; it is not
// normalized until the transform stage.
type Resolved struct {
	Ref      string
	Name     string
	X, Y     float64
	Rotation float64
	Layer    Layer
	Slot     int
	SlotSet  bool
	Head     int
	Order    int // registry insertion position, becomes emission order
}

// Resolve joins rows against the registry for one layer.
//
// If layer is empty, the layer of the first row determines the active layer
// and rows of the other layer are silently skipped (they belong to a
// separate run). DNP parts are always skipped without a warning. Parts
// missing from the registry are dropped with one warning per distinct name;
// registry entries that match no row produce one informational notice each.
// The result is sorted by registry insertion order, replacing input order.
func Resolve(rows []kicad.Placement, reg *stack.Registry, layer Layer) ([]Resolved, *Report) {
	report := &Report{Layer: layer}

	warned := make(map[string]bool)
	used := make(map[string]bool)
	var resolved []Resolved

	for _, row := range rows {
		if report.Layer == "" {
			report.Layer = row.Layer
		}
		if row.Layer != report.Layer {
			continue
		}
		if strings.HasPrefix(row.Name, DNPPrefix) {
			continue
		}

		entry, order, ok := reg.Lookup(row.Name)
		if !ok {
			if !warned[row.Name] {
				warned[row.Name] = true
				report.warnf(DiagPartNotInStack, row.Name, "part %s is not in the machine stack, skipping", row.Name)
			}
			continue
		}
		used[row.Name] = true

		resolved = append(resolved, Resolved{
			Ref:      row.Ref,
			Name:     row.Name,
			X:        row.X,
			Y:        row.Y,
			Rotation: row.Rotation + entry.RotationOffset,
			Layer:    row.Layer,
			Slot:     entry.Slot,
			SlotSet:  entry.SlotSet,
			Head:     entry.Head,
			Order:    order,
		})
	}

	for _, entry := range reg.Entries() {
		if !used[entry.Part] {
			report.infof(DiagUnusedStackEntry, entry.Part, "stack entry %s is not used by any placement", entry.Part)
		}
	}

	sort.SliceStable(resolved, func(i, j int) bool { return resolved[i].Order < resolved[j].Order })
	return resolved, report
}
