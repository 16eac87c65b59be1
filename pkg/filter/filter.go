// Package filter selects parts from a footprint position file.
//
// Filtering is set arithmetic over the file's rows, driven by an ordered
// list of operations: include all parts of a type (or every part with "*"),
// exclude all of a type, and include or exclude individual parts named by
// part name, part reference, or a reference range like "C49:C122". Later
// operations override earlier ones, so the order they were given on the
// command line matters. The surviving rows are written back out sorted by
// part type and number; cell contents are preserved unchanged.
package filter

import (
	"encoding/csv"
	"io"
	"sort"
	"strings"

	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/errors"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/kicad"
)

// Part is one position row with its parsed reference.
type Part struct {
	Type  string // alphabetic reference prefix, e.g. "C"
	Num   int    // numeric reference suffix, e.g. 49
	Name  string
	Cells []string // the full original row
}

// OpKind selects a filter operation.
type OpKind int

const (
	OpAll     OpKind = iota // include all parts of a type ("*" for every part)
	OpNone                  // exclude all parts of a type
	OpInclude               // include by name, reference, or range
	OpExclude               // exclude by name, reference, or range
)

func (k OpKind) option() string {
	switch k {
	case OpAll:
		return "all"
	case OpNone:
		return "none"
	case OpInclude:
		return "include"
	default:
		return "exclude"
	}
}

// Op is one filter operation with its argument.
type Op struct {
	Kind OpKind
	Arg  string
}

// Load reads a position file, validating only the column count and part
// reference of each row. Name is used in error messages.
func Load(r io.Reader, name string) (header []string, parts []Part, err error) {
	header, rows, err := kicad.ReadRaw(r)
	if err != nil {
		return nil, nil, err
	}

	parts = make([]Part, 0, len(rows))
	for i, cells := range rows {
		if len(cells) != 7 {
			return nil, nil, errors.New(errors.ErrCodeParseRow, "%s:%d: 7 columns are expected", name, i+2)
		}
		typ, num, err := errors.SplitPartNumber(cells[0])
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeParsePartNumber, err, "%s:%d", name, i+2)
		}
		parts = append(parts, Part{Type: typ, Num: num, Name: cells[1], Cells: cells})
	}
	return header, parts, nil
}

// Apply runs the operations over parts in order and returns the surviving
// rows sorted by (type, number).
func Apply(parts []Part, ops []Op) ([]Part, error) {
	selected := make(map[int]bool)

	for _, op := range ops {
		switch op.Kind {
		case OpAll:
			for i, p := range parts {
				if op.Arg == "*" || p.Type == op.Arg {
					selected[i] = true
				}
			}
		case OpNone:
			for i, p := range parts {
				if p.Type == op.Arg {
					delete(selected, i)
				}
			}
		case OpInclude, OpExclude:
			match, err := parsePartSpec(op.Arg, op.Kind.option())
			if err != nil {
				return nil, err
			}
			for i, p := range parts {
				if match(p) {
					if op.Kind == OpInclude {
						selected[i] = true
					} else {
						delete(selected, i)
					}
				}
			}
		}
	}

	out := make([]Part, 0, len(selected))
	for i := range selected {
		out = append(out, parts[i])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Num < out[j].Num
	})
	return out, nil
}

// parsePartSpec compiles an include/exclude argument into a predicate. The
// argument is a part reference ("C49"), a reference range ("C49:C122"), or
// otherwise a part name.
func parsePartSpec(spec, opt string) (func(Part) bool, error) {
	fields := strings.Split(spec, ":")
	switch len(fields) {
	case 1:
		if typ, num, err := errors.SplitPartNumber(spec); err == nil {
			return func(p Part) bool { return p.Type == typ && p.Num == num }, nil
		}
		return func(p Part) bool { return p.Name == spec }, nil
	case 2:
		beginType, begin, berr := errors.SplitPartNumber(fields[0])
		endType, end, eerr := errors.SplitPartNumber(fields[1])
		if berr != nil || eerr != nil || beginType != endType {
			return nil, errors.New(errors.ErrCodeConfigFilter, "option '--%s %s': invalid range", opt, spec)
		}
		return func(p Part) bool { return p.Type == beginType && p.Num >= begin && p.Num <= end }, nil
	default:
		return nil, errors.New(errors.ErrCodeConfigFilter, "option '--%s %s': invalid syntax", opt, spec)
	}
}

// Write emits the header and rows as CSV.
func Write(w io.Writer, header []string, parts []Part) error {
	cw := csv.NewWriter(w)
	if len(header) > 0 {
		if err := cw.Write(header); err != nil {
			return err
		}
	}
	for _, p := range parts {
		if err := cw.Write(p.Cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
