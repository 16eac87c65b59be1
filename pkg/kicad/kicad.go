// Package kicad reads KiCad footprint position files.
//
// A position file is a CSV with 7 columns: part reference, part name,
// footprint name, x position, y position, rotation in degrees, and layer.
// The first line is a header and is ignored. Positions are in the board's
// native units and frame; they are normalized later by the placement
// transform.
package kicad

import (
	"encoding/csv"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/errors"
)

// Layer identifies one side of the board.
type Layer string

const (
	LayerTop    Layer = "top"
	LayerBottom Layer = "bottom"
)

// ParseLayer validates a layer cell. Only the exact strings "top" and
// "bottom" are accepted.
func ParseLayer(s string) (Layer, error) {
	switch Layer(s) {
	case LayerTop, LayerBottom:
		return Layer(s), nil
	}
	return "", errors.New(errors.ErrCodeParseLayer, "layer must be \"top\" or \"bottom\", got %q", s)
}

// Placement is one footprint position row, in board-native coordinates.
type Placement struct {
	Ref       string  // part reference, e.g. "C49"
	Name      string  // part name, possibly unit-disambiguated, e.g. "10uF"
	Footprint string  // footprint name (carried, unused by the pipeline)
	X, Y      float64 // position in board-native units
	Rotation  float64 // rotation in degrees, as exported
	Layer     Layer
}

// PositionFile is a fully parsed position file.
type PositionFile struct {
	Header []string
	Rows   []Placement
}

// passiveUnits maps the reference prefix of a passive component class to its
// electrical unit symbol. Part names that are bare values ("10u") get the
// unit appended so they match stack entries unambiguously ("10uF").
var passiveUnits = map[string]string{
	"C": "F",   // capacitors
	"L": "H",   // inductors
	"R": "Ohm", // resistors
}

// bareValueRE matches a part name that is a numeric value with an optional
// SI prefix letter, e.g. "10", "10u", "4u7".
var bareValueRE = regexp.MustCompile(`^[0-9]+[GMkmunpf]?[0-9]*$`)

// ParseRow parses the 7 cells of one position row into a Placement.
func ParseRow(cells []string) (Placement, error) {
	if len(cells) != 7 {
		return Placement{}, errors.New(errors.ErrCodeParseRow, "7 columns are expected, got %d", len(cells))
	}

	ref := cells[0]
	if err := errors.ValidatePartNumber(ref); err != nil {
		return Placement{}, err
	}

	x, err := parseFloatCell(cells[3], "x position")
	if err != nil {
		return Placement{}, err
	}
	y, err := parseFloatCell(cells[4], "y position")
	if err != nil {
		return Placement{}, err
	}
	rot, err := parseFloatCell(cells[5], "rotation")
	if err != nil {
		return Placement{}, err
	}
	layer, err := ParseLayer(cells[6])
	if err != nil {
		return Placement{}, err
	}

	return Placement{
		Ref:       ref,
		Name:      disambiguate(ref, cells[1]),
		Footprint: cells[2],
		X:         x,
		Y:         y,
		Rotation:  rot,
		Layer:     layer,
	}, nil
}

// disambiguate appends the electrical unit to bare passive-component values.
// "C49" + "10u" becomes "10uF"; a non-passive prefix leaves the name alone.
func disambiguate(ref, name string) string {
	prefix := strings.TrimRight(ref, "0123456789")
	unit, ok := passiveUnits[prefix]
	if !ok {
		return name
	}
	if bareValueRE.MatchString(name) {
		return name + unit
	}
	return name
}

func parseFloatCell(cell, what string) (float64, error) {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeParseRow, "%s must be a number, got %q", what, cell)
	}
	return v, nil
}

// ReadRaw reads all records of a position file without validating them.
// Cells are whitespace-trimmed; the first record is returned separately as
// the header. Records may have any number of cells.
func ReadRaw(r io.Reader) (header []string, rows [][]string, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeParseRow, err, "reading position file")
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	for _, rec := range records {
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
	}
	return records[0], records[1:], nil
}

// Parse reads and validates a whole position file from r. The name is used
// in error messages only.
func Parse(r io.Reader, name string) (*PositionFile, error) {
	header, raw, err := ReadRaw(r)
	if err != nil {
		return nil, err
	}

	pf := &PositionFile{Header: header, Rows: make([]Placement, 0, len(raw))}
	for i, cells := range raw {
		p, err := ParseRow(cells)
		if err != nil {
			// +2: one for the header line, one for 1-based numbering.
			return nil, errors.Wrap(errors.GetCode(err), err, "%s:%d", name, i+2)
		}
		pf.Rows = append(pf.Rows, p)
	}
	return pf, nil
}

// ParseFile reads and validates the position file at path.
func ParseFile(path string) (*PositionFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path)
}
