// Package dpv serializes placement jobs into the Charmhigh DPV file format.
//
// The format is a CSV-like text file with CRLF line endings and a fixed
// sequence of sections: file header, station table (one row per stack
// entry), panel coordinates, component table (one row per placement),
// IC-tray table, calibration mode, calibration marks, and the calibration
// factors. Field layout and spelling (including "PANELYPE") follow the
// files the machine's own software writes.
package dpv

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/machine"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/place"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/stack"
)

// Station is one feeder row of the station table.
type Station struct {
	Index int
	Slot  int
	Feed  int
	Part  string
}

// Component is one placement row of the component table. Positions are in
// the canonical frame; the emitter formats them with two decimals and the
// rotation with one.
type Component struct {
	Index    int
	Head     int
	Slot     int
	X, Y     float64
	Rotation float64
	Ref      string
	Name     string
}

// Mark is a calibration mark position, passed through from the command line.
type Mark struct {
	X, Y float64
}

// Job is everything needed to emit one machine file.
type Job struct {
	File       string // output file name, recorded in the header
	PCB        string // source position file name
	Now        time.Time
	Profile    machine.Profile
	Stations   []Station
	Components []Component
	Marks      []Mark
}

// Stations builds the station table from the registry, in insertion order.
// An entry without an assigned slot is emitted with slot 0.
func Stations(reg *stack.Registry) []Station {
	out := make([]Station, 0, reg.Len())
	for i, e := range reg.Entries() {
		out = append(out, Station{Index: i, Slot: e.Slot, Feed: e.Feed, Part: e.Part})
	}
	return out
}

// Components builds the component table from transformed placements, in
// emission order.
func Components(placed []place.Placed) []Component {
	out := make([]Component, 0, len(placed))
	for i, p := range placed {
		out = append(out, Component{
			Index:    i,
			Head:     p.Head,
			Slot:     p.Slot,
			X:        p.X,
			Y:        p.Y,
			Rotation: p.Rotation,
			Ref:      p.Ref,
			Name:     p.Name,
		})
	}
	return out
}

// Write emits the job to w in DPV format.
func (j *Job) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	line := func(format string, args ...any) {
		fmt.Fprintf(bw, format, args...)
		bw.WriteString("\r\n")
	}

	line("separated")
	line("FILE,%s", j.File)
	line("PCBFILE,%s", j.PCB)
	line("DATE,%s", j.Now.Format("2006/01/02"))
	line("TIME,%s", j.Now.Format("15:04:05"))
	line("PANELYPE,%d", j.Profile.PanelType)
	line("")

	line("Table,No.,ID,DeltX,DeltY,FeedRates,Note,Height,Speed,Status,SizeX,SizeY")
	line("")
	for _, s := range j.Stations {
		line("Station,%d,%d,0,0,%d,%s,0.5,0,6,0,0", s.Index, s.Slot, s.Feed, s.Part)
		line("")
	}
	line("")
	line("")

	line("Table,No.,ID,DeltX,DeltY")
	line("")
	line("Panel_Coord,0,1,0,0")
	line("")
	line("")
	line("")

	line("Table,No.,ID,PHead,STNo.,DeltX,DeltY,Angle,Height,Skip,Speed,Explain,Note")
	line("")
	for _, c := range j.Components {
		line("EComponent,%d,%d,%d,%d,%.2f,%.2f,%.1f,0.5,6,0,%s,%s",
			c.Index, c.Index+1, c.Head, c.Slot, c.X, c.Y, c.Rotation, c.Ref, c.Name)
		line("")
	}
	line("")
	line("")

	line("Table,No.,ID,CenterX,CenterY,IntervalX,IntervalY,NumX,NumY,Start")
	line("")
	line("")
	line("")

	line("Table,No.,nType,nAlg,nFinished")
	line("")
	line("PcbCalib,0,1,0,1")
	line("")

	line("Table,No.,ID,offsetX,offsetY,Note")
	line("")
	for i, m := range j.Marks {
		line("CalibPoint,%d,%d,%s,%s,Mark1", i, i+1, ftoa(m.X), ftoa(m.Y))
	}
	line("")

	line("Table,No.,DeltX,DeltY,AlphaX,AlphaY,BetaX,BetaY,DeltaAngle")
	line("")
	c := j.Profile.Calibration
	line("CalibFator,0,%s,%s,%s,%s,%s,%s,%s",
		ftoa(c.DeltX), ftoa(c.DeltY), ftoa(c.AlphaX), ftoa(c.AlphaY),
		ftoa(c.BetaX), ftoa(c.BetaY), ftoa(c.DeltaAngle))
	line("")

	return bw.Flush()
}

// ftoa formats a float with the shortest exact representation.
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
