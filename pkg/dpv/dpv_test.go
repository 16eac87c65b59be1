package dpv

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/machine"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/place"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/stack"
)

func testJob(t *testing.T) Job {
	t.Helper()
	reg := stack.New()
	overrides := stack.Overrides{
		Slot: []string{"10uF:1", "100nF:2"},
		Feed: []string{"100nF:8"},
	}
	if err := reg.Apply(overrides, machine.Default()); err != nil {
		t.Fatal(err)
	}

	placed := []place.Placed{
		{Ref: "C1", Name: "10uF", X: 5, Y: 5.128, Rotation: 0, Slot: 1, SlotSet: true, Head: 1},
		{Ref: "C7", Name: "100nF", X: 12.3456, Y: 0, Rotation: -90, Slot: 2, SlotSet: true, Head: 2},
	}

	return Job{
		File:       "board.dpv",
		PCB:        "board-pos.csv",
		Now:        time.Date(2024, 6, 1, 13, 37, 42, 0, time.UTC),
		Profile:    machine.Default(),
		Stations:   Stations(reg),
		Components: Components(placed),
		Marks:      []Mark{{X: 3.5, Y: 4}},
	}
}

func TestWrite(t *testing.T) {
	job := testJob(t)

	var buf bytes.Buffer
	if err := job.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()

	wantLines := []string{
		"separated",
		"FILE,board.dpv",
		"PCBFILE,board-pos.csv",
		"DATE,2024/06/01",
		"TIME,13:37:42",
		"PANELYPE,0",
		"Station,0,1,0,0,4,10uF,0.5,0,6,0,0",
		"Station,1,2,0,0,8,100nF,0.5,0,6,0,0",
		"Panel_Coord,0,1,0,0",
		"EComponent,0,1,1,1,5.00,5.13,0.0,0.5,6,0,C1,10uF",
		"EComponent,1,2,2,2,12.35,0.00,-90.0,0.5,6,0,C7,100nF",
		"PcbCalib,0,1,0,1",
		"CalibPoint,0,1,3.5,4,Mark1",
		"CalibFator,0,112.7,79.37,0.999545,-0.0034923,0.00360968,1.00062,-0.19997",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want+"\r\n") {
			t.Errorf("output missing line %q", want)
		}
	}

	if strings.Contains(strings.ReplaceAll(out, "\r\n", ""), "\n") {
		t.Error("all line endings must be CRLF")
	}

	// Stations precede components; components are in emission order.
	if strings.Index(out, "Station,0") > strings.Index(out, "EComponent,0") {
		t.Error("station table must precede the component table")
	}
	if strings.Index(out, "EComponent,0") > strings.Index(out, "EComponent,1") {
		t.Error("components must keep emission order")
	}
}

func TestStationsOrderAndUnsetSlot(t *testing.T) {
	reg := stack.New()
	overrides := stack.Overrides{
		Slot:     []string{"10uF:9"},
		Rotation: []string{"LED:90"}, // inserts LED without a slot
	}
	if err := reg.Apply(overrides, machine.Default()); err != nil {
		t.Fatal(err)
	}

	stations := Stations(reg)
	if len(stations) != 2 {
		t.Fatalf("len(stations) = %d, want 2", len(stations))
	}
	if stations[0].Part != "10uF" || stations[0].Slot != 9 {
		t.Errorf("stations[0] = %+v, want 10uF in slot 9", stations[0])
	}
	if stations[1].Part != "LED" || stations[1].Slot != 0 {
		t.Errorf("stations[1] = %+v, want LED with slot 0 (unset)", stations[1])
	}
}

func TestComponentsIndexes(t *testing.T) {
	placed := []place.Placed{
		{Ref: "C1", Name: "10uF", Head: 1, Slot: 1},
		{Ref: "C2", Name: "10uF", Head: 2, Slot: 1},
	}
	comps := Components(placed)
	for i, c := range comps {
		if c.Index != i {
			t.Errorf("comps[%d].Index = %d, want %d", i, c.Index, i)
		}
	}
}

func TestWriteNoMarks(t *testing.T) {
	job := testJob(t)
	job.Marks = nil

	var buf bytes.Buffer
	if err := job.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if strings.Contains(buf.String(), "CalibPoint") {
		t.Error("no CalibPoint rows expected without marks")
	}
}
