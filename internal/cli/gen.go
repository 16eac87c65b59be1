package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/dpv"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/errors"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/kicad"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/machine"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/place"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/stack"
)

// timeNow is stubbed in tests.
var timeNow = time.Now

// genOpts holds the command-line flags for the gen command.
type genOpts struct {
	output    string   // output file path (derived from the CSV name if empty)
	stackFile string   // stack CSV file
	profile   string   // machine profile TOML file
	layer     string   // explicit layer; auto-detected from the first row if empty
	stacks    []string // PART:NUM slot directives
	feeds     []string // PART:FEED directives
	heads     []string // PART:HEAD directives
	rotations []string // PART:ROT rotation-offset directives
	marks     []string // X,Y calibration marks
}

// newGenCmd creates the gen command, the core placement pipeline: stack
// registry -> position parsing -> layer/stack resolution -> origin transform
// -> DPV emission.
func newGenCmd() *cobra.Command {
	var opts genOpts

	cmd := &cobra.Command{
		Use:   "gen POS.csv",
		Short: "Generate a Charmhigh DPV placement file from a position CSV",
		Long: `Generate a DPV file to be used with the Charmhigh pick-and-place machine.

The position CSV is the footprint position file as exported from KiCad
(7 columns: part ref, part name, footprint, x, y, rotation, layer; the
first line is ignored). Parts in the machine are specified by a stack file
and/or per-part directives; parts are placed in the order they appear in
the stack.

Examples:
  pnptool gen board-pos.csv --stackfile stack.csv
  pnptool gen board-pos.csv -s 10uF:1 -s 100nF:2 -r 10uF:90
  pnptool gen board-pos.csv --stackfile stack.csv --layer bottom -o bottom.dpv`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runGen(c.Context(), &opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output filename (default is the CSV name with a .dpv extension)")
	cmd.Flags().StringVar(&opts.stackFile, "stackfile", "", "stack CSV file: part name, stack number, [feed], [head], [rotation offset]")
	cmd.Flags().StringVar(&opts.profile, "profile", "", "machine profile TOML file")
	cmd.Flags().StringVar(&opts.layer, "layer", "", "board layer to place (top|bottom, default is the layer of the first row)")
	cmd.Flags().StringArrayVarP(&opts.stacks, "stack", "s", nil, "PART:NUM: part PART is found in stack number NUM")
	cmd.Flags().StringArrayVarP(&opts.feeds, "feed", "f", nil, "PART:FEED: feed distance in mm for PART (default 4)")
	cmd.Flags().StringArrayVarP(&opts.heads, "head", "e", nil, "PART:HEAD: pick up PART with head 1 or 2 (default 1)")
	cmd.Flags().StringArrayVarP(&opts.rotations, "rotation", "r", nil, "PART:ROT: rotation offset in degrees for a non-EIA-481-E-compliant PART")
	cmd.Flags().StringArrayVarP(&opts.marks, "mark", "m", nil, "X,Y coordinates of a calibration mark")

	return cmd
}

func runGen(ctx context.Context, opts *genOpts, csvPath string) error {
	logger := loggerFromContext(ctx)
	runID := uuid.NewString()
	logger.Debugf("generation run %s", runID)

	prof := machine.Default()
	if opts.profile != "" {
		var err error
		if prof, err = machine.Load(opts.profile); err != nil {
			return err
		}
		logger.Debugf("machine profile %s (%s)", prof.Name, opts.profile)
	}

	// The registry is built before any placement data is touched; a bad
	// stack setup aborts the run here.
	reg := stack.New()
	if opts.stackFile != "" {
		if err := reg.LoadFile(opts.stackFile, prof); err != nil {
			return err
		}
	}
	overrides := stack.Overrides{
		Slot:     opts.stacks,
		Feed:     opts.feeds,
		Head:     opts.heads,
		Rotation: opts.rotations,
	}
	if err := reg.Apply(overrides, prof); err != nil {
		return err
	}

	marks, err := parseMarks(opts.marks)
	if err != nil {
		return err
	}

	var layer kicad.Layer
	if opts.layer != "" {
		if layer, err = kicad.ParseLayer(opts.layer); err != nil {
			return err
		}
	}

	pf, err := kicad.ParseFile(csvPath)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	resolved, report := place.Resolve(pf.Rows, reg, layer)
	report.RunID = runID
	placed, err := place.Transform(resolved, report.Layer)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Placed %d of %d parts on the %s layer", len(placed), len(pf.Rows), report.Layer))

	renderReport(report)

	outPath := opts.output
	if outPath == "" {
		outPath = strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".dpv"
	}

	job := dpv.Job{
		File:       filepath.Base(outPath),
		PCB:        filepath.Base(csvPath),
		Now:        timeNow(),
		Profile:    prof,
		Stations:   dpv.Stations(reg),
		Components: dpv.Components(placed),
		Marks:      marks,
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := job.Write(f); err != nil {
		return err
	}

	printSuccess("Wrote %d placements and %d stations", len(job.Components), len(job.Stations))
	printFile(outPath)
	return nil
}

// renderReport prints the resolver's diagnostics. Missing parts are
// warnings; unused stack entries are informational.
func renderReport(report *place.Report) {
	for _, e := range report.Warnings() {
		printWarning("%s", e.Message)
	}
	if notices := report.Notices(); len(notices) > 0 {
		printInfo("%d stack entries unused", len(notices))
		for _, e := range notices {
			printDetail("%s", e.Message)
		}
	}
}

// parseMarks parses the repeatable --mark X,Y flags.
func parseMarks(args []string) ([]dpv.Mark, error) {
	var marks []dpv.Mark
	for _, arg := range args {
		xs, ys, ok := strings.Cut(arg, ",")
		if !ok {
			return nil, errors.New(errors.ErrCodeConfigMark, "option '--mark %s': invalid syntax", arg)
		}
		x, xerr := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		y, yerr := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if xerr != nil || yerr != nil {
			return nil, errors.New(errors.ErrCodeConfigMark, "option '--mark %s': invalid syntax", arg)
		}
		marks = append(marks, dpv.Mark{X: x, Y: y})
	}
	return marks, nil
}
