package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/filter"
)

// filterOpts holds the flags of the filter command. The include/exclude
// flags share one ordered operation list: "-a C -e C49" and "-e C49 -a C"
// mean different things, so flag order must survive parsing.
type filterOpts struct {
	output string
	ops    []filter.Op
}

// opValue is a pflag.Value that appends an operation of a fixed kind to the
// shared ordered list each time its flag appears.
type opValue struct {
	kind filter.OpKind
	ops  *[]filter.Op
}

func (v *opValue) String() string { return "" }
func (v *opValue) Type() string   { return "string" }

func (v *opValue) Set(arg string) error {
	*v.ops = append(*v.ops, filter.Op{Kind: v.kind, Arg: arg})
	return nil
}

// newFilterCmd creates the filter command.
func newFilterCmd() *cobra.Command {
	var opts filterOpts

	cmd := &cobra.Command{
		Use:   "filter POS.csv",
		Short: "Filter parts in a KiCad footprint position CSV file",
		Long: `Filter parts in a KiCad footprint position CSV file.

Selection operations are applied in the order they are given. Use --all to
include every part of a type ('--all "*"' includes everything), --none to
drop a type, and --include/--exclude for single parts ("10uF" or "C49") or
part number ranges ("C49:C122").

Examples:
  pnptool filter pos.csv -a C -a R -e C7           # all C and R except C7
  pnptool filter pos.csv -a '*' -n J -o placed.csv # everything but connectors
  pnptool filter pos.csv -i C49:C122               # a capacitor range`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runFilter(c.Context(), &opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output filename (stdout if empty)")
	cmd.Flags().VarP(&opValue{filter.OpAll, &opts.ops}, "all", "a", "include all parts of a TYPE ('*' for every part)")
	cmd.Flags().VarP(&opValue{filter.OpNone, &opts.ops}, "none", "n", "exclude all parts of a TYPE")
	cmd.Flags().VarP(&opValue{filter.OpInclude, &opts.ops}, "include", "i", "include a part name, part number, or range BEGIN:END")
	cmd.Flags().VarP(&opValue{filter.OpExclude, &opts.ops}, "exclude", "e", "exclude a part name, part number, or range BEGIN:END")

	return cmd
}

func runFilter(ctx context.Context, opts *filterOpts, csvPath string) error {
	logger := loggerFromContext(ctx)

	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	header, parts, err := filter.Load(f, csvPath)
	if err != nil {
		return err
	}

	kept, err := filter.Apply(parts, opts.ops)
	if err != nil {
		return err
	}
	logger.Debugf("kept %d of %d parts", len(kept), len(parts))

	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := filter.Write(out, header, kept); err != nil {
		return err
	}
	if opts.output != "" {
		printSuccess("Kept %d of %d parts", len(kept), len(parts))
		printFile(opts.output)
	}
	return nil
}

// nopCloser wraps an io.Writer with a no-op Close method, making os.Stdout
// compatible with io.WriteCloser.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for path, or stdout if path is empty.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
