package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/kicad"
)

// newConvertCmd creates the convert command: a lenient rewrite of a KiCad
// position CSV into the generic 11-column PnP format some machine frontends
// import. Rows that are not 7 columns with a numeric rotation are skipped
// rather than rejected, so the KiCad header needs no special handling.
func newConvertCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "convert POS.csv",
		Short: "Convert a position CSV to the generic 11-column PnP format",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runConvert(c.Context(), output, args[0])
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output filename (stdout if empty)")
	return cmd
}

func runConvert(ctx context.Context, output, csvPath string) error {
	logger := loggerFromContext(ctx)

	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	header, rows, err := kicad.ReadRaw(f)
	if err != nil {
		return err
	}
	// ReadRaw splits off the first record; convert treats it like any row.
	all := append([][]string{header}, rows...)

	out, err := openOutput(output)
	if err != nil {
		return err
	}
	defer out.Close()

	converted, skipped := 0, 0
	fmt.Fprintln(out, strings.Repeat(",", 10))
	for _, cells := range all {
		if !writeGenericRow(out, cells) {
			skipped++
			continue
		}
		converted++
	}

	logger.Debugf("converted %d rows, skipped %d", converted, skipped)
	if output != "" {
		printSuccess("Converted %d rows", converted)
		printFile(output)
	}
	return nil
}

// writeGenericRow emits one generic PnP row, reporting false for rows that
// cannot be converted. The position columns are tripled (pad 1, pad 2 and
// center all get the footprint position) and the rotation is adjusted per
// part type: C, R and D parts turn +90, Q parts -90.
func writeGenericRow(w io.Writer, cells []string) bool {
	if len(cells) != 7 {
		return false
	}
	deg, err := strconv.ParseFloat(cells[5], 64)
	if err != nil {
		return false
	}

	ref := cells[0]
	if strings.ContainsAny(ref, "CRD") {
		deg = wrap360(deg + 90)
	}
	if strings.Contains(ref, "Q") {
		deg = wrap360(deg - 90)
	}

	fmt.Fprintf(w, "%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
		ref, cells[2], cells[3], cells[4], cells[3], cells[4], cells[3], cells[4],
		cells[6], strconv.FormatFloat(deg, 'g', -1, 64), cells[1])
	return true
}

// wrap360 maps deg into [0, 360).
func wrap360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
