// Package machine describes the placement machine a DPV file targets.
package machine

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/errors"
)

// Calibration are the vision-calibration factors emitted verbatim into the
// machine file. They come from the machine's own calibration run and pass
// through this tool unexamined.
type Calibration struct {
	DeltX      float64 `toml:"delt_x"`
	DeltY      float64 `toml:"delt_y"`
	AlphaX     float64 `toml:"alpha_x"`
	AlphaY     float64 `toml:"alpha_y"`
	BetaX      float64 `toml:"beta_x"`
	BetaY      float64 `toml:"beta_y"`
	DeltaAngle float64 `toml:"delta_angle"`
}

// Profile holds the machine-specific constants used while building and
// emitting a placement job.
type Profile struct {
	Name        string      `toml:"name"`
	SlotMin     int         `toml:"slot_min"`
	SlotMax     int         `toml:"slot_max"`
	DefaultFeed int         `toml:"default_feed"`
	DefaultHead int         `toml:"default_head"`
	PanelType   int         `toml:"panel_type"`
	Calibration Calibration `toml:"calibration"`
}

// Default returns the profile of the Charmhigh CHMT36VA these tools were
// written for.
func Default() Profile {
	return Profile{
		Name:        "CHMT36VA",
		SlotMin:     1,
		SlotMax:     60,
		DefaultFeed: 4,
		DefaultHead: 1,
		PanelType:   0,
		Calibration: Calibration{
			DeltX:      112.7,
			DeltY:      79.37,
			AlphaX:     0.999545,
			AlphaY:     -0.0034923,
			BetaX:      0.00360968,
			BetaY:      1.00062,
			DeltaAngle: -0.19997,
		},
	}
}

// Load reads a TOML profile from path. Fields absent from the file keep
// their Default values.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}

	p := Default()
	if err := toml.Unmarshal(data, &p); err != nil {
		return Profile{}, errors.Wrap(errors.ErrCodeConfigProfile, err, "profile %s", path)
	}
	if err := p.validate(); err != nil {
		return Profile{}, errors.Wrap(errors.ErrCodeConfigProfile, err, "profile %s", path)
	}
	return p, nil
}

func (p Profile) validate() error {
	if p.SlotMin < 1 || p.SlotMax < p.SlotMin {
		return errors.New(errors.ErrCodeConfigProfile, "invalid slot range [%d,%d]", p.SlotMin, p.SlotMax)
	}
	if p.DefaultHead != 1 && p.DefaultHead != 2 {
		return errors.New(errors.ErrCodeConfigProfile, "default head must be either 1 or 2")
	}
	switch p.DefaultFeed {
	case 2, 4, 8, 12, 16, 24:
	default:
		return errors.New(errors.ErrCodeConfigProfile, "default feed must be one of (2, 4, 8, 12, 16, 24)")
	}
	return nil
}
