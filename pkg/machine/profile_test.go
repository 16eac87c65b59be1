package machine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/errors"
)

func TestDefault(t *testing.T) {
	p := Default()

	if p.Name != "CHMT36VA" {
		t.Errorf("Name = %q, want CHMT36VA", p.Name)
	}
	if p.SlotMin != 1 || p.SlotMax != 60 {
		t.Errorf("slot range = [%d,%d], want [1,60]", p.SlotMin, p.SlotMax)
	}
	if p.DefaultFeed != 4 || p.DefaultHead != 1 {
		t.Errorf("defaults = feed %d head %d, want 4 and 1", p.DefaultFeed, p.DefaultHead)
	}
	if p.Calibration.DeltX != 112.7 || p.Calibration.DeltaAngle != -0.19997 {
		t.Errorf("calibration = %+v, want machine defaults", p.Calibration)
	}
}

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	content := `name = "CHMT48VB"
slot_max = 29
default_feed = 8

[calibration]
delt_x = 100.0
`
	p, err := Load(writeProfile(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if p.Name != "CHMT48VB" {
		t.Errorf("Name = %q, want CHMT48VB", p.Name)
	}
	if p.SlotMax != 29 {
		t.Errorf("SlotMax = %d, want 29", p.SlotMax)
	}
	if p.DefaultFeed != 8 {
		t.Errorf("DefaultFeed = %d, want 8", p.DefaultFeed)
	}
	// Unset fields keep their defaults.
	if p.SlotMin != 1 || p.DefaultHead != 1 {
		t.Errorf("SlotMin = %d, DefaultHead = %d, want defaults 1 and 1", p.SlotMin, p.DefaultHead)
	}
	if p.Calibration.DeltX != 100.0 {
		t.Errorf("Calibration.DeltX = %v, want 100.0", p.Calibration.DeltX)
	}
	if p.Calibration.DeltY != 79.37 {
		t.Errorf("Calibration.DeltY = %v, want default 79.37", p.Calibration.DeltY)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"broken toml", "name = \n"},
		{"bad slot range", "slot_min = 5\nslot_max = 2\n"},
		{"bad head", "default_head = 3\n"},
		{"bad feed", "default_feed = 5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeProfile(t, tt.content))
			if !errors.Is(err, errors.ErrCodeConfigProfile) {
				t.Errorf("Load() error = %v, want CONFIG_PROFILE", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load should fail for a missing file")
	}
}
