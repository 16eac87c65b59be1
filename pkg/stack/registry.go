// Package stack builds the feeder-stack registry of a placement machine.
//
// The registry maps part names to feeder slots, feed rates, pick heads and
// rotation offsets. It is populated from an optional stack file and then
// from per-part override directives. Insertion order is semantically
// meaningful: parts are placed in the order their entries first appeared,
// so the registry is an ordered structure (entry slice plus name index),
// never a bare map.
package stack

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/errors"
	"github.com/tuw-cpsg/charmhigh-pnp-tools/pkg/machine"
)

// validFeeds are the feed distances (mm) the machine supports.
var validFeeds = []int{2, 4, 8, 12, 16, 24}

// Entry is one feeder-stack assignment. SlotSet is false for entries
// inserted by a non-slot override directive, which have no slot yet.
type Entry struct {
	Part           string
	Slot           int
	SlotSet        bool
	Feed           int
	Head           int
	RotationOffset float64 // degrees, corrects non-EIA-481-E reel orientation
}

// Registry is an ordered part name -> Entry mapping. The zero value is not
// usable; construct with New.
type Registry struct {
	entries []Entry
	index   map[string]int
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.entries) }

// Entries returns all entries in insertion order. The returned slice must
// not be modified.
func (r *Registry) Entries() []Entry { return r.entries }

// Lookup returns the entry for part and its insertion position.
func (r *Registry) Lookup(part string) (Entry, int, bool) {
	i, ok := r.index[part]
	if !ok {
		return Entry{}, 0, false
	}
	return r.entries[i], i, true
}

// put inserts or replaces an entry, keeping the first-seen position.
func (r *Registry) put(e Entry) {
	if i, ok := r.index[e.Part]; ok {
		r.entries[i] = e
		return
	}
	r.index[e.Part] = len(r.entries)
	r.entries = append(r.entries, e)
}

// LoadFile populates the registry from a stack CSV file. Each populated line
// has 2 to 5 comma-separated columns: part name, slot, feed, head, rotation
// offset. Missing trailing columns take the profile defaults. Lines starting
// with '#' and blank lines are skipped.
func (r *Registry) LoadFile(path string, prof machine.Profile) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for lino := 1; scanner.Scan(); lino++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cols := strings.Split(line, ",")
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		if len(cols) < 2 {
			return errors.New(errors.ErrCodeConfigStack, "%s:%d: too few columns (min 2)", path, lino)
		}

		e, err := parseFileEntry(cols, prof)
		if err != nil {
			return errors.Wrap(errors.ErrCodeConfigStack, err, "%s:%d", path, lino)
		}
		r.put(e)
	}
	return scanner.Err()
}

// parseFileEntry builds an Entry from the 2-5 columns of one stack file line.
func parseFileEntry(cols []string, prof machine.Profile) (Entry, error) {
	e := Entry{
		Part:    cols[0],
		SlotSet: true,
		Feed:    prof.DefaultFeed,
		Head:    prof.DefaultHead,
	}

	var err error
	if e.Slot, err = parseSlot(cols[1], prof); err != nil {
		return Entry{}, err
	}
	if len(cols) >= 3 {
		if e.Feed, err = parseFeed(cols[2]); err != nil {
			return Entry{}, err
		}
	}
	if len(cols) >= 4 {
		if e.Head, err = parseHead(cols[3]); err != nil {
			return Entry{}, err
		}
	}
	if len(cols) >= 5 {
		if e.RotationOffset, err = parseRotation(cols[4]); err != nil {
			return Entry{}, err
		}
	}
	return e, nil
}

// Overrides are the per-part directive lists from the command line, each in
// "part:value" form. They are applied after the stack file, in the fixed
// group order slot, feed, head, rotation.
type Overrides struct {
	Slot     []string
	Feed     []string
	Head     []string
	Rotation []string
}

// Apply merges the override directives into the registry. A directive for an
// unknown part inserts a new entry with profile defaults and no slot.
func (r *Registry) Apply(o Overrides, prof machine.Profile) error {
	groups := []struct {
		directives []string
		option     string
		set        func(*Entry, string) error
	}{
		{o.Slot, "stack", func(e *Entry, v string) (err error) {
			e.Slot, err = parseSlot(v, prof)
			e.SlotSet = err == nil
			return err
		}},
		{o.Feed, "feed", func(e *Entry, v string) (err error) {
			e.Feed, err = parseFeed(v)
			return err
		}},
		{o.Head, "head", func(e *Entry, v string) (err error) {
			e.Head, err = parseHead(v)
			return err
		}},
		{o.Rotation, "rotation", func(e *Entry, v string) (err error) {
			e.RotationOffset, err = parseRotation(v)
			return err
		}},
	}

	for _, g := range groups {
		for _, d := range g.directives {
			part, value, ok := strings.Cut(d, ":")
			if !ok || part == "" || strings.Contains(value, ":") {
				return errors.New(errors.ErrCodeConfigOption, "option '--%s %s': invalid syntax", g.option, d)
			}

			e, _, found := r.Lookup(part)
			if !found {
				e = Entry{Part: part, Feed: prof.DefaultFeed, Head: prof.DefaultHead}
			}
			if err := g.set(&e, value); err != nil {
				return errors.Wrap(errors.ErrCodeConfigOption, err, "option '--%s %s'", g.option, d)
			}
			r.put(e)
		}
	}
	return nil
}

func parseSlot(s string, prof machine.Profile) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < prof.SlotMin || n > prof.SlotMax {
		return 0, errors.New(errors.ErrCodeConfigStack, "stack number must be within [%d,%d]", prof.SlotMin, prof.SlotMax)
	}
	return n, nil
}

func parseFeed(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err == nil {
		for _, f := range validFeeds {
			if n == f {
				return n, nil
			}
		}
	}
	return 0, errors.New(errors.ErrCodeConfigStack, "feed must be one of (2, 4, 8, 12, 16, 24)")
}

func parseHead(s string) (int, error) {
	switch s {
	case "1":
		return 1, nil
	case "2":
		return 2, nil
	}
	return 0, errors.New(errors.ErrCodeConfigStack, "head must be either 1 or 2")
}

func parseRotation(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeConfigStack, "rotation offset must be a number")
	}
	return v, nil
}
