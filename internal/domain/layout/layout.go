// Package layout assigns screen rows to scrolling and still comments so that
// they do not overlap while the screen has room.
package layout

import (
	"math"

	"github.com/forPelevin/danmaku2ass/internal/types"
)

type Config struct {
	Width          int
	Height         int
	BottomReserved int

	// Seconds a scrolling comment takes to cross, and a still comment stays.
	DurationMarquee float64
	DurationStill   float64

	// Reduce drops comments that find no free row instead of evicting.
	Reduce bool
}

// Placement is where a comment ended up. Forced is set when no free row
// existed and the oldest occupant was overwritten.
type Placement struct {
	Row    int
	Forced bool
}

type occupant struct {
	timeline float64
	width    float64
}

// Grid tracks, per lane category and pixel row, the last comment placed there.
// Slots hold 1-based indices into occ; zero means empty.
type Grid struct {
	cfg   Config
	lanes [types.LaneCategories][]int32
	occ   []occupant
}

func New(cfg Config) *Grid {
	n := cfg.Height - cfg.BottomReserved + 1
	if n < 1 {
		n = 1
	}
	g := &Grid{cfg: cfg}
	for i := range g.lanes {
		g.lanes[i] = make([]int32, n)
	}
	return g
}

func (g *Grid) usable() int { return g.cfg.Height - g.cfg.BottomReserved }

// Place finds a row for c, which must be a laned comment, and records it.
// Comments must arrive in timeline order. ok is false only when the grid is
// saturated and Reduce is set.
func (g *Grid) Place(c types.Comment) (p Placement, ok bool) {
	rowmax := float64(g.usable()) - c.Height
	row := 0
	for float64(row) <= rowmax {
		free := g.freeRows(c, row)
		if float64(free) >= c.Height {
			g.mark(c, row)
			return Placement{Row: row}, true
		}
		row += max(free, 1)
	}
	if g.cfg.Reduce {
		return Placement{}, false
	}
	row = g.alternativeRow(c)
	g.mark(c, row)
	return Placement{Row: row, Forced: true}, true
}

// freeRows counts consecutive rows from row on that c can use, stopping once
// c fits.
func (g *Grid) freeRows(c types.Comment, row int) int {
	lane := g.lanes[c.Mode]
	limit := g.usable()
	var blocks func(occupant) bool
	if c.Mode.Still() {
		blocks = g.stillBlocks(c)
	} else {
		blocks = g.scrollBlocks(c)
	}
	res := 0
	var target int32
	for row < limit && float64(res) < c.Height {
		if lane[row] != target {
			target = lane[row]
			if target != 0 && blocks(g.occ[target-1]) {
				break
			}
		}
		row++
		res++
	}
	return res
}

func (g *Grid) stillBlocks(c types.Comment) func(occupant) bool {
	return func(o occupant) bool {
		return o.timeline+g.cfg.DurationStill > c.Timeline
	}
}

// scrollBlocks reports whether an occupant and c, both moving at a speed
// proportional to their width plus the stage width, would touch on screen.
func (g *Grid) scrollBlocks(c types.Comment) func(occupant) bool {
	w := float64(g.cfg.Width)
	dm := g.cfg.DurationMarquee
	threshold := c.Timeline - dm
	if c.Width+w != 0 {
		threshold = c.Timeline - dm*(1-w/(c.Width+w))
	}
	return func(o occupant) bool {
		if o.timeline > threshold {
			return true
		}
		if o.width+w == 0 {
			return false
		}
		return o.timeline+o.width*dm/(o.width+w) > c.Timeline
	}
}

func (g *Grid) mark(c types.Comment, row int) {
	g.occ = append(g.occ, occupant{timeline: c.Timeline, width: c.Width})
	idx := int32(len(g.occ))
	lane := g.lanes[c.Mode]
	end := row + int(math.Ceil(c.Height))
	for i := row; i < end && i < len(lane); i++ {
		lane[i] = idx
	}
}

// alternativeRow returns the first empty row, or the row whose occupant
// appeared earliest.
func (g *Grid) alternativeRow(c types.Comment) int {
	lane := g.lanes[c.Mode]
	res := 0
	n := g.usable() - int(math.Ceil(c.Height))
	for row := 0; row < n; row++ {
		if lane[row] == 0 {
			return row
		}
		if g.occ[lane[row]-1].timeline < g.occ[lane[res]-1].timeline {
			res = row
		}
	}
	return res
}
