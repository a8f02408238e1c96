package types

import "encoding/json"

// Category is the placement behaviour of a comment. The four lane categories
// index the lane grid directly; Positioned and Dropped never touch it.
type Category int

const (
	Scroll Category = iota
	Bottom
	Top
	ScrollReversed
	Positioned
	Dropped
)

// LaneCategories is the number of independent lane groups.
const LaneCategories = 4

func (c Category) String() string {
	switch c {
	case Scroll:
		return "scroll"
	case Bottom:
		return "bottom"
	case Top:
		return "top"
	case ScrollReversed:
		return "scroll-reversed"
	case Positioned:
		return "positioned"
	case Dropped:
		return "dropped"
	}
	return "unknown"
}

// Laned reports whether comments of this category go through row allocation.
func (c Category) Laned() bool { return c >= Scroll && c <= ScrollReversed }

// Still reports whether the category is held in place instead of scrolling.
func (c Category) Still() bool { return c == Top || c == Bottom }

// Comment is one decoded danmaku entry.
type Comment struct {
	Timeline  float64
	Timestamp int64
	Sequence  int
	Text      string
	Mode      Category
	Color     uint32
	FontSize  float64
	Height    float64
	Width     float64

	// Params holds the raw JSON parameter array of a Positioned comment.
	Params json.RawMessage
}

// Stats counts what happened to every comment of a conversion run.
type Stats struct {
	Decoded           int `json:"decoded" yaml:"decoded"`
	Invalid           int `json:"invalid" yaml:"invalid"`
	Blocked           int `json:"blocked" yaml:"blocked"`
	Placed            int `json:"placed" yaml:"placed"`
	Forced            int `json:"forced" yaml:"forced"`
	Reduced           int `json:"reduced" yaml:"reduced"`
	Positioned        int `json:"positioned" yaml:"positioned"`
	PositionedInvalid int `json:"positioned_invalid" yaml:"positioned_invalid"`
}

// Report is written next to the subtitle file when requested.
type Report struct {
	Inputs  []string `yaml:"inputs"`
	Output  string   `yaml:"output"`
	Width   int      `yaml:"width"`
	Height  int      `yaml:"height"`
	StyleID string   `yaml:"style_id"`
	Stats   Stats    `yaml:"stats"`
}
