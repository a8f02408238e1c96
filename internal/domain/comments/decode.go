// Package comments decodes danmaku comment lists into types.Comment records.
package comments

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/forPelevin/danmaku2ass/internal/types"
)

var (
	// ErrUnsupportedVersion is returned for XML documents that are neither 1.0 nor 2.0.
	ErrUnsupportedVersion = errors.New("unsupported comment document version")
	// ErrInputType is returned when text is handed to the binary decoder or the reverse.
	ErrInputType = errors.New("input does not match the requested format")

	errUnknownMode = errors.New("unknown comment mode")
	errTooFewField = errors.New("too few fields")
)

// Warning describes one entry that was skipped.
type Warning struct {
	Index int
	Raw   string
	Err   error
}

// Decoded is the outcome of decoding one input.
type Decoded struct {
	Comments []types.Comment
	Warnings []Warning
	// Scripted counts mode 8 entries, which are dropped without a warning.
	Scripted int
}

func (d *Decoded) add(i int, raw string, c types.Comment, err error) {
	switch {
	case err != nil:
		d.Warnings = append(d.Warnings, Warning{Index: i, Raw: raw, Err: err})
	case c.Mode == types.Dropped:
		d.Scripted++
	default:
		d.Comments = append(d.Comments, c)
	}
}

// Log writes every warning to logger.
func (d Decoded) Log(logger *zap.Logger) {
	if logger == nil {
		return
	}
	for _, w := range d.Warnings {
		logger.Warn("invalid comment",
			zap.Int("index", w.Index),
			zap.String("raw", w.Raw),
			zap.Error(w.Err),
		)
	}
}

// ModeCategory maps a platform mode code to a placement category.
func ModeCategory(code int) (types.Category, error) {
	switch code {
	case 1:
		return types.Scroll, nil
	case 4:
		return types.Top, nil
	case 5:
		return types.Bottom, nil
	case 6:
		return types.ScrollReversed, nil
	case 7:
		return types.Positioned, nil
	case 8:
		return types.Dropped, nil
	}
	return 0, errors.Wrapf(errUnknownMode, "mode %d", code)
}

type entry struct {
	timeline  float64
	timestamp int64
	index     int
	mode      int
	size      int
	color     int64
	text      string
}

// build turns the raw fields shared by every encoding into a Comment.
func build(e entry, baseSize float64) (types.Comment, error) {
	cat, err := ModeCategory(e.mode)
	if err != nil {
		return types.Comment{}, err
	}
	c := types.Comment{
		Timeline:  e.timeline,
		Timestamp: e.timestamp,
		Sequence:  e.index,
		Mode:      cat,
		Color:     uint32(e.color) & 0xffffff,
	}
	switch cat {
	case types.Dropped:
		return c, nil
	case types.Positioned:
		c.Text = e.text
		c.FontSize = float64(e.size)
		c.Params = json.RawMessage(e.text)
		return c, nil
	}
	c.Text = strings.ReplaceAll(e.text, "/n", "\n")
	c.FontSize = float64(e.size) * baseSize / 25.0
	lines, longest := Measure(c.Text)
	c.Height = float64(lines) * c.FontSize
	c.Width = float64(longest) * c.FontSize
	return c, nil
}

// Measure returns the line count and the character count of the longest line.
// One character is one unit wide regardless of script.
func Measure(text string) (lines, longest int) {
	for _, ln := range strings.Split(text, "\n") {
		lines++
		if n := utf8.RuneCountInString(ln); n > longest {
			longest = n
		}
	}
	return lines, longest
}
