// Package filter drops comments matching block rules before layout.
package filter

import (
	"regexp"

	"github.com/cockroachdb/errors"

	"github.com/forPelevin/danmaku2ass/internal/types"
)

// ErrInvalidPattern is returned when a keyword pattern does not compile.
var ErrInvalidPattern = errors.New("invalid filter pattern")

// Options selects what gets blocked.
type Options struct {
	Top      bool     `yaml:"top"`
	Bottom   bool     `yaml:"bottom"`
	Scroll   bool     `yaml:"scroll"`
	Reverse  bool     `yaml:"reverse"`
	Special  bool     `yaml:"special"`
	Colorful bool     `yaml:"colorful"`
	Keywords []string `yaml:"keywords"`
}

// Merge ORs the category flags and concatenates the keyword lists.
func (o Options) Merge(other Options) Options {
	return Options{
		Top:      o.Top || other.Top,
		Bottom:   o.Bottom || other.Bottom,
		Scroll:   o.Scroll || other.Scroll,
		Reverse:  o.Reverse || other.Reverse,
		Special:  o.Special || other.Special,
		Colorful: o.Colorful || other.Colorful,
		Keywords: append(append([]string(nil), o.Keywords...), other.Keywords...),
	}
}

type Filter struct {
	opts     Options
	patterns []*regexp.Regexp
}

// New compiles every keyword pattern. Empty patterns are ignored.
func New(opts Options) (*Filter, error) {
	f := &Filter{opts: opts}
	for _, k := range opts.Keywords {
		if k == "" {
			continue
		}
		re, err := regexp.Compile(k)
		if err != nil {
			return nil, errors.Wrapf(errors.Mark(err, ErrInvalidPattern), "invalid filter pattern %q", k)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// Blocked reports whether c matches any rule.
func (f *Filter) Blocked(c types.Comment) bool {
	switch {
	case f.opts.Top && c.Mode == types.Top,
		f.opts.Bottom && c.Mode == types.Bottom,
		f.opts.Scroll && c.Mode == types.Scroll,
		f.opts.Reverse && c.Mode == types.ScrollReversed,
		f.opts.Special && c.Mode == types.Positioned:
		return true
	case f.opts.Colorful && c.Color != 0xffffff && c.Color != 0x000000:
		return true
	}
	for _, re := range f.patterns {
		if re.MatchString(c.Text) {
			return true
		}
	}
	return false
}

// Apply returns the comments that pass, preserving order, and how many were blocked.
func (f *Filter) Apply(cs []types.Comment) ([]types.Comment, int) {
	out := make([]types.Comment, 0, len(cs))
	for _, c := range cs {
		if f.Blocked(c) {
			continue
		}
		out = append(out, c)
	}
	return out, len(cs) - len(out)
}
