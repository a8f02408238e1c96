package usecase

import (
	"context"
	"math/rand"
	"sort"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/forPelevin/danmaku2ass/internal/domain/comments"
	"github.com/forPelevin/danmaku2ass/internal/domain/filter"
	"github.com/forPelevin/danmaku2ass/internal/domain/geometry"
	"github.com/forPelevin/danmaku2ass/internal/domain/layout"
	"github.com/forPelevin/danmaku2ass/internal/domain/subtitles"
	"github.com/forPelevin/danmaku2ass/internal/types"
)

type Format string

const (
	FormatXML      Format = "xml"
	FormatProtobuf Format = "protobuf"
)

// ProgressEvery is how many comments pass between progress callbacks.
const ProgressEvery = 1000

type Deps struct {
	Logger *zap.Logger
	// Zooms may be shared between concurrent conversions.
	Zooms *geometry.ZoomCache
	// Rand seeds the style name. Defaults to math/rand.
	Rand func() uint32
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Zooms == nil {
		d.Zooms = &geometry.ZoomCache{}
	}
	if d.Rand == nil {
		d.Rand = rand.Uint32
	}
	return Usecase{d: d}
}

type Input struct {
	// Sources are raw documents, all in Format. Binary segments may also be
	// concatenated into one source.
	Sources [][]byte
	Format  Format

	Width  int
	Height int
	// DisplayRegionRatio is the share of the stage height comments may use.
	DisplayRegionRatio float64

	FontFace string
	FontSize float64
	Opacity  float64

	DurationMarquee float64
	DurationStill   float64

	// Patterns are regular expressions; matching comments are dropped.
	Patterns []string
	Block    filter.Options
	Reduce   bool

	Progress func(done, total int)
}

type Result struct {
	Document string
	StyleID  string
	Stats    types.Stats
}

// Convert renders every source into one ASS document.
func (u Usecase) Convert(ctx context.Context, in Input) (Result, error) {
	f, err := filter.New(in.Block.Merge(filter.Options{Keywords: in.Patterns}))
	if err != nil {
		return Result{}, err
	}

	var stats types.Stats
	all, err := u.decode(in, &stats)
	if err != nil {
		return Result{}, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Timeline != b.Timeline {
			return a.Timeline < b.Timeline
		}
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return a.Sequence < b.Sequence
	})
	all, stats.Blocked = f.Apply(all)

	ratio := in.DisplayRegionRatio
	if ratio <= 0 {
		ratio = 1
	}
	reserved := int((1 - ratio) * float64(in.Height))
	style := subtitles.Style{
		ID:              subtitles.StyleID(u.d.Rand()),
		Width:           in.Width,
		Height:          in.Height,
		BottomReserved:  reserved,
		FontFace:        in.FontFace,
		FontSize:        in.FontSize,
		Opacity:         in.Opacity,
		DurationMarquee: in.DurationMarquee,
		DurationStill:   in.DurationStill,
	}
	grid := layout.New(layout.Config{
		Width:           in.Width,
		Height:          in.Height,
		BottomReserved:  reserved,
		DurationMarquee: in.DurationMarquee,
		DurationStill:   in.DurationStill,
		Reduce:          in.Reduce,
	})
	w := subtitles.NewWriter(style, u.d.Zooms, u.d.Logger)

	total := len(all)
	for i, c := range all {
		if i%ProgressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			if in.Progress != nil {
				in.Progress(i, total)
			}
		}
		switch {
		case c.Mode == types.Positioned:
			if err := w.Positioned(c); err != nil {
				stats.PositionedInvalid++
				u.d.Logger.Warn("invalid positioned comment",
					zap.Float64("timeline", c.Timeline),
					zap.String("raw", c.Text),
					zap.Error(err),
				)
				continue
			}
			stats.Positioned++
		case c.Mode.Laned():
			p, ok := grid.Place(c)
			if !ok {
				stats.Reduced++
				continue
			}
			w.Comment(c, p.Row)
			stats.Placed++
			if p.Forced {
				stats.Forced++
			}
		}
	}
	if in.Progress != nil {
		in.Progress(total, total)
	}
	return Result{Document: w.String(), StyleID: style.ID, Stats: stats}, nil
}

// decode merges all sources into one list numbered in concatenation order.
func (u Usecase) decode(in Input, stats *types.Stats) ([]types.Comment, error) {
	var all []types.Comment
	for i, src := range in.Sources {
		var (
			d   comments.Decoded
			err error
		)
		switch in.Format {
		case FormatXML:
			d, err = comments.DecodeXML(src, in.FontSize)
		case FormatProtobuf:
			d, err = comments.DecodeBinary(src, in.FontSize)
		default:
			return nil, errors.Newf("unknown input format %q", in.Format)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "input %d", i+1)
		}
		d.Log(u.d.Logger)
		stats.Invalid += len(d.Warnings)
		for _, c := range d.Comments {
			c.Sequence = len(all)
			all = append(all, c)
		}
	}
	stats.Decoded = len(all)
	return all, nil
}
