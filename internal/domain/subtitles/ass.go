package subtitles

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/forPelevin/danmaku2ass/internal/domain/geometry"
	"github.com/forPelevin/danmaku2ass/internal/types"
)

// Style is the per-run rendering configuration shared by every event.
type Style struct {
	ID string

	Width          int
	Height         int
	BottomReserved int

	FontFace string
	FontSize float64
	// Opacity is 0 for invisible and 1 for opaque text.
	Opacity float64

	DurationMarquee float64
	DurationStill   float64
}

// StyleID formats a style name from a random value so that documents from
// independent runs never share a style when concatenated.
func StyleID(n uint32) string { return fmt.Sprintf("Danmaku2ASS_%04x", n&0xffff) }

// Writer accumulates one ASS document.
type Writer struct {
	style  Style
	zoom   geometry.Zoom
	logger *zap.Logger
	b      strings.Builder
}

// NewWriter writes the document header. zooms may be shared between writers.
func NewWriter(style Style, zooms *geometry.ZoomCache, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if zooms == nil {
		zooms = &geometry.ZoomCache{}
	}
	w := &Writer{
		style:  style,
		zoom:   zooms.Get(geometry.ReferencePlayer, geometry.Size{W: float64(style.Width), H: float64(style.Height)}),
		logger: logger,
	}
	w.b.WriteString(assHeader(style))
	return w
}

func (w *Writer) String() string { return w.b.String() }

// Comment writes a scrolling or still comment placed at row.
func (w *Writer) Comment(c types.Comment, row int) {
	s := w.style
	var tags strings.Builder
	duration := s.DurationMarquee
	switch c.Mode {
	case types.Top:
		fmt.Fprintf(&tags, `\an8\pos(%d, %d)`, s.Width/2, row)
		duration = s.DurationStill
	case types.Bottom:
		fmt.Fprintf(&tags, `\an2\pos(%d, %d)`, s.Width/2, s.Height-s.BottomReserved-row)
		duration = s.DurationStill
	case types.ScrollReversed:
		fmt.Fprintf(&tags, `\move(%d, %d, %d, %d)`, -int(math.Ceil(c.Width)), row, s.Width, row)
	default:
		fmt.Fprintf(&tags, `\move(%d, %d, %d, %d)`, s.Width, row, -int(math.Ceil(c.Width)), row)
	}
	if d := c.FontSize - s.FontSize; d <= -1 || d >= 1 {
		fmt.Fprintf(&tags, `\fs%.0f`, c.FontSize)
	}
	w.colorTags(&tags, c.Color)
	fmt.Fprintf(&w.b, "Dialogue: 2,%s,%s,%s,,0000,0000,0000,,{%s}%s\n",
		assTime(c.Timeline), assTime(c.Timeline+duration), s.ID, tags.String(), Escape(c.Text))
}

// Positioned writes an advanced comment. It returns an error when the
// comment parameters are unusable; nothing is written in that case.
func (w *Writer) Positioned(c types.Comment) error {
	s := w.style
	m, err := geometry.ParseMotion(c.Params, w.zoom, geometry.ReferencePlayer)
	if err != nil {
		return err
	}
	from, to, deg := m.Poses(float64(s.Width), float64(s.Height))
	switch deg {
	case geometry.AtCamera:
		w.logger.Warn("rotation places object on the camera plane", zap.Float64("timeline", c.Timeline))
	case geometry.BehindCamera:
		w.logger.Warn("rotation places object behind the camera", zap.Float64("timeline", c.Timeline))
	}

	var tags strings.Builder
	fmt.Fprintf(&tags, `\org(%d, %d)`, s.Width/2, s.Height/2)
	if from.X == to.X && from.Y == to.Y {
		fmt.Fprintf(&tags, `\pos(%.0f, %.0f)`, from.X, from.Y)
	} else {
		fmt.Fprintf(&tags, `\move(%.0f, %.0f, %.0f, %.0f, %d, %d)`,
			from.X, from.Y, to.X, to.Y, m.Delay, m.Delay+m.Duration)
	}
	startRot, endRot := rotation(from), rotation(to)
	tags.WriteString(startRot)
	if m.Moves() && startRot != endRot {
		fmt.Fprintf(&tags, `\t(%d, %d, %s)`, m.Delay, m.Delay+m.Duration, endRot)
	}
	if m.Font != "" {
		fmt.Fprintf(&tags, `\fn%s`, Escape(m.Font))
	}
	fmt.Fprintf(&tags, `\fs%.0f`, c.FontSize*w.zoom.Scale)
	w.colorTags(&tags, c.Color)

	life := m.Lifetime * 1000
	switch {
	case m.FromAlpha == m.ToAlpha:
		fmt.Fprintf(&tags, `\alpha&H%02X`, m.FromAlpha)
	case m.FromAlpha == 255 && m.ToAlpha == 0:
		fmt.Fprintf(&tags, `\fad(%.0f,0)`, life)
	case m.FromAlpha == 0 && m.ToAlpha == 255:
		fmt.Fprintf(&tags, `\fad(0, %.0f)`, life)
	default:
		fmt.Fprintf(&tags, `\fade(%d, %d, %d, 0, %.0f, %.0f, %.0f)`, m.FromAlpha, m.ToAlpha, m.ToAlpha, life, life, life)
	}
	if !m.Border {
		tags.WriteString(`\bord0`)
	}
	fmt.Fprintf(&w.b, "Dialogue: -1,%s,%s,%s,,0,0,0,,{%s}%s\n",
		assTime(c.Timeline), assTime(c.Timeline+m.Lifetime), s.ID, tags.String(), Escape(m.Text))
	return nil
}

func rotation(p geometry.Pose) string {
	return fmt.Sprintf(`\frx%.0f\fry%.0f\frz%.0f\fscx%.0f\fscy%.0f`, p.RotX, p.RotY, p.RotZ, p.ScaleX, p.ScaleY)
}

// colorTags omits the style default white; black text gets a white outline.
func (w *Writer) colorTags(b *strings.Builder, rgb uint32) {
	if rgb == 0xffffff {
		return
	}
	fmt.Fprintf(b, `\c&H%s&`, ConvertColor(rgb, w.style.Width, w.style.Height))
	if rgb == 0x000000 {
		b.WriteString(`\3c&HFFFFFF&`)
	}
}

func assHeader(s Style) string {
	alpha := 255 - int(math.RoundToEven(s.Opacity*255))
	outline := math.Max(s.FontSize/25, 1)
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("; Script generated by danmaku2ass\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", s.Width)
	fmt.Fprintf(&b, "PlayResY: %d\n", s.Height)
	fmt.Fprintf(&b, "Aspect Ratio: %d:%d\n", s.Width, s.Height)
	b.WriteString("Collisions: Normal\n")
	b.WriteString("WrapStyle: 2\n")
	b.WriteString("ScaledBorderAndShadow: yes\n")
	b.WriteString("YCbCr Matrix: TV.601\n")
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: %s, %s, %.0f, &H%02XFFFFFF, &H%02XFFFFFF, &H%02X000000, &H%02X000000, 0, 0, 0, 0, 100, 100, 0.00, 0.00, 1, %.0f, 0, 7, 0, 0, 0, 0\n",
		s.ID, s.FontFace, s.FontSize, alpha, alpha, alpha, alpha, outline)
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	return b.String()
}

// assTime formats seconds as H:MM:SS.CC. Negative times clamp to zero.
func assTime(sec float64) string {
	cs := int64(math.RoundToEven(sec * 100))
	if cs < 0 {
		cs = 0
	}
	h := cs / 360000
	cs -= h * 360000
	m := cs / 6000
	cs -= m * 6000
	s := cs / 100
	cs -= s * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

const figureSpace = "\u2007"

// Escape makes text safe for an ASS event: override braces and backslashes
// are escaped, newlines become \N and edge spaces turn into figure spaces so
// the renderer keeps them.
func Escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "{", `\{`)
	s = strings.ReplaceAll(s, "}", `\}`)
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		ln = keepEdgeSpaces(ln)
		if ln == "" {
			ln = " "
		}
		lines[i] = ln
	}
	return strings.Join(lines, `\N`)
}

func keepEdgeSpaces(s string) string {
	stripped := strings.Trim(s, " ")
	if len(stripped) == len(s) {
		return s
	}
	left := len(s) - len(strings.TrimLeft(s, " "))
	right := len(s) - len(strings.TrimRight(s, " "))
	return strings.Repeat(figureSpace, left) + stripped + strings.Repeat(figureSpace, right)
}
