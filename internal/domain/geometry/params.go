package geometry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidParams marks a positioned comment whose parameters cannot be used.
var ErrInvalidParams = errors.New("invalid positioned comment parameters")

const defaultLifetime = 4500

// Motion is a positioned comment resolved onto the output canvas.
type Motion struct {
	Text string

	FromX, FromY float64
	ToX, ToY     float64

	// Alpha values are ASS transparency, 0 opaque and 255 invisible.
	FromAlpha, ToAlpha int

	RotateY, RotateZ int

	// Lifetime is in seconds; Duration and Delay are milliseconds.
	Lifetime float64
	Duration int
	Delay    int

	Font   string
	Border bool
}

// Moves reports whether start and end positions differ.
func (m Motion) Moves() bool { return m.FromX != m.ToX || m.FromY != m.ToY }

// Poses projects the start and end positions under the motion's rotation.
func (m Motion) Poses(width, height float64) (from, to Pose, deg Degeneracy) {
	from, d1 := FlashRotation(float64(m.RotateY), float64(m.RotateZ), m.FromX, m.FromY, width, height)
	to, d2 := FlashRotation(float64(m.RotateY), float64(m.RotateZ), m.ToX, m.ToY, width, height)
	return from, to, max(d1, d2)
}

func getOr[T any](arr []T, i int, def T) T {
	if i < 0 || i >= len(arr) {
		return def
	}
	return arr[i]
}

// ParseMotion decodes the JSON parameter array of a positioned comment:
//
//	0,1 from x/y   2 alpha "from[-to]"   3 lifetime s   4 text
//	5,6 rotate z/y 7,8 to x/y   9 duration ms   10 delay ms
//	11 border "true"/"false"   12 font
func ParseMotion(raw []byte, zoom Zoom, ref Size) (Motion, error) {
	var args []any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return Motion{}, errors.Mark(errors.Wrap(err, "decode parameters"), ErrInvalidParams)
	}
	m, err := parseArgs(args, zoom, ref)
	if err != nil {
		return Motion{}, errors.Mark(err, ErrInvalidParams)
	}
	return m, nil
}

func parseArgs(args []any, zoom Zoom, ref Size) (m Motion, err error) {
	if len(args) <= 4 {
		return m, errors.Newf("text missing: %d parameters", len(args))
	}
	text, err := toString(args[4])
	if err != nil {
		return m, errors.Wrap(err, "text")
	}
	m.Text = strings.ReplaceAll(text, "/n", "\n")

	zero := any(json.Number("0"))
	fromX := getOr(args, 0, zero)
	fromY := getOr(args, 1, zero)
	toX := getOr(args, 7, fromX)
	toY := getOr(args, 8, fromY)
	if m.FromX, err = position(fromX, zoom, ref.W, zoom.OffsetX); err != nil {
		return m, errors.Wrap(err, "from x")
	}
	if m.FromY, err = position(fromY, zoom, ref.H, zoom.OffsetY); err != nil {
		return m, errors.Wrap(err, "from y")
	}
	if m.ToX, err = position(toX, zoom, ref.W, zoom.OffsetX); err != nil {
		return m, errors.Wrap(err, "to x")
	}
	if m.ToY, err = position(toY, zoom, ref.H, zoom.OffsetY); err != nil {
		return m, errors.Wrap(err, "to y")
	}

	alphaSpec, err := toString(getOr(args, 2, any("1")))
	if err != nil {
		return m, errors.Wrap(err, "alpha")
	}
	if m.FromAlpha, m.ToAlpha, err = parseAlpha(alphaSpec); err != nil {
		return m, err
	}

	if m.RotateZ, err = toInt(getOr(args, 5, zero)); err != nil {
		return m, errors.Wrap(err, "rotate z")
	}
	if m.RotateY, err = toInt(getOr(args, 6, zero)); err != nil {
		return m, errors.Wrap(err, "rotate y")
	}
	if m.Lifetime, err = toFloat(getOr(args, 3, any(json.Number(strconv.Itoa(defaultLifetime))))); err != nil {
		return m, errors.Wrap(err, "lifetime")
	}
	m.Duration = int(m.Lifetime * 1000)
	if len(args) > 9 {
		if m.Duration, err = toInt(args[9]); err != nil {
			return m, errors.Wrap(err, "duration")
		}
	}
	if m.Delay, err = toInt(getOr(args, 10, zero)); err != nil {
		return m, errors.Wrap(err, "delay")
	}

	m.Border = true
	switch v := getOr(args, 11, any("true")).(type) {
	case string:
		m.Border = v != "false"
	case bool:
		m.Border = v
	}
	if font, ok := getOr(args, 12, nil).(string); ok {
		m.Font = font
	}
	return m, nil
}

// position maps one coordinate. Integers are reference pixels, floats up to 1
// are fractions of the reference canvas and larger floats are pixels.
func position(v any, zoom Zoom, refDim, offset float64) (float64, error) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, errors.Newf("unsupported coordinate %v", v)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return zoom.Scale*float64(i) + offset, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "coordinate %q", s)
	}
	if f > 1 {
		return zoom.Scale*f + offset, nil
	}
	return refDim*zoom.Scale*f + offset, nil
}

func parseAlpha(spec string) (from, to int, err error) {
	parts := strings.Split(spec, "-")
	fa, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "alpha %q", spec)
	}
	ta := fa
	if len(parts) > 1 {
		if ta, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
			return 0, 0, errors.Wrapf(err, "alpha %q", spec)
		}
	}
	return 255 - int(math.RoundToEven(fa*255)), 255 - int(math.RoundToEven(ta*255)), nil
}

func toString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return fmt.Sprint(t), nil
	}
	return "", errors.Newf("unsupported value %v", v)
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return 0, err
		}
		return int(f), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(t))
	}
	return 0, errors.Newf("unsupported integer %v", v)
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	}
	return 0, errors.Newf("unsupported number %v", v)
}
