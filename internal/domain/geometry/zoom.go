package geometry

import "sync"

// ReferencePlayer is the canvas positioned comments were authored against.
var ReferencePlayer = Size{W: 891, H: 589}

type Size struct {
	W, H float64
}

// Zoom maps source canvas coordinates onto the target, letterboxed on the
// shorter axis.
type Zoom struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// ZoomFactor fits src into dst keeping its aspect ratio.
func ZoomFactor(src, dst Size) Zoom {
	if src.W == 0 || src.H == 0 || dst.W == 0 || dst.H == 0 {
		return Zoom{Scale: 1}
	}
	srcAspect := src.W / src.H
	dstAspect := dst.W / dst.H
	switch {
	case dstAspect < srcAspect:
		return Zoom{Scale: dst.W / src.W, OffsetY: (dst.H - dst.W/srcAspect) / 2}
	case dstAspect > srcAspect:
		return Zoom{Scale: dst.H / src.H, OffsetX: (dst.W - dst.H*srcAspect) / 2}
	}
	return Zoom{Scale: dst.W / src.W}
}

// Map converts a source point into target coordinates.
func (z Zoom) Map(x, y float64) (float64, float64) {
	return z.Scale*x + z.OffsetX, z.Scale*y + z.OffsetY
}

// Unmap is the inverse of Map.
func (z Zoom) Unmap(x, y float64) (float64, float64) {
	return (x - z.OffsetX) / z.Scale, (y - z.OffsetY) / z.Scale
}

// ZoomCache memoizes ZoomFactor per size pair. Concurrent misses may compute
// the same value twice, which is harmless.
type ZoomCache struct {
	m sync.Map
}

type zoomKey struct{ src, dst Size }

func (c *ZoomCache) Get(src, dst Size) Zoom {
	k := zoomKey{src, dst}
	if z, ok := c.m.Load(k); ok {
		return z.(Zoom)
	}
	z := ZoomFactor(src, dst)
	c.m.Store(k, z)
	return z
}
