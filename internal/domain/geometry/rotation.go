// Package geometry projects positioned comments authored for the legacy
// flash player onto a 2D subtitle canvas.
package geometry

import "math"

// Pose is a projected placement: translation, rotation around the three
// axes in degrees and percentage scale.
type Pose struct {
	X, Y             float64
	RotX, RotY, RotZ float64
	ScaleX, ScaleY   float64
}

// Degeneracy reports a projection that needed a fallback.
type Degeneracy int

const (
	Regular Degeneracy = iota
	// AtCamera means the object sits on the camera plane; scale was forced to 1.
	AtCamera
	// BehindCamera means the object is behind the camera; the pose was mirrored.
	BehindCamera
)

// fov reproduces the flash player field of view for a canvas of the given width.
func fov(width float64) float64 { return width * math.Tan(2*math.Pi/9) / 2 }

// WrapAngle normalizes deg into (-180, 180].
func WrapAngle(deg float64) float64 {
	m := math.Mod(180-deg, 360)
	if m < 0 {
		m += 360
	}
	return 180 - m
}

// FlashRotation converts a Y-then-Z flash rotation of the point (x, y) into a
// pose a 2D renderer can express with \frx \fry \frz and \fscx \fscy.
func FlashRotation(rotY, rotZ, x, y, width, height float64) (Pose, Degeneracy) {
	rotY = WrapAngle(rotY)
	rotZ = WrapAngle(rotZ)
	if rotY == 90 || rotY == -90 {
		rotY -= 1
	}

	var outX, outY, outZ float64
	if rotY == 0 || rotZ == 0 {
		outX = 0
		outY = -rotY
		outZ = -rotZ
		rotY = rotY * math.Pi / 180
		rotZ = rotZ * math.Pi / 180
	} else {
		rotY = rotY * math.Pi / 180
		rotZ = rotZ * math.Pi / 180
		outY = math.Atan2(-math.Sin(rotY)*math.Cos(rotZ), math.Cos(rotY)) * 180 / math.Pi
		outZ = math.Atan2(-math.Cos(rotY)*math.Sin(rotZ), math.Cos(rotZ)) * 180 / math.Pi
		outX = math.Asin(math.Sin(rotY)*math.Sin(rotZ)) * 180 / math.Pi
	}

	sinY, cosY := math.Sin(rotY), math.Cos(rotY)
	sinZ, cosZ := math.Sin(rotZ), math.Cos(rotZ)
	trX := (x*cosZ+y*sinZ)/cosY + (1-cosZ/cosY)*width/2 - sinZ/cosY*height/2
	trY := y*cosZ - x*sinZ + sinZ*width/2 + (1-cosZ)*height/2
	trZ := (trX - width/2) * sinY

	deg := Regular
	f := fov(width)
	scale := 1.0
	if f+trZ == 0 {
		deg = AtCamera
	} else {
		scale = f / (f + trZ)
	}
	if scale != 1 {
		trX = (trX-width/2)*scale + width/2
		trY = (trY-height/2)*scale + height/2
	}
	if scale < 0 {
		scale = -scale
		outX += 180
		outY += 180
		deg = BehindCamera
	}
	return Pose{
		X:      trX,
		Y:      trY,
		RotX:   WrapAngle(outX),
		RotY:   WrapAngle(outY),
		RotZ:   WrapAngle(outZ),
		ScaleX: scale * 100,
		ScaleY: scale * 100,
	}, deg
}
