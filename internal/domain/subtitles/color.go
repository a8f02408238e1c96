package subtitles

import (
	"fmt"
	"math"
)

// ConvertColor turns 0xRRGGBB into the BBGGRR hex used by ASS color tags.
// Low resolution profiles (below 1280x576 on both axes) get a BT.601 to
// BT.709 adjustment.
func ConvertColor(rgb uint32, width, height int) string {
	switch rgb {
	case 0x000000:
		return "000000"
	case 0xffffff:
		return "FFFFFF"
	}
	r := float64(rgb >> 16 & 0xff)
	g := float64(rgb >> 8 & 0xff)
	b := float64(rgb & 0xff)
	if width >= 1280 || height >= 576 {
		return fmt.Sprintf("%02X%02X%02X", int(b), int(g), int(r))
	}
	return fmt.Sprintf("%02X%02X%02X",
		clipByte(r*0.00956384088080656+g*0.03217254540203729+b*0.95826361371715607),
		clipByte(r*-0.10493933142075390+g*1.17231478191855154+b*-0.06737545049779757),
		clipByte(r*0.91348912373987645+g*0.07858536372532510+b*0.00792551253479842),
	)
}

func clipByte(x float64) int {
	switch {
	case x > 255:
		return 255
	case x < 0:
		return 0
	}
	return int(math.RoundToEven(x))
}
