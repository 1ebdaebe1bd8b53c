package infusion

import "math"

// Color-temperature bounds of the supported fixtures. Levels map
// linearly onto this range for discrete color-control loads.
const (
	minKelvin = 2200
	maxKelvin = 6000
)

// kelvinToLevel maps a color temperature onto the 0-100 level scale of
// a discrete color-control load. Out-of-range input clamps.
func kelvinToLevel(kelvin int) float64 {
	if kelvin < minKelvin {
		return 0
	}
	if kelvin > maxKelvin {
		return 100
	}
	return float64(kelvin-minKelvin) / float64(maxKelvin-minKelvin) * 100
}

// levelToKelvin is the inverse of kelvinToLevel.
func levelToKelvin(level float64) int {
	if level < 0 {
		return minKelvin
	}
	if level > 100 {
		return maxKelvin
	}
	return int(float64(maxKelvin-minKelvin)*level/100) + minKelvin
}

// kelvinToRGB approximates a color temperature as an RGB triple on the
// 0-255 scale, for fixtures that express white points through their
// color channels. Valid for roughly 1000K-40000K.
func kelvinToRGB(kelvin int) (r, g, b int) {
	t := float64(kelvin) / 100

	if t <= 66 {
		r = 255
	} else {
		r = clamp255(329.698727446 * math.Pow(t-60, -0.1332047592))
	}

	if t <= 66 {
		g = clamp255(99.4708025861*math.Log(t) - 161.1195681661)
	} else {
		g = clamp255(288.1221695283 * math.Pow(t-60, -0.0755148492))
	}

	switch {
	case t >= 66:
		b = 255
	case t <= 19:
		b = 0
	default:
		b = clamp255(138.5177312231*math.Log(t-10) - 305.0447927307)
	}

	return r, g, b
}

// hsToRGB converts hue (0-360) and saturation (0-100) at full value to
// an RGB triple on the 0-255 scale.
func hsToRGB(hue, sat float64) (r, g, b int) {
	h := math.Mod(hue, 360) / 60
	s := sat / 100
	c := s
	x := c * (1 - math.Abs(math.Mod(h, 2)-1))
	m := 1 - c

	var rf, gf, bf float64
	switch int(h) {
	case 0:
		rf, gf, bf = c, x, 0
	case 1:
		rf, gf, bf = x, c, 0
	case 2:
		rf, gf, bf = 0, c, x
	case 3:
		rf, gf, bf = 0, x, c
	case 4:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}

	return clamp255((rf + m) * 255), clamp255((gf + m) * 255), clamp255((bf + m) * 255)
}

// rgbToHS converts an RGB triple (0-255) to hue (0-360) and saturation
// (0-100), discarding value.
func rgbToHS(r, g, b int) (hue, sat float64) {
	rf := float64(r) / 255
	gf := float64(g) / 255
	bf := float64(b) / 255

	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	delta := maxC - minC

	if delta == 0 {
		return 0, 0
	}

	switch maxC {
	case rf:
		hue = 60 * math.Mod((gf-bf)/delta, 6)
	case gf:
		hue = 60 * ((bf-rf)/delta + 2)
	default:
		hue = 60 * ((rf-gf)/delta + 4)
	}
	if hue < 0 {
		hue += 360
	}

	if maxC > 0 {
		sat = delta / maxC * 100
	}
	return hue, sat
}

func clamp255(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return int(v)
}
