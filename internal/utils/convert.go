package utils

import "strings"

// Scale conversions between the three brightness/color representations in
// play: gateway lightness 0..1, normalized brightness 0..100 and the
// Home Assistant 0..255 byte.

func ClampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func ClampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// BrightnessToHass converts normalized brightness (0..100) to 0..255.
func BrightnessToHass(percent float64) int {
	return ClampInt(int(ClampFloat(percent, 0, 100)*255.0/100.0+0.5), 0, 255)
}

// BrightnessFromHass converts a Home Assistant brightness byte to 0..100.
func BrightnessFromHass(brightness int) float64 {
	return ClampFloat(float64(brightness)*100.0/255.0, 0, 100)
}

// LightnessFromBrightness converts normalized brightness (0..100) to the
// gateway lightness scale 0..1.
func LightnessFromBrightness(percent float64) float64 {
	return ClampFloat(percent/100.0, 0, 1)
}

// BrightnessFromLightness converts gateway lightness (0..1) to 0..100.
func BrightnessFromLightness(lightness float64) float64 {
	return ClampFloat(lightness*100.0, 0, 100)
}

func KelvinToMired(kelvin int) int {
	if kelvin <= 0 {
		return 0
	}
	return 1000000 / kelvin
}

func MiredToKelvin(mired int) int {
	if mired <= 0 {
		return 0
	}
	return 1000000 / mired
}

// ParseOnOff understands the two onOff encodings the gateway emits,
// a JSON bool or the strings "on"/"off".
func ParseOnOff(value interface{}) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		return strings.EqualFold(v, "on"), true
	}
	return false, false
}

// Slugify lowers a device name to a Home Assistant object id.
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
