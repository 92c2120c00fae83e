package types

// DeviceKind matches the kind segment the gateway uses in its topics.
type DeviceKind string

const (
	KindLight DeviceKind = "lights"
	KindGroup DeviceKind = "groups"
	KindScene DeviceKind = "scenes"
)

func (k DeviceKind) Valid() bool {
	return k == KindLight || k == KindGroup || k == KindScene
}

// LightState is the last known state of a light or group.
// Brightness is normalized to 0..100, Temperature is in Kelvin,
// Hue is 0..360, Saturation 0..1 (gateway scale).
type LightState struct {
	On          bool
	Brightness  float64
	Temperature float64
	Hue         float64
	Saturation  float64
}

// DeviceCommandMessage is a control request for a light or group.
// Nil fields were not requested. Brightness is 0..100, ColorTemp is in
// mireds and Saturation 0..100 (both Home Assistant scale).
type DeviceCommandMessage struct {
	Kind       DeviceKind
	Name       string
	Power      *bool
	Brightness *float64
	ColorTemp  *int
	Hue        *float64
	Saturation *float64
}

type SceneActivateMessage struct {
	Name string
}
