package mqtt

// Wire types for the gateway side of the bridge. Field names and scales
// follow the Häfele Connect gateway protocol: lightness and saturation
// are 0..1, hue is 0..360, temperature is in Kelvin.

type DeviceAdvertisement struct {
	Name  string `json:"name"`
	Model string `json:"model"`

	// capability flags, the gateway firmware has used both spellings
	Dimmable                 *bool `json:"dimmable"`
	SupportsColorTemperature bool  `json:"supportsColorTemperature"`
	SupportsCTL              bool  `json:"supports_ctl"`
	SupportsColor            bool  `json:"supportsColor"`
	SupportsHSL              bool  `json:"supports_hsl"`
}

// DeviceStatus is a partial state report. OnOff is either a JSON bool or
// the strings "on"/"off" depending on firmware version; newer firmware
// reports "on" and "brightness" (0..100) instead.
type DeviceStatus struct {
	OnOff       interface{} `json:"onOff"`
	On          *bool       `json:"on"`
	Lightness   *float64    `json:"lightness"`
	Brightness  *float64    `json:"brightness"`
	Temperature *float64    `json:"temperature"`
	Hue         *float64    `json:"hue"`
	Saturation  *float64    `json:"saturation"`
}

type PowerMessage struct {
	OnOff string `json:"onOff"`
}

type LightnessMessage struct {
	Lightness float64 `json:"lightness"`
}

type HSLMessage struct {
	Hue        int     `json:"hue"`
	Saturation float64 `json:"saturation"`
	Lightness  float64 `json:"lightness"`
}

type CTLMessage struct {
	Temperature int     `json:"temperature"`
	Lightness   float64 `json:"lightness"`
}

// Home Assistant side. Discovery configs use the documented abbreviated
// keys, state and command payloads follow the light JSON schema.

type HassDevice struct {
	Identifiers  []string `json:"ids"`
	Name         string   `json:"name"`
	Model        string   `json:"mdl,omitempty"`
	Manufacturer string   `json:"mf"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

type HassLightConfig struct {
	Name                string     `json:"name"`
	UniqueID            string     `json:"uniq_id"`
	Schema              string     `json:"schema"`
	StateTopic          string     `json:"stat_t"`
	CommandTopic        string     `json:"cmd_t"`
	AvailabilityTopic   string     `json:"avty_t"`
	Brightness          bool       `json:"brightness"`
	SupportedColorModes []string   `json:"sup_clrm,omitempty"`
	MinMireds           int        `json:"min_mirs,omitempty"`
	MaxMireds           int        `json:"max_mirs,omitempty"`
	Device              HassDevice `json:"dev"`
}

type HassSceneConfig struct {
	Name              string     `json:"name"`
	UniqueID          string     `json:"uniq_id"`
	CommandTopic      string     `json:"cmd_t"`
	PayloadOn         string     `json:"pl_on"`
	AvailabilityTopic string     `json:"avty_t"`
	Device            HassDevice `json:"dev"`
}

type HassColor struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
}

type HassLightState struct {
	State      string     `json:"state"`
	Brightness int        `json:"brightness,omitempty"`
	ColorTemp  int        `json:"color_temp,omitempty"`
	Color      *HassColor `json:"color,omitempty"`
}

type HassLightCommand struct {
	State      string     `json:"state"`
	Brightness *int       `json:"brightness"`
	ColorTemp  *int       `json:"color_temp"`
	Color      *HassColor `json:"color"`
}
