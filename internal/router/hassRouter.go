package router

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/haefelemesh/haefele2mqtt/internal/configuration"
	"github.com/haefelemesh/haefele2mqtt/internal/db"
	"github.com/haefelemesh/haefele2mqtt/internal/logger"
	"github.com/haefelemesh/haefele2mqtt/internal/mqtt"
	"github.com/haefelemesh/haefele2mqtt/internal/types"
	"github.com/haefelemesh/haefele2mqtt/internal/utils"
)

const (
	hassSetSubtopic   = "set"
	hassStateSubtopic = "state"

	manufacturer = "Häfele"
)

type hassRouter struct {
	mqttClient    mqtt.MqttClient
	configuration *configuration.Configuration
	logger        logger.Logger

	mtx     sync.Mutex
	stopped bool

	onCommandMessage       func(devCmd types.DeviceCommandMessage)
	onSceneActivateMessage func(msg types.SceneActivateMessage)
}

func NewHassRouter(
	config *configuration.Configuration,
	mqttClient mqtt.MqttClient) HassRouter {
	return &hassRouter{
		mqttClient:    mqttClient,
		configuration: config,
		logger:        logger.GetLogger("[Hass Router]", config.LogLevel),
	}
}

func (hr *hassRouter) SubscribeOnCommandMessage(callback func(devCmd types.DeviceCommandMessage)) {
	hr.onCommandMessage = callback
}

func (hr *hassRouter) SubscribeOnSceneActivateMessage(callback func(msg types.SceneActivateMessage)) {
	hr.onSceneActivateMessage = callback
}

func (hr *hassRouter) Start() error {
	filter := fmt.Sprintf("%v/+/+/%v", hr.configuration.HomeAssistantConfiguration.RootTopic, hassSetSubtopic)
	return hr.mqttClient.Subscribe(filter, hr.onMessageReceived)
}

func (hr *hassRouter) Stop() {
	hr.mtx.Lock()
	defer hr.mtx.Unlock()

	hr.stopped = true
}

func (hr *hassRouter) onMessageReceived(topic string, message []byte) {
	hr.mtx.Lock()
	stopped := hr.stopped
	hr.mtx.Unlock()
	if stopped {
		return
	}

	prefix := hr.configuration.HomeAssistantConfiguration.RootTopic + "/"
	if !strings.HasPrefix(topic, prefix) {
		return
	}

	topicParts := strings.Split(strings.TrimPrefix(topic, prefix), "/")
	if len(topicParts) != 3 || topicParts[2] != hassSetSubtopic {
		return
	}

	kind := types.DeviceKind(topicParts[0])
	name := topicParts[1]

	if kind == types.KindScene {
		if hr.onSceneActivateMessage != nil {
			hr.onSceneActivateMessage(types.SceneActivateMessage{Name: name})
		}
		return
	}

	if !kind.Valid() {
		return
	}

	hr.handleLightCommand(kind, name, message)
}

func (hr *hassRouter) handleLightCommand(kind types.DeviceKind, name string, message []byte) {
	var cmd mqtt.HassLightCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		hr.logger.Error("Error unmarshal set message for %v: %v", name, err)
		return
	}

	devCmd := types.DeviceCommandMessage{
		Kind: kind,
		Name: name,
	}

	switch strings.ToUpper(cmd.State) {
	case "ON":
		on := true
		devCmd.Power = &on
	case "OFF":
		off := false
		devCmd.Power = &off
	}

	if cmd.Brightness != nil {
		brightness := utils.BrightnessFromHass(*cmd.Brightness)
		devCmd.Brightness = &brightness
	}

	devCmd.ColorTemp = cmd.ColorTemp

	if cmd.Color != nil {
		hue := cmd.Color.H
		saturation := cmd.Color.S
		devCmd.Hue = &hue
		devCmd.Saturation = &saturation
	}

	if hr.onCommandMessage != nil {
		hr.onCommandMessage(devCmd)
	}
}

// PublishDeviceDiscovery announces a device to Home Assistant with a
// retained discovery config. Lights and groups become light entities,
// scenes become scene entities.
func (hr *hassRouter) PublishDeviceDiscovery(dev db.Device) {
	if dev.Kind == string(types.KindScene) {
		hr.publishSceneDiscovery(dev)
		return
	}

	rootTopic := hr.configuration.HomeAssistantConfiguration.RootTopic

	config := mqtt.HassLightConfig{
		Name:              dev.Name,
		UniqueID:          hr.uniqueID(dev.Kind, dev.Name),
		Schema:            "json",
		StateTopic:        fmt.Sprintf("%v/%v/%v/%v", rootTopic, dev.Kind, dev.Name, hassStateSubtopic),
		CommandTopic:      fmt.Sprintf("%v/%v/%v/%v", rootTopic, dev.Kind, dev.Name, hassSetSubtopic),
		AvailabilityTopic: hr.availabilityTopic(),
		Brightness:        dev.Dimmable,
		Device:            hr.hassDevice(dev),
	}

	switch {
	case dev.SupportsHSL:
		config.SupportedColorModes = []string{"hs"}
	case dev.SupportsCTL:
		config.SupportedColorModes = []string{"color_temp"}
		config.MinMireds = utils.KelvinToMired(maxTemperatureK)
		config.MaxMireds = utils.KelvinToMired(minTemperatureK)
	case dev.Dimmable:
		config.SupportedColorModes = []string{"brightness"}
	default:
		config.SupportedColorModes = []string{"onoff"}
	}

	hr.publishConfig(hr.configTopic(dev.Kind, dev.Name), config)
}

func (hr *hassRouter) publishSceneDiscovery(dev db.Device) {
	rootTopic := hr.configuration.HomeAssistantConfiguration.RootTopic

	config := mqtt.HassSceneConfig{
		Name:              dev.Name,
		UniqueID:          hr.uniqueID(dev.Kind, dev.Name),
		CommandTopic:      fmt.Sprintf("%v/%v/%v/%v", rootTopic, dev.Kind, dev.Name, hassSetSubtopic),
		PayloadOn:         "ON",
		AvailabilityTopic: hr.availabilityTopic(),
		Device:            hr.hassDevice(dev),
	}

	hr.publishConfig(hr.configTopic(dev.Kind, dev.Name), config)
}

// ClearDeviceDiscovery retracts a retained discovery config, used when a
// device re-advertises under a different kind.
func (hr *hassRouter) ClearDeviceDiscovery(kind string, name string) {
	hr.mqttClient.Publish(hr.configTopic(kind, name), []byte{}, true)
}

func (hr *hassRouter) PublishDeviceState(dev db.Device, state types.LightState) {
	rootTopic := hr.configuration.HomeAssistantConfiguration.RootTopic

	payload := mqtt.HassLightState{
		State: "OFF",
	}
	if state.On {
		payload.State = "ON"
	}
	if dev.Dimmable {
		payload.Brightness = utils.BrightnessToHass(state.Brightness)
	}
	if dev.SupportsCTL && state.Temperature > 0 {
		payload.ColorTemp = utils.KelvinToMired(int(state.Temperature))
	}
	if dev.SupportsHSL {
		payload.Color = &mqtt.HassColor{
			H: state.Hue,
			S: utils.ClampFloat(state.Saturation*100.0, 0, 100),
		}
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		hr.logger.Error("Error marshal state for %v: %v", dev.Name, err)
		return
	}

	topic := fmt.Sprintf("%v/%v/%v/%v", rootTopic, dev.Kind, dev.Name, hassStateSubtopic)
	hr.mqttClient.Publish(topic, jsonData, true)
}

func (hr *hassRouter) publishConfig(topic string, config interface{}) {
	jsonData, err := json.Marshal(config)
	if err != nil {
		hr.logger.Error("Error marshal discovery config: %v", err)
		return
	}

	hr.mqttClient.Publish(topic, jsonData, true)
}

// configTopic builds the Home Assistant discovery topic,
// <prefix>/<component>/<node_id>/<object_id>/config.
func (hr *hassRouter) configTopic(kind string, name string) string {
	component := "light"
	if kind == string(types.KindScene) {
		component = "scene"
	}

	return fmt.Sprintf("%v/%v/%v/%v/config",
		hr.configuration.HomeAssistantConfiguration.DiscoveryPrefix,
		component,
		hr.configuration.HomeAssistantConfiguration.RootTopic,
		hr.objectID(kind, name))
}

func (hr *hassRouter) objectID(kind string, name string) string {
	return fmt.Sprintf("%v_%v", kind, utils.Slugify(name))
}

func (hr *hassRouter) uniqueID(kind string, name string) string {
	return fmt.Sprintf("%v_%v", hr.configuration.HomeAssistantConfiguration.RootTopic, hr.objectID(kind, name))
}

func (hr *hassRouter) availabilityTopic() string {
	return fmt.Sprintf("%v/gateway/status", hr.configuration.HomeAssistantConfiguration.RootTopic)
}

func (hr *hassRouter) hassDevice(dev db.Device) mqtt.HassDevice {
	model := dev.Model
	if model == "" {
		model = "Mesh Device"
	}

	return mqtt.HassDevice{
		Identifiers:  []string{hr.uniqueID(dev.Kind, dev.Name)},
		Name:         dev.Name,
		Model:        model,
		Manufacturer: manufacturer,
		ViaDevice:    hr.configuration.HomeAssistantConfiguration.RootTopic,
	}
}
