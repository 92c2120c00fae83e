package router

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/haefelemesh/haefele2mqtt/internal/db"
	"github.com/haefelemesh/haefele2mqtt/internal/mqtt"
	"github.com/haefelemesh/haefele2mqtt/internal/types"
)

func newTestHassRouter(t *testing.T) (HassRouter, *mockMqttClient) {
	t.Helper()

	cfg := testConfiguration()
	mockClient := newMockMqttClient()
	hr := NewHassRouter(&cfg, mockClient)
	assert.NoError(t, hr.Start())

	return hr, mockClient
}

func TestPublishLightDiscovery(t *testing.T) {
	hr, mockClient := newTestHassRouter(t)

	hr.PublishDeviceDiscovery(db.Device{
		Name:        "Kitchen",
		Kind:        "lights",
		Model:       "Loox5 LED multi-white",
		Dimmable:    true,
		SupportsCTL: true,
	})

	published := mockClient.publishedTo("homeassistant/light/haefele2mqtt/lights_kitchen/config")
	assert.Equal(t, 1, len(published))
	assert.True(t, published[0].Retain)

	var config mqtt.HassLightConfig
	assert.NoError(t, json.Unmarshal(published[0].Payload, &config))
	assert.Equal(t, "Kitchen", config.Name)
	assert.Equal(t, "haefele2mqtt_lights_kitchen", config.UniqueID)
	assert.Equal(t, "json", config.Schema)
	assert.Equal(t, "haefele2mqtt/lights/Kitchen/state", config.StateTopic)
	assert.Equal(t, "haefele2mqtt/lights/Kitchen/set", config.CommandTopic)
	assert.Equal(t, "haefele2mqtt/gateway/status", config.AvailabilityTopic)
	assert.True(t, config.Brightness)
	assert.Equal(t, []string{"color_temp"}, config.SupportedColorModes)
	assert.Equal(t, 50, config.MinMireds)   // 20000K
	assert.Equal(t, 1250, config.MaxMireds) // 800K
	assert.Equal(t, "Häfele", config.Device.Manufacturer)
	assert.Equal(t, "Loox5 LED multi-white", config.Device.Model)
}

func TestPublishGroupDiscoveryAsLight(t *testing.T) {
	hr, mockClient := newTestHassRouter(t)

	hr.PublishDeviceDiscovery(db.Device{
		Name:     "Living Room",
		Kind:     "groups",
		Dimmable: true,
	})

	published := mockClient.publishedTo("homeassistant/light/haefele2mqtt/groups_living_room/config")
	assert.Equal(t, 1, len(published))

	var config mqtt.HassLightConfig
	assert.NoError(t, json.Unmarshal(published[0].Payload, &config))
	assert.Equal(t, []string{"brightness"}, config.SupportedColorModes)
	assert.Equal(t, "Mesh Device", config.Device.Model)
}

func TestPublishSceneDiscovery(t *testing.T) {
	hr, mockClient := newTestHassRouter(t)

	hr.PublishDeviceDiscovery(db.Device{
		Name: "Evening",
		Kind: "scenes",
	})

	published := mockClient.publishedTo("homeassistant/scene/haefele2mqtt/scenes_evening/config")
	assert.Equal(t, 1, len(published))
	assert.True(t, published[0].Retain)

	var config mqtt.HassSceneConfig
	assert.NoError(t, json.Unmarshal(published[0].Payload, &config))
	assert.Equal(t, "Evening", config.Name)
	assert.Equal(t, "haefele2mqtt/scenes/Evening/set", config.CommandTopic)
	assert.Equal(t, "ON", config.PayloadOn)
}

func TestClearDeviceDiscovery(t *testing.T) {
	hr, mockClient := newTestHassRouter(t)

	hr.ClearDeviceDiscovery("lights", "Pantry")

	published := mockClient.publishedTo("homeassistant/light/haefele2mqtt/lights_pantry/config")
	assert.Equal(t, 1, len(published))
	assert.True(t, published[0].Retain)
	assert.Equal(t, 0, len(published[0].Payload))
}

func TestPublishDeviceState(t *testing.T) {
	hr, mockClient := newTestHassRouter(t)

	hr.PublishDeviceState(
		db.Device{Name: "Kitchen", Kind: "lights", Dimmable: true},
		types.LightState{On: true, Brightness: 80},
	)

	published := mockClient.publishedTo("haefele2mqtt/lights/Kitchen/state")
	assert.Equal(t, 1, len(published))

	var state mqtt.HassLightState
	assert.NoError(t, json.Unmarshal(published[0].Payload, &state))
	assert.Equal(t, "ON", state.State)
	assert.Equal(t, 204, state.Brightness)
	assert.Nil(t, state.Color)
	assert.Equal(t, 0, state.ColorTemp)
}

func TestPublishDeviceStateColor(t *testing.T) {
	hr, mockClient := newTestHassRouter(t)

	hr.PublishDeviceState(
		db.Device{Name: "Strip", Kind: "lights", Dimmable: true, SupportsHSL: true},
		types.LightState{On: true, Brightness: 100, Hue: 240, Saturation: 0.5},
	)

	published := mockClient.publishedTo("haefele2mqtt/lights/Strip/state")
	assert.Equal(t, 1, len(published))

	var state mqtt.HassLightState
	assert.NoError(t, json.Unmarshal(published[0].Payload, &state))
	assert.NotNil(t, state.Color)
	assert.Equal(t, float64(240), state.Color.H)
	assert.Equal(t, float64(50), state.Color.S)
}

func TestSetCommandParsed(t *testing.T) {
	hr, mockClient := newTestHassRouter(t)

	var commands []types.DeviceCommandMessage
	hr.SubscribeOnCommandMessage(func(devCmd types.DeviceCommandMessage) {
		commands = append(commands, devCmd)
	})

	mockClient.inject("haefele2mqtt/lights/Kitchen/set", []byte(`{"state":"ON","brightness":204}`))

	assert.Equal(t, 1, len(commands))
	assert.Equal(t, types.KindLight, commands[0].Kind)
	assert.Equal(t, "Kitchen", commands[0].Name)
	assert.NotNil(t, commands[0].Power)
	assert.True(t, *commands[0].Power)
	assert.NotNil(t, commands[0].Brightness)
	assert.InDelta(t, 80, *commands[0].Brightness, 0.1)
	assert.Nil(t, commands[0].ColorTemp)
	assert.Nil(t, commands[0].Hue)
}

func TestSetCommandColor(t *testing.T) {
	hr, mockClient := newTestHassRouter(t)

	var commands []types.DeviceCommandMessage
	hr.SubscribeOnCommandMessage(func(devCmd types.DeviceCommandMessage) {
		commands = append(commands, devCmd)
	})

	mockClient.inject("haefele2mqtt/groups/Living Room/set", []byte(`{"state":"ON","color":{"h":120,"s":50}}`))

	assert.Equal(t, 1, len(commands))
	assert.Equal(t, types.KindGroup, commands[0].Kind)
	assert.NotNil(t, commands[0].Hue)
	assert.Equal(t, float64(120), *commands[0].Hue)
	assert.Equal(t, float64(50), *commands[0].Saturation)
}

func TestSetCommandMalformedDropped(t *testing.T) {
	hr, mockClient := newTestHassRouter(t)

	var commands []types.DeviceCommandMessage
	hr.SubscribeOnCommandMessage(func(devCmd types.DeviceCommandMessage) {
		commands = append(commands, devCmd)
	})

	mockClient.inject("haefele2mqtt/lights/Kitchen/set", []byte(`{broken`))

	assert.Equal(t, 0, len(commands))
}

func TestSceneSetActivates(t *testing.T) {
	hr, mockClient := newTestHassRouter(t)

	var activations []types.SceneActivateMessage
	hr.SubscribeOnSceneActivateMessage(func(msg types.SceneActivateMessage) {
		activations = append(activations, msg)
	})

	mockClient.inject("haefele2mqtt/scenes/Evening/set", []byte(`ON`))

	assert.Equal(t, 1, len(activations))
	assert.Equal(t, "Evening", activations[0].Name)
}

func TestStopSuppressesCommands(t *testing.T) {
	hr, mockClient := newTestHassRouter(t)

	var commands []types.DeviceCommandMessage
	hr.SubscribeOnCommandMessage(func(devCmd types.DeviceCommandMessage) {
		commands = append(commands, devCmd)
	})

	hr.Stop()

	mockClient.inject("haefele2mqtt/lights/Kitchen/set", []byte(`{"state":"ON"}`))
	assert.Equal(t, 0, len(commands))
}
