package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/haefelemesh/haefele2mqtt/internal/configuration"
	"github.com/haefelemesh/haefele2mqtt/internal/db"
	"github.com/haefelemesh/haefele2mqtt/internal/logger"
	"github.com/haefelemesh/haefele2mqtt/internal/meshdef"
	"github.com/haefelemesh/haefele2mqtt/internal/mqtt"
	"github.com/haefelemesh/haefele2mqtt/internal/types"
	"github.com/haefelemesh/haefele2mqtt/internal/utils"
)

const (
	gatewayStatusSubtopic = "status"
	gatewayRecallScene    = "recallScene"

	// CT range the mesh devices accept, in Kelvin
	minTemperatureK = 800
	maxTemperatureK = 20000
)

type deviceEntry struct {
	device db.Device
	state  types.LightState
}

type gatewayRouter struct {
	mqttClient    mqtt.MqttClient
	database      db.DeviceDB
	meshDef       meshdef.MeshDefService
	configuration *configuration.Configuration
	logger        logger.Logger

	mtx     sync.Mutex
	devices map[string]*deviceEntry
	stopped bool

	onDeviceDiscovered  func(dev db.Device)
	onDeviceKindChanged func(oldKind string, dev db.Device)
	onDeviceState       func(dev db.Device, state types.LightState)
}

func NewGatewayRouter(
	config *configuration.Configuration,
	mqttClient mqtt.MqttClient,
	database db.DeviceDB,
	meshDef meshdef.MeshDefService) GatewayRouter {
	return &gatewayRouter{
		mqttClient:    mqttClient,
		database:      database,
		meshDef:       meshDef,
		configuration: config,
		logger:        logger.GetLogger("[Gateway Router]", config.LogLevel),
		devices:       make(map[string]*deviceEntry),
	}
}

func (gr *gatewayRouter) SubscribeOnDeviceDiscovered(callback func(dev db.Device)) {
	gr.onDeviceDiscovered = callback
}

func (gr *gatewayRouter) SubscribeOnDeviceKindChanged(callback func(oldKind string, dev db.Device)) {
	gr.onDeviceKindChanged = callback
}

func (gr *gatewayRouter) SubscribeOnDeviceState(callback func(dev db.Device, state types.LightState)) {
	gr.onDeviceState = callback
}

// Start loads persisted devices and subscribes to the gateway subtree.
// Persisted devices are re-announced so Home Assistant sees them before
// the gateway repeats its retained advertisements.
func (gr *gatewayRouter) Start(ctx context.Context) error {
	persisted, err := gr.database.GetDevices(ctx)
	if err != nil {
		return fmt.Errorf("load persisted devices: %w", err)
	}

	gr.mtx.Lock()
	for i := range persisted {
		dev := persisted[i]
		gr.devices[dev.Name] = &deviceEntry{device: dev}
	}
	gr.mtx.Unlock()

	for i := range persisted {
		if gr.onDeviceDiscovered != nil {
			gr.onDeviceDiscovered(persisted[i])
		}
	}

	baseTopic := gr.configuration.GatewayConfiguration.BaseTopic
	filters := []string{
		fmt.Sprintf("%v/%v", baseTopic, types.KindLight),
		fmt.Sprintf("%v/%v", baseTopic, types.KindGroup),
		fmt.Sprintf("%v/%v", baseTopic, types.KindScene),
		fmt.Sprintf("%v/%v/+/%v", baseTopic, types.KindLight, gatewayStatusSubtopic),
		fmt.Sprintf("%v/%v/+/%v", baseTopic, types.KindGroup, gatewayStatusSubtopic),
	}

	for _, filter := range filters {
		if err := gr.mqttClient.Subscribe(filter, gr.onMessageReceived); err != nil {
			return err
		}
	}

	return nil
}

func (gr *gatewayRouter) Stop() {
	gr.mtx.Lock()
	defer gr.mtx.Unlock()

	gr.stopped = true
}

func (gr *gatewayRouter) onMessageReceived(topic string, message []byte) {
	gr.mtx.Lock()
	stopped := gr.stopped
	gr.mtx.Unlock()
	if stopped {
		return
	}

	prefix := gr.configuration.GatewayConfiguration.BaseTopic + "/"
	if !strings.HasPrefix(topic, prefix) {
		return
	}

	topicParts := strings.Split(strings.TrimPrefix(topic, prefix), "/")

	kind := types.DeviceKind(topicParts[0])
	if !kind.Valid() {
		return
	}

	if len(topicParts) == 1 {
		gr.processDiscovery(kind, message)
		return
	}

	if len(topicParts) == 3 && topicParts[2] == gatewayStatusSubtopic {
		gr.processStatus(kind, topicParts[1], message)
	}
}

func (gr *gatewayRouter) processDiscovery(kind types.DeviceKind, message []byte) {
	var advertisements []mqtt.DeviceAdvertisement
	if err := json.Unmarshal(message, &advertisements); err != nil {
		gr.logger.Error("Error unmarshal %v discovery message: %v", kind, err)
		return
	}

	for _, adv := range advertisements {
		if adv.Name == "" {
			continue
		}
		if strings.ContainsAny(adv.Name, "/+#") {
			gr.logger.Warn("Dropping %v advertisement with unusable name %q", kind, adv.Name)
			continue
		}

		gr.upsertDevice(kind, adv)
	}
}

func (gr *gatewayRouter) upsertDevice(kind types.DeviceKind, adv mqtt.DeviceAdvertisement) {
	dev := gr.deviceFromAdvertisement(kind, adv)

	gr.mtx.Lock()
	existing, known := gr.devices[dev.Name]
	var oldKind string
	if known {
		oldKind = existing.device.Kind
		dev.LastReceived = existing.device.LastReceived
	}
	gr.devices[dev.Name] = &deviceEntry{device: dev}
	gr.mtx.Unlock()

	if err := gr.database.SaveDevice(context.Background(), dev); err != nil {
		gr.logger.Error("Error saving device %v: %v", dev.Name, err)
	}

	if known && oldKind != dev.Kind {
		// conflicting kinds for the same name, the latest message wins
		gr.logger.Warn("Device %v changed kind from %v to %v", dev.Name, oldKind, dev.Kind)
		if gr.onDeviceKindChanged != nil {
			gr.onDeviceKindChanged(oldKind, dev)
		}
	}

	if !known {
		gr.logger.Info("Discovered %v: %v", dev.Kind, dev.Name)
	}

	if gr.onDeviceDiscovered != nil {
		gr.onDeviceDiscovered(dev)
	}
}

// deviceFromAdvertisement merges the advertisement's capability flags
// with the model defaults for anything the advertisement left unset.
func (gr *gatewayRouter) deviceFromAdvertisement(kind types.DeviceKind, adv mqtt.DeviceAdvertisement) db.Device {
	modelDef, hasModelDef := gr.meshDef.GetByModel(adv.Model)

	dimmable := true
	if adv.Dimmable != nil {
		dimmable = *adv.Dimmable
	} else if hasModelDef {
		dimmable = modelDef.Dimmable
	}

	supportsCTL := adv.SupportsColorTemperature || adv.SupportsCTL
	if !supportsCTL && hasModelDef {
		supportsCTL = modelDef.SupportsColorTemperature
	}

	supportsHSL := adv.SupportsColor || adv.SupportsHSL
	if !supportsHSL && hasModelDef {
		supportsHSL = modelDef.SupportsColor
	}

	return db.Device{
		Name:           adv.Name,
		Kind:           string(kind),
		Model:          adv.Model,
		Dimmable:       dimmable,
		SupportsCTL:    supportsCTL,
		SupportsHSL:    supportsHSL,
		LastDiscovered: time.Now(),
	}
}

func (gr *gatewayRouter) processStatus(kind types.DeviceKind, name string, message []byte) {
	var status mqtt.DeviceStatus
	if err := json.Unmarshal(message, &status); err != nil {
		gr.logger.Error("Error unmarshal status message for %v: %v", name, err)
		return
	}

	gr.mtx.Lock()
	entry, known := gr.devices[name]
	if !known || entry.device.Kind != string(kind) {
		gr.mtx.Unlock()
		gr.logger.Debug("Status for unknown %v %q ignored", kind, name)
		return
	}

	if status.On != nil {
		entry.state.On = *status.On
	} else if on, ok := utils.ParseOnOff(status.OnOff); ok {
		entry.state.On = on
	}
	if status.Brightness != nil {
		entry.state.Brightness = utils.ClampFloat(*status.Brightness, 0, 100)
	} else if status.Lightness != nil {
		entry.state.Brightness = utils.BrightnessFromLightness(*status.Lightness)
	}
	if status.Temperature != nil {
		entry.state.Temperature = *status.Temperature
	}
	if status.Hue != nil {
		entry.state.Hue = *status.Hue
	}
	if status.Saturation != nil {
		entry.state.Saturation = *status.Saturation
	}

	entry.device.LastReceived = time.Now()
	dev := entry.device
	state := entry.state
	gr.mtx.Unlock()

	if err := gr.database.SaveDevice(context.Background(), dev); err != nil {
		gr.logger.Error("Error saving device %v: %v", dev.Name, err)
	}

	if gr.onDeviceState != nil {
		gr.onDeviceState(dev, state)
	}
}

// ProcessCommandMessage translates a command into the gateway's wire
// format. Fields the device does not support are dropped without a
// publish; a command made only of unsupported fields publishes nothing.
func (gr *gatewayRouter) ProcessCommandMessage(ctx context.Context, devCmd types.DeviceCommandMessage) {
	gr.mtx.Lock()
	entry, known := gr.devices[devCmd.Name]
	if !known {
		gr.mtx.Unlock()
		gr.logger.Warn("Command for unknown device %q ignored", devCmd.Name)
		return
	}
	dev := entry.device
	gr.mtx.Unlock()

	if devCmd.Power != nil && !*devCmd.Power {
		gr.publishCommand(dev, "power", mqtt.PowerMessage{OnOff: "off"})
		return
	}

	lightness := 1.0
	if devCmd.Brightness != nil {
		lightness = utils.LightnessFromBrightness(*devCmd.Brightness)
	}

	if devCmd.Hue != nil && devCmd.Saturation != nil && dev.SupportsHSL {
		gr.publishCommand(dev, "hsl", mqtt.HSLMessage{
			Hue:        int(utils.ClampFloat(*devCmd.Hue, 0, 360)),
			Saturation: utils.ClampFloat(*devCmd.Saturation/100.0, 0, 1),
			Lightness:  lightness,
		})
		return
	}

	if devCmd.ColorTemp != nil && dev.SupportsCTL {
		kelvin := utils.ClampInt(utils.MiredToKelvin(*devCmd.ColorTemp), minTemperatureK, maxTemperatureK)
		gr.publishCommand(dev, "ctl", mqtt.CTLMessage{
			Temperature: kelvin,
			Lightness:   lightness,
		})
		return
	}

	if devCmd.Brightness != nil && dev.Dimmable {
		gr.publishCommand(dev, "lightness", mqtt.LightnessMessage{Lightness: lightness})
		return
	}

	if devCmd.Power != nil {
		gr.publishCommand(dev, "power", mqtt.PowerMessage{OnOff: "on"})
		return
	}

	gr.logger.Debug("Command for %v %q carries no supported field, nothing published", dev.Kind, dev.Name)
}

// ProcessSceneActivateMessage recalls a scene. Fire and forget, the
// payload is the bare scene name.
func (gr *gatewayRouter) ProcessSceneActivateMessage(ctx context.Context, msg types.SceneActivateMessage) {
	topic := fmt.Sprintf("%v/%v/%v",
		gr.configuration.GatewayConfiguration.BaseTopic, types.KindScene, gatewayRecallScene)
	gr.mqttClient.Publish(topic, []byte(msg.Name), false)
	gr.logger.Info("Activated scene: %v", msg.Name)
}

func (gr *gatewayRouter) publishCommand(dev db.Device, command string, payload interface{}) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		gr.logger.Error("Error marshal %v command for %v: %v", command, dev.Name, err)
		return
	}

	topic := fmt.Sprintf("%v/%v/%v/%v",
		gr.configuration.GatewayConfiguration.BaseTopic, dev.Kind, dev.Name, command)
	gr.mqttClient.Publish(topic, jsonData, false)
}
