package router

import (
	"context"

	"github.com/haefelemesh/haefele2mqtt/internal/db"
	"github.com/haefelemesh/haefele2mqtt/internal/types"
)

// GatewayRouter is the gateway-facing half of the bridge. It subscribes
// to the gateway's discovery and status topics, keeps the device
// registry and publishes command messages back to the gateway.
type GatewayRouter interface {
	SubscribeOnDeviceDiscovered(callback func(dev db.Device))
	SubscribeOnDeviceKindChanged(callback func(oldKind string, dev db.Device))
	SubscribeOnDeviceState(callback func(dev db.Device, state types.LightState))

	ProcessCommandMessage(ctx context.Context, devCmd types.DeviceCommandMessage)
	ProcessSceneActivateMessage(ctx context.Context, msg types.SceneActivateMessage)

	Start(ctx context.Context) error
	Stop()
}

// HassRouter is the Home Assistant-facing half. It publishes MQTT
// discovery configs and state, and turns inbound set payloads into
// device command messages.
type HassRouter interface {
	PublishDeviceDiscovery(dev db.Device)
	ClearDeviceDiscovery(kind string, name string)
	PublishDeviceState(dev db.Device, state types.LightState)

	SubscribeOnCommandMessage(callback func(devCmd types.DeviceCommandMessage))
	SubscribeOnSceneActivateMessage(callback func(msg types.SceneActivateMessage))

	Start() error
	Stop()
}
