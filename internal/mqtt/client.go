package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/haefelemesh/haefele2mqtt/internal/configuration"
	"github.com/haefelemesh/haefele2mqtt/internal/logger"
)

type MqttClient interface {
	Dispose()
	Publish(topic string, data []byte, retain bool)
	Subscribe(topicFilter string, callback func(topic string, message []byte)) error
	IsConnected() bool
}

// NewClient connects to the broker and returns the client together with a
// teardown func. The connection doubles as the gateway session and the
// Home Assistant session, so topics are passed in full rather than rooted
// at a single namespace.
func NewClient(config *configuration.Configuration) (MqttClient, func(), error) {
	retClient := defaultMqttClient{
		configuration: config,
		logger:        logger.GetLogger("[MQTT Client]", config.LogLevel),
		subscriptions: make(map[string]func(topic string, message []byte)),
	}

	mqttlib.ERROR = log.New(retClient.logger.GetWriter(), "[MQTT Client]", 0)

	availabilityTopic := fmt.Sprintf("%v/gateway/status", config.HomeAssistantConfiguration.RootTopic)

	opts := mqttlib.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", config.MqttConfiguration.Address, config.MqttConfiguration.Port))
	opts.SetClientID(fmt.Sprintf("%v-%v", config.HomeAssistantConfiguration.RootTopic, uuid.NewString()[:8]))
	opts.SetUsername(config.MqttConfiguration.Username)
	opts.SetPassword(config.MqttConfiguration.Password)
	opts.AutoReconnect = true
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetWill(availabilityTopic, "offline", 0, true)
	opts.OnConnect = func(client mqttlib.Client) {
		retClient.logger.Info("Connected")
		retClient.resubscribe()
		client.Publish(availabilityTopic, 0, true, "online")
	}
	opts.OnConnectionLost = func(client mqttlib.Client, err error) {
		retClient.logger.Warn("Connect lost: %v", err)
	}

	innerClient := mqttlib.NewClient(opts)
	retClient.innerClient = innerClient
	retClient.availabilityTopic = availabilityTopic

	if token := innerClient.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, fmt.Errorf("connect to MQTT broker %v:%v: %w",
			config.MqttConfiguration.Address, config.MqttConfiguration.Port, token.Error())
	}

	retClient.logger.Info("Connected to MQTT on '%v:%v'", config.MqttConfiguration.Address, config.MqttConfiguration.Port)

	return &retClient, func() { retClient.Dispose() }, nil
}

type defaultMqttClient struct {
	innerClient       mqttlib.Client
	configuration     *configuration.Configuration
	logger            logger.Logger
	availabilityTopic string

	mtx           sync.Mutex
	subscriptions map[string]func(topic string, message []byte)
}

func (cl *defaultMqttClient) Dispose() {
	cl.logger.Info("Disposing MQTT client")
	cl.innerClient.Publish(cl.availabilityTopic, 0, true, "offline")
	cl.innerClient.Disconnect(250)
}

func (cl *defaultMqttClient) Publish(topic string, data []byte, retain bool) {
	cl.innerClient.Publish(topic, 0, retain, data)
}

func (cl *defaultMqttClient) Subscribe(topicFilter string, callback func(topic string, message []byte)) error {
	cl.mtx.Lock()
	cl.subscriptions[topicFilter] = callback
	cl.mtx.Unlock()

	token := cl.innerClient.Subscribe(topicFilter, 0, func(client mqttlib.Client, msg mqttlib.Message) {
		callback(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %v: %w", topicFilter, token.Error())
	}

	return nil
}

func (cl *defaultMqttClient) IsConnected() bool {
	return cl.innerClient.IsConnected()
}

// resubscribe restores subscriptions after a reconnect, the broker may
// have dropped the session.
func (cl *defaultMqttClient) resubscribe() {
	cl.mtx.Lock()
	defer cl.mtx.Unlock()

	for topicFilter, callback := range cl.subscriptions {
		cb := callback
		cl.innerClient.Subscribe(topicFilter, 0, func(client mqttlib.Client, msg mqttlib.Message) {
			cb(msg.Topic(), msg.Payload())
		})
	}
}
