package router

import (
	"strings"
	"sync"
)

type publishedMessage struct {
	Topic   string
	Payload []byte
	Retain  bool
}

// mockMqttClient implements mqtt.MqttClient for router tests. Messages
// are injected through matching subscription filters, publishes are
// recorded for assertions.
type mockMqttClient struct {
	mtx           sync.Mutex
	published     []publishedMessage
	subscriptions map[string]func(topic string, message []byte)
}

func newMockMqttClient() *mockMqttClient {
	return &mockMqttClient{
		subscriptions: make(map[string]func(topic string, message []byte)),
	}
}

func (m *mockMqttClient) Dispose() {}

func (m *mockMqttClient) IsConnected() bool { return true }

func (m *mockMqttClient) Publish(topic string, data []byte, retain bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.published = append(m.published, publishedMessage{Topic: topic, Payload: data, Retain: retain})
}

func (m *mockMqttClient) Subscribe(topicFilter string, callback func(topic string, message []byte)) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.subscriptions[topicFilter] = callback
	return nil
}

func (m *mockMqttClient) inject(topic string, payload []byte) {
	m.mtx.Lock()
	var callbacks []func(topic string, message []byte)
	for filter, cb := range m.subscriptions {
		if filterMatches(filter, topic) {
			callbacks = append(callbacks, cb)
		}
	}
	m.mtx.Unlock()

	for _, cb := range callbacks {
		cb(topic, payload)
	}
}

func (m *mockMqttClient) publishedTo(topic string) []publishedMessage {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	var ret []publishedMessage
	for _, p := range m.published {
		if p.Topic == topic {
			ret = append(ret, p)
		}
	}
	return ret
}

func (m *mockMqttClient) publishCount() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return len(m.published)
}

func (m *mockMqttClient) reset() {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.published = nil
}

func filterMatches(filter string, topic string) bool {
	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	if len(filterParts) != len(topicParts) {
		return false
	}

	for i := range filterParts {
		if filterParts[i] == "+" {
			continue
		}
		if filterParts[i] != topicParts[i] {
			return false
		}
	}

	return true
}
