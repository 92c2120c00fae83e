package provisioning

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/haefelemesh/haefele2mqtt/internal/configuration"
	"github.com/haefelemesh/haefele2mqtt/internal/logger"
)

const (
	controlTopic  = "$CONTROL/dynamic-security/v1"
	responseTopic = controlTopic + "/response"

	passwordLength  = 32
	passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	responseTimeout = 10 * time.Second
)

type dynSecCommand struct {
	Command         string `json:"command"`
	Username        string `json:"username,omitempty"`
	Password        string `json:"password,omitempty"`
	CorrelationData string `json:"correlationData,omitempty"`
}

type dynSecRequest struct {
	Commands []dynSecCommand `json:"commands"`
}

type dynSecResponse struct {
	Responses []struct {
		Command         string `json:"command"`
		Error           string `json:"error"`
		CorrelationData string `json:"correlationData"`
	} `json:"responses"`
}

// ProvisionUser creates a dedicated broker user for the bridge through
// the Mosquitto dynamic security control topic, authenticating with the
// admin credentials from the provisioning section. The generated
// password is the only copy, the caller must persist it.
func ProvisionUser(config *configuration.Configuration) (string, string, error) {
	log := logger.GetLogger("[Provisioning]", config.LogLevel)

	username := config.ProvisioningConfiguration.Username
	if username == "" {
		username = config.HomeAssistantConfiguration.RootTopic
	}

	password, err := generatePassword(passwordLength)
	if err != nil {
		return "", "", fmt.Errorf("generate password: %w", err)
	}

	opts := mqttlib.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", config.MqttConfiguration.Address, config.MqttConfiguration.Port))
	opts.SetClientID(fmt.Sprintf("haefele2mqtt-provision-%v", uuid.NewString()[:8]))
	opts.SetUsername(config.ProvisioningConfiguration.AdminUsername)
	opts.SetPassword(config.ProvisioningConfiguration.AdminPassword)
	opts.AutoReconnect = false
	opts.SetConnectTimeout(responseTimeout)

	client := mqttlib.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return "", "", fmt.Errorf("connect to broker for provisioning: %w", token.Error())
	}
	defer client.Disconnect(250)

	correlation := uuid.NewString()
	responses := make(chan dynSecResponse, 1)

	token := client.Subscribe(responseTopic, 0, func(c mqttlib.Client, msg mqttlib.Message) {
		var resp dynSecResponse
		if err := json.Unmarshal(msg.Payload(), &resp); err != nil {
			return
		}
		select {
		case responses <- resp:
		default:
		}
	})
	if token.Wait() && token.Error() != nil {
		return "", "", fmt.Errorf("subscribe control response topic: %w", token.Error())
	}

	request, err := json.Marshal(newCreateClientRequest(username, password, correlation))
	if err != nil {
		return "", "", err
	}

	if token := client.Publish(controlTopic, 0, false, request); token.Wait() && token.Error() != nil {
		return "", "", fmt.Errorf("publish provisioning request: %w", token.Error())
	}

	deadline := time.After(responseTimeout)
	for {
		select {
		case resp := <-responses:
			for _, r := range resp.Responses {
				if r.CorrelationData != correlation {
					continue
				}
				if r.Error != "" {
					return "", "", fmt.Errorf("broker rejected provisioning: %v", r.Error)
				}
				log.Info("Provisioned broker user %q", username)
				return username, password, nil
			}
		case <-deadline:
			return "", "", fmt.Errorf("no response from dynamic security plugin within %v", responseTimeout)
		}
	}
}

func newCreateClientRequest(username, password, correlation string) dynSecRequest {
	return dynSecRequest{
		Commands: []dynSecCommand{
			{
				Command:         "createClient",
				Username:        username,
				Password:        password,
				CorrelationData: correlation,
			},
		},
	}
}

func generatePassword(length int) (string, error) {
	ret := make([]byte, length)
	max := big.NewInt(int64(len(passwordCharset)))

	for i := range ret {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		ret[i] = passwordCharset[idx.Int64()]
	}

	return string(ret), nil
}
