package configuration

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v2"
)

func defaultConfiguration() Configuration {
	return Configuration{
		MqttConfiguration: MqttConfiguration{
			Address: "localhost",
			Port:    1883,
		},
		GatewayConfiguration: GatewayConfiguration{
			BaseTopic: "Mesh",
		},
		HomeAssistantConfiguration: HomeAssistantConfiguration{
			DiscoveryPrefix: "homeassistant",
			RootTopic:       "haefele2mqtt",
		},
		ProvisioningConfiguration: ProvisioningConfiguration{
			Mode:     "manual",
			Username: "haefele2mqtt",
		},
		DataDirectory: "./data",
		MeshDefFile:   "./meshdef.json",
		LogLevel:      2,
	}
}

// Init loads the yaml configuration from filename. A missing file is
// created with defaults so the operator has something to edit.
func Init(filename string) (ConfigurationService, error) {
	ret := configurationService{
		filename: filename,
		config:   defaultConfiguration(),
	}

	_, err := os.Stat(filename)
	if os.IsNotExist(err) {
		if err := ret.save(); err != nil {
			return nil, fmt.Errorf("write default configuration: %w", err)
		}
		return &ret, nil
	}

	yamlBuf, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read configuration file: %w", err)
	}

	if err := yaml.Unmarshal(yamlBuf, &ret.config); err != nil {
		return nil, fmt.Errorf("unmarshal configuration file: %w", err)
	}

	return &ret, nil
}

type configurationService struct {
	filename string
	mtx      sync.Mutex
	config   Configuration
}

func (s *configurationService) GetConfiguration() Configuration {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.config
}

func (s *configurationService) Update(updatedConfig Configuration) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.config = updatedConfig

	return s.save()
}

func (s *configurationService) save() error {
	res, err := yaml.Marshal(s.config)
	if err != nil {
		return err
	}

	// 0600, the file may carry broker credentials.
	return os.WriteFile(s.filename, res, 0600)
}
