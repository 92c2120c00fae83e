package configuration

type MqttConfiguration struct {
	Address  string `yaml:"address"`
	Port     uint16 `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type GatewayConfiguration struct {
	// BaseTopic is the topic prefix the Häfele gateway publishes under.
	BaseTopic string `yaml:"base_topic"`
}

type HomeAssistantConfiguration struct {
	DiscoveryPrefix string `yaml:"discovery_prefix"`
	RootTopic       string `yaml:"root_topic"`
}

// ProvisioningConfiguration drives the automatic setup path. In "auto"
// mode the bridge creates its own broker user through the Mosquitto
// dynamic security control topic, using the admin credentials below,
// and persists the generated credentials back into the config file.
type ProvisioningConfiguration struct {
	Mode          string `yaml:"mode"` // manual | auto
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
	Username      string `yaml:"username"`
}

type Configuration struct {
	MqttConfiguration          MqttConfiguration          `yaml:"mqtt"`
	GatewayConfiguration       GatewayConfiguration       `yaml:"gateway"`
	HomeAssistantConfiguration HomeAssistantConfiguration `yaml:"homeassistant"`
	ProvisioningConfiguration  ProvisioningConfiguration  `yaml:"provisioning"`
	DataDirectory              string                     `yaml:"data_directory"`
	MeshDefFile                string                     `yaml:"meshdef_file"`
	LogLevel                   int                        `yaml:"log_level"` // info=0, warn=1, error=2, debug=3
}
