package entities

type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusError        ConnectionStatus = "error"
)

type ConnectionConfig struct {
	BrokerURL string `yaml:"brokerUrl" json:"brokerUrl" mapstructure:"url" validate:"required,url"`
	Username  string `yaml:"username" json:"username,omitempty" mapstructure:"username"`
	Password  string `yaml:"password" json:"password,omitempty" mapstructure:"password"`
	ClientID  string `yaml:"clientId" json:"clientId,omitempty" mapstructure:"client_id"`
}
