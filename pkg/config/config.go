// Package config loads the service configuration from config.yaml and
// HIVEWATCH_* environment variables.
package config

import (
	"strings"
	"time"

	"github.com/chadibenrejeb/hive-watch/pkg/entities"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	TransportMQTT = "mqtt"
	TransportAMQP = "amqp"

	envPrefix = "HIVEWATCH"
)

var validate = validator.New()

type Config struct {
	Broker  BrokerConfig  `mapstructure:"broker"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Alerts  AlertsConfig  `mapstructure:"alerts"`
	Notify  NotifyConfig  `mapstructure:"notify"`
}

type BrokerConfig struct {
	entities.ConnectionConfig `mapstructure:",squash"`

	Transport         string        `mapstructure:"transport" validate:"oneof=mqtt amqp"`
	TopicPrefix       string        `mapstructure:"topic_prefix"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval" validate:"gt=0"`
	QoS               int           `mapstructure:"qos" validate:"min=0,max=2"`
	Exchange          string        `mapstructure:"exchange"`
	AutoConnect       bool          `mapstructure:"auto_connect"`
	RedeliveryFilter  bool          `mapstructure:"redelivery_filter"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type AlertsConfig struct {
	RulesFile   string `mapstructure:"rules_file"`
	HistorySize int    `mapstructure:"history_size" validate:"gt=0"`
}

type NotifyConfig struct {
	Websocket   bool   `mapstructure:"websocket"`
	NatsURL     string `mapstructure:"nats_url"`
	NatsSubject string `mapstructure:"nats_subject"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("broker.url", "ws://localhost:9001/mqtt")
	v.SetDefault("broker.username", "")
	v.SetDefault("broker.password", "")
	v.SetDefault("broker.client_id", "")
	v.SetDefault("broker.transport", TransportMQTT)
	v.SetDefault("broker.topic_prefix", "beehouse/")
	v.SetDefault("broker.connect_timeout", 4*time.Second)
	v.SetDefault("broker.reconnect_interval", time.Second)
	v.SetDefault("broker.qos", 0)
	v.SetDefault("broker.exchange", "amq.topic")
	v.SetDefault("broker.auto_connect", true)
	v.SetDefault("broker.redelivery_filter", false)

	v.SetDefault("server.address", "0.0.0.0:8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("alerts.rules_file", "")
	v.SetDefault("alerts.history_size", 50)

	v.SetDefault("notify.websocket", true)
	v.SetDefault("notify.nats_url", "")
	v.SetDefault("notify.nats_subject", "beehouse.alerts")
}

// Load reads path, or config.yaml from the working directory and
// /etc/hive-watch when path is empty. A missing default file is not an error.
func Load(path string) (Config, error) {
	var config Config
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/hive-watch")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return config, errors.Wrap(err, "read configuration")
		}
	}
	if err := v.Unmarshal(&config); err != nil {
		return config, errors.Wrap(err, "decode configuration")
	}
	if err := validate.Struct(config); err != nil {
		return config, errors.Wrap(err, "invalid configuration")
	}
	return config, nil
}
