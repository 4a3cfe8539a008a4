package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:9001/mqtt", config.Broker.BrokerURL)
	assert.Equal(t, TransportMQTT, config.Broker.Transport)
	assert.Equal(t, "beehouse/", config.Broker.TopicPrefix)
	assert.Equal(t, 4*time.Second, config.Broker.ConnectTimeout)
	assert.Equal(t, time.Second, config.Broker.ReconnectInterval)
	assert.True(t, config.Broker.AutoConnect)
	assert.Equal(t, "0.0.0.0:8080", config.Server.Address)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, 50, config.Alerts.HistorySize)
	assert.True(t, config.Notify.Websocket)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
broker:
  url: wss://hive.example.com:8884/mqtt
  username: beekeeper
  password: secret
  client_id: abc
  transport: amqp
  connect_timeout: 2s
  qos: 1
server:
  address: 127.0.0.1:9090
logging:
  level: debug
  format: json
alerts:
  rules_file: /etc/hive-watch/rules.yaml
notify:
  nats_url: nats://127.0.0.1:4222
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://hive.example.com:8884/mqtt", config.Broker.BrokerURL)
	assert.Equal(t, "beekeeper", config.Broker.Username)
	assert.Equal(t, "secret", config.Broker.Password)
	assert.Equal(t, "abc", config.Broker.ClientID)
	assert.Equal(t, TransportAMQP, config.Broker.Transport)
	assert.Equal(t, 2*time.Second, config.Broker.ConnectTimeout)
	assert.Equal(t, 1, config.Broker.QoS)
	assert.Equal(t, "127.0.0.1:9090", config.Server.Address)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "/etc/hive-watch/rules.yaml", config.Alerts.RulesFile)
	assert.Equal(t, "nats://127.0.0.1:4222", config.Notify.NatsURL)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "broker:\n  url: tcp://file:1883\n")
	t.Setenv("HIVEWATCH_BROKER_URL", "tcp://env:1883")
	t.Setenv("HIVEWATCH_LOGGING_LEVEL", "warn")

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://env:1883", config.Broker.BrokerURL)
	assert.Equal(t, "warn", config.Logging.Level)
}

func TestLoadRejectsUnknownTransport(t *testing.T) {
	path := writeConfig(t, "broker:\n  transport: kafka\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidQoS(t *testing.T) {
	path := writeConfig(t, "broker:\n  qos: 3\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
