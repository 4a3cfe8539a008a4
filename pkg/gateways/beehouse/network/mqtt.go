package network

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	quiesceMillis    = 250
	subscribeFailure = 0x80
)

// MQTTTransport connects to an MQTT broker (tcp, ssl, ws or wss URLs).
type MQTTTransport struct {
	qos    byte
	filter *RedeliveryFilter
	log    *logrus.Entry
}

// NewMQTTTransport creates a transport subscribing with qos. filter may be nil.
func NewMQTTTransport(qos byte, filter *RedeliveryFilter, log *logrus.Entry) *MQTTTransport {
	return &MQTTTransport{qos: qos, filter: filter, log: log}
}

type mqttClient struct {
	client   mqtt.Client
	qos      byte
	timeout  time.Duration
	filter   *RedeliveryFilter
	handlers Handlers
	closed   chan struct{}
	once     sync.Once
}

func (t *MQTTTransport) Connect(url string, options Options, handlers Handlers) (Client, error) {
	options = options.withDefaults()
	c := &mqttClient{
		qos:      t.qos,
		timeout:  options.ConnectTimeout,
		filter:   t.filter,
		handlers: handlers,
		closed:   make(chan struct{}),
	}
	c.client = mqtt.NewClient(c.clientOptions(url, options))

	token := c.client.Connect()
	go func() {
		select {
		case <-token.Done():
		case <-c.closed:
			return
		}
		if err := token.Error(); err != nil && !c.isClosed() {
			t.log.WithError(err).WithField("broker", url).Errorln("MQTT connection error")
			handlers.OnError(errors.Wrap(err, "connect to MQTT broker"))
		}
	}()
	return c, nil
}

func (c *mqttClient) clientOptions(url string, options Options) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(url)
	opts.SetClientID(options.ClientID)
	opts.SetUsername(options.Username)
	opts.SetPassword(options.Password)
	opts.SetConnectTimeout(options.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(options.ReconnectInterval)
	opts.SetConnectRetry(false)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(true)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		if c.isClosed() {
			client.Disconnect(0)
			return
		}
		c.handlers.OnConnect()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, _ error) {
		if !c.isClosed() {
			c.handlers.OnOffline()
		}
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		if !c.isClosed() {
			c.handlers.OnReconnecting()
		}
	})
	return opts
}

func (c *mqttClient) Subscribe(topic string) error {
	token := c.client.Subscribe(topic, c.qos, c.onMessage)
	if !token.WaitTimeout(c.timeout) {
		return errors.Errorf("subscribe %s: no answer after %s", topic, c.timeout)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "subscribe %s", topic)
	}
	if subscription, ok := token.(*mqtt.SubscribeToken); ok {
		if code, found := subscription.Result()[topic]; found && code == subscribeFailure {
			return errors.Errorf("subscribe %s: rejected by broker", topic)
		}
	}
	return nil
}

func (c *mqttClient) onMessage(_ mqtt.Client, message mqtt.Message) {
	if c.isClosed() {
		return
	}
	if c.filter != nil && c.filter.Duplicate(message.Topic(), message.MessageID(), message.Payload(), message.Duplicate()) {
		return
	}
	c.handlers.OnMessage(message.Topic(), message.Payload())
}

func (c *mqttClient) Close() error {
	c.once.Do(func() {
		close(c.closed)
		c.client.Disconnect(quiesceMillis)
	})
	return nil
}

func (c *mqttClient) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
