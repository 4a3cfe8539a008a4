package network

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	// RabbitMQ's MQTT plugin publishes every MQTT topic here, with "/"
	// replaced by "." in the routing key.
	DefaultTopicExchange = "amq.topic"

	durable     = false
	autoDelete  = true
	exclusive   = true
	noWait      = false
	autoAck     = true
	noLocal     = false
	consumerTag = ""
)

var errNotConnected = errors.New("broker connection is not established")

// AMQPTransport consumes the sensor topics through a RabbitMQ topic exchange.
type AMQPTransport struct {
	exchange string
	log      *logrus.Entry
}

func NewAMQPTransport(exchange string, log *logrus.Entry) *AMQPTransport {
	if exchange == "" {
		exchange = DefaultTopicExchange
	}
	return &AMQPTransport{exchange: exchange, log: log}
}

type amqpClient struct {
	url      string
	exchange string
	options  Options
	handlers Handlers
	log      *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func (t *AMQPTransport) Connect(url string, options Options, handlers Handlers) (Client, error) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &amqpClient{
		url:      url,
		exchange: t.exchange,
		options:  options.withDefaults(),
		handlers: handlers,
		log:      t.log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go c.start()
	return c, nil
}

// RoutingKey converts an MQTT style topic into an AMQP routing key.
func RoutingKey(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

// TopicFromRoutingKey is the inverse of RoutingKey.
func TopicFromRoutingKey(key string) string {
	return strings.ReplaceAll(key, ".", "/")
}

func (c *amqpClient) start() {
	if err := c.connect(); err != nil {
		if c.ctx.Err() == nil {
			c.log.WithError(err).WithField("broker", c.url).Errorln("AMQP connection error")
			c.handlers.OnError(errors.Wrap(err, "connect to AMQP broker"))
		}
		return
	}
	c.handlers.OnConnect()
	c.notifyWhenClosed()
}

func (c *amqpClient) config() amqp.Config {
	config := amqp.Config{
		Dial:       amqp.DefaultDial(c.options.ConnectTimeout),
		Properties: amqp.Table{"connection_name": c.options.ClientID},
	}
	if c.options.Username != "" {
		config.SASL = []amqp.Authentication{&amqp.PlainAuth{Username: c.options.Username, Password: c.options.Password}}
	}
	return config
}

func (c *amqpClient) connect() error {
	conn, err := amqp.DialConfig(c.url, c.config())
	if err != nil {
		return err
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	queue, err := channel.QueueDeclare(c.options.ClientID, durable, autoDelete, exclusive, noWait, nil)
	if err != nil {
		conn.Close()
		return err
	}
	deliveries, err := channel.Consume(queue.Name, consumerTag, autoAck, exclusive, noLocal, noWait, nil)
	if err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx.Err() != nil {
		conn.Close()
		return c.ctx.Err()
	}
	// The exclusive queue is recreated on every connect, so bindings have to
	// be requested again through Subscribe.
	c.conn, c.channel, c.queue = conn, channel, queue.Name
	go c.deliver(deliveries)
	return nil
}

func (c *amqpClient) deliver(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		if c.ctx.Err() != nil {
			return
		}
		c.handlers.OnMessage(TopicFromRoutingKey(d.RoutingKey), d.Body)
	}
}

func (c *amqpClient) notifyWhenClosed() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		select {
		case <-c.ctx.Done():
			return
		case reason := <-conn.NotifyClose(make(chan *amqp.Error, 1)):
			if c.ctx.Err() != nil {
				return
			}
			c.log.WithField("reason", reason).Warnln("AMQP connection lost")
			c.handlers.OnOffline()
		}

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(c.options.ReconnectInterval):
		}

		reconnectionBackOff := backoff.WithContext(backoff.NewConstantBackOff(c.options.ReconnectInterval), c.ctx)
		reconnection := func() error {
			c.handlers.OnReconnecting()
			err := c.connect()
			if err != nil {
				c.log.WithError(err).Debugln("AMQP reconnection attempt failed")
			}
			return err
		}
		if err := backoff.Retry(reconnection, reconnectionBackOff); err != nil {
			return
		}
		c.log.Infoln("AMQP reconnection was successful")
		c.handlers.OnConnect()
	}
}

func (c *amqpClient) Subscribe(topic string) error {
	key := RoutingKey(topic)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		return errors.Wrapf(errNotConnected, "subscribe %s", topic)
	}
	if err := c.channel.QueueBind(c.queue, key, c.exchange, noWait, nil); err != nil {
		return errors.Wrapf(err, "subscribe %s", topic)
	}
	return nil
}

func (c *amqpClient) Close() error {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	err := c.conn.Close()
	if err != nil && !errors.Is(err, amqp.ErrClosed) {
		return errors.Wrap(err, "close AMQP connection")
	}
	return nil
}
