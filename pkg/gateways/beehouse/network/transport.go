package network

import (
	"crypto/rand"
	"fmt"
	"time"
)

const (
	DefaultConnectTimeout    = 4000 * time.Millisecond
	DefaultReconnectInterval = 1000 * time.Millisecond

	clientIDPrefix = "beehouse_dashboard_"
)

// Options are passed through to the broker for one connection attempt.
type Options struct {
	ClientID          string
	Username          string
	Password          string
	ConnectTimeout    time.Duration
	ReconnectInterval time.Duration
}

// Handlers receive lifecycle and message events from a transport. They may be
// called from any goroutine.
type Handlers struct {
	OnConnect      func()
	OnMessage      func(topic string, payload []byte)
	OnError        func(err error)
	OnOffline      func()
	OnReconnecting func()
}

// Transport opens receive-only pub/sub connections. Connect must not wait for
// the broker: the outcome is reported through the handlers.
type Transport interface {
	Connect(url string, options Options, handlers Handlers) (Client, error)
}

// Client is one live connection handle.
type Client interface {
	Subscribe(topic string) error
	Close() error
}

// GenerateClientID returns a short random client identifier.
func GenerateClientID() (string, error) {
	b := make([]byte, 3)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%x", clientIDPrefix, b), nil
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = DefaultReconnectInterval
	}
	return o
}
