// Package natsnotify forwards alerts to a NATS subject tree so other services
// can react to hive events.
package natsnotify

import (
	"encoding/json"
	"time"

	"github.com/chadibenrejeb/hive-watch/pkg/entities"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSubject = "beehouse.alerts"
	clientName     = "hive-watch"
	reconnectWait  = 2 * time.Second
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// Notifier publishes each alert as JSON on <subject>.<kind>.<severity>.
type Notifier struct {
	conn    publisher
	subject string
	close   func()
}

// Connect dials the NATS server at url. The connection reconnects forever.
func Connect(url, subject string, log *logrus.Entry) (*Notifier, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warnln("NATS connection lost")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.WithField("server", c.ConnectedUrl()).Infoln("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connect to NATS")
	}
	n := newNotifier(nc, subject)
	n.close = func() {
		if err := nc.Drain(); err != nil {
			nc.Close()
		}
	}
	return n, nil
}

func newNotifier(conn publisher, subject string) *Notifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Notifier{conn: conn, subject: subject, close: func() {}}
}

func (n *Notifier) Subject(alert entities.Alert) string {
	return n.subject + "." + alert.Kind + "." + string(alert.Severity)
}

func (n *Notifier) Notify(alert entities.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return errors.Wrap(err, "encode alert")
	}
	if err := n.conn.Publish(n.Subject(alert), data); err != nil {
		return errors.Wrapf(err, "publish alert %s", alert.ID)
	}
	return nil
}

func (n *Notifier) Close() {
	n.close()
}
