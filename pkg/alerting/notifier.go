package alerting

import (
	"time"

	"github.com/chadibenrejeb/hive-watch/pkg/entities"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const alertTitle = "Beehouse Alert"

// Notifier presents alerts to a human or forwards them elsewhere.
type Notifier interface {
	Notify(alert entities.Alert) error
}

type NotifierFunc func(alert entities.Alert) error

func (f NotifierFunc) Notify(alert entities.Alert) error {
	return f(alert)
}

// NewRuleAlert builds the notification for a rule that just became active.
func NewRuleAlert(rule entities.AlertRule, snapshot entities.Snapshot, at time.Time) entities.Alert {
	value, _ := snapshot.Numeric(rule.Field)
	return entities.Alert{
		ID:        uuid.NewString(),
		Kind:      entities.AlertKindRule,
		RuleID:    rule.ID,
		Field:     rule.Field,
		Value:     value,
		Title:     alertTitle,
		Severity:  rule.Severity,
		Message:   rule.Message,
		Timestamp: at,
	}
}

// NewConnectionNotice builds a connection lifecycle notification.
func NewConnectionNotice(title, message string, severity entities.Severity, at time.Time) entities.Alert {
	return entities.Alert{
		ID:        uuid.NewString(),
		Kind:      entities.AlertKindConnection,
		Title:     title,
		Severity:  severity,
		Message:   message,
		Timestamp: at,
	}
}

// Multi fans an alert out to every notifier. A failing notifier is logged and
// does not stop the others.
type Multi struct {
	notifiers []Notifier
	log       *logrus.Entry
}

func NewMulti(log *logrus.Entry, notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers, log: log}
}

func (m *Multi) Add(notifier Notifier) {
	m.notifiers = append(m.notifiers, notifier)
}

func (m *Multi) Notify(alert entities.Alert) error {
	var firstErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(alert); err != nil {
			m.log.WithError(err).WithField("alert", alert.ID).Errorln("notifier failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// LogNotifier writes alerts to the log, critical ones at error level.
type LogNotifier struct {
	log *logrus.Entry
}

func NewLogNotifier(log *logrus.Entry) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(alert entities.Alert) error {
	entry := l.log.WithFields(logrus.Fields{
		"kind":     alert.Kind,
		"severity": alert.Severity,
	})
	if alert.RuleID != "" {
		entry = entry.WithFields(logrus.Fields{"rule": alert.RuleID, "value": alert.Value})
	}
	switch alert.Severity {
	case entities.SeverityCritical:
		entry.Errorf("%s: %s", alert.Title, alert.Message)
	case entities.SeverityWarning:
		entry.Warnf("%s: %s", alert.Title, alert.Message)
	default:
		entry.Infof("%s: %s", alert.Title, alert.Message)
	}
	return nil
}
