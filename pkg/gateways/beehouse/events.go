package beehouse

import (
	"github.com/chadibenrejeb/hive-watch/pkg/entities"
)

type eventKind int

const (
	eventConnect eventKind = iota
	eventDisconnect
	eventConnected
	eventMessage
	eventError
	eventOffline
	eventReconnecting
	eventSync
)

var eventNames = map[eventKind]string{
	eventConnect:      "connect",
	eventDisconnect:   "disconnect",
	eventConnected:    "connected",
	eventMessage:      "message",
	eventError:        "error",
	eventOffline:      "offline",
	eventReconnecting: "reconnecting",
	eventSync:         "sync",
}

func (k eventKind) String() string {
	return eventNames[k]
}

// fromTransport reports whether the event was raised by a connection handle
// and so belongs to a generation.
func (k eventKind) fromTransport() bool {
	switch k {
	case eventConnected, eventMessage, eventError, eventOffline, eventReconnecting:
		return true
	}
	return false
}

type event struct {
	kind       eventKind
	generation uint64
	config     entities.ConnectionConfig
	topic      string
	payload    []byte
	err        error
	done       chan struct{}
}

type eventActionMapping map[eventKind]func(*Manager, event)

func newEventActionMapping() eventActionMapping {
	mapping := make(eventActionMapping)
	mapping[eventConnect] = (*Manager).handleConnect
	mapping[eventDisconnect] = (*Manager).handleDisconnect
	mapping[eventConnected] = (*Manager).handleConnected
	mapping[eventMessage] = (*Manager).handleMessage
	mapping[eventError] = (*Manager).handleError
	mapping[eventOffline] = (*Manager).handleOffline
	mapping[eventReconnecting] = (*Manager).handleReconnecting
	mapping[eventSync] = func(_ *Manager, e event) { close(e.done) }
	return mapping
}
