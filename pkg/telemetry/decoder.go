// Package telemetry turns raw sensor messages into snapshot updates and keeps
// the merged snapshot and its bounded history.
package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chadibenrejeb/hive-watch/pkg/entities"
	"github.com/pkg/errors"
)

const (
	DefaultTopicPrefix = "beehouse/"
	sensorTopicSegment = "sensor/"
)

// ErrUnknownTopic is returned for topics outside the sensor table. Callers
// ignore it.
var ErrUnknownTopic = errors.New("unknown topic")

var errNotANumber = errors.New("payload is not a finite number")

// DecodeError describes a message that could not be turned into a field value.
type DecodeError struct {
	Topic   string
	Field   entities.Field
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s payload %q on %s: %v", e.Field, e.Payload, e.Topic, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Cause() error { return e.Err }

// Update is the typed delta carried by a single message. Only the member
// matching Field is meaningful.
type Update struct {
	Field      entities.Field
	Number     float64
	Flag       bool
	Coordinate entities.Coordinate
}

type gpsPayload struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// Decoder maps topics to fields. It holds no mutable state.
type Decoder struct {
	topics []string
	fields map[string]entities.Field
}

func NewDecoder(prefix string) *Decoder {
	d := &Decoder{fields: make(map[string]entities.Field, len(entities.Fields))}
	for _, field := range entities.Fields {
		topic := prefix + sensorTopicSegment + string(field)
		d.topics = append(d.topics, topic)
		d.fields[topic] = field
	}
	return d
}

// Topics returns the subscription set, one topic per channel.
func (d *Decoder) Topics() []string {
	topics := make([]string, len(d.topics))
	copy(topics, d.topics)
	return topics
}

func (d *Decoder) Field(topic string) (entities.Field, bool) {
	field, ok := d.fields[topic]
	return field, ok
}

func (d *Decoder) Decode(topic string, payload []byte) (Update, error) {
	field, ok := d.fields[topic]
	if !ok {
		return Update{}, errors.Wrap(ErrUnknownTopic, topic)
	}

	message := string(payload)
	update := Update{Field: field}
	var err error
	switch field {
	case entities.FieldDoor:
		update.Flag = parseDoor(message)
	case entities.FieldGPS:
		update.Coordinate, err = parseCoordinate(message)
	default:
		update.Number, err = parseNumber(message)
	}
	if err != nil {
		return Update{}, &DecodeError{Topic: topic, Field: field, Payload: message, Err: err}
	}
	return update, nil
}

func parseNumber(message string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(message), 64)
	if err != nil {
		return 0, errNotANumber
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errNotANumber
	}
	return value, nil
}

func parseDoor(message string) bool {
	message = strings.TrimSpace(message)
	return strings.EqualFold(message, "true") || message == "1"
}

func parseCoordinate(message string) (entities.Coordinate, error) {
	var payload gpsPayload
	if err := json.Unmarshal([]byte(message), &payload); err != nil {
		return entities.Coordinate{}, errors.Wrap(err, "invalid GPS data format")
	}
	if payload.Lat == nil || payload.Lon == nil {
		return entities.Coordinate{}, errors.New("GPS record needs lat and lon")
	}
	return entities.Coordinate{Lat: *payload.Lat, Lon: *payload.Lon}, nil
}
