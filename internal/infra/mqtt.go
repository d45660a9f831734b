package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/model"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// PriceEvent is published once per recorded observation on
// <prefix>/stations/<station_id>/prices so map clients can refresh a marker
// without polling the full station list.
type PriceEvent struct {
	ObservationID uint    `json:"observation_id"`
	StationID     uint    `json:"station_id"`
	FuelTypeID    string  `json:"fuel_type_id"`
	Price         float64 `json:"price"`
	Source        string  `json:"source"`
	ObservedAt    string  `json:"observed_at"`
}

// PriceEventQoS is at-least-once; subscribers dedupe on observation_id.
const PriceEventQoS byte = 1

// MQTTPublisher fans recorded prices out to an MQTT broker. Publishing is
// best-effort: failures are logged and never reach the caller.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

// NewMQTTPublisher connects to brokerURL (e.g. tcp://localhost:1883).
func NewMQTTPublisher(brokerURL, prefix string) (*MQTTPublisher, error) {
	clientID := fmt.Sprintf("cheap-gasoline-%d", time.Now().UnixNano())
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second).
		SetOrderMatters(false)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt: connect %s: timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", brokerURL, err)
	}
	log.Info().Str("broker", brokerURL).Str("client_id", clientID).Msg("mqtt: connected")
	return &MQTTPublisher{client: client, prefix: prefix}, nil
}

// Topic returns the topic for a station's price events.
func Topic(prefix string, stationID uint) string {
	return fmt.Sprintf("%s/stations/%d/prices", prefix, stationID)
}

// NewPriceEvent builds the wire payload for an observation.
func NewPriceEvent(o model.PriceObservation) PriceEvent {
	return PriceEvent{
		ObservationID: o.ID,
		StationID:     o.StationID,
		FuelTypeID:    o.FuelTypeID,
		Price:         o.Price.InexactFloat64(),
		Source:        o.Source,
		ObservedAt:    o.ObservedAt.UTC().Format(time.RFC3339Nano),
	}
}

// PricesRecorded publishes one event per observation.
func (p *MQTTPublisher) PricesRecorded(_ context.Context, observations []model.PriceObservation) {
	for _, o := range observations {
		data, err := json.Marshal(NewPriceEvent(o))
		if err != nil {
			log.Error().Err(err).Msg("mqtt: failed to encode price event")
			continue
		}
		topic := Topic(p.prefix, o.StationID)
		token := p.client.Publish(topic, PriceEventQoS, false, data)
		go func(t mqtt.Token, topic string) {
			if t.WaitTimeout(5*time.Second) && t.Error() != nil {
				log.Warn().Err(t.Error()).Str("topic", topic).Msg("mqtt: publish failed")
			}
		}(token, topic)
	}
}

// Close disconnects, waiting up to 250ms for in-flight messages.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
