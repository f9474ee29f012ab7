package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/publisher"
)

var _ publisher.ZoneEventPublisher = (*ZoneEventPublisher)(nil)

const (
	ExchangeName = "fleet.events"
	QueueName    = "zone_events"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type ZoneEventPublisher struct {
	ch channel
}

func NewZoneEventPublisher(conn *amqp.Connection) (*ZoneEventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := DeclareTopology(ch); err != nil {
		return nil, err
	}

	return &ZoneEventPublisher{ch: ch}, nil
}

// DeclareTopology declares the events exchange and binds the zone event queue to it.
func DeclareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

type eventMessage struct {
	EventID    string               `json:"event_id"`
	Event      domain.ZoneEventType `json:"event"`
	AccountID  string               `json:"account_id"`
	DeviceID   string               `json:"device_id"`
	ZoneID     string               `json:"zone_id"`
	Location   eventLocation        `json:"location"`
	Timestamp  int64                `json:"timestamp"`
	AutoNotify bool                 `json:"auto_notify"`
}

type eventLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p *ZoneEventPublisher) PublishEvent(ctx context.Context, ev *domain.ZoneEvent) error {
	body, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.Timestamp,
		Type:         string(ev.Type),
		Body:         body,
	})
}

func encodeEvent(ev *domain.ZoneEvent) ([]byte, error) {
	msg := eventMessage{
		EventID:   ev.ID,
		Event:     ev.Type,
		AccountID: ev.AccountID,
		DeviceID:  ev.DeviceID,
		ZoneID:    ev.ZoneID,
		Location: eventLocation{
			Latitude:  ev.Location.Lat,
			Longitude: ev.Location.Lon,
		},
		Timestamp:  ev.Timestamp.Unix(),
		AutoNotify: ev.AutoNotify,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal zone event: %w", err)
	}
	return body, nil
}
