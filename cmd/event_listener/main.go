package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/fleet-geozone/config"
)

const (
	exchangeName = "fleet.events"
	queueName    = "zone_events"
)

type zoneEvent struct {
	EventID    string `json:"event_id"`
	Event      string `json:"event"`
	AccountID  string `json:"account_id"`
	DeviceID   string `json:"device_id"`
	ZoneID     string `json:"zone_id"`
	Timestamp  int64  `json:"timestamp"`
	AutoNotify bool   `json:"auto_notify"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	conn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		logger.Error("rabbitmq", "error", err)
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("rabbitmq channel", "error", err)
		os.Exit(1)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		logger.Error("declare exchange", "error", err)
		os.Exit(1)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		logger.Error("declare queue", "error", err)
		os.Exit(1)
	}
	if err := ch.QueueBind(queueName, "", exchangeName, false, nil); err != nil {
		logger.Error("bind queue", "error", err)
		os.Exit(1)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		logger.Error("consume", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("waiting for zone events", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Warn("delivery channel closed")
				return
			}
			handle(logger, msg)
		}
	}
}

func handle(logger *slog.Logger, msg amqp.Delivery) {
	var ev zoneEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		logger.Warn("undecodable event", "error", err)
		_ = msg.Nack(false, false)
		return
	}
	logger.Info("zone event",
		"event", ev.Event,
		"account_id", ev.AccountID,
		"device_id", ev.DeviceID,
		"zone_id", ev.ZoneID,
		"auto_notify", ev.AutoNotify,
		"event_id", ev.EventID,
	)
	_ = msg.Ack(false)
}
