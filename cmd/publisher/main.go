package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nandanugg/fleet-geozone/config"
)

// Depot the mock fleet keeps returning to; create a zone around it to see
// arrival and departure events.
const (
	depotLat = -6.2088
	depotLon = 106.8456
)

type positionMessage struct {
	AccountID string   `json:"account_id"`
	DeviceID  string   `json:"device_id"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

type device struct {
	id       string
	lat, lon float64
}

// step moves the device a little, drifting back towards the depot half the time.
func (d *device) step() {
	if rand.Float64() < 0.5 {
		d.lat += (depotLat - d.lat) * 0.5
		d.lon += (depotLon - d.lon) * 0.5
		return
	}
	d.lat += (rand.Float64() - 0.5) * 0.01
	d.lon += (rand.Float64() - 0.5) * 0.01
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds> [account_id]\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}
	accountID := "acme"
	if len(os.Args) > 2 {
		accountID = os.Args[2]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID("fleet-mock-publisher-" + uuid.NewString()[:8])

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		logger.Error("mqtt connect", "error", token.Error())
		os.Exit(1)
	}
	defer client.Disconnect(250)

	fleet := make([]*device, 5)
	for i := range fleet {
		fleet[i] = &device{
			id:  "dev-" + uuid.NewString()[:8],
			lat: depotLat + (rand.Float64()-0.5)*0.02,
			lon: depotLon + (rand.Float64()-0.5)*0.02,
		}
	}

	logger.Info("publishing", "broker", cfg.MQTTBroker, "interval_seconds", intervalSec, "account_id", accountID, "devices", len(fleet))

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		d := fleet[rand.Intn(len(fleet))]
		d.step()

		lat, lon, speed := d.lat, d.lon, rand.Float64()*80
		msg := positionMessage{
			AccountID: accountID,
			DeviceID:  d.id,
			Speed:     &speed,
			Timestamp: time.Now().Unix(),
		}
		// Occasionally report a fix without a GPS lock.
		if rand.Float64() >= 0.05 {
			msg.Latitude, msg.Longitude = &lat, &lon
		}

		payload, _ := json.Marshal(msg)
		topic := fmt.Sprintf("/fleet/account/%s/device/%s/position", accountID, d.id)

		token := client.Publish(topic, 1, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			logger.Error("publish", "topic", topic, "error", err)
			continue
		}

		logger.Info("published", "topic", topic, "payload", string(payload))
	}
}
