package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
	"github.com/nandanugg/fleet-geozone/module/core/geozone"
)

const TopicPattern = "/fleet/account/+/device/+/position"

const (
	defaultWorkers   = 8
	defaultQueueSize = 256
)

var ErrNotRunning = errors.New("subscriber not running")

type locationService interface {
	SaveLocation(ctx context.Context, dl *domain.DeviceLocation, snap *geozone.Snapshot) error
}

type snapshotSource interface {
	Snapshot(accountID string) *geozone.Snapshot
}

// FixTracker evaluates the fixes of the devices routed to one worker.
type FixTracker interface {
	Track(ctx context.Context, fix domain.PositionFix, snap *geozone.Snapshot) ([]domain.ZoneEvent, error)
	Retire(ctx context.Context, deviceID string) error
}

// shardJob is either a fix to process or a device to retire.
type shardJob struct {
	location *domain.DeviceLocation
	retireID string
	done     chan error
}

// Missing coordinates decode as nil and are stored as NaN.
type positionMessage struct {
	AccountID string   `json:"account_id"`
	DeviceID  string   `json:"device_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Speed     *float64 `json:"speed"`
	Timestamp int64    `json:"timestamp"`
}

type Option func(*LocationSubscriber)

func WithWorkers(n int) Option {
	return func(s *LocationSubscriber) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(s *LocationSubscriber) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *LocationSubscriber) {
		if l != nil {
			s.logger = l
		}
	}
}

// LocationSubscriber consumes position fixes from MQTT. Fixes are routed to a
// worker by device id so each device is always tracked by the same
// goroutine, in arrival order.
type LocationSubscriber struct {
	client      mqtt.Client
	locationSvc locationService
	snapshots   snapshotSource
	newTracker  func() FixTracker
	logger      *slog.Logger
	workers     int
	queueSize   int

	mu      sync.RWMutex
	shards  []chan shardJob
	stopped bool
	wg      sync.WaitGroup
}

func NewLocationSubscriber(client mqtt.Client, locationSvc locationService, snapshots snapshotSource, newTracker func() FixTracker, opts ...Option) *LocationSubscriber {
	s := &LocationSubscriber{
		client:      client,
		locationSvc: locationSvc,
		snapshots:   snapshots,
		newTracker:  newTracker,
		logger:      slog.Default(),
		workers:     defaultWorkers,
		queueSize:   defaultQueueSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LocationSubscriber) Start(ctx context.Context) error {
	s.startWorkers(ctx)

	token := s.client.Subscribe(TopicPattern, 1, s.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		s.Stop()
		return fmt.Errorf("subscribe %s: %w", TopicPattern, err)
	}
	s.logger.Info("position subscriber started", "topic", TopicPattern, "workers", s.workers)
	return nil
}

// Stop unsubscribes and waits for queued fixes to be processed.
func (s *LocationSubscriber) Stop() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Unsubscribe(TopicPattern).Wait()
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for _, ch := range s.shards {
		close(ch)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *LocationSubscriber) startWorkers(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shards = make([]chan shardJob, s.workers)
	for i := range s.shards {
		ch := make(chan shardJob, s.queueSize)
		s.shards[i] = ch
		tracker := s.newTracker()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for job := range ch {
				if job.location != nil {
					s.process(ctx, tracker, job.location)
					continue
				}
				job.done <- tracker.Retire(ctx, job.retireID)
			}
		}()
	}
}

func (s *LocationSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	dl, err := parseMessage(msg.Topic(), msg.Payload())
	if err != nil {
		s.logger.Warn("position message rejected", "topic", msg.Topic(), "error", err)
		return
	}
	s.dispatch(dl)
}

// dispatch blocks while the device's shard is full, pushing back on the
// MQTT client.
func (s *LocationSubscriber) dispatch(dl *domain.DeviceLocation) {
	if err := s.enqueue(context.Background(), dl.DeviceID, shardJob{location: dl}); err != nil {
		s.logger.Warn("position dropped", "device_id", dl.DeviceID, "error", err)
	}
}

// Retire discards the membership state of a device. It runs on the worker
// that owns the device, after the fixes already queued for it.
func (s *LocationSubscriber) Retire(ctx context.Context, deviceID string) error {
	done := make(chan error, 1)
	if err := s.enqueue(ctx, deviceID, shardJob{retireID: deviceID, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *LocationSubscriber) enqueue(ctx context.Context, deviceID string, job shardJob) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped || len(s.shards) == 0 {
		return ErrNotRunning
	}
	select {
	case s.shards[shardFor(deviceID, len(s.shards))] <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// process stores and tracks one fix. Address and transitions come from the
// same snapshot.
func (s *LocationSubscriber) process(ctx context.Context, tracker FixTracker, dl *domain.DeviceLocation) {
	snap := s.snapshots.Snapshot(dl.AccountID)

	if err := s.locationSvc.SaveLocation(ctx, dl, snap); err != nil {
		s.logger.Error("save location failed", "device_id", dl.DeviceID, "error", err)
		return
	}

	if _, err := tracker.Track(ctx, dl.Fix(), snap); err != nil {
		s.logger.Error("zone tracking failed", "device_id", dl.DeviceID, "error", err)
	}
}

func shardFor(deviceID string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(deviceID))
	return int(h.Sum32() % uint32(n))
}

func parseMessage(topic string, payload []byte) (*domain.DeviceLocation, error) {
	var raw positionMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if account, device, ok := topicIDs(topic); ok {
		if raw.AccountID == "" {
			raw.AccountID = account
		}
		if raw.DeviceID == "" {
			raw.DeviceID = device
		}
		if raw.AccountID != account || raw.DeviceID != device {
			return nil, errors.New("payload ids do not match topic")
		}
	}

	if err := validatePositionMessage(&raw); err != nil {
		return nil, err
	}

	return &domain.DeviceLocation{
		AccountID: raw.AccountID,
		DeviceID:  raw.DeviceID,
		Location: domain.Location{
			Lat:       orNaN(raw.Latitude),
			Lon:       orNaN(raw.Longitude),
			Speed:     raw.Speed,
			Timestamp: time.Unix(raw.Timestamp, 0),
		},
	}, nil
}

// topicIDs extracts the ids from /fleet/account/{account}/device/{device}/position.
func topicIDs(topic string) (string, string, bool) {
	parts := strings.Split(strings.TrimPrefix(topic, "/"), "/")
	if len(parts) != 6 || parts[0] != "fleet" || parts[1] != "account" || parts[3] != "device" || parts[5] != "position" {
		return "", "", false
	}
	return parts[2], parts[4], true
}

func validatePositionMessage(msg *positionMessage) error {
	if msg.AccountID == "" {
		return fmt.Errorf("account_id: required")
	}
	if msg.DeviceID == "" {
		return fmt.Errorf("device_id: required")
	}
	if msg.Latitude != nil && (*msg.Latitude < -90 || *msg.Latitude > 90) {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if msg.Longitude != nil && (*msg.Longitude < -180 || *msg.Longitude > 180) {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if msg.Speed != nil && *msg.Speed < 0 {
		return fmt.Errorf("speed: must not be negative")
	}
	if msg.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
