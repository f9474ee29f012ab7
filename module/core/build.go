package core

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/nandanugg/fleet-geozone/module/core/geozone"
	handler "github.com/nandanugg/fleet-geozone/module/core/internal/handler/http"
	"github.com/nandanugg/fleet-geozone/module/core/internal/handler/subscriber"
	"github.com/nandanugg/fleet-geozone/module/core/internal/metrics"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/cache"
	rediscache "github.com/nandanugg/fleet-geozone/module/core/internal/repository/cache/redis"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/database/postgres"
	"github.com/nandanugg/fleet-geozone/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/fleet-geozone/module/core/service"
)

// Deps are the connections the module is built on. Redis is optional; without
// it the current-zone read model is disabled.
type Deps struct {
	DB         *sql.DB
	AMQP       *amqp.Connection
	MQTT       mqtt.Client
	Redis      redis.Cmdable
	Registerer prometheus.Registerer
	Logger     *slog.Logger
	Workers    int
	QueueSize  int
}

type Module struct {
	LocationSvc *service.LocationService
	ZoneSvc     *service.ZoneService
	GeozoneSvc  *service.GeozoneService
	Snapshots   *geozone.SnapshotStore

	metrics       *metrics.Collector
	deviceHandler *handler.DeviceHandler
	zoneHandler   *handler.ZoneHandler
	subscriber    *subscriber.LocationSubscriber
}

func Build(d Deps) (*Module, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	collector, err := metrics.NewCollector(d.Registerer)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	locationRepo := postgres.NewLocationRepo(d.DB)
	zoneRepo := postgres.NewZoneRepo(d.DB)

	eventPub, err := rabbitmq.NewZoneEventPublisher(d.AMQP)
	if err != nil {
		return nil, fmt.Errorf("zone event publisher: %w", err)
	}

	var memberships cache.MembershipCache
	if d.Redis != nil {
		memberships = rediscache.NewMembershipCache(d.Redis)
	}

	snapshots := geozone.NewSnapshotStore()
	locationSvc := service.NewLocationService(locationRepo)
	zoneSvc := service.NewZoneService(zoneRepo, snapshots, collector, logger)
	geozoneSvc := service.NewGeozoneService(snapshots, eventPub, memberships,
		service.WithMetrics(collector),
		service.WithLogger(logger),
	)

	sub := subscriber.NewLocationSubscriber(d.MQTT, locationSvc, geozoneSvc,
		func() subscriber.FixTracker { return geozoneSvc.NewTracker() },
		subscriber.WithWorkers(d.Workers),
		subscriber.WithQueueSize(d.QueueSize),
		subscriber.WithLogger(logger),
	)

	return &Module{
		LocationSvc:   locationSvc,
		ZoneSvc:       zoneSvc,
		GeozoneSvc:    geozoneSvc,
		Snapshots:     snapshots,
		metrics:       collector,
		deviceHandler: handler.NewDeviceHandler(locationSvc, geozoneSvc, sub),
		zoneHandler:   handler.NewZoneHandler(zoneSvc, geozoneSvc),
		subscriber:    sub,
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.deviceHandler.Register(r)
	m.zoneHandler.Register(r)
}

func (m *Module) MetricsHandler() http.Handler {
	return m.metrics.Handler()
}

// LoadZones publishes the stored zones of every account. Call it before
// StartSubscribers so the first fixes see the real snapshots.
func (m *Module) LoadZones(ctx context.Context) error {
	return m.ZoneSvc.ReloadAll(ctx)
}

func (m *Module) StartSubscribers(ctx context.Context) error {
	return m.subscriber.Start(ctx)
}

func (m *Module) Stop() {
	m.subscriber.Stop()
}
