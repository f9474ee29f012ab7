package publisher

import (
	"context"

	"github.com/nandanugg/fleet-geozone/module/core/domain"
)

type ZoneEventPublisher interface {
	PublishEvent(ctx context.Context, event *domain.ZoneEvent) error
}
