package services

import (
	"context"

	"github.com/senyabanana/tender-service/internal/logger"
	"github.com/senyabanana/tender-service/internal/models"
	"github.com/senyabanana/tender-service/internal/repository"

	"github.com/jonboulle/clockwork"
)

// Notifier доставляет уведомления об изменении статуса во внешний сервис рассылки.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Deps - общие зависимости сервисов.
type Deps struct {
	Tenders  repository.TenderRepository
	Bids     repository.BidRepository
	Tx       repository.TxRunner
	Clock    clockwork.Clock
	Notifier Notifier
	Logger   *logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return d
}

// notify вызывается только после фиксации изменений. Ошибка доставки не отменяет операцию.
func (d Deps) notify(ctx context.Context, notes ...models.Notification) {
	if d.Notifier == nil {
		return
	}
	for _, n := range notes {
		if err := d.Notifier.Notify(ctx, n); err != nil {
			d.Logger.Warn().Err(err).
				Str("kind", string(n.Kind)).
				Str("tender_id", n.TenderID).
				Str("bid_id", n.BidID).
				Msg("notification delivery failed")
		}
	}
}

func tenderNotification(kind models.NotificationKind, t *models.Tender) models.Notification {
	return models.Notification{
		Kind:         kind,
		TenderID:     t.ID,
		TenderNumber: t.TenderNumber,
		Status:       string(t.Status),
	}
}
