package notify

import (
	"context"

	"github.com/senyabanana/tender-service/internal/logger"
	"github.com/senyabanana/tender-service/internal/models"
)

// LogNotifier пишет уведомления в журнал. Доставка поставщикам выполняется
// внешним сервисом, который читает эти события.
type LogNotifier struct {
	Logger *logger.Logger
}

// NewLogNotifier создаёт новый экземпляр LogNotifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{Logger: log.Named("notifier")}
}

// Notify записывает уведомление как структурированное событие.
func (n *LogNotifier) Notify(ctx context.Context, msg models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev := n.Logger.Info().
		Str("kind", string(msg.Kind)).
		Str("tender_id", msg.TenderID).
		Str("tender_number", msg.TenderNumber).
		Str("status", msg.Status)
	if msg.BidID != "" {
		ev = ev.Str("bid_id", msg.BidID).Str("vendor_id", msg.VendorID)
	}
	ev.Msg("notification")
	return nil
}
