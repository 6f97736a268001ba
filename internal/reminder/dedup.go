package reminder

import (
	"context"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/model"
	"github.com/LeventeLantos/rental-messaging/internal/repo"
)

// DedupGuard reports whether a recipient already got a reminder of a type
// during the current business day.
type DedupGuard struct {
	logs repo.DeliveryLogRepository
	loc  *time.Location
	now  func() time.Time
}

func NewDedupGuard(logs repo.DeliveryLogRepository, loc *time.Location) *DedupGuard {
	return &DedupGuard{logs: logs, loc: loc, now: time.Now}
}

func (g *DedupGuard) WithClock(now func() time.Time) *DedupGuard {
	g.now = now
	return g
}

// AlreadySentToday only counts successful deliveries; failed ones never
// suppress a send.
func (g *DedupGuard) AlreadySentToday(ctx context.Context, recipient, messageType string) (bool, error) {
	from := startOfDay(g.now(), g.loc)
	to := from.AddDate(0, 0, 1)
	return g.logs.Exists(ctx, recipient, EquivalentTypes(messageType), model.SuccessfulDeliveryStatuses, from, to)
}
