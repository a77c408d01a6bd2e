package listener

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/fastspring-cashier/internal/models"
	"github.com/fatflowers/fastspring-cashier/pkg/types"
)

// Store is the subset of the billing store the listeners write through.
type Store interface {
	FindOwnerByFastspringID(ctx context.Context, fastspringID string) (*models.User, error)
	FirstOrNewInvoice(ctx context.Context, fastspringID string, typ types.InvoiceType) (*models.Invoice, error)
	SaveInvoice(ctx context.Context, inv *models.Invoice) error
	FindSubscriptionByFastspringID(ctx context.Context, fastspringID string) (*models.Subscription, error)
	FirstOrNewSubscription(ctx context.Context, fastspringID string) (*models.Subscription, error)
	SaveSubscription(ctx context.Context, sub *models.Subscription) error
}

type Base struct {
	store Store
	log   *zap.SugaredLogger
}

func NewBase(store Store, log *zap.SugaredLogger) Base {
	return Base{store: store, log: log}
}

// ownerByFastspringID fails with billing_store.ErrOwnerNotFound when no local
// owner carries the account id.
func (b *Base) ownerByFastspringID(ctx context.Context, accountID string) (*models.User, error) {
	return b.store.FindOwnerByFastspringID(ctx, accountID)
}

func unixUTC(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
