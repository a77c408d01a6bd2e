package billing_store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/fastspring-cashier/internal/models"
	cfgpkg "github.com/fatflowers/fastspring-cashier/pkg/config"
	"github.com/fatflowers/fastspring-cashier/pkg/tool"
	"github.com/fatflowers/fastspring-cashier/pkg/types"
)

var (
	ErrOwnerNotFound        = errors.New("owner not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Store persists owners, subscriptions, periods and invoices.
type Store struct {
	db         *gorm.DB
	log        *zap.SugaredLogger
	ownerTable string
}

func New(db *gorm.DB, cfg *cfgpkg.Config, log *zap.SugaredLogger) *Store {
	table := cfg.Fastspring.OwnerTable
	if table == "" {
		table = models.User{}.TableName()
	}
	return &Store{db: db, log: log, ownerTable: table}
}

func (s *Store) owners(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.ownerTable)
}

func (s *Store) FindOwner(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.owners(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id=%s", ErrOwnerNotFound, id)
		}
		return nil, fmt.Errorf("failed to find owner: %w", err)
	}
	return &u, nil
}

func (s *Store) FindOwnerByFastspringID(ctx context.Context, fastspringID string) (*models.User, error) {
	if fastspringID == "" {
		return nil, fmt.Errorf("%w: empty fastspring id", ErrOwnerNotFound)
	}
	var u models.User
	if err := s.owners(ctx).Where("fastspring_id = ?", fastspringID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: fastspring_id=%s", ErrOwnerNotFound, fastspringID)
		}
		return nil, fmt.Errorf("failed to find owner: %w", err)
	}
	return &u, nil
}

// SaveOwner writes back the billing columns of u.
func (s *Store) SaveOwner(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = tool.GenerateUUIDV7()
	}
	if err := s.owners(ctx).Save(u).Error; err != nil {
		return fmt.Errorf("failed to save owner: %w", err)
	}
	return nil
}

// SetOwnerFastspringID stores the remote account id on the owner row without
// touching any other column.
func (s *Store) SetOwnerFastspringID(ctx context.Context, ownerID, fastspringID string) error {
	res := s.owners(ctx).Where("id = ?", ownerID).Update("fastspring_id", fastspringID)
	if res.Error != nil {
		return fmt.Errorf("failed to update owner fastspring id: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id=%s", ErrOwnerNotFound, ownerID)
	}
	return nil
}

// FirstOrNewInvoice returns the stored invoice for (fastspringID, typ) or an
// unsaved one carrying those keys.
func (s *Store) FirstOrNewInvoice(ctx context.Context, fastspringID string, typ types.InvoiceType) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).Where("fastspring_id = ? AND type = ?", fastspringID, typ).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Invoice{ID: tool.GenerateUUIDV7(), FastspringID: fastspringID, Type: typ}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	return &inv, nil
}

func (s *Store) SaveInvoice(ctx context.Context, inv *models.Invoice) error {
	if inv.ID == "" {
		inv.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Save(inv).Error; err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

func (s *Store) ListInvoicesByOwner(ctx context.Context, ownerID string) ([]*models.Invoice, error) {
	var rows []*models.Invoice
	if err := s.db.WithContext(ctx).Where("user_id = ?", ownerID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return rows, nil
}

func (s *Store) FindSubscriptionByFastspringID(ctx context.Context, fastspringID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("fastspring_id = ?", fastspringID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: fastspring_id=%s", ErrSubscriptionNotFound, fastspringID)
		}
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return &sub, nil
}

func (s *Store) FirstOrNewSubscription(ctx context.Context, fastspringID string) (*models.Subscription, error) {
	sub, err := s.FindSubscriptionByFastspringID(ctx, fastspringID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return &models.Subscription{
			ID:           tool.GenerateUUIDV7(),
			FastspringID: fastspringID,
			Name:         types.DefaultSubscriptionName,
		}, nil
	}
	return sub, err
}

func (s *Store) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(sub).Error; err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// ListSubscriptionsByOwner returns the owner's subscriptions, newest first.
func (s *Store) ListSubscriptionsByOwner(ctx context.Context, ownerID string) ([]*models.Subscription, error) {
	var rows []*models.Subscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", ownerID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return rows, nil
}

func (s *Store) LatestSubscriptionByName(ctx context.Context, ownerID, name string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", ownerID, name).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user_id=%s name=%s", ErrSubscriptionNotFound, ownerID, name)
		}
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return &sub, nil
}

// CreateSubscriptionPeriod records a billed period. A period with the same
// start for the same subscription is updated in place.
func (s *Store) CreateSubscriptionPeriod(ctx context.Context, p *models.SubscriptionPeriod) error {
	if p.ID == "" {
		p.ID = tool.GenerateUUIDV7()
	}
	err := s.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscription_id"}, {Name: "start_date"}},
		DoUpdates: clause.Assignments(map[string]any{"end_date": p.EndDate, "updated_at": time.Now()}),
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("failed to create subscription period: %w", err)
	}
	return nil
}

func (s *Store) ListSubscriptionPeriods(ctx context.Context, subscriptionID string) ([]*models.SubscriptionPeriod, error) {
	var rows []*models.SubscriptionPeriod
	if err := s.db.WithContext(ctx).Where("subscription_id = ?", subscriptionID).Order("start_date ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscription periods: %w", err)
	}
	return rows, nil
}
