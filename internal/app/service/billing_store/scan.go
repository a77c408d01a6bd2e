package billing_store

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/fastspring-cashier/internal/models"
	"github.com/fatflowers/fastspring-cashier/pkg/types"
)

type ScanRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanResponse[T any] struct {
	Items []*T  `json:"items"`
	Total int64 `json:"total"`
}

var invoiceScanFields = []string{
	"id", "user_id", "fastspring_id", "type", "subscription_product", "currency",
	"payment_type", "completed", "total", "created_at", "updated_at",
	"subscription_period_start_date", "subscription_period_end_date",
}

var subscriptionScanFields = []string{
	"id", "user_id", "fastspring_id", "name", "plan", "state", "currency",
	"interval_unit", "created_at", "updated_at",
}

func (s *Store) ScanInvoices(ctx context.Context, req *ScanRequest) (*ScanResponse[models.Invoice], error) {
	return scan[models.Invoice](ctx, s, req, invoiceScanFields)
}

func (s *Store) ScanSubscriptions(ctx context.Context, req *ScanRequest) (*ScanResponse[models.Subscription], error) {
	return scan[models.Subscription](ctx, s, req, subscriptionScanFields)
}

// scan implements paginated admin listing with filters.
func scan[T any](ctx context.Context, s *Store, req *ScanRequest, allowed []string) (*ScanResponse[T], error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}
	if err := types.ValidateFilters(req.Filters, allowed...); err != nil {
		return nil, err
	}
	if req.SortBy != "" && !lo.Contains(allowed, req.SortBy) {
		return nil, fmt.Errorf("%w: sort_by %q", types.ErrFilterField, req.SortBy)
	}

	var model T
	tx := s.db.WithContext(ctx).Model(&model)
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{types.FiltersAnd(req.Filters)}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}

	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}

	var rows []*T
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list rows: %w", err)
	}
	return &ScanResponse[T]{Items: rows, Total: total}, nil
}
