package statistics

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/fastspring-cashier/internal/models"
	"github.com/fatflowers/fastspring-cashier/pkg/logctx"
	"github.com/fatflowers/fastspring-cashier/pkg/types"
)

type StatisticType string

const (
	// Invoice based
	StatisticTypeDailyInvoiceCount StatisticType = "daily_invoice_count"
	StatisticTypeDailyRevenue      StatisticType = "daily_revenue"
	StatisticTypeTotalRevenue      StatisticType = "total_revenue"

	// Subscription based
	StatisticTypeDailyNewSubscriptionCount StatisticType = "daily_new_subscription_count"
	StatisticTypeSubscriptionStateCount    StatisticType = "subscription_state_count"
	StatisticTypeValidSubscriptionCount    StatisticType = "valid_subscription_count"
)

// Filters are applied per statistic: a filter on a column the statistic's
// table does not have is dropped for that statistic only.
var (
	invoiceFields      = []string{"user_id", "type", "subscription_product", "currency", "payment_type", "completed", "created_at"}
	subscriptionFields = []string{"user_id", "name", "plan", "state", "currency", "interval_unit", "created_at"}
)

var statisticFields = map[StatisticType][]string{
	StatisticTypeDailyInvoiceCount:         invoiceFields,
	StatisticTypeDailyRevenue:              invoiceFields,
	StatisticTypeTotalRevenue:              invoiceFields,
	StatisticTypeDailyNewSubscriptionCount: subscriptionFields,
	StatisticTypeSubscriptionStateCount:    subscriptionFields,
	StatisticTypeValidSubscriptionCount:    subscriptionFields,
}

type BillingStatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type BillingStatisticRequest struct {
	Filters   []*types.CommonFilter       `json:"filters"`
	DataItems []*BillingStatisticDataItem `json:"data_items"`
}

// Validate rejects unknown statistics and filters on columns no statistic has.
func (r *BillingStatisticRequest) Validate() error {
	if len(r.DataItems) == 0 {
		return fmt.Errorf("data_items is required")
	}
	for _, di := range r.DataItems {
		if _, ok := statisticFields[di.ID]; !ok {
			return fmt.Errorf("invalid data item id: %s", di.ID)
		}
	}
	return types.ValidateFilters(r.Filters, lo.Union(invoiceFields, subscriptionFields)...)
}

func (r *BillingStatisticRequest) filtersFor(t StatisticType) types.FiltersAnd {
	allowed := statisticFields[t]
	return lo.Filter(r.Filters, func(f *types.CommonFilter, _ int) bool {
		return lo.Contains(allowed, f.Field)
	})
}

type BillingStatisticResponseDataItem struct {
	Date  string  `json:"date,omitempty"`
	Label string  `json:"label,omitempty"`
	Value float64 `json:"value"`
}

type BillingStatisticResponse struct {
	DataItems map[StatisticType][]BillingStatisticResponseDataItem `json:"data_items"`
}

// Service computes admin dashboards over invoices and subscriptions.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

func (s *Service) where(r *BillingStatisticRequest, t StatisticType) clause.Where {
	return clause.Where{Exprs: []clause.Expression{r.filtersFor(t)}}
}

func (s *Service) getDailyInvoiceCount(ctx context.Context, r *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Invoice{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(*) as value").
		Where("completed = ?", true).
		Where(s.where(r, StatisticTypeDailyInvoiceCount)).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyRevenue(ctx context.Context, r *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Invoice{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, currency AS label, sum(total) as value").
		Where("completed = ?", true).
		Where(s.where(r, StatisticTypeDailyRevenue)).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Group("currency").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalRevenue(ctx context.Context, r *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Invoice{}).TableName()).
		Select("currency AS label, sum(total) as value").
		Where("completed = ?", true).
		Where(s.where(r, StatisticTypeTotalRevenue)).
		Group("currency").
		Order("label")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyNewSubscriptionCount(ctx context.Context, r *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Subscription{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(*) as value").
		Where(s.where(r, StatisticTypeDailyNewSubscriptionCount)).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getSubscriptionStateCount(ctx context.Context, r *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Subscription{}).TableName()).
		Select("state AS label, count(*) as value").
		Where(s.where(r, StatisticTypeSubscriptionStateCount)).
		Group("state").
		Order("label")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// getValidSubscriptionCount counts subscriptions that still grant access.
func (s *Service) getValidSubscriptionCount(ctx context.Context, r *BillingStatisticRequest) ([]BillingStatisticResponseDataItem, error) {
	var results []BillingStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Subscription{}).TableName()).
		Select("count(*) as value").
		Where("state <> '' AND state <> ?", types.SubscriptionStateDeactivated).
		Where(s.where(r, StatisticTypeValidSubscriptionCount))
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getStatistic(ctx context.Context, r *BillingStatisticRequest, dataItem *BillingStatisticDataItem) ([]BillingStatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyInvoiceCount:
		return s.getDailyInvoiceCount(ctx, r)
	case StatisticTypeDailyRevenue:
		return s.getDailyRevenue(ctx, r)
	case StatisticTypeTotalRevenue:
		return s.getTotalRevenue(ctx, r)
	case StatisticTypeDailyNewSubscriptionCount:
		return s.getDailyNewSubscriptionCount(ctx, r)
	case StatisticTypeSubscriptionStateCount:
		return s.getSubscriptionStateCount(ctx, r)
	case StatisticTypeValidSubscriptionCount:
		return s.getValidSubscriptionCount(ctx, r)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

// GetBillingStatistic computes every requested data item concurrently.
func (s *Service) GetBillingStatistic(ctx context.Context, request *BillingStatisticRequest) (*BillingStatisticResponse, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []BillingStatisticResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *BillingStatisticDataItem) {
			defer wg.Done()
			res, err := s.getStatistic(ctx, request, di)
			if err != nil {
				errChan <- fmt.Errorf("%s: %w", di.ID, err)
				return
			}
			resChan <- &lo.Entry[StatisticType, []BillingStatisticResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	go func() { wg.Wait(); close(errChan); close(resChan) }()

	results := make(map[StatisticType][]BillingStatisticResponseDataItem)
	for i := 0; i < len(request.DataItems); i++ {
		select {
		case err := <-errChan:
			if err != nil {
				logctx.FromCtx(ctx, s.log).Errorw("billing_statistic_failed", "error", err)
				return nil, err
			}
		case entry := <-resChan:
			results[entry.Key] = entry.Value
		}
	}
	return &BillingStatisticResponse{DataItems: results}, nil
}
