package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/billing_store"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/listener"
	"github.com/fatflowers/fastspring-cashier/internal/models"
	"github.com/fatflowers/fastspring-cashier/pkg/response"
	"github.com/fatflowers/fastspring-cashier/pkg/types"
)

// AdminStore is the part of billing_store.Store the admin API reads and writes.
type AdminStore interface {
	ScanInvoices(ctx context.Context, req *billing_store.ScanRequest) (*billing_store.ScanResponse[models.Invoice], error)
	ScanSubscriptions(ctx context.Context, req *billing_store.ScanRequest) (*billing_store.ScanResponse[models.Subscription], error)
	CreateSubscriptionPeriod(ctx context.Context, p *models.SubscriptionPeriod) error
	ListSubscriptionPeriods(ctx context.Context, subscriptionID string) ([]*models.SubscriptionPeriod, error)
}

// CreateSubscriptionPeriodRequest records a billed period either from
// explicit dates or from the next charge date and billing interval, the way
// Fastspring reports them on subscription.charge.completed.
type CreateSubscriptionPeriodRequest struct {
	SubscriptionID string             `json:"subscription_id" binding:"required"`
	StartDate      *time.Time         `json:"start_date"`
	EndDate        *time.Time         `json:"end_date"`
	NextChargeDate *time.Time         `json:"next_charge_date"`
	IntervalUnit   types.IntervalUnit `json:"interval_unit"`
	IntervalLength int                `json:"interval_length"`
}

var errPeriodDates = errors.New("either start_date and end_date or next_charge_date with interval is required")

func (r *CreateSubscriptionPeriodRequest) period() (*models.SubscriptionPeriod, error) {
	var start, end time.Time
	switch {
	case r.StartDate != nil && r.EndDate != nil:
		start, end = r.StartDate.UTC(), r.EndDate.UTC()
	case r.NextChargeDate != nil:
		var err error
		start, end, err = listener.ChargedPeriod(*r.NextChargeDate, r.IntervalUnit, r.IntervalLength)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errPeriodDates
	}
	if end.Before(start) {
		return nil, errors.New("end_date is before start_date")
	}
	return &models.SubscriptionPeriod{SubscriptionID: r.SubscriptionID, StartDate: start, EndDate: end}, nil
}

func scanErrorCode(err error) response.APIResponseCode {
	if errors.Is(err, types.ErrFilterField) {
		return response.APIResponseCodeBadRequest
	}
	return response.APIResponseCodeError
}

// @Summary      List Invoices (Admin)
// @Description  Retrieves a paginated and filterable list of invoices.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body billing_store.ScanRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespInvoicePage
// @Router       /api/v1/admin/list_invoices [post]
func ApiListInvoices(store AdminStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req billing_store.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := store.ScanInvoices(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](scanErrorCode(err), err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List Subscriptions (Admin)
// @Description  Retrieves a paginated and filterable list of subscriptions.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body billing_store.ScanRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespSubscriptionPage
// @Router       /api/v1/admin/list_subscriptions [post]
func ApiListSubscriptions(store AdminStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req billing_store.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := store.ScanSubscriptions(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](scanErrorCode(err), err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Record Subscription Period (Admin)
// @Description  Stores a billed period of a subscription. Posting the same start again updates its end date.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateSubscriptionPeriodRequest true "Period"
// @Success      200  {object}  handlers.RespSubscriptionPeriod
// @Router       /api/v1/admin/subscription_periods [post]
func ApiCreateSubscriptionPeriod(store AdminStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateSubscriptionPeriodRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		p, err := req.period()
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := store.CreateSubscriptionPeriod(c.Request.Context(), p); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(p))
	}
}

// @Summary      List Subscription Periods (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Subscription ID"
// @Success      200  {object}  handlers.RespSubscriptionPeriods
// @Router       /api/v1/admin/subscriptions/{id}/periods [get]
func ApiListSubscriptionPeriods(store AdminStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := store.ListSubscriptionPeriods(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

func RegisterAdminRoutes(r gin.IRouter, store AdminStore) {
	r.POST("/list_invoices", ApiListInvoices(store))
	r.POST("/list_subscriptions", ApiListSubscriptions(store))
	r.POST("/subscription_periods", ApiCreateSubscriptionPeriod(store))
	r.GET("/subscriptions/:id/periods", ApiListSubscriptionPeriods(store))
}
