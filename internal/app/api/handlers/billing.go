package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/billable"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/billing_store"
	"github.com/fatflowers/fastspring-cashier/internal/models"
	"github.com/fatflowers/fastspring-cashier/internal/platform/fastspring"
	"github.com/fatflowers/fastspring-cashier/pkg/response"
	types "github.com/fatflowers/fastspring-cashier/pkg/types"
)

// BillingService is the owner-facing part of billable.Service.
type BillingService interface {
	FindOwner(ctx context.Context, id string) (*models.User, error)
	Subscriptions(ctx context.Context, owner billable.Owner) ([]*models.Subscription, error)
	Invoices(ctx context.Context, owner billable.Owner) ([]*models.Invoice, error)
	SubscriptionInfo(ctx context.Context, owner billable.Owner, name string) (*types.BillableSubscriptionInfo, error)
	AccountManagementURI(ctx context.Context, owner billable.Owner) (string, error)
	StartSubscription(ctx context.Context, owner billable.Owner, name, plan string, quantity int, coupon string) (*fastspring.Session, error)
}

type StartSubscriptionRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Name     string `json:"name"`
	Plan     string `json:"plan" binding:"required"`
	Quantity int    `json:"quantity" binding:"omitempty,min=1"`
	Coupon   string `json:"coupon"`
}

type AccountManagementURLResponse struct {
	URL string `json:"url"`
}

// ownerErrorCode maps a lookup failure of the owner to a response code.
func ownerErrorCode(err error) response.APIResponseCode {
	if errors.Is(err, billing_store.ErrOwnerNotFound) {
		return response.APIResponseCodeNotFound
	}
	return response.APIResponseCodeError
}

// loadOwner reads :user_id and writes the error response itself when the
// owner cannot be loaded.
func loadOwner(c *gin.Context, svc BillingService, userID string) (*models.User, bool) {
	if userID == "" {
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
		return nil, false
	}
	owner, err := svc.FindOwner(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusOK, response.ErrorT[any](ownerErrorCode(err), err.Error()))
		return nil, false
	}
	return owner, true
}

// @Summary      Start a subscription
// @Description  Creates the owner's Fastspring account if needed and opens a checkout session for plan.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        request  body      StartSubscriptionRequest  true  "Subscription request"
// @Success      200      {object}  RespSession
// @Router       /api/v1/billing/session [post]
func ApiStartSubscription(svc BillingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StartSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		owner, ok := loadOwner(c, svc, req.UserID)
		if !ok {
			return
		}
		session, err := svc.StartSubscription(c.Request.Context(), owner, req.Name, req.Plan, req.Quantity, req.Coupon)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(session))
	}
}

// @Summary      List subscriptions of a user
// @Tags         Billing
// @Produce      json
// @Param        user_id  path      string  true  "User ID"
// @Success      200      {object}  RespSubscriptions
// @Router       /api/v1/billing/users/{user_id}/subscriptions [get]
func ApiListUserSubscriptions(svc BillingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := loadOwner(c, svc, c.Param("user_id"))
		if !ok {
			return
		}
		subs, err := svc.Subscriptions(c.Request.Context(), owner)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(subs))
	}
}

// @Summary      Subscription status of a user
// @Description  Reports state, validity and trial status of the newest subscription called name (default "default").
// @Tags         Billing
// @Produce      json
// @Param        user_id  path      string  true   "User ID"
// @Param        name     query     string  false  "Subscription name"
// @Success      200      {object}  RespSubscriptionInfo
// @Router       /api/v1/billing/users/{user_id}/subscription [get]
func ApiUserSubscriptionInfo(svc BillingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := loadOwner(c, svc, c.Param("user_id"))
		if !ok {
			return
		}
		info, err := svc.SubscriptionInfo(c.Request.Context(), owner, c.DefaultQuery("name", "default"))
		if err != nil {
			code := response.APIResponseCodeError
			if errors.Is(err, billing_store.ErrSubscriptionNotFound) {
				code = response.APIResponseCodeNotFound
			}
			c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(info))
	}
}

// @Summary      List invoices of a user
// @Tags         Billing
// @Produce      json
// @Param        user_id  path      string  true  "User ID"
// @Success      200      {object}  RespInvoices
// @Router       /api/v1/billing/users/{user_id}/invoices [get]
func ApiListUserInvoices(svc BillingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := loadOwner(c, svc, c.Param("user_id"))
		if !ok {
			return
		}
		invoices, err := svc.Invoices(c.Request.Context(), owner)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(invoices))
	}
}

// @Summary      Account management URL
// @Description  Returns the Fastspring self-service URL of the user's account.
// @Tags         Billing
// @Produce      json
// @Param        user_id  path      string  true  "User ID"
// @Success      200      {object}  RespAccountManagementURL
// @Router       /api/v1/billing/users/{user_id}/account_management_url [get]
func ApiAccountManagementURL(svc BillingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := loadOwner(c, svc, c.Param("user_id"))
		if !ok {
			return
		}
		uri, err := svc.AccountManagementURI(c.Request.Context(), owner)
		if err != nil {
			code := response.APIResponseCodeError
			if errors.Is(err, billable.ErrNoFastspringID) || errors.Is(err, billable.ErrNoManagementURL) {
				code = response.APIResponseCodeNotFound
			}
			c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(AccountManagementURLResponse{URL: uri}))
	}
}

func RegisterBillingRoutes(r gin.IRouter, svc BillingService) {
	r.POST("/session", ApiStartSubscription(svc))
	r.GET("/users/:user_id/subscriptions", ApiListUserSubscriptions(svc))
	r.GET("/users/:user_id/subscription", ApiUserSubscriptionInfo(svc))
	r.GET("/users/:user_id/invoices", ApiListUserInvoices(svc))
	r.GET("/users/:user_id/account_management_url", ApiAccountManagementURL(svc))
}
