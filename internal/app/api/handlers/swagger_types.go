package handlers

import (
	"github.com/fatflowers/fastspring-cashier/internal/app/service/billing_store"
	"github.com/fatflowers/fastspring-cashier/internal/app/service/statistics"
	"github.com/fatflowers/fastspring-cashier/internal/models"
	"github.com/fatflowers/fastspring-cashier/internal/platform/fastspring"
	"github.com/fatflowers/fastspring-cashier/pkg/response"
	types "github.com/fatflowers/fastspring-cashier/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespSession wraps a Fastspring checkout session in the standard envelope.
type RespSession struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    fastspring.Session       `json:"data"`
}

type RespSubscriptions struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Subscription    `json:"data"`
}

type RespSubscriptionInfo struct {
	Code    response.APIResponseCode       `json:"code"`
	Message string                         `json:"message"`
	Data    types.BillableSubscriptionInfo `json:"data"`
}

type RespInvoices struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Invoice         `json:"data"`
}

type RespAccountManagementURL struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    AccountManagementURLResponse `json:"data"`
}

// RespInvoicePage wraps a scan of invoices in the standard envelope.
type RespInvoicePage struct {
	Code    response.APIResponseCode                   `json:"code"`
	Message string                                     `json:"message"`
	Data    billing_store.ScanResponse[models.Invoice] `json:"data"`
}

// RespSubscriptionPage wraps a scan of subscriptions in the standard envelope.
type RespSubscriptionPage struct {
	Code    response.APIResponseCode                        `json:"code"`
	Message string                                          `json:"message"`
	Data    billing_store.ScanResponse[models.Subscription] `json:"data"`
}

type RespSubscriptionPeriod struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    models.SubscriptionPeriod `json:"data"`
}

type RespSubscriptionPeriods struct {
	Code    response.APIResponseCode    `json:"code"`
	Message string                      `json:"message"`
	Data    []models.SubscriptionPeriod `json:"data"`
}

// RespBillingStatistic wraps BillingStatisticResponse in the standard envelope.
type RespBillingStatistic struct {
	Code    response.APIResponseCode            `json:"code"`
	Message string                              `json:"message"`
	Data    statistics.BillingStatisticResponse `json:"data"`
}
