package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/statistics"
	"github.com/fatflowers/fastspring-cashier/pkg/response"
)

type StatisticService interface {
	GetBillingStatistic(ctx context.Context, req *statistics.BillingStatisticRequest) (*statistics.BillingStatisticResponse, error)
}

// @Summary      Get Billing Statistics (Admin)
// @Description  Retrieves invoice revenue and subscription counts.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.BillingStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespBillingStatistic
// @Router       /api/v1/admin/get_billing_statistic [post]
func ApiGetBillingStatistic(svc StatisticService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.BillingStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetBillingStatistic(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterStatisticRoutes(r gin.IRouter, svc StatisticService) {
	r.POST("/get_billing_statistic", ApiGetBillingStatistic(svc))
}
