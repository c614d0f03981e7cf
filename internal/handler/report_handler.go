package handler

import (
	"context"
	"strconv"

	"pujaledger/pkg/apperr"
	"pujaledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// yearReport 只依赖 fiscalYear 的报表接口
func yearReport[T any](load func(ctx context.Context, fiscalYear *int) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		year, err := fiscalYearQuery(c)
		if err != nil {
			response.Fail(c, err)
			return
		}
		result, err := load(c.Request.Context(), year)
		if err != nil {
			response.Fail(c, err)
			return
		}
		response.Success(c, result)
	}
}

// TopDonors GET /api/transactions/graphs/top-donors?limit=5
func (h *Handler) TopDonors(c *gin.Context) {
	year, err := fiscalYearQuery(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.Fail(c, apperr.Validation(apperr.CodeParamError, "invalid limit"))
			return
		}
	}
	donors, err := h.reports.TopDonors(c.Request.Context(), year, limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, donors)
}
