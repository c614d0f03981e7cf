package handler

import (
	"net/http"
	"strconv"

	"pujaledger/internal/service"
	"pujaledger/pkg/apperr"

	"github.com/gin-gonic/gin"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	auth      *service.AuthService
	members   *service.MemberService
	donors    *service.DonorService
	ledger    *service.LedgerService
	reports   *service.ReportService
	reconcile *service.ReconcileService
	health    *service.HealthService
}

type Services struct {
	Auth      *service.AuthService
	Members   *service.MemberService
	Donors    *service.DonorService
	Ledger    *service.LedgerService
	Reports   *service.ReportService
	Reconcile *service.ReconcileService
	Health    *service.HealthService
}

func NewHandler(s Services) *Handler {
	return &Handler{
		auth:      s.Auth,
		members:   s.Members,
		donors:    s.Donors,
		ledger:    s.Ledger,
		reports:   s.Reports,
		reconcile: s.Reconcile,
		health:    s.Health,
	}
}

// Health 数据库不可达时返回 503
func (h *Handler) Health(c *gin.Context) {
	status, err := h.health.Check(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(apperr.CodeParamError, "invalid id")
	}
	return id, nil
}

// fiscalYearQuery ?fiscalYear=2024，缺省表示全部年份
func fiscalYearQuery(c *gin.Context) (*int, error) {
	raw := c.Query("fiscalYear")
	if raw == "" {
		return nil, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year <= 0 {
		return nil, apperr.Validation(apperr.CodeParamError, "invalid fiscalYear")
	}
	return &year, nil
}

func bindError(err error) error {
	return apperr.Validation(apperr.CodeParamError, "invalid request body: "+err.Error())
}
