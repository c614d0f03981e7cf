package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pujaledger/internal/config"
	"pujaledger/internal/logging"
	"pujaledger/internal/model"
	"pujaledger/internal/service"
	"pujaledger/internal/testutil"
	"pujaledger/pkg/apperr"
	"pujaledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	router *gin.Engine
	auth   *service.AuthService
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	logger := logging.Nop()
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode, LoginRateLimit: 3},
		JWT:    config.JWTConfig{Secret: "handler-secret", Issuer: "puja-ledger", ExpireHours: 1},
		CORS:   config.CORSConfig{AllowOrigins: []string{"http://localhost:5173"}},
	}

	auth := service.NewAuthService(db, cfg.JWT, logger)
	h := NewHandler(Services{
		Auth:      auth,
		Members:   service.NewMemberService(db, nil, logger),
		Donors:    service.NewDonorService(db, nil, logger),
		Ledger:    service.NewLedgerService(db, nil, nil, logger),
		Reports:   service.NewReportService(db, nil, time.UTC, logger),
		Reconcile: service.NewReconcileService(db, nil, logger),
		Health:    service.NewHealthService(db),
	})
	return &testServer{router: SetupRouter(h, cfg, logger), auth: auth, db: db}
}

func (s *testServer) tokenFor(t *testing.T, loginName, role string) string {
	t.Helper()
	_, err := s.auth.CreateUser(context.Background(), loginName, "pw", role)
	require.NoError(t, err)
	result, err := s.auth.Login(context.Background(), loginName, "pw")
	require.NoError(t, err)
	return result.Token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	status := decode[service.HealthStatus](t, rec)
	assert.Equal(t, "ok", status.Status)
	assert.Zero(t, status.OutboxPending)
	assert.Zero(t, status.OutboxFailed)
}

func TestHealth_ReportsOutboxBacklog(t *testing.T) {
	s := newTestServer(t)
	for _, st := range []string{model.OutboxStatusPending, model.OutboxStatusPending, model.OutboxStatusFailed, model.OutboxStatusSent} {
		require.NoError(t, s.db.Create(&model.OutboxMessage{
			MessageKey: "RCP1",
			Topic:      "puja.ledger.events",
			EventType:  model.EventIncomeCreated,
			Payload:    "{}",
			Status:     st,
		}).Error)
	}

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[service.HealthStatus](t, rec)
	assert.EqualValues(t, 2, status.OutboxPending)
	assert.EqualValues(t, 1, status.OutboxFailed)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	_, err := s.auth.CreateUser(context.Background(), "admin", "secret", model.IdentityRoleAdmin)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"loginName": "admin", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[service.LoginResult](t, rec)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, model.IdentityRoleAdmin, result.Role)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"loginName": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[response.ErrorBody](t, rec)
	assert.Equal(t, apperr.CodeInvalidCredentials, body.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	s := newTestServer(t)
	creds := gin.H{"loginName": "ghost", "password": "x"}

	for i := 0; i < 3; i++ {
		rec := s.do(t, http.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, apperr.CodeRateLimited, decode[response.ErrorBody](t, rec).Code)
}

func TestAuthAndRoles(t *testing.T) {
	s := newTestServer(t)
	manager := s.tokenFor(t, "mgr", model.IdentityRoleManager)

	rec := s.do(t, http.MethodPost, "/api/transactions/expense", "", gin.H{"amount": 10})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/transactions/expense", "garbage", gin.H{"amount": 10})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/transactions/transaction/1", manager, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/create-user", manager, gin.H{"loginName": "x", "password": "y", "role": "Manager"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIncomeFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.tokenFor(t, "admin", model.IdentityRoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/members", admin, gin.H{"name": "Ravi", "role": "User"})
	require.Equal(t, http.StatusCreated, rec.Code)
	member := decode[model.Member](t, rec)

	rec = s.do(t, http.MethodPost, "/api/transactions/income", admin, gin.H{
		"memberRef": member.ID, "amount": 1000, "paidAmount": 400, "kind": "Chanda", "fiscalYear": 2024,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	entry := decode[model.Transaction](t, rec)
	assert.Equal(t, model.KindMemberContribution, entry.Kind)
	assert.Equal(t, model.StatusDue, entry.Status)

	rec = s.do(t, http.MethodPatch, fmt.Sprintf("/api/transactions/income/%d/pay", entry.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusPaid, decode[model.Transaction](t, rec).Status)

	rec = s.do(t, http.MethodPost, "/api/transactions/income", admin, gin.H{
		"amount": 100, "paidAmount": 150, "kind": "Chanda", "fiscalYear": 2024,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.CodeOverpayment, decode[response.ErrorBody](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/members", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	members := decode[[]model.Member](t, rec)
	require.Len(t, members, 1)
	assert.Equal(t, int64(1000), members[0].Contribution)

	rec = s.do(t, http.MethodGet, "/api/transactions/summary?fiscalYear=2024", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[service.Summary](t, rec)
	assert.Equal(t, int64(1000), summary.TotalCollection)
	assert.Equal(t, summary.ExpectedCollection-summary.DueAmount, summary.TotalCollection)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/transactions/transaction/%d", entry.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/transactions/transaction/%d", entry.ID), admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTransactions_DisplayFallbacks(t *testing.T) {
	s := newTestServer(t)
	manager := s.tokenFor(t, "mgr", model.IdentityRoleManager)

	rec := s.do(t, http.MethodPost, "/api/transactions/income", manager, gin.H{
		"amount": 200, "kind": "Chanda", "fiscalYear": 2024,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/transactions/transaction?fiscalYear=2024", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]map[string]interface{}](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, model.AnonymousName, rows[0]["displayName"])
	assert.Equal(t, "-", rows[0]["displayPhone"])

	rec = s.do(t, http.MethodGet, "/api/transactions/transaction?fiscalYear=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExpenseRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.tokenFor(t, "admin", model.IdentityRoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/transactions/expense", admin, gin.H{
		"amount": 300, "category": "Decoration", "fiscalYear": 2024,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	expense := decode[model.Transaction](t, rec)
	assert.Equal(t, model.StatusPaid, expense.Status)

	rec = s.do(t, http.MethodPatch, fmt.Sprintf("/api/transactions/income/%d/pay", expense.ID), admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.CodeExpenseNotPayable, decode[response.ErrorBody](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/transactions/graphs/expense-category?fiscalYear=2024", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]service.ExpenseItem](t, rec), 1)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/transactions/expense/%d", expense.ID), admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDonorRoutes(t *testing.T) {
	s := newTestServer(t)
	manager := s.tokenFor(t, "manager", model.IdentityRoleManager)

	rec := s.do(t, http.MethodPost, "/api/donors", "", gin.H{"name": "Ravi"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/donors", manager, gin.H{"name": "  ", "phone": "98300"})
	require.Equal(t, http.StatusCreated, rec.Code)
	donor := decode[model.Donor](t, rec)
	assert.Equal(t, model.AnonymousName, donor.Name)
	assert.Equal(t, "98300", donor.Phone)

	rec = s.do(t, http.MethodPut, fmt.Sprintf("/api/donors/%d", donor.ID), manager, gin.H{"name": "Ravi"})
	require.Equal(t, http.StatusOK, rec.Code)
	donor = decode[model.Donor](t, rec)
	assert.Equal(t, "Ravi", donor.Name)
	assert.Equal(t, "98300", donor.Phone)

	rec = s.do(t, http.MethodPut, "/api/donors/4242", manager, gin.H{"name": "Nobody"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperr.CodeDonorNotFound, decode[response.ErrorBody](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/donors", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	donors := decode[[]model.Donor](t, rec)
	require.Len(t, donors, 1)
	assert.Equal(t, "Ravi", donors[0].Name)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/members", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/members", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
