package handler

import (
	"net/http"
	"strings"
	"time"

	"pujaledger/internal/logging"
	"pujaledger/internal/model"
	"pujaledger/internal/service"
	"pujaledger/pkg/apperr"
	"pujaledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/unrolled/secure"
)

const (
	principalKey    = "principal"
	requestIDHeader = "X-Request-ID"
)

// LoggerMiddleware 每个请求一行结构化访问日志
func LoggerMiddleware(logger *logging.Logger) gin.HandlerFunc {
	logger = logger.WithComponent(logging.ComponentHTTP)
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		args := []any{
			logging.FieldRequestID, requestID,
			logging.FieldMethod, c.Request.Method,
			logging.FieldPath, c.Request.URL.Path,
			logging.FieldStatusCode, status,
			logging.FieldDuration, time.Since(start).Milliseconds(),
			logging.FieldClientIP, c.ClientIP(),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", args...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", args...)
		default:
			logger.Info("request", args...)
		}
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware(logger *logging.Logger) gin.HandlerFunc {
	logger = logger.WithComponent(logging.ComponentHTTP)
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered", "panic", err, logging.FieldPath, c.Request.URL.Path)
				response.Error(c, http.StatusInternalServerError, apperr.CodeServerError, "internal server error")
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件，allowOrigins 含 "*" 时放行所有来源
func CORSMiddleware(allowOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed["*"] || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SecureHeaders 安全响应头
func SecureHeaders(production bool) gin.HandlerFunc {
	sm := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		IsDevelopment:      !production,
	})
	return func(c *gin.Context) {
		if err := sm.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
		c.Next()
	}
}

// LoginRateLimit 登录接口按 IP 限流，每分钟 perMinute 次
func LoginRateLimit(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		perMinute = 10
	}
	limiter := httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(http.ResponseWriter, *http.Request) {}),
	)
	return func(c *gin.Context) {
		passed := false
		limiter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			response.Error(c, http.StatusTooManyRequests, apperr.CodeRateLimited, "too many login attempts, try again later")
		}
	}
}

// AuthMiddleware 校验 Authorization: Bearer <token>
func AuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Unauthorized(c, "missing bearer token")
			return
		}
		principal, err := auth.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Fail(c, err)
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireRoles 必须在 AuthMiddleware 之后使用
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := currentPrincipal(c)
		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient role")
	}
}

func currentPrincipal(c *gin.Context) *service.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*service.Principal); ok {
			return p
		}
	}
	return &service.Principal{}
}

var (
	adminOnly      = RequireRoles(model.IdentityRoleAdmin)
	adminOrManager = RequireRoles(model.IdentityRoleAdmin, model.IdentityRoleManager)
)
