// Package logging 提供带组件名的结构化日志
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// 常用字段名
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldMemberID   = "member_id"
	FieldTxnID      = "transaction_id"
	FieldReceiptNo  = "receipt_no"
	FieldAmount     = "amount"
	FieldDelta      = "delta"
	FieldFiscalYear = "fiscal_year"
)

// 组件名
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentMember    = "member"
	ComponentDonor     = "donor"
	ComponentAuth      = "auth"
	ComponentReport    = "report"
	ComponentOutbox    = "outbox"
	ComponentReconcile = "reconcile"
	ComponentBootstrap = "bootstrap"
	ComponentStorage   = "storage"
	ComponentCache     = "cache"
	ComponentMQ        = "mq"
)

// Logger 在 slog.Logger 上附带组件名
type Logger struct {
	*slog.Logger
	component string
}

type Config struct {
	Level     string
	Format    string // text | json
	Component string
	Output    io.Writer
}

func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	component := cfg.Component
	if component == "" {
		component = ComponentApp
	}
	return &Logger{
		Logger:    slog.New(handler).With(FieldComponent, component),
		component: component,
	}
}

// Nop 丢弃所有输出，测试用
func Nop() *Logger {
	return New(Config{Output: io.Discard})
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent 返回指定组件名的子 logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With(FieldComponent, component),
		component: component,
	}
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		component: l.component,
	}
}

func (l *Logger) Component() string {
	return l.component
}

type ctxKey struct{}

// IntoContext 把 logger 放进 context，供下游取出
func IntoContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext 取出 context 中的 logger，没有则返回 fallback
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return fallback
}

// SetDefault 设置 slog 默认 logger
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
