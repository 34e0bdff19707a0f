package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 认证操作计数
type Metrics struct {
	operations *prometheus.CounterVec
}

// NewMetrics 创建并注册指标，reg 为 nil 时只创建不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passport",
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Authentication operations by operation and result code.",
		}, []string{"operation", "code"}),
	}
	if reg == nil {
		return m
	}
	if err := reg.Register(m.operations); err != nil {
		// 同一注册表重复创建时复用已注册的计数器
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			panic(err)
		}
		m.operations = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return m
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, codeLabel(err)).Inc()
}

func codeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case ErrInvalidCredentials.Is(err):
		return "invalid_credentials"
	case ErrAccountInactive.Is(err):
		return "account_inactive"
	case ErrInvalidToken.Is(err):
		return "invalid_token"
	case ErrSessionNotFound.Is(err):
		return "session_not_found"
	case ErrUserInactive.Is(err):
		return "user_inactive"
	case ErrDuplicateUsername.Is(err), ErrDuplicateEmail.Is(err):
		return "duplicate"
	case ErrValidation.Is(err):
		return "validation"
	case ErrSessionBusy.Is(err):
		return "busy"
	default:
		return "unavailable"
	}
}
