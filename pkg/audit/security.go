// Package audit provides security audit logging for SIEM consumption.
// Events are logged as structured JSON under the "security_audit" logger.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/sqlparams/pkg/auth"
	"github.com/ekaya-inc/sqlparams/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection flags a supplied value.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventParameterValidation is logged when a template cannot be processed
	// because of its parameters.
	EventParameterValidation SecurityEventType = "parameter_validation_failure"
	// EventTemplateProcessed is logged for every successfully processed template.
	EventTemplateProcessed SecurityEventType = "template_processed"
)

type requestIDKey struct{}

// WithRequestID stores a request ID for audit events.
func WithRequestID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID, or uuid.Nil.
func RequestIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(requestIDKey{}).(uuid.UUID)
	return id
}

// SecurityEvent represents an auditable security event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	RequestID uuid.UUID         `json:"request_id"`
	Template  string            `json:"template,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// SQLInjectionDetails contains specifics of a flagged parameter value.
type SQLInjectionDetails struct {
	ParamName   string `json:"param_name"`
	ParamValue  string `json:"param_value"`
	Fingerprint string `json:"fingerprint"`
	Rejected    bool   `json:"rejected"`
}

// Auditor is implemented by SecurityAuditor.
type Auditor interface {
	LogInjectionAttempt(ctx context.Context, template string, details SQLInjectionDetails, clientIP string)
	LogParameterValidation(ctx context.Context, template, errorMessage, clientIP string)
	LogTemplateProcessed(ctx context.Context, template string, paramCount int, clientIP string)
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

func (a *SecurityAuditor) newEvent(ctx context.Context, eventType SecurityEventType, template, clientIP, severity string, details any) SecurityEvent {
	return SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		RequestID: RequestIDFromContext(ctx),
		Template:  template,
		UserID:    auth.GetUserIDFromContext(ctx),
		ClientIP:  clientIP,
		Details:   details,
		Severity:  severity,
	}
}

func (a *SecurityAuditor) baseFields(event SecurityEvent) []zap.Field {
	// Marshaling known types cannot fail.
	eventJSON, _ := json.Marshal(event)
	return []zap.Field{
		zap.String("event_json", string(eventJSON)),
		zap.String("request_id", event.RequestID.String()),
		zap.String("template", event.Template),
		zap.String("client_ip", event.ClientIP),
		zap.String("user_id", event.UserID),
		zap.String("severity", event.Severity),
	}
}

// LogInjectionAttempt records a parameter value flagged by libinjection.
// Logged at ERROR level with "critical" severity. The value is truncated.
//
// template is the library name, or "" for ad-hoc SQL.
func (a *SecurityAuditor) LogInjectionAttempt(
	ctx context.Context,
	template string,
	details SQLInjectionDetails,
	clientIP string,
) {
	details.ParamValue = logging.SanitizeValue(details.ParamValue)
	event := a.newEvent(ctx, EventSQLInjectionAttempt, template, clientIP, "critical", details)

	fields := append(a.baseFields(event),
		zap.String("param_name", details.ParamName),
		zap.String("fingerprint", details.Fingerprint),
		zap.Bool("rejected", details.Rejected),
	)
	a.logger.Error("SQL injection attempt detected", fields...)
}

// LogParameterValidation records a parameter failure such as a missing value.
// Logged at WARN level; these are usually caller mistakes, not attacks.
func (a *SecurityAuditor) LogParameterValidation(
	ctx context.Context,
	template string,
	errorMessage string,
	clientIP string,
) {
	event := a.newEvent(ctx, EventParameterValidation, template, clientIP, "warning", map[string]string{
		"error": errorMessage,
	})

	fields := append(a.baseFields(event), zap.String("error", errorMessage))
	a.logger.Warn("Parameter validation failed", fields...)
}

// LogTemplateProcessed records a successful substitution at INFO level.
func (a *SecurityAuditor) LogTemplateProcessed(
	ctx context.Context,
	template string,
	paramCount int,
	clientIP string,
) {
	event := a.newEvent(ctx, EventTemplateProcessed, template, clientIP, "info", map[string]int{
		"param_count": paramCount,
	})

	fields := append(a.baseFields(event), zap.Int("param_count", paramCount))
	a.logger.Info("Template processed", fields...)
}

var _ Auditor = (*SecurityAuditor)(nil)
