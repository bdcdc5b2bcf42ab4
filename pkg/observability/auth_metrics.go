package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics records authentication outcomes. A nil receiver is a
// no-op so tests can skip metrics wiring.
type AuthMetrics struct {
	signIns         metric.Int64Counter
	signInFailures  metric.Int64Counter
	replaysDetected metric.Int64Counter
	sessionsRevoked metric.Int64Counter
}

// NewAuthMetrics registers the authentication counters on the global
// meter provider.
func NewAuthMetrics() (*AuthMetrics, error) {
	meter := otel.Meter("auth-service")

	signIns, err := meter.Int64Counter("auth_sign_ins_total",
		metric.WithDescription("Successful sign-ins by method"))
	if err != nil {
		return nil, fmt.Errorf("failed to create sign-in counter: %w", err)
	}
	signInFailures, err := meter.Int64Counter("auth_sign_in_failures_total",
		metric.WithDescription("Failed sign-in attempts by method"))
	if err != nil {
		return nil, fmt.Errorf("failed to create failure counter: %w", err)
	}
	replaysDetected, err := meter.Int64Counter("auth_replays_detected_total",
		metric.WithDescription("Passkey assertions rejected for counter regression"))
	if err != nil {
		return nil, fmt.Errorf("failed to create replay counter: %w", err)
	}
	sessionsRevoked, err := meter.Int64Counter("auth_sessions_revoked_total",
		metric.WithDescription("Sessions revoked by logout or account mutation"))
	if err != nil {
		return nil, fmt.Errorf("failed to create revocation counter: %w", err)
	}

	return &AuthMetrics{
		signIns:         signIns,
		signInFailures:  signInFailures,
		replaysDetected: replaysDetected,
		sessionsRevoked: sessionsRevoked,
	}, nil
}

// RecordSignIn counts a successful sign-in for the given method.
func (m *AuthMetrics) RecordSignIn(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.signIns.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordSignInFailure counts a failed sign-in attempt.
func (m *AuthMetrics) RecordSignInFailure(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.signInFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordReplayDetected counts a rejected passkey assertion.
func (m *AuthMetrics) RecordReplayDetected(ctx context.Context) {
	if m == nil {
		return
	}
	m.replaysDetected.Add(ctx, 1)
}

// RecordSessionsRevoked counts revoked sessions.
func (m *AuthMetrics) RecordSessionsRevoked(ctx context.Context, count int64) {
	if m == nil {
		return
	}
	m.sessionsRevoked.Add(ctx, count)
}
