// Package telemetry records session-lifecycle metrics and structured
// log events via OpenTelemetry. Grounded on the teacher's
// internal/telemetry/recorder.go: lazily-initialized counters/histograms
// registered against the global MeterProvider, paired with a structured
// log event on every call, translated here from agent-session events to
// X11-session events (login/idempotent-login/auth-failure/termination/
// reap) — the instrument-then-emit shape and the lazy sync.Once
// initialization are unchanged.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName  = "github.com/illgrenoble/webx-session-manager"
	loggerName = "webx-session-manager"
)

// recorderInstruments holds all lazy-initialized OTel metric instruments.
type recorderInstruments struct {
	loginTotal           metric.Int64Counter
	loginIdempotentTotal metric.Int64Counter
	authFailureTotal     metric.Int64Counter
	terminationTotal     metric.Int64Counter
	reapTotal            metric.Int64Counter

	loginDurationHist metric.Float64Histogram
}

var (
	instOnce sync.Once
	inst     recorderInstruments
)

// initInstruments registers all recorder metric instruments against the
// current global MeterProvider. Safe to call repeatedly; only the first
// call does work.
func initInstruments() {
	instOnce.Do(func() {
		m := otel.GetMeterProvider().Meter(meterName)

		inst.loginTotal, _ = m.Int64Counter("webx.session.logins.total",
			metric.WithDescription("Total session creation attempts"),
		)
		inst.loginIdempotentTotal, _ = m.Int64Counter("webx.session.logins.idempotent.total",
			metric.WithDescription("Total login requests that returned an already-existing session"),
		)
		inst.authFailureTotal, _ = m.Int64Counter("webx.session.auth_failures.total",
			metric.WithDescription("Total authentication failures"),
		)
		inst.terminationTotal, _ = m.Int64Counter("webx.session.terminations.total",
			metric.WithDescription("Total explicit session terminations"),
		)
		inst.reapTotal, _ = m.Int64Counter("webx.session.reaps.total",
			metric.WithDescription("Total sessions removed by the reaper after Xorg exited"),
		)

		inst.loginDurationHist, _ = m.Float64Histogram("webx.session.login.duration_ms",
			metric.WithDescription("Login request round-trip latency in milliseconds, from auth start to session registration"),
			metric.WithUnit("ms"),
		)
	})
}

// statusStr returns "ok" or "error" depending on whether err is nil.
func statusStr(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func severity(err error) otellog.Severity {
	if err != nil {
		return otellog.SeverityError
	}
	return otellog.SeverityInfo
}

func errKV(err error) otellog.KeyValue {
	if err != nil {
		return otellog.String("error", err.Error())
	}
	return otellog.String("error", "")
}

func emit(ctx context.Context, body string, sev otellog.Severity, attrs ...otellog.KeyValue) {
	logger := global.GetLoggerProvider().Logger(loggerName)
	var r otellog.Record
	r.SetBody(otellog.StringValue(body))
	r.SetSeverity(sev)
	r.AddAttributes(attrs...)
	logger.Emit(ctx, r)
}

// RecordLogin records a session creation attempt (metrics + log event).
// durationMs covers the full authenticate→register sequence.
func RecordLogin(ctx context.Context, username string, durationMs float64, err error) {
	initInstruments()
	status := statusStr(err)
	attrs := metric.WithAttributes(attribute.String("status", status))
	inst.loginTotal.Add(ctx, 1, attrs)
	inst.loginDurationHist.Record(ctx, durationMs, attrs)
	emit(ctx, "session.login", severity(err),
		otellog.String("username", username),
		otellog.Float64("duration_ms", durationMs),
		otellog.String("status", status),
		errKV(err),
	)
}

// RecordLoginIdempotent records a login request answered from an
// existing session without spawning anything.
func RecordLoginIdempotent(ctx context.Context, username string) {
	initInstruments()
	inst.loginIdempotentTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("username", username)),
	)
	emit(ctx, "session.login.idempotent", otellog.SeverityInfo,
		otellog.String("username", username),
	)
}

// RecordAuthFailure records a rejected authentication attempt. The
// reason passed must never contain the submitted password.
func RecordAuthFailure(ctx context.Context, username, reason string) {
	initInstruments()
	inst.authFailureTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("username", username)),
	)
	emit(ctx, "session.auth_failure", otellog.SeverityWarn,
		otellog.String("username", username),
		otellog.String("reason", reason),
	)
}

// RecordTermination records an explicit (logout-request) session
// termination.
func RecordTermination(ctx context.Context, username string, err error) {
	initInstruments()
	status := statusStr(err)
	inst.terminationTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("username", username),
			attribute.String("status", status),
		),
	)
	emit(ctx, "session.terminated", severity(err),
		otellog.String("username", username),
		otellog.String("status", status),
		errKV(err),
	)
}

// RecordReap records a session removed by the reaper because its Xorg
// process had already exited.
func RecordReap(ctx context.Context, username string) {
	initInstruments()
	inst.reapTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("username", username)),
	)
	emit(ctx, "session.reaped", otellog.SeverityInfo,
		otellog.String("username", username),
	)
}
