// Package attr provides slog attribute helpers shared by every module.
package attr

import (
	"context"
	"log/slog"
	"time"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
)

type ctxKey string

const correlationIDKey ctxKey = "correlation_id"

// WithCorrelationID stores a correlation ID on the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation ID, or "" when none is set.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ExtractCorrelationID returns the correlation ID as a log attribute.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	return slog.String("correlation_id", CorrelationIDFromContext(ctx))
}

func String(key, value string) slog.Attr          { return slog.String(key, value) }
func Int(key string, value int) slog.Attr         { return slog.Int(key, value) }
func Int64(key string, value int64) slog.Attr     { return slog.Int64(key, value) }
func Bool(key string, value bool) slog.Attr       { return slog.Bool(key, value) }
func Float64(key string, value float64) slog.Attr { return slog.Float64(key, value) }
func Any(key string, value any) slog.Attr         { return slog.Any(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }
func Time(key string, value time.Time) slog.Attr         { return slog.Time(key, value) }

// Error renders err under the "error" key. A nil error renders as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func GuildID(key string, id sharedtypes.GuildID) slog.Attr     { return slog.String(key, string(id)) }
func ChannelID(key string, id sharedtypes.ChannelID) slog.Attr { return slog.String(key, string(id)) }
func UserID(key string, id sharedtypes.UserID) slog.Attr       { return slog.String(key, string(id)) }
func MessageID(key string, id sharedtypes.MessageID) slog.Attr { return slog.String(key, string(id)) }
