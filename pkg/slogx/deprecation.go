package slogx

import (
	"context"
	"log/slog"
)

// Deprecation marks use of a retired configuration surface. It is an error
// value so it can also travel through error paths, but it is normally only
// logged.
type Deprecation struct {
	Message string
}

func (d Deprecation) Error() string { return d.Message }

// LogValue renders the deprecation as a group so handlers can filter on it.
func (d Deprecation) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", "Deprecation"),
		slog.String("message", d.Message),
	)
}

// WarnDeprecation logs d at warn level.
func WarnDeprecation(log *slog.Logger, d Deprecation) {
	OrDiscard(log).LogAttrs(context.Background(), slog.LevelWarn, d.Message,
		slog.Any("deprecation", d),
	)
}
