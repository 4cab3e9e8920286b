package bus

import (
	"context"
	"encoding/json"
	"log/slog"
)

// SeenMarker tracks which event ids have been processed. Deduper is the
// redis-backed implementation.
type SeenMarker interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Dedup wraps a handler so payloads whose event id was already processed are
// skipped. The id is released again when the handler fails, so a redelivery
// of a failed event is not suppressed. Suppression is best-effort; handlers
// must stay idempotent regardless.
func Dedup(marks SeenMarker, next Handler, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context, payload []byte) error {
		var env struct {
			EventID string `json:"event_id"`
		}
		if err := json.Unmarshal(payload, &env); err != nil || env.EventID == "" {
			return next(ctx, payload)
		}

		seen, err := marks.Seen(ctx, env.EventID)
		if err != nil {
			log.Warn("dedup check failed", "event_id", env.EventID, "err", err)
		} else if seen {
			log.Debug("duplicate event skipped", "event_id", env.EventID)
			return nil
		}

		if err := next(ctx, payload); err != nil {
			if ferr := marks.Forget(ctx, env.EventID); ferr != nil {
				log.Warn("dedup release failed", "event_id", env.EventID, "err", ferr)
			}
			return err
		}
		return nil
	}
}
