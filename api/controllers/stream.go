package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/hatchery-backend/api/responses"
	"github.com/angelmondragon/hatchery-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
)

// StreamNotifications relays the user's live channel and the global channel
// as server-sent events until the client disconnects. A comment line is sent
// every pingEvery to keep proxies from closing the connection.
func StreamNotifications(listener notifications.Listener, pingEvery time.Duration, logg *logger.Logger) http.HandlerFunc {
	if pingEvery <= 0 {
		pingEvery = 25 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if listener == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "live channel unavailable"))
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		events, stop, err := listener.Listen(ctx, userID.String())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to live channel"))
			return
		}
		defer func() {
			if err := stop(); err != nil && logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "stream.close_failed")
			}
		}()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		if logg != nil {
			logg.Info(ctx, "stream.open")
		}

		ticker := time.NewTicker(pingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			case payload, open := <-events:
				if !open {
					return
				}
				fmt.Fprintf(w, "event: notification\ndata: %s\n\n", payload)
				flusher.Flush()
			}
		}
	}
}
