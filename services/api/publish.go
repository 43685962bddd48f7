package api

import (
	"context"
	"time"
)

// publishJSON forwards an event to the notification bus. Fire-and-forget:
// a missing bus or a publish error never affects the caller's response.
func (a *API) publishJSON(ctx context.Context, subject string, payload map[string]any) {
	if a.store.Bus == nil || subject == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := a.store.Bus.Publish(ctx, subject, payload); err != nil {
		a.logger.Printf("WARN publish %s: %v", subject, err)
	}
}
