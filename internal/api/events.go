//go:build linux

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/v4l2codecs/internal/events"
)

// registerEventRoutes streams bus events as Server-Sent Events.
func (s *Server) registerEventRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Decoder hotplug, session and request teardown events",
		Tags:        []string{"events"},
	}, map[string]any{
		"connected":         ConnectedEvent{},
		"decoder-device":    events.DecoderDeviceEvent{},
		"decoder-state":     events.DecoderStateEvent{},
		"request-destroyed": events.RequestDestroyedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 16)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.DecoderDeviceEvent](s.opts.EventBus, eventCh),
			events.SubscribeToChannel[events.DecoderStateEvent](s.opts.EventBus, eventCh),
			events.SubscribeToChannel[events.RequestDestroyedEvent](s.opts.EventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		if err := send.Data(ConnectedEvent{
			Message:   "event stream connected",
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					s.logger.Debug("Event stream closed", "error", err)
					return
				}
			}
		}
	})
}
