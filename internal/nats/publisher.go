package nats

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/v4l2codecs/internal/events"
)

type marshaler interface {
	Marshal() ([]byte, error)
}

// Publisher forwards decoder events from the event bus to NATS.
// Publishing is a no-op while disconnected.
type Publisher struct {
	url    string
	bus    *events.Bus
	logger *slog.Logger

	mu     sync.RWMutex
	conn   *nats.Conn
	unsubs []func()
}

// NewPublisher creates a publisher for the server at url.
func NewPublisher(url string, bus *events.Bus, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		url:    url,
		bus:    bus,
		logger: logger.With("component", "nats-publisher"),
	}
}

// Start connects to NATS and subscribes to the bus.
func (p *Publisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		return nil
	}

	conn, err := nats.Connect(p.url,
		nats.Name("v4l2codecs"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				p.logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			p.logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return err
	}
	p.conn = conn

	p.unsubs = append(p.unsubs,
		p.bus.Subscribe(func(ev events.DecoderDeviceEvent) {
			p.publish(SubjectDevice(ev.Node), DeviceMessage{
				Action:    ev.Action,
				Subsystem: ev.Subsystem,
				Node:      ev.Node,
				KObj:      ev.KObj,
				Timestamp: ev.Timestamp,
			})
		}),
		p.bus.Subscribe(func(ev events.DecoderStateEvent) {
			p.publish(SubjectDecoderState(ev.VideoDevice), StateMessage{
				VideoDevice: ev.VideoDevice,
				MediaDevice: ev.MediaDevice,
				Opened:      ev.Opened,
				Timestamp:   ev.Timestamp,
			})
		}),
		p.bus.Subscribe(func(ev events.RequestDestroyedEvent) {
			p.publish(SubjectRequestDestroyed(ev.VideoDevice), RequestMessage{
				VideoDevice: ev.VideoDevice,
				Reason:      ev.Reason,
				Timestamp:   ev.Timestamp,
			})
		}),
	)

	p.logger.Info("NATS publisher connected", "url", conn.ConnectedUrl())
	return nil
}

func (p *Publisher) publish(subject string, m marshaler) {
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return
	}

	data, err := m.Marshal()
	if err != nil {
		p.logger.Warn("Failed to marshal message", "subject", subject, "error", err)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish message", "subject", subject, "error", err)
		return
	}
	p.logger.Debug("Published message", "subject", subject)
}

// Stop unsubscribes from the bus and flushes and closes the connection.
func (p *Publisher) Stop() {
	p.mu.Lock()
	unsubs, conn := p.unsubs, p.conn
	p.unsubs, p.conn = nil, nil
	p.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if conn == nil {
		return
	}
	if err := conn.Drain(); err != nil {
		conn.Close()
	}
	p.logger.Info("NATS publisher stopped")
}

// IsConnected reports whether the publisher has a live connection.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn != nil && p.conn.IsConnected()
}
