// Package ingest owns the MQTT subscription that feeds the packet store.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/Lukasxlama/weather-station-web-app/internal/model"
	"github.com/Lukasxlama/weather-station-web-app/internal/store"
)

const (
	connectTimeout = 5 * time.Second
	storeTimeout   = 2 * time.Second
	defaultQueue   = 256
)

// Config holds the broker connection settings for the listener.
type Config struct {
	BrokerURL string
	Topic     string
	Username  string
	Password  string
	QueueSize int
}

// Listener maintains a live subscription to the packet topic and turns
// every inbound message into a durable packet. The arrival callback only
// decodes and enqueues; a separate writer goroutine drains the bounded
// queue into the store so a slow store can never block message intake.
type Listener struct {
	cfg    Config
	logger *slog.Logger
	store  *store.Store
	queue  chan model.Packet
	dropMu sync.Mutex
}

// New constructs a Listener writing into the given store.
func New(cfg Config, logger *slog.Logger, st *store.Store) *Listener {
	size := cfg.QueueSize
	if size < 1 {
		size = defaultQueue
	}

	return &Listener{
		cfg:    cfg,
		logger: logger,
		store:  st,
		queue:  make(chan model.Packet, size),
	}
}

// Run connects to the broker and blocks until the context is cancelled.
// Connect failures are logged, never fatal: the client keeps retrying and
// resubscribes on every successful (re)connect. On cancellation the client
// is disconnected and the queue drained before Run returns.
func (l *Listener) Run(ctx context.Context) {
	client := mqtt.NewClient(l.clientOptions())

	// With connect-retry enabled the token only completes on success, so
	// bound the wait and let the client keep trying in the background.
	if token := client.Connect(); !token.WaitTimeout(connectTimeout) {
		l.logger.Warn("mqtt broker not reachable yet, retrying in background", "broker", l.cfg.BrokerURL)
	} else if token.Error() != nil {
		l.logger.Error("mqtt connect failed, retrying in background", "broker", l.cfg.BrokerURL, "error", token.Error())
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.writeLoop(ctx)
	}()

	<-ctx.Done()

	if client.IsConnected() {
		client.Disconnect(250)
		l.logger.Info("disconnected from mqtt broker")
	}

	wg.Wait()
}

func (l *Listener) clientOptions() *mqtt.ClientOptions {
	clientID := fmt.Sprintf("weatherstation-%s", uuid.NewString())

	opts := mqtt.NewClientOptions().
		AddBroker(l.cfg.BrokerURL).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(connectTimeout)

	if l.cfg.Username != "" {
		opts.SetUsername(l.cfg.Username)
		opts.SetPassword(l.cfg.Password)
		l.logger.Debug("using mqtt authentication", "username", l.cfg.Username)
	}

	// Clean sessions lose subscriptions across reconnects, so subscribe on
	// every connect.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		l.logger.Info("connected to mqtt broker", "broker", l.cfg.BrokerURL)
		if token := c.Subscribe(l.cfg.Topic, 0, l.handleMessage); token.Wait() && token.Error() != nil {
			l.logger.Error("mqtt subscribe failed", "topic", l.cfg.Topic, "error", token.Error())
			return
		}
		l.logger.Info("subscribed to topic", "topic", l.cfg.Topic)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		l.logger.Warn("mqtt connection lost", "error", err)
	})

	return opts
}

func (l *Listener) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	packet, err := decodePacket(msg.Payload())
	if err != nil {
		l.logger.Warn("mqtt payload decode failed, dropping message", "topic", msg.Topic(), "error", err)
		return
	}

	l.enqueue(packet)
}

// enqueue hands a decoded packet to the writer, dropping the oldest queued
// packet when the buffer is full.
func (l *Listener) enqueue(p model.Packet) {
	l.dropMu.Lock()
	defer l.dropMu.Unlock()

	for {
		select {
		case l.queue <- p:
			return
		default:
		}

		select {
		case dropped := <-l.queue:
			l.logger.Warn("ingest queue full, dropping oldest packet", "timestamp", dropped.Timestamp)
		default:
		}
	}
}

func (l *Listener) writeLoop(ctx context.Context) {
	for {
		select {
		case p := <-l.queue:
			l.persist(p)
		case <-ctx.Done():
			for {
				select {
				case p := <-l.queue:
					l.persist(p)
				default:
					return
				}
			}
		}
	}
}

func (l *Listener) persist(p model.Packet) {
	// Shutdown still flushes queued packets, so the write deadline is
	// independent of the run context.
	storeCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := l.store.UpsertPacket(storeCtx, p); err != nil {
		l.logger.Error("failed to persist packet, dropping", "timestamp", p.Timestamp, "error", err)
		return
	}

	l.logger.Info("saved packet", "timestamp", p.Timestamp)
}

func decodePacket(payload []byte) (model.Packet, error) {
	var p model.Packet
	if err := json.Unmarshal(payload, &p); err != nil {
		return model.Packet{}, fmt.Errorf("decode payload: %w", err)
	}

	if p.Timestamp.IsZero() {
		return model.Packet{}, fmt.Errorf("missing timestamp")
	}

	return p, nil
}
