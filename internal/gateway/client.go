package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/lxzan/gws"

	"github.com/danifischer/raidbot/internal/model"
)

// ErrNotConnected is returned by Send while no relay connection is open
var ErrNotConnected = errors.New("gateway not connected")

// ReactionHandler consumes reaction events received from the relay
type ReactionHandler interface {
	HandleReaction(ctx context.Context, ev model.ReactionEvent) (model.ReactionResult, error)
}

// GuildChecker decides whether events from a guild are handled
type GuildChecker interface {
	Allowed(ctx context.Context, guildID uint64) bool
}

// Config holds the relay connection settings
type Config struct {
	URL   string
	Token string

	// ReconnectMin and ReconnectMax bound the exponential reconnect delay
	ReconnectMin time.Duration
	ReconnectMax time.Duration

	// RequestTimeout bounds the handling of one reaction event
	RequestTimeout time.Duration

	// Workers is the number of reaction workers (default 4). Events of one
	// user always land on the same worker, so they are applied in order.
	Workers   int
	QueueSize int

	Markers []string
	Guilds  GuildChecker
}

// Client keeps a websocket connection to the platform relay open, feeds
// inbound reaction events to the handler and writes outbound frames
type Client struct {
	cfg     Config
	handler ReactionHandler
	queues  []chan model.ReactionEvent

	connMu sync.RWMutex
	conn   *gws.Conn

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewClient creates a new gateway client
func NewClient(cfg Config, handler ReactionHandler) *Client {
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = time.Minute
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}

	queues := make([]chan model.ReactionEvent, cfg.Workers)
	for i := range queues {
		queues[i] = make(chan model.ReactionEvent, cfg.QueueSize)
	}

	return &Client{
		cfg:     cfg,
		handler: handler,
		queues:  queues,
		stopCh:  make(chan struct{}),
	}
}

// Start connects to the relay and starts the reaction workers
func (c *Client) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	for _, queue := range c.queues {
		c.wg.Add(1)
		go c.work(queue)
	}

	c.wg.Add(1)
	go c.run()
	slog.Info("gateway client started",
		slog.String("url", c.cfg.URL),
		slog.Int("workers", c.cfg.Workers),
	)
}

// Stop closes the connection and waits for in-flight reactions to finish
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	close(c.stopCh)
	c.wg.Wait()
	slog.Info("gateway client stopped")
}

// IsRunning returns whether the client is running
func (c *Client) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// IsConnected returns whether a relay connection is currently open
func (c *Client) IsConnected() bool {
	return c.current() != nil
}

// Send writes one frame to the relay
func (c *Client) Send(ctx context.Context, op string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn := c.current()
	if conn == nil {
		return ErrNotConnected
	}
	data, err := NewFrame(op, payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(gws.OpcodeText, data)
}

// run is the connection loop; it reconnects with exponential backoff until stopped
func (c *Client) run() {
	defer c.wg.Done()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.ReconnectMin
	b.MaxInterval = c.cfg.ReconnectMax

	for {
		connected, err := c.serve()
		if connected {
			b.Reset()
		}

		select {
		case <-c.stopCh:
			return
		default:
		}

		wait := b.NextBackOff()
		if err != nil {
			slog.Warn("gateway connection failed",
				slog.String("error", err.Error()),
				slog.Duration("retry_in", wait),
			)
		} else {
			slog.Info("gateway connection closed", slog.Duration("retry_in", wait))
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-c.stopCh:
			timer.Stop()
			return
		}
	}
}

// serve dials the relay and blocks until the connection ends or the client stops
func (c *Client) serve() (bool, error) {
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bot "+c.cfg.Token)
	}

	conn, _, err := gws.NewClient(&eventHandler{client: c}, &gws.ClientOption{
		Addr:          c.cfg.URL,
		RequestHeader: header,
	})
	if err != nil {
		return false, err
	}

	c.setConn(conn)
	defer c.setConn(nil)

	done := make(chan struct{})
	go func() {
		conn.ReadLoop()
		close(done)
	}()

	select {
	case <-done:
	case <-c.stopCh:
		conn.WriteClose(1000, []byte("shutting down"))
		<-done
	}
	return true, nil
}

func (c *Client) current() *gws.Conn {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn
}

func (c *Client) setConn(conn *gws.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

// dispatch routes an event to the worker owning its user
func (c *Client) dispatch(ev model.ReactionEvent) {
	queue := c.queues[ev.UserID%uint64(len(c.queues))]
	select {
	case queue <- ev:
	case <-c.stopCh:
	}
}

func (c *Client) work(queue <-chan model.ReactionEvent) {
	defer c.wg.Done()
	for {
		select {
		case ev := <-queue:
			c.handle(ev)
		case <-c.stopCh:
			return
		}
	}
}

func (c *Client) handle(ev model.ReactionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	defer cancel()

	if c.cfg.Guilds != nil && !c.cfg.Guilds.Allowed(ctx, ev.GuildID) {
		return
	}
	// Errors are logged by the handler
	_, _ = c.handler.HandleReaction(ctx, ev)
}

// eventHandler receives websocket callbacks for one connection
type eventHandler struct {
	gws.BuiltinEventHandler
	client *Client
}

func (h *eventHandler) OnOpen(socket *gws.Conn) {
	data, err := NewFrame(OpIdentify, IdentifyPayload{Token: h.client.cfg.Token, Markers: h.client.cfg.Markers})
	if err == nil {
		err = socket.WriteMessage(gws.OpcodeText, data)
	}
	if err != nil {
		slog.Error("gateway identify failed", slog.String("error", err.Error()))
		return
	}
	slog.Info("gateway connected", slog.String("url", h.client.cfg.URL))
}

func (h *eventHandler) OnClose(socket *gws.Conn, err error) {
	slog.Debug("gateway socket closed", slog.Any("reason", err))
}

func (h *eventHandler) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.WritePong(payload)
}

func (h *eventHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()

	var frame Frame
	if err := json.Unmarshal(message.Data.Bytes(), &frame); err != nil {
		slog.Warn("gateway frame dropped", slog.String("error", err.Error()))
		return
	}

	switch frame.Op {
	case OpReactionAdd:
		var ev model.ReactionEvent
		if err := json.Unmarshal(frame.D, &ev); err != nil {
			slog.Warn("reaction frame dropped", slog.String("error", err.Error()))
			return
		}
		if fieldErrors := ev.Validate(); len(fieldErrors) > 0 {
			slog.Warn("reaction frame dropped", slog.Any("errors", fieldErrors))
			return
		}
		h.client.dispatch(ev)
	default:
		slog.Debug("gateway frame ignored", slog.String("op", frame.Op))
	}
}
