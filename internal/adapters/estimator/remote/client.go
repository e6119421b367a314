// Package remote talks to an out-of-process pose estimator over a websocket.
// Every estimate is one binary msgpack request answered by one response.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/pkg/logger"
)

// Defaults.
const (
	DefaultTimeout     = 2 * time.Second
	DefaultJPEGQuality = 80
	DefaultRedialDelay = time.Second
	maxMessageSize     = 1 << 20
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithTimeout bounds one estimate when ctx carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithJPEGQuality sets the frame encoding quality, 1 to 100.
func WithJPEGQuality(q int) Option {
	return func(c *Client) {
		if q >= 1 && q <= 100 {
			c.quality = q
		}
	}
}

// WithRedialDelay sets the pause before reconnecting after a failure.
func WithRedialDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.redialDelay = d
		}
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client implements pose.Estimator against a remote service.
type Client struct {
	url         string
	dialer      *websocket.Dialer
	timeout     time.Duration
	quality     int
	redialDelay time.Duration
	log         logger.Logger

	// io serialises request/response pairs on conn.
	io sync.Mutex

	mu      sync.Mutex
	conn    *websocket.Conn
	seq     uint64
	dialing bool
	closed  bool
	stop    chan struct{}
}

// New creates a client for url. Nothing is dialled until Connect.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:         url,
		dialer:      websocket.DefaultDialer,
		timeout:     DefaultTimeout,
		quality:     DefaultJPEGQuality,
		redialDelay: DefaultRedialDelay,
		log:         logger.Get().Named("estimator"),
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the estimator.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial estimator %s: %w", c.url, err)
	}
	conn.SetReadLimit(maxMessageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = conn.Close()
		return ErrClosed
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	return nil
}

// Ready reports whether a connection is open.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Estimate sends frame and waits for the matching response. A transport
// failure drops the connection and schedules a redial.
func (c *Client) Estimate(ctx context.Context, frame model.Frame) (*model.Pose, error) {
	c.mu.Lock()
	conn := c.conn
	c.seq++
	seq := c.seq
	c.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}
	if frame.Image == nil {
		return nil, ErrNilFrame
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	payload, err := msgpack.Marshal(&Request{Seq: seq, Width: frame.Width, Height: frame.Height, Image: buf.Bytes()})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}

	resp, err := c.roundTrip(ctx, conn, payload, deadline)
	if err != nil {
		c.drop(conn)
		return nil, err
	}
	if resp.Seq != seq {
		c.drop(conn)
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrSeqMismatch, seq, resp.Seq)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRemote, resp.Error)
	}
	if !resp.Found {
		return nil, nil
	}
	return &model.Pose{Keypoints: resp.Keypoints, Score: resp.Score, Width: resp.Width, Height: resp.Height}, nil
}

func (c *Client) roundTrip(ctx context.Context, conn *websocket.Conn, payload []byte, deadline time.Time) (*Response, error) {
	c.io.Lock()
	defer c.io.Unlock()

	// Unblock the read if ctx ends first.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	_ = conn.SetReadDeadline(deadline)
	_, data, err := conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("read response: %w", ctx.Err())
		}
		return nil, fmt.Errorf("read response: %w", err)
	}
	var resp Response
	if err := msgpack.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}

// drop closes conn if it is still current and starts one background redial.
func (c *Client) drop(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		_ = conn.Close()
	}
	c.mu.Unlock()
	c.KeepDialing()
}

// KeepDialing starts a background redial loop unless the client is connected,
// closed or already dialling.
func (c *Client) KeepDialing() {
	c.mu.Lock()
	if c.closed || c.dialing || c.conn != nil {
		c.mu.Unlock()
		return
	}
	c.dialing = true
	c.mu.Unlock()

	go c.redial()
}

func (c *Client) redial() {
	defer func() {
		c.mu.Lock()
		c.dialing = false
		c.mu.Unlock()
	}()
	for {
		select {
		case <-c.stop:
			return
		case <-time.After(c.redialDelay):
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		err := c.Connect(ctx)
		cancel()
		if err == nil {
			c.log.Info(context.Background(), "estimator reconnected", logger.String("url", c.url))
			return
		}
		if errors.Is(err, ErrClosed) {
			return
		}
		c.log.Warn(context.Background(), "estimator redial failed", logger.Error(err))
	}
}

// Close closes the connection and stops redialling.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.stop)
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
