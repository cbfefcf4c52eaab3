// Package rosbridge is a minimal client for the rosbridge v2 JSON protocol
// over a websocket: topic subscription, publishing and service calls.
package rosbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/websocket"
)

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("rosbridge: client closed")

// frame is one rosbridge protocol message. Only the fields used by this
// client are declared.
type frame struct {
	Op      string          `json:"op"`
	ID      string          `json:"id,omitempty"`
	Topic   string          `json:"topic,omitempty"`
	Type    string          `json:"type,omitempty"`
	Msg     json.RawMessage `json:"msg,omitempty"`
	Service string          `json:"service,omitempty"`
	Args    any             `json:"args,omitempty"`
	Values  json.RawMessage `json:"values,omitempty"`
	Result  *bool           `json:"result,omitempty"`
	Level   string          `json:"level,omitempty"`
}

type topicSubs struct {
	id       string
	msgType  string
	handlers map[uint64]func(json.RawMessage)
}

type serviceReply struct {
	values json.RawMessage
	ok     bool
}

// Client is a rosbridge connection. Handlers run on the client's read
// goroutine; hand work to the owning goroutine before touching shared state.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	encMu sync.Mutex
	enc   *json.Encoder

	mu     sync.Mutex
	subs   map[string]*topicSubs
	calls  map[string]chan serviceReply
	nextID uint64
	closed bool

	done chan struct{}
	err  error
}

// Dial connects to a rosbridge server such as "ws://localhost:9090".
func Dial(ctx context.Context, url string, logger *slog.Logger) (*Client, error) {
	origin := "http://localhost/"
	if strings.HasPrefix(url, "wss://") {
		origin = "https://localhost/"
	}
	cfg, err := websocket.NewConfig(url, origin)
	if err != nil {
		return nil, fmt.Errorf("rosbridge config: %w", err)
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("rosbridge dial %s: %w", url, err)
	}
	return NewClient(conn, logger), nil
}

// NewClient wraps an open websocket connection and starts reading from it.
func NewClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Client{
		conn:   conn,
		logger: logger,
		enc:    json.NewEncoder(conn),
		subs:   make(map[string]*topicSubs),
		calls:  make(map[string]chan serviceReply),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the connection, if any.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close closes the connection and waits for the read loop to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) newID(prefix string) string {
	c.nextID++
	return fmt.Sprintf("%s:%d", prefix, c.nextID)
}

func (c *Client) send(f frame) error {
	c.encMu.Lock()
	defer c.encMu.Unlock()
	if err := c.enc.Encode(f); err != nil {
		return fmt.Errorf("rosbridge send %s: %w", f.Op, err)
	}
	return nil
}

// Subscribe registers handler for messages on topic. The first handler for a
// topic sends the subscribe request; cancelling the last one unsubscribes.
// The returned cancel func is idempotent.
func (c *Client) Subscribe(topic, msgType string, handler func(json.RawMessage)) (func(), error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("rosbridge subscribe: empty topic")
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	ts, ok := c.subs[topic]
	first := !ok
	if first {
		ts = &topicSubs{
			id:       c.newID("subscribe:" + topic),
			msgType:  msgType,
			handlers: make(map[uint64]func(json.RawMessage)),
		}
		c.subs[topic] = ts
	}
	c.nextID++
	hid := c.nextID
	ts.handlers[hid] = handler
	c.mu.Unlock()

	if first {
		if err := c.send(frame{Op: "subscribe", ID: ts.id, Topic: topic, Type: msgType}); err != nil {
			c.removeHandler(topic, hid)
			return nil, err
		}
		c.logger.Debug("subscribed", "topic", topic, "type", msgType)
	}

	var once sync.Once
	return func() {
		once.Do(func() { c.removeHandler(topic, hid) })
	}, nil
}

func (c *Client) removeHandler(topic string, hid uint64) {
	c.mu.Lock()
	ts, ok := c.subs[topic]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(ts.handlers, hid)
	last := len(ts.handlers) == 0
	if last {
		delete(c.subs, topic)
	}
	closed := c.closed
	c.mu.Unlock()

	if last && !closed {
		if err := c.send(frame{Op: "unsubscribe", ID: ts.id, Topic: topic}); err != nil {
			c.logger.Warn("unsubscribe", "topic", topic, "error", err)
			return
		}
		c.logger.Debug("unsubscribed", "topic", topic)
	}
}

// Publish sends msg on topic.
func (c *Client) Publish(topic string, msg any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("rosbridge publish %s: %w", topic, err)
	}
	return c.send(frame{Op: "publish", Topic: topic, Msg: raw})
}

// CallService invokes a ROS service and decodes its values into result,
// which may be nil.
func (c *Client) CallService(ctx context.Context, service string, args any, result any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	id := c.newID("call_service:" + service)
	reply := make(chan serviceReply, 1)
	c.calls[id] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.calls, id)
		c.mu.Unlock()
	}()

	if err := c.send(frame{Op: "call_service", ID: id, Service: service, Args: args}); err != nil {
		return err
	}

	select {
	case r := <-reply:
		if !r.ok {
			return fmt.Errorf("rosbridge service %s failed: %s", service, string(r.values))
		}
		if result == nil || len(r.values) == 0 {
			return nil
		}
		if err := json.Unmarshal(r.values, result); err != nil {
			return fmt.Errorf("rosbridge service %s: decode: %w", service, err)
		}
		return nil
	case <-c.done:
		if c.err != nil {
			return c.err
		}
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Topics lists the topics currently carrying msgType, sorted.
func (c *Client) Topics(ctx context.Context, msgType string) ([]string, error) {
	var out struct {
		Topics []string `json:"topics"`
	}
	err := c.CallService(ctx, "/rosapi/topics_for_type", map[string]string{"type": msgType}, &out)
	if err != nil {
		return nil, err
	}
	sort.Strings(out.Topics)
	return out.Topics, nil
}

func (c *Client) readLoop() {
	dec := json.NewDecoder(c.conn)
	var err error
	for {
		var f frame
		if err = dec.Decode(&f); err != nil {
			break
		}
		c.dispatch(f)
	}

	c.mu.Lock()
	if !c.closed {
		c.err = fmt.Errorf("rosbridge read: %w", err)
		c.closed = true
	}
	c.mu.Unlock()
	close(c.done)
	c.logger.Debug("read loop ended", "error", err)
}

func (c *Client) dispatch(f frame) {
	switch f.Op {
	case "publish":
		c.mu.Lock()
		ts, ok := c.subs[f.Topic]
		var handlers []func(json.RawMessage)
		if ok {
			handlers = make([]func(json.RawMessage), 0, len(ts.handlers))
			for _, h := range ts.handlers {
				handlers = append(handlers, h)
			}
		}
		c.mu.Unlock()
		for _, h := range handlers {
			h(f.Msg)
		}
	case "service_response":
		c.mu.Lock()
		reply, ok := c.calls[f.ID]
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("unexpected service response", "id", f.ID)
			return
		}
		select {
		case reply <- serviceReply{values: f.Values, ok: f.Result == nil || *f.Result}:
		default:
		}
	case "status":
		c.logger.Info("rosbridge status", "level", f.Level, "id", f.ID, "msg", string(f.Msg))
	default:
		c.logger.Debug("ignoring frame", "op", f.Op)
	}
}
