// bus.go
package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of comparable tokens (strings, ints, ...).
// Two wildcard tokens are recognised in subscriptions:
//
//	"+"  matches exactly one token
//	"#"  matches zero or more trailing tokens
type Topic []any

const (
	WildcardOne  = "+"
	WildcardRest = "#"
)

// T builds a Topic and panics if a token is not comparable (map keys).
func T(tokens ...any) Topic {
	for _, tok := range tokens {
		mustComparable(tok)
	}
	return Topic(tokens)
}

// mustComparable panics when tok cannot be used as a trie key.
func mustComparable(tok any) {
	_ = map[any]struct{}{tok: {}}
}

func (t Topic) Len() int        { return len(t) }
func (t Topic) At(i int) any    { return t[i] }
func (t Topic) Equal(o Topic) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// CanReply reports whether the sender asked for a reply.
func (m *Message) CanReply() bool { return len(m.ReplyTo) > 0 }

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	bus   *Bus
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// TryRecv returns the next pending message without blocking.
// Cooperative tasks poll their subscriptions with this inside a step.
func (s *Subscription) TryRecv() (*Message, bool) {
	select {
	case m := <-s.ch:
		return m, true
	default:
		return nil, false
	}
}

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[any]*node
	subs     []*Subscription
	retained *Message
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu       sync.Mutex
	root     *node
	qLen     int
	replySeq uint32
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		root: &node{},
		qLen: queueLen,
	}
}

// NewMessage builds a message without publishing it.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// addSubscription inserts a subscription into the trie and delivers any
// retained messages its pattern matches.
func (b *Bus) addSubscription(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range topic {
		if n.children == nil {
			n.children = make(map[any]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	b.deliverRetained(b.root, topic, sub)
}

// deliverRetained walks the trie delivering retained messages that match
// the subscription pattern.
func (b *Bus) deliverRetained(n *node, pattern Topic, sub *Subscription) {
	if n == nil {
		return
	}
	if len(pattern) == 0 {
		if n.retained != nil {
			deliver(sub, n.retained)
		}
		return
	}
	tok := pattern[0]
	switch tok {
	case any(WildcardRest):
		// Matches this node and the whole subtree.
		b.deliverRetainedSubtree(n, sub)
	case any(WildcardOne):
		for _, child := range n.children {
			b.deliverRetained(child, pattern[1:], sub)
		}
	default:
		if n.children != nil {
			b.deliverRetained(n.children[tok], pattern[1:], sub)
		}
	}
}

func (b *Bus) deliverRetainedSubtree(n *node, sub *Subscription) {
	if n.retained != nil {
		deliver(sub, n.retained)
	}
	for _, child := range n.children {
		b.deliverRetainedSubtree(child, sub)
	}
}

// Publish delivers a message to all matching subscribers and stores or
// clears the retained copy.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.match(b.root, msg.Topic, msg)

	if !msg.Retained {
		return
	}
	// Walk/extend the exact path for retained storage.
	n := b.root
	for _, tok := range msg.Topic {
		if n.children == nil {
			n.children = make(map[any]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	if msg.Payload == nil {
		n.retained = nil
	} else {
		n.retained = msg
	}
}

// match recursively fans a publication out over exact and wildcard branches.
func (b *Bus) match(n *node, remaining Topic, msg *Message) {
	if n == nil {
		return
	}
	// "#" children match any remainder, including none.
	if n.children != nil {
		if rest := n.children[any(WildcardRest)]; rest != nil {
			for _, sub := range rest.subs {
				deliver(sub, msg)
			}
		}
	}
	if len(remaining) == 0 {
		for _, sub := range n.subs {
			deliver(sub, msg)
		}
		return
	}
	if n.children == nil {
		return
	}
	b.match(n.children[remaining[0]], remaining[1:], msg)
	b.match(n.children[any(WildcardOne)], remaining[1:], msg)
}

// deliver enqueues without blocking, dropping the oldest message if the
// subscriber queue is full.
func deliver(sub *Subscription, msg *Message) {
	select {
	case sub.ch <- msg:
	default:
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// unsubscribe removes a subscription from the trie.
func (b *Bus) unsubscribe(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, tok := range topic {
		if n.children == nil {
			return
		}
		child, ok := n.children[tok]
		if !ok {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

// NewMessage builds a message without publishing it.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		bus:   c.bus,
		conn:  c,
	}
	c.bus.addSubscription(topic, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub.topic, sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub.topic, sub)
		close(sub.ch)
	}
}

// -----------------------------------------------------------------------------
// Request / Reply
// -----------------------------------------------------------------------------

// ErrNoReply is returned by RequestWait when the context expires first.
var ErrNoReply = errors.New("bus: no reply")

// Reply publishes a response to the message's ReplyTo topic.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if !req.CanReply() {
		return
	}
	c.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}

// Request assigns a unique ReplyTo topic, subscribes to it, publishes the
// request and returns the reply subscription. The caller owns the
// subscription and must Unsubscribe it.
func (c *Connection) Request(req *Message) *Subscription {
	seq := atomic.AddUint32(&c.bus.replySeq, 1)
	req.ReplyTo = Topic{"$reply", c.id, int(seq)}
	sub := c.Subscribe(req.ReplyTo)
	c.Publish(req)
	return sub
}

// RequestWait performs a request and blocks for the first reply or the
// context deadline. Not for use inside cooperative task steps; intended
// for wiring code and tests.
func (c *Connection) RequestWait(ctx context.Context, req *Message) (*Message, error) {
	sub := c.Request(req)
	defer c.Unsubscribe(sub)
	select {
	case m := <-sub.Channel():
		return m, nil
	case <-ctx.Done():
		return nil, ErrNoReply
	}
}
