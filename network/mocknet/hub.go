// Package mocknet provides a deterministic in-process datagram network for
// tests: a hub connecting per-node networks, with seeded loss, duplication,
// and reordering, plus per-datagram drop hooks for targeted fault
// injection. Every delivery round-trips through the wire codec, so nodes
// never share pointers and the codec itself is exercised on every test.
package mocknet

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/network"
	cborcodec "github.com/riffcc/pact/network/codec/cbor"
)

// Delivery is one in-flight datagram.
type Delivery struct {
	// Seq numbers submissions in submission order; for a fixed seed and
	// deterministic senders, the numbering is reproducible across runs.
	Seq      uint64
	OriginID pact.Identifier
	TargetID pact.Identifier
	Data     []byte
}

// DropFunc decides whether a given delivery is dropped before the loss roll.
type DropFunc func(*Delivery) bool

// Hub is the central switch connecting all node networks. It is safe for
// concurrent use: engine workers submit while the test goroutine flushes.
type Hub struct {
	mu          sync.Mutex
	rng         *rand.Rand
	codec       network.Codec
	networks    map[pact.Identifier]*Network
	order       []pact.Identifier
	pending     []*Delivery
	seq         uint64
	loss        float64
	duplication float64
	dropFn      DropFunc
}

// Option configures a Hub.
type Option func(*Hub)

// WithLoss sets the independent per-delivery drop probability.
func WithLoss(p float64) Option {
	return func(h *Hub) { h.loss = p }
}

// WithDuplication sets the per-delivery duplication probability.
func WithDuplication(p float64) Option {
	return func(h *Hub) { h.duplication = p }
}

// WithDropFunc installs a per-delivery drop hook, evaluated before the
// random loss roll.
func WithDropFunc(fn DropFunc) Option {
	return func(h *Hub) { h.dropFn = fn }
}

// WithCodec overrides the default CBOR wire codec.
func WithCodec(codec network.Codec) Option {
	return func(h *Hub) { h.codec = codec }
}

// NewHub creates a hub whose entire behavior is determined by the seed.
func NewHub(seed int64, opts ...Option) *Hub {
	h := &Hub{
		rng:      rand.New(rand.NewSource(seed)),
		codec:    cborcodec.NewCodec(),
		networks: make(map[pact.Identifier]*Network),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CreateNetwork registers a node with the hub and returns its network.
func (h *Hub) CreateNetwork(nodeID pact.Identifier) *Network {
	h.mu.Lock()
	defer h.mu.Unlock()
	net := &Network{
		hub:      h,
		originID: nodeID,
	}
	h.networks[nodeID] = net
	h.order = append(h.order, nodeID)
	return net
}

// Pending returns the number of buffered deliveries.
func (h *Hub) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// DeliverAll flushes the in-flight buffer: each delivery is dropped,
// duplicated, or delivered per the hub's configuration, in shuffled order.
// Processing errors are collected, not fatal: a node rejecting a datagram
// is a normal protocol event.
func (h *Hub) DeliverAll() error {
	h.mu.Lock()
	batch := h.pending
	h.pending = nil

	// duplication first, so a duplicate can itself be lost independently
	var expanded []*Delivery
	for _, delivery := range batch {
		expanded = append(expanded, delivery)
		if h.duplication > 0 && h.rng.Float64() < h.duplication {
			dup := *delivery
			expanded = append(expanded, &dup)
		}
	}

	h.rng.Shuffle(len(expanded), func(i, j int) {
		expanded[i], expanded[j] = expanded[j], expanded[i]
	})

	var keep []*Delivery
	for _, delivery := range expanded {
		if h.dropFn != nil && h.dropFn(delivery) {
			continue
		}
		if h.loss > 0 && h.rng.Float64() < h.loss {
			continue
		}
		keep = append(keep, delivery)
	}
	h.mu.Unlock()

	// deliveries run unlocked so a processor may send from within Process
	var result *multierror.Error
	for _, delivery := range keep {
		err := h.deliver(delivery)
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (h *Hub) deliver(delivery *Delivery) error {
	h.mu.Lock()
	target, ok := h.networks[delivery.TargetID]
	h.mu.Unlock()
	if !ok || target.processor == nil {
		// node gone or not yet attached; datagram falls on the floor, which
		// the channel model explicitly allows
		return nil
	}
	event, err := h.codec.Decode(delivery.Data)
	if err != nil {
		return fmt.Errorf("could not decode delivery %d: %w", delivery.Seq, err)
	}
	err = target.processor.Process(delivery.OriginID, event)
	if err != nil {
		return fmt.Errorf("node %x rejected delivery %d: %w", delivery.TargetID[:4], delivery.Seq, err)
	}
	return nil
}

func (h *Hub) submit(originID pact.Identifier, targetID pact.Identifier, event interface{}) error {
	data, err := h.codec.Encode(event)
	if err != nil {
		return fmt.Errorf("could not encode event: %w", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = append(h.pending, &Delivery{
		Seq:      h.seq,
		OriginID: originID,
		TargetID: targetID,
		Data:     data,
	})
	h.seq++
	return nil
}

// Network is one node's handle on the hub. It implements network.Conduit
// for the attached engine.
type Network struct {
	hub       *Hub
	originID  pact.Identifier
	processor network.MessageProcessor
}

var _ network.Conduit = (*Network)(nil)

// Attach connects the inbound side to a message processor.
func (n *Network) Attach(processor network.MessageProcessor) {
	n.processor = processor
}

// Publish enqueues the event for every other registered node, in
// registration order to keep runs reproducible for a fixed seed.
func (n *Network) Publish(event interface{}) error {
	n.hub.mu.Lock()
	targets := make([]pact.Identifier, len(n.hub.order))
	copy(targets, n.hub.order)
	n.hub.mu.Unlock()

	var result *multierror.Error
	for _, targetID := range targets {
		if targetID == n.originID {
			continue
		}
		err := n.hub.submit(n.originID, targetID, event)
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Unicast enqueues the event for one target node.
func (n *Network) Unicast(event interface{}, targetID pact.Identifier) error {
	return n.hub.submit(n.originID, targetID, event)
}
