// Package session implements the bilateral session engine: one actor per
// peer, binding an artifact ladder, a flood controller, and a decider to a
// conduit. All state mutation happens on the single processing worker;
// inbound datagrams only ever enqueue.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/riffcc/pact/config"
	"github.com/riffcc/pact/consensus/decider"
	"github.com/riffcc/pact/consensus/flood"
	"github.com/riffcc/pact/consensus/ladder"
	"github.com/riffcc/pact/engine"
	"github.com/riffcc/pact/engine/common/fifoqueue"
	"github.com/riffcc/pact/model/messages"
	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/module"
	"github.com/riffcc/pact/module/component"
	"github.com/riffcc/pact/module/irrecoverable"
	"github.com/riffcc/pact/network"
	"github.com/riffcc/pact/storage"
)

type inboundMessage struct {
	originID pact.Identifier
	event    interface{}
}

// Engine runs one bilateral session against one peer.
type Engine struct {
	*component.ComponentManager

	log              zerolog.Logger
	consensusMetrics module.ConsensusMetrics
	floodMetrics     module.FloodMetrics
	conf             *config.Config
	clock            clock.Clock

	local     module.Local
	peer      *pact.Party
	sessionID pact.Identifier

	// owned exclusively by the processing worker
	ladder  *ladder.Ladder
	flood   *flood.Controller
	decider *decider.Decider
	flooded map[pact.Identifier]struct{}

	conduit   network.Conduit
	decisions storage.Decisions

	queue    *fifoqueue.FifoQueue
	notifier engine.Notifier

	startedAt time.Time

	mu         sync.RWMutex
	decision   pact.Decision
	record     *pact.DecisionRecord
	onDecision func(*pact.DecisionRecord)
}

var _ network.MessageProcessor = (*Engine)(nil)
var _ component.Component = (*Engine)(nil)

// Option customizes engine construction.
type Option func(*Engine)

// WithOnDecision installs a callback invoked once, from the processing
// worker, at the terminal decision transition.
func WithOnDecision(callback func(*pact.DecisionRecord)) Option {
	return func(e *Engine) {
		e.onDecision = callback
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates a session engine for one peer. The decisions store may be nil
// for a deployment that does not persist verdicts.
func New(
	log zerolog.Logger,
	conf *config.Config,
	consensusMetrics module.ConsensusMetrics,
	floodMetrics module.FloodMetrics,
	local module.Local,
	peer *pact.Party,
	payload []byte,
	conduit network.Conduit,
	decisions storage.Decisions,
	opts ...Option,
) (*Engine, error) {

	sessionID := pact.SessionID(payload, local.NodeID(), peer.NodeID)
	log = log.With().
		Str("engine", "session").
		Hex("session", sessionID[:]).
		Logger()

	queue, err := fifoqueue.NewFifoQueue(conf.Session.QueueCapacity)
	if err != nil {
		return nil, fmt.Errorf("could not create inbound queue: %w", err)
	}

	e := &Engine{
		log:              log,
		consensusMetrics: consensusMetrics,
		floodMetrics:     floodMetrics,
		conf:             conf,
		clock:            clock.New(),
		local:            local,
		peer:             peer,
		sessionID:        sessionID,
		ladder:           ladder.New(log, local, peer, payload),
		flood: flood.NewController(
			log,
			floodMetrics,
			conf.Flood.MinRate,
			conf.Flood.MaxRate,
			conf.Flood.RampUpFactor,
			conf.Flood.RampDownFactor,
		),
		flooded:   make(map[pact.Identifier]struct{}),
		conduit:   conduit,
		decisions: decisions,
		queue:     queue,
		notifier:  engine.NewNotifier(),
		decision:  pact.DecisionPending,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(e.processLoop).
		Build()

	return e, nil
}

// SessionID returns the deterministic session identifier; both parties
// derive the same one.
func (e *Engine) SessionID() pact.Identifier {
	return e.sessionID
}

// Process enqueues an inbound event for the processing worker. It never
// blocks; when the queue is full the event is dropped, and the peer's
// flooding re-delivers it.
func (e *Engine) Process(originID pact.Identifier, event interface{}) error {
	pushed := e.queue.Push(inboundMessage{originID: originID, event: event})
	if !pushed {
		e.log.Debug().Msg("inbound queue full, dropping datagram")
		return nil
	}
	e.notifier.Notify()
	return nil
}

// Decision returns the session's current verdict.
func (e *Engine) Decision() pact.Decision {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.decision
}

// Receipt returns the bilateral receipt after a Proceed verdict.
func (e *Engine) Receipt() (*pact.Receipt, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.record == nil || e.record.Receipt == nil {
		return nil, pact.ErrNoDecision
	}
	return e.record.Receipt, nil
}

// Record returns the terminal decision record.
func (e *Engine) Record() (*pact.DecisionRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.record == nil {
		return nil, pact.ErrNoDecision
	}
	return e.record, nil
}

// processLoop is the single worker owning all session state. It
// bootstraps the ladder, then serializes inbound processing, the flood
// tick, and the decision poll. After the terminal decision it lingers for
// the grace period, idempotently absorbing in-flight duplicates, before
// shutting down.
func (e *Engine) processLoop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	e.startedAt = e.clock.Now()
	e.decider = decider.New(e.startedAt.Add(e.conf.Session.Timeout))

	_, err := e.ladder.Bootstrap()
	if err != nil {
		ctx.Throw(fmt.Errorf("could not bootstrap ladder: %w", err))
		return
	}
	e.syncFloodSet()

	ticker := e.clock.Ticker(e.conf.Session.TickInterval)
	defer ticker.Stop()

	ready()

	var graceElapsed <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-graceElapsed:
			e.log.Debug().Msg("grace period over, session retiring")
			return
		case <-e.notifier.Channel():
			e.drainInbound()
			graceElapsed = e.maybeDecide(ctx, graceElapsed)
		case <-ticker.C:
			e.onTick(ctx)
			graceElapsed = e.maybeDecide(ctx, graceElapsed)
		}
	}
}

// drainInbound empties the queue. Every rejection is a counted drop, never
// a failure: invalid and adversarial inputs degrade to "ignore and keep
// flooding".
func (e *Engine) drainInbound() {
	for {
		raw, ok := e.queue.Pop()
		if !ok {
			return
		}
		msg := raw.(inboundMessage)
		e.processEvent(msg.originID, msg.event)
	}
}

func (e *Engine) processEvent(originID pact.Identifier, event interface{}) {
	var advanced bool
	var err error

	what := msgType(event)
	switch ev := event.(type) {
	case *messages.Commitment:
		if ev.Commitment == nil {
			e.consensusMetrics.ArtifactDropped(what, "malformed")
			return
		}
		advanced, err = e.ladder.OnCommitment(ev.Commitment)
	case *messages.DoubleProof:
		if ev.DoubleProof == nil {
			e.consensusMetrics.ArtifactDropped(what, "malformed")
			return
		}
		advanced, err = e.ladder.OnDoubleProof(ev.DoubleProof)
	case *messages.TripleProof:
		if ev.TripleProof == nil {
			e.consensusMetrics.ArtifactDropped(what, "malformed")
			return
		}
		advanced, err = e.ladder.OnTripleProof(ev.TripleProof)
	case *messages.ReceiptHalf:
		if ev.ReceiptHalf == nil {
			e.consensusMetrics.ArtifactDropped(what, "malformed")
			return
		}
		advanced, err = e.ladder.OnReceiptHalf(ev.ReceiptHalf)
	default:
		e.log.Debug().Str("type", what).Msg("discarding unknown message type")
		return
	}

	if err != nil {
		e.consensusMetrics.ArtifactDropped(what, dropReason(err))
		e.log.Debug().
			Str("msg_type", what).
			Hex("origin", originID[:]).
			Str("reason", dropReason(err)).
			Msg("dropped inbound artifact")
		return
	}

	e.consensusMetrics.ArtifactReceived(what)
	if advanced {
		e.syncFloodSet()
	}
}

// onTick advances the flood controller and re-emits due artifacts.
func (e *Engine) onTick(ctx irrecoverable.SignalerContext) {
	now := e.clock.Now()

	e.syncFloodSet()
	pending := e.decider.Decision() == pact.DecisionPending
	e.flood.SetUrgency(pending && e.flood.Outstanding() > 0)
	e.flood.Tick(now)

	for _, out := range e.flood.Due(now) {
		err := e.conduit.Unicast(out.Payload, e.peer.NodeID)
		if err != nil {
			// transport refusal is not fatal; the schedule retries
			e.log.Debug().Err(err).Msg("could not send artifact")
			continue
		}
		e.floodMetrics.ArtifactSent(msgType(out.Payload))
	}
}

// syncFloodSet reconciles the flood set with the ladder: newly constructed
// artifacts enter, artifacts the peer has evidenced possession of retire.
func (e *Engine) syncFloodSet() {
	outstanding := e.ladder.Outstanding()

	current := make(map[pact.Identifier]struct{}, len(outstanding))
	for _, artifact := range outstanding {
		artifactID := artifact.ID()
		current[artifactID] = struct{}{}
		if _, known := e.flooded[artifactID]; !known {
			e.flood.Add(artifactID, wireMessage(artifact))
			e.flooded[artifactID] = struct{}{}
		}
	}
	for artifactID := range e.flooded {
		if _, still := current[artifactID]; !still {
			e.flood.MarkSuperseded(artifactID)
			delete(e.flooded, artifactID)
		}
	}
}

// maybeDecide polls the decider and performs the terminal transition at
// most once, returning the grace timer channel once armed.
func (e *Engine) maybeDecide(ctx irrecoverable.SignalerContext, graceElapsed <-chan time.Time) <-chan time.Time {
	if graceElapsed != nil {
		return graceElapsed
	}

	now := e.clock.Now()
	verdict, transitioned := e.decider.Poll(now, e.ladder.Complete())
	if !transitioned {
		return nil
	}

	record := &pact.DecisionRecord{
		SessionID:   e.sessionID,
		Decision:    verdict,
		DecidedAtMS: now.UnixMilli(),
	}
	if verdict == pact.DecisionProceed {
		receipt, err := e.ladder.Receipt()
		if err != nil {
			ctx.Throw(fmt.Errorf("proceed verdict without receipt: %w", err))
			return nil
		}
		record.Receipt = receipt
	}

	// On Abort nothing we hold can help the peer, so flooding stops at
	// once. On Proceed the own receipt half keeps flooding at the idle
	// rate for the grace period: the peer's completion may still hinge on
	// it, and its continued retransmission is the bounded residual traffic
	// the shutdown model allows. Lower rungs are already retired by the
	// supersede rule.
	if verdict == pact.DecisionAbort {
		e.flood.SupersedeAll()
	}
	e.flood.SetUrgency(false)

	if e.decisions != nil {
		err := e.decisions.Store(record)
		if err != nil {
			ctx.Throw(fmt.Errorf("could not persist decision: %w", err))
			return nil
		}
	}

	e.mu.Lock()
	e.decision = verdict
	e.record = record
	e.mu.Unlock()

	e.consensusMetrics.DecisionReached(verdict.String(), now.Sub(e.startedAt))
	e.log.Info().
		Str("verdict", verdict.String()).
		Dur("elapsed", now.Sub(e.startedAt)).
		Msg("session decided")

	if e.onDecision != nil {
		e.onDecision(record)
	}

	return e.clock.After(e.conf.Session.GracePeriod)
}

func wireMessage(artifact pact.Artifact) interface{} {
	switch a := artifact.(type) {
	case *pact.Commitment:
		return &messages.Commitment{Commitment: a}
	case *pact.DoubleProof:
		return &messages.DoubleProof{DoubleProof: a}
	case *pact.TripleProof:
		return &messages.TripleProof{TripleProof: a}
	case *pact.ReceiptHalf:
		return &messages.ReceiptHalf{ReceiptHalf: a}
	default:
		panic(fmt.Sprintf("unknown artifact type (%T)", artifact))
	}
}

func msgType(event interface{}) string {
	switch event.(type) {
	case *messages.Commitment:
		return "commitment"
	case *messages.DoubleProof:
		return "double_proof"
	case *messages.TripleProof:
		return "triple_proof"
	case *messages.ReceiptHalf:
		return "receipt_half"
	case *messages.Proposal:
		return "proposal"
	case *messages.Share:
		return "share"
	case *messages.Commit:
		return "commit"
	default:
		return fmt.Sprintf("%T", event)
	}
}

func dropReason(err error) string {
	switch {
	case pact.IsInvalidArtifactError(err):
		return "invalid_artifact"
	case pact.IsPhaseViolationError(err):
		return "phase_violation"
	case errors.Is(err, pact.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, pact.ErrDuplicateArtifact):
		return "duplicate"
	case errors.Is(err, pact.ErrRoundMismatch):
		return "round_mismatch"
	case errors.Is(err, pact.ErrValueMismatch):
		return "value_mismatch"
	default:
		return "other"
	}
}
