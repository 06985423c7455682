// Package arbiter implements the threshold session engine: one actor per
// round, binding a share tracker, a flood controller, and a decider to the
// committee conduit. All state mutation happens on the single processing
// worker; share signature verification is stateless and runs on a worker
// pool ahead of the queue.
package arbiter

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/riffcc/pact/config"
	"github.com/riffcc/pact/consensus/decider"
	"github.com/riffcc/pact/consensus/flood"
	"github.com/riffcc/pact/consensus/tracker"
	"github.com/riffcc/pact/engine"
	"github.com/riffcc/pact/engine/common/fifoqueue"
	"github.com/riffcc/pact/model/messages"
	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/module"
	"github.com/riffcc/pact/module/component"
	"github.com/riffcc/pact/module/irrecoverable"
	"github.com/riffcc/pact/module/signature"
	"github.com/riffcc/pact/network"
	"github.com/riffcc/pact/storage"
)

// defaultVerifierCount is the size of the pre-verification worker pool.
const defaultVerifierCount = 4

type inboundMessage struct {
	originID pact.Identifier
	event    interface{}
}

// roundActor holds the state of one threshold round. It is owned
// exclusively by the processing worker.
type roundActor struct {
	tracker *tracker.Tracker
	flood   *flood.Controller
	decider *decider.Decider

	flooded      map[pact.Identifier]struct{}
	startedAt    time.Time
	retireAt     time.Time // zero until decided
	evidenceSeen int
}

// Engine runs the arbitrator side of the threshold protocol for any number
// of concurrent rounds.
type Engine struct {
	*component.ComponentManager

	log              zerolog.Logger
	consensusMetrics module.ConsensusMetrics
	floodMetrics     module.FloodMetrics
	conf             *config.Config
	clock            clock.Clock

	nodeID   pact.Identifier
	provider *signature.ThresholdProvider

	conduit  network.Conduit
	evidence storage.Evidence

	// owned exclusively by the processing worker
	rounds map[uint64]*roundActor

	queue    *fifoqueue.FifoQueue
	notifier engine.Notifier

	// submitMu covers the stopped check and the pool submission as one
	// step; the pool's task queue is closed on shutdown and must never be
	// submitted to afterwards
	submitMu  sync.RWMutex
	verifiers *workerpool.WorkerPool
	stopped   *atomic.Bool

	mu            sync.RWMutex
	records       map[uint64]*pact.DecisionRecord
	evidenceByRnd map[uint64][]*pact.Equivocation

	onDecision     func(*pact.DecisionRecord)
	onEquivocation func(*pact.Equivocation)
}

var _ network.MessageProcessor = (*Engine)(nil)
var _ component.Component = (*Engine)(nil)

// Option customizes engine construction.
type Option func(*Engine)

// WithOnDecision installs a callback invoked once per round, from the
// processing worker, at the round's terminal decision transition.
func WithOnDecision(callback func(*pact.DecisionRecord)) Option {
	return func(e *Engine) {
		e.onDecision = callback
	}
}

// WithOnEquivocation installs a callback invoked from the processing worker
// for every piece of newly recorded equivocation evidence.
func WithOnEquivocation(callback func(*pact.Equivocation)) Option {
	return func(e *Engine) {
		e.onEquivocation = callback
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an arbiter engine for one committee member (or observer, when
// the provider carries no private share). The evidence store may be nil for
// a deployment that does not persist equivocations.
func New(
	log zerolog.Logger,
	conf *config.Config,
	consensusMetrics module.ConsensusMetrics,
	floodMetrics module.FloodMetrics,
	nodeID pact.Identifier,
	provider *signature.ThresholdProvider,
	conduit network.Conduit,
	evidence storage.Evidence,
	opts ...Option,
) (*Engine, error) {

	log = log.With().
		Str("engine", "arbiter").
		Hex("node", nodeID[:]).
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
		nodeID:           nodeID,
		provider:         provider,
		conduit:          conduit,
		evidence:         evidence,
		rounds:           make(map[uint64]*roundActor),
		queue:            queue,
		notifier:         engine.NewNotifier(),
		verifiers:        workerpool.New(defaultVerifierCount),
		stopped:          atomic.NewBool(false),
		records:          make(map[uint64]*pact.DecisionRecord),
		evidenceByRnd:    make(map[uint64][]*pact.Equivocation),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(e.processLoop).
		Build()

	return e, nil
}

// Propose opens a round with a candidate value from this node. The proposal
// goes through the same queue as inbound proposals, so the worker remains
// the only state writer.
func (e *Engine) Propose(round uint64, value []byte) error {
	return e.Process(e.nodeID, &messages.Proposal{Round: round, Value: value})
}

// Process enqueues an inbound event for the processing worker. It never
// blocks; when the queue is full the event is dropped, and the sender's
// flooding re-delivers it. Shares are signature-checked on the verifier
// pool before they are allowed to occupy a queue slot.
func (e *Engine) Process(originID pact.Identifier, event interface{}) error {
	if ev, ok := event.(*messages.Share); ok {
		e.submitShare(originID, ev)
		return nil
	}

	if e.stopped.Load() {
		return nil
	}
	e.enqueue(originID, event)
	return nil
}

// submitShare hands a share to the verifier pool. The stopped check and the
// submission happen under one lock held against shutdown, so a datagram
// racing engine teardown can never reach the pool's closed task queue.
func (e *Engine) submitShare(originID pact.Identifier, ev *messages.Share) {
	e.submitMu.RLock()
	defer e.submitMu.RUnlock()
	if e.stopped.Load() {
		return
	}

	e.verifiers.Submit(func() {
		err := e.preVerifyShare(ev.Share)
		if err != nil {
			e.consensusMetrics.ArtifactDropped(msgType(ev), dropReason(err))
			e.log.Debug().Err(err).Hex("origin", originID[:]).Msg("rejected share before queue")
			return
		}
		e.enqueue(originID, ev)
	})
}

// preVerifyShare performs the stateless checks on a share: structural
// consistency of the claimed signer index and the threshold signature
// itself. The tracker repeats neither against held duplicates, so the
// expensive pairing runs at most once per distinct share.
func (e *Engine) preVerifyShare(s *pact.Share) error {
	if s == nil {
		return pact.NewInvalidArtifactErrorf(pact.ZeroID, "share message without share")
	}
	claimed, err := signature.ShareIndex(s.Signature)
	if err != nil {
		return pact.NewInvalidArtifactErrorf(s.ID(), "share signature carries no signer index: %s", err)
	}
	if claimed != s.SignerIndex {
		return pact.NewInvalidArtifactErrorf(s.ID(), "share claims signer %d but signature encodes %d", s.SignerIndex, claimed)
	}
	return e.provider.VerifyShare(signature.RoundShareTag, s.Digest[:], s.Signature)
}

func (e *Engine) enqueue(originID pact.Identifier, event interface{}) {
	pushed := e.queue.Push(inboundMessage{originID: originID, event: event})
	if !pushed {
		e.log.Debug().Msg("inbound queue full, dropping datagram")
		return
	}
	e.notifier.Notify()
}

// Decision returns the verdict for a round.
func (e *Engine) Decision(round uint64) pact.Decision {
	e.mu.RLock()
	defer e.mu.RUnlock()
	record, decided := e.records[round]
	if !decided {
		return pact.DecisionPending
	}
	return record.Decision
}

// Record returns the terminal decision record for a round.
func (e *Engine) Record(round uint64) (*pact.DecisionRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	record, decided := e.records[round]
	if !decided {
		return nil, pact.ErrNoDecision
	}
	return record, nil
}

// Certificate returns the threshold certificate for a round that reached a
// Proceed verdict.
func (e *Engine) Certificate(round uint64) (*pact.Certificate, error) {
	record, err := e.Record(round)
	if err != nil {
		return nil, err
	}
	if record.Certificate == nil {
		return nil, pact.ErrNoDecision
	}
	return record.Certificate, nil
}

// Evidence returns all equivocation evidence recorded for a round so far.
func (e *Engine) Evidence(round uint64) []*pact.Equivocation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	evidence := e.evidenceByRnd[round]
	out := make([]*pact.Equivocation, len(evidence))
	copy(out, evidence)
	return out
}

// processLoop is the single worker owning all round state. It serializes
// inbound processing, the per-round flood ticks, and the decision polls.
// Decided rounds linger for the grace period, idempotently absorbing
// in-flight duplicates, before being pruned.
func (e *Engine) processLoop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	defer func() {
		e.submitMu.Lock()
		e.stopped.Store(true)
		e.submitMu.Unlock()
		e.verifiers.StopWait()
	}()

	ticker := e.clock.Ticker(e.conf.Session.TickInterval)
	defer ticker.Stop()

	ready()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.notifier.Channel():
			e.drainInbound(ctx)
		case <-ticker.C:
			e.onTick(ctx)
		}
	}
}

func (e *Engine) drainInbound(ctx irrecoverable.SignalerContext) {
	for {
		raw, ok := e.queue.Pop()
		if !ok {
			return
		}
		msg := raw.(inboundMessage)
		e.processEvent(ctx, msg.originID, msg.event)
	}
}

// getOrCreateRound returns the actor for a round, spawning it on first
// contact. The round deadline starts at first contact, not at proposal
// adoption, so an attacker cannot keep a round pending forever by
// withholding the proposal. A round that already reached its verdict and
// was pruned is never resurrected; late datagrams for it return nil.
func (e *Engine) getOrCreateRound(round uint64) *roundActor {
	actor, known := e.rounds[round]
	if known {
		return actor
	}

	e.mu.RLock()
	_, decided := e.records[round]
	e.mu.RUnlock()
	if decided {
		return nil
	}

	now := e.clock.Now()
	log := e.log.With().Uint64("round", round).Logger()
	actor = &roundActor{
		tracker: tracker.New(log, e.consensusMetrics, e.provider, round),
		flood: flood.NewController(
			log,
			e.floodMetrics,
			e.conf.Flood.MinRate,
			e.conf.Flood.MaxRate,
			e.conf.Flood.RampUpFactor,
			e.conf.Flood.RampDownFactor,
		),
		decider:   decider.New(now.Add(e.conf.Session.Timeout)),
		flooded:   make(map[pact.Identifier]struct{}),
		startedAt: now,
	}
	e.rounds[round] = actor
	log.Debug().Msg("round actor spawned")
	return actor
}

func (e *Engine) processEvent(ctx irrecoverable.SignalerContext, originID pact.Identifier, event interface{}) {
	what := msgType(event)

	var round uint64
	switch ev := event.(type) {
	case *messages.Proposal:
		round = ev.Round
	case *messages.Share:
		if ev.Share == nil {
			e.consensusMetrics.ArtifactDropped(what, "malformed")
			return
		}
		round = ev.Share.Round
	case *messages.Commit:
		if ev.Certificate == nil {
			e.consensusMetrics.ArtifactDropped(what, "malformed")
			return
		}
		round = ev.Certificate.Round
	default:
		e.log.Debug().Str("type", what).Msg("discarding unknown message type")
		return
	}

	actor := e.getOrCreateRound(round)
	if actor == nil {
		e.consensusMetrics.ArtifactDropped(what, "round_retired")
		return
	}

	var err error
	switch ev := event.(type) {
	case *messages.Proposal:
		err = e.onProposal(actor, ev)
	case *messages.Share:
		err = e.onShare(ctx, actor, ev.Share)
	case *messages.Commit:
		err = e.onCommit(actor, ev.Certificate)
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
	e.maybeDecide(ctx, actor)
}

// onProposal adopts the first value for the round and floods both the
// proposal and the own share. Relaying the adopted proposal means every
// arbitrator that saw it becomes a source for those that did not, so
// liveness does not hinge on the proposer's own channel.
func (e *Engine) onProposal(actor *roundActor, proposal *messages.Proposal) error {
	own, cert, err := actor.tracker.OnProposal(proposal.Value)
	if err != nil {
		return err
	}

	digest := pact.Round{Number: proposal.Round, Value: proposal.Value}.Digest()
	e.addToFlood(actor, digest, &messages.Proposal{Round: proposal.Round, Value: proposal.Value})
	if own != nil {
		e.addToFlood(actor, own.ID(), &messages.Share{Share: own})
	}
	if cert != nil {
		// enough shares arrived ahead of the proposal to complete a quorum
		e.onCommitted(actor, cert)
	}
	return nil
}

func (e *Engine) onShare(ctx irrecoverable.SignalerContext, actor *roundActor, s *pact.Share) error {
	cert, err := actor.tracker.OnShare(s)
	e.recordNewEvidence(ctx, actor)
	if err != nil {
		return err
	}
	if cert != nil {
		e.onCommitted(actor, cert)
	}
	return nil
}

func (e *Engine) onCommit(actor *roundActor, cert *pact.Certificate) error {
	adopted, err := actor.tracker.OnCommit(cert)
	if err != nil {
		return err
	}
	if adopted {
		e.onCommitted(actor, cert)
	}
	return nil
}

// onCommitted retires the round's proposal and share from the flood set and
// starts flooding the certificate instead: one commit supersedes everything
// below it.
func (e *Engine) onCommitted(actor *roundActor, cert *pact.Certificate) {
	for artifactID := range actor.flooded {
		actor.flood.MarkSuperseded(artifactID)
		delete(actor.flooded, artifactID)
	}
	e.addToFlood(actor, cert.ID(), &messages.Commit{Certificate: cert})
}

func (e *Engine) addToFlood(actor *roundActor, artifactID pact.Identifier, payload interface{}) {
	if _, known := actor.flooded[artifactID]; known {
		return
	}
	actor.flood.Add(artifactID, payload)
	actor.flooded[artifactID] = struct{}{}
}

// recordNewEvidence persists and publishes any evidence the tracker has
// accumulated since the last call.
func (e *Engine) recordNewEvidence(ctx irrecoverable.SignalerContext, actor *roundActor) {
	evidence := actor.tracker.Evidence()
	if len(evidence) <= actor.evidenceSeen {
		return
	}
	fresh := evidence[actor.evidenceSeen:]
	actor.evidenceSeen = len(evidence)

	round := actor.tracker.Round()
	for _, eq := range fresh {
		if e.evidence != nil {
			err := e.evidence.Store(eq)
			if err != nil {
				ctx.Throw(fmt.Errorf("could not persist equivocation evidence: %w", err))
				return
			}
		}
		e.log.Warn().
			Uint64("round", round).
			Uint16("signer", eq.SignerIndex).
			Msg("equivocation recorded")
	}

	e.mu.Lock()
	e.evidenceByRnd[round] = append(e.evidenceByRnd[round], fresh...)
	e.mu.Unlock()

	if e.onEquivocation != nil {
		for _, eq := range fresh {
			e.onEquivocation(eq)
		}
	}
}

// onTick advances every live round: flood schedules fire, deadlines are
// polled, and retired rounds are pruned.
func (e *Engine) onTick(ctx irrecoverable.SignalerContext) {
	now := e.clock.Now()

	for round, actor := range e.rounds {
		if !actor.retireAt.IsZero() && !now.Before(actor.retireAt) {
			e.log.Debug().Uint64("round", round).Msg("grace period over, round pruned")
			delete(e.rounds, round)
			continue
		}

		pending := actor.decider.Decision() == pact.DecisionPending
		actor.flood.SetUrgency(pending && actor.flood.Outstanding() > 0)
		actor.flood.Tick(now)

		for _, out := range actor.flood.Due(now) {
			err := e.conduit.Publish(out.Payload)
			if err != nil {
				// transport refusal is not fatal; the schedule retries
				e.log.Debug().Err(err).Msg("could not publish artifact")
				continue
			}
			e.floodMetrics.ArtifactSent(msgType(out.Payload))
		}

		e.maybeDecide(ctx, actor)
	}
}

// maybeDecide polls the round's decider and performs its terminal
// transition at most once. On Proceed the certificate keeps flooding at the
// idle rate until the round is pruned: committee members that missed every
// commit datagram so far still depend on it, and its continued
// retransmission is the bounded residual traffic the shutdown model allows.
func (e *Engine) maybeDecide(ctx irrecoverable.SignalerContext, actor *roundActor) {
	if !actor.retireAt.IsZero() {
		return
	}

	now := e.clock.Now()
	verdict, transitioned := actor.decider.Poll(now, actor.tracker.State() == tracker.Committed)
	if !transitioned {
		return
	}

	round := actor.tracker.Round()
	record := &pact.DecisionRecord{
		SessionID:   roundID(round),
		Decision:    verdict,
		DecidedAtMS: now.UnixMilli(),
	}
	if verdict == pact.DecisionProceed {
		cert, err := actor.tracker.Certificate()
		if err != nil {
			ctx.Throw(fmt.Errorf("proceed verdict without certificate: %w", err))
			return
		}
		record.Certificate = cert
	}

	if verdict == pact.DecisionAbort {
		actor.flood.SupersedeAll()
	}
	actor.flood.SetUrgency(false)
	actor.retireAt = now.Add(e.conf.Session.GracePeriod)

	e.mu.Lock()
	e.records[round] = record
	e.mu.Unlock()

	e.consensusMetrics.DecisionReached(verdict.String(), now.Sub(actor.startedAt))
	e.log.Info().
		Uint64("round", round).
		Str("verdict", verdict.String()).
		Dur("elapsed", now.Sub(actor.startedAt)).
		Msg("round decided")

	if e.onDecision != nil {
		e.onDecision(record)
	}
}

// roundID derives the storage identifier of a round, independent of the
// value eventually committed in it.
func roundID(round uint64) pact.Identifier {
	return pact.Round{Number: round}.Digest()
}

func msgType(event interface{}) string {
	switch event.(type) {
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
