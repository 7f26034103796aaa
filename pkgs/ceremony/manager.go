package ceremony

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ssvlabs/ssv-multisig/pkgs/keystore"
)

const (
	DefaultStageTimeout          = 20 * time.Second
	DefaultUnauthorizedTimeout   = 10 * time.Second
	DefaultPendingRequestTimeout = 2 * time.Minute
	MaxUnauthorized              = 1024
)

// Opts holds everything a Manager needs. Zero durations fall back to the defaults.
type Opts struct {
	Logger   *zap.Logger
	ID       PartyID
	Provider Provider
	Keys     keystore.Store
	// SendF hands stage data to the transport, it must not block
	SendF    func(*Outgoing)
	OutcomeF func(*Outcome)
	Tags     TagRecorder

	StageTimeout          time.Duration
	UnauthorizedTimeout   time.Duration
	PendingRequestTimeout time.Duration
	MaxUnauthorized       int
	Now                   func() time.Time
}

// Manager multiplexes every ceremony of a node. It holds no locks: all calls must come from one goroutine.
type Manager struct {
	logger *zap.Logger
	diag   diagnostics
	opts   Opts

	ceremonies map[ceremonyKey]*Ceremony
	// ids of every ceremony that was ever authorized
	consumed map[ceremonyKey]struct{}
	pending  map[keystore.KeyID][]*pendingRequest
}

func NewManager(opts *Opts) *Manager {
	o := *opts
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.StageTimeout == 0 {
		o.StageTimeout = DefaultStageTimeout
	}
	if o.UnauthorizedTimeout == 0 {
		o.UnauthorizedTimeout = DefaultUnauthorizedTimeout
	}
	if o.PendingRequestTimeout == 0 {
		o.PendingRequestTimeout = DefaultPendingRequestTimeout
	}
	if o.MaxUnauthorized == 0 {
		o.MaxUnauthorized = MaxUnauthorized
	}
	if o.Keys == nil {
		o.Keys = keystore.NewMemoryStore()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.SendF == nil {
		o.SendF = func(*Outgoing) {}
	}
	if o.OutcomeF == nil {
		o.OutcomeF = func(*Outcome) {}
	}
	return &Manager{
		logger:     o.Logger,
		diag:       diagnostics{logger: o.Logger, recorder: o.Tags},
		opts:       o,
		ceremonies: make(map[ceremonyKey]*Ceremony),
		consumed:   make(map[ceremonyKey]struct{}),
		pending:    make(map[keystore.KeyID][]*pendingRequest),
	}
}

// RequestToSign validates req and starts the signing ceremony, promoting an unauthorized shell if one exists.
// A request for a key that is not stored yet is kept until the key appears or the request expires.
// Rejected requests are logged and returned as errors, they never affect other ceremonies.
func (m *Manager) RequestToSign(req *RequestToSign) error {
	key := ceremonyKey{kind: SigningKind, id: req.CeremonyID}
	fields := []zap.Field{zap.Uint64("ceremony_id", uint64(req.CeremonyID)), zap.String("key_id", req.KeyID.String())}
	if _, used := m.consumed[key]; used {
		return m.ignoreSign(ErrCeremonyIDUsed, fields...)
	}
	if m.isPending(req.CeremonyID) {
		return m.ignoreSign(ErrDuplicateRequest, fields...)
	}
	signers, err := NewPartySet(req.Signers)
	if err != nil {
		return m.ignoreSign(err, fields...)
	}
	selfIdx, ok := signers.Index(m.opts.ID)
	if !ok {
		return m.ignoreSign(ErrNotParticipating, fields...)
	}
	k, err := m.opts.Keys.Get(req.KeyID)
	if errors.Is(err, keystore.ErrKeyNotFound) {
		m.pending[req.KeyID] = append(m.pending[req.KeyID], &pendingRequest{
			req:      req,
			deadline: m.opts.Now().Add(m.opts.PendingRequestTimeout),
		})
		m.diag.tag(TagRequestToSignDelayed, "key is not ready, delaying request to sign", fields...)
		return nil
	}
	if err != nil {
		return m.ignoreSign(fmt.Errorf("reading key: %w", err), fields...)
	}
	for _, id := range signers.IDs() {
		if !k.HasParticipant(uint64(id)) {
			return m.ignoreSign(fmt.Errorf("signer %d: %w", id, ErrUnknownSigner), fields...)
		}
	}
	if signers.Len() < k.Threshold {
		return m.ignoreSign(fmt.Errorf("%d signers, threshold %d: %w", signers.Len(), k.Threshold, ErrNotEnoughSigners), fields...)
	}
	protocol, err := m.opts.Provider.Signing(&SigningParams{
		CeremonyID: req.CeremonyID,
		Signers:    signers,
		Self:       selfIdx,
		Key:        k,
		Message:    req.Message,
	})
	if err != nil {
		return m.ignoreSign(fmt.Errorf("creating signing protocol: %w", err), fields...)
	}
	m.authorize(key, signers, protocol)
	return nil
}

// RequestToKeygen validates req and starts the keygen ceremony.
func (m *Manager) RequestToKeygen(req *RequestToKeygen) error {
	key := ceremonyKey{kind: KeygenKind, id: req.CeremonyID}
	fields := []zap.Field{zap.Uint64("ceremony_id", uint64(req.CeremonyID))}
	if _, used := m.consumed[key]; used {
		return m.ignoreKeygen(ErrCeremonyIDUsed, fields...)
	}
	parties, err := NewPartySet(req.Participants)
	if err != nil {
		return m.ignoreKeygen(err, fields...)
	}
	selfIdx, ok := parties.Index(m.opts.ID)
	if !ok {
		return m.ignoreKeygen(ErrNotParticipating, fields...)
	}
	protocol, err := m.opts.Provider.Keygen(&KeygenParams{
		CeremonyID:   req.CeremonyID,
		Participants: parties,
		Self:         selfIdx,
		Threshold:    SuccessThreshold(parties.Len()),
	})
	if err != nil {
		return m.ignoreKeygen(fmt.Errorf("creating keygen protocol: %w", err), fields...)
	}
	m.authorize(key, parties, protocol)
	return nil
}

func (m *Manager) authorize(key ceremonyKey, parties *PartySet, protocol Protocol) {
	m.consumed[key] = struct{}{}
	c, ok := m.ceremonies[key]
	if !ok {
		c = m.newCeremony(key)
		m.ceremonies[key] = c
	}
	m.settle(c, c.authorize(m.opts.Now(), parties, protocol, m.opts.StageTimeout))
}

func (m *Manager) newCeremony(key ceremonyKey) *Ceremony {
	logger := m.logger.With(zap.Uint64("ceremony_id", uint64(key.id)), zap.String("kind", key.kind.String()))
	stages, _ := StagesFor(key.kind)
	return newCeremony(key, m.opts.ID, stages, logger, diagnostics{logger: logger, recorder: m.opts.Tags}, m.opts.SendF)
}

// ProcessMessage routes stage data from a peer. Data that arrives before the authorizing request
// creates an unauthorized shell that only buffers first stage data.
func (m *Manager) ProcessMessage(msg *Message) {
	key := ceremonyKey{kind: msg.Kind, id: msg.CeremonyID}
	fields := []zap.Field{zap.Uint64("ceremony_id", uint64(msg.CeremonyID)), zap.String("kind", msg.Kind.String()), zap.Uint64("sender", uint64(msg.Sender))}
	if msg.Sender == m.opts.ID {
		m.diag.tag(TagUnknownSender, "ignoring stage data claiming to come from this node", fields...)
		return
	}
	c, ok := m.ceremonies[key]
	if !ok {
		if _, used := m.consumed[key]; used {
			m.diag.tag(TagStageDataForUsedCeremonyID, "ignoring stage data for a used ceremony id", fields...)
			return
		}
		if _, err := StagesFor(msg.Kind); err != nil {
			m.diag.tag(TagMalformedStageMessage, "ignoring stage data for an unsupported kind", fields...)
			return
		}
		if msg.Stage != 1 {
			m.diag.tag(TagUnexpectedStageMessage, "ignoring stage data for an unknown ceremony", append(fields, zap.Int("stage", msg.Stage))...)
			return
		}
		if m.UnauthorizedCount(msg.Kind) >= m.opts.MaxUnauthorized {
			m.diag.warn(TagTooManyUnauthorized, ErrMaxUnauthorized.Error(), fields...)
			return
		}
		c = m.newCeremony(key)
		c.deadline = m.opts.Now().Add(m.opts.UnauthorizedTimeout)
		m.ceremonies[key] = c
		m.logger.Debug("created unauthorized ceremony", fields...)
	}
	m.settle(c, c.process(m.opts.Now(), msg.Sender, msg.Stage, msg.Payload))
}

// OnTimerTick closes every stage whose deadline passed, drops expired unauthorized shells and pending requests.
func (m *Manager) OnTimerTick() {
	m.timeouts(false)
}

// ForceStageTimeout behaves as if every deadline had passed.
func (m *Manager) ForceStageTimeout() {
	m.timeouts(true)
}

func (m *Manager) timeouts(force bool) {
	now := m.opts.Now()
	for _, key := range sortedKeys(m.ceremonies) {
		c := m.ceremonies[key]
		if !force && !c.timedOut(now) {
			continue
		}
		if c.auth != Authorized {
			delete(m.ceremonies, key)
			m.diag.tag(TagUnauthorizedExpired, "unauthorized ceremony expired",
				zap.Uint64("ceremony_id", uint64(key.id)), zap.String("kind", key.kind.String()), zap.Int("delayed", len(c.delayed)))
			continue
		}
		m.settle(c, c.forceTimeout(now))
	}
	for keyID, reqs := range m.pending {
		kept := reqs[:0]
		for _, p := range reqs {
			if force || !now.Before(p.deadline) {
				m.diag.warn(TagRequestToSignExpired, "pending request to sign expired",
					zap.Uint64("ceremony_id", uint64(p.req.CeremonyID)), zap.String("key_id", keyID.String()))
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			delete(m.pending, keyID)
		} else {
			m.pending[keyID] = kept
		}
	}
}

// settle removes a terminated ceremony and reports its outcome.
func (m *Manager) settle(c *Ceremony, f *finish) {
	if f == nil {
		return
	}
	delete(m.ceremonies, ceremonyKey{kind: c.Kind, id: c.ID})
	outcome := &Outcome{CeremonyID: c.ID, Kind: c.Kind}
	if f.failed() {
		outcome.Blamed = c.parties.toIDs(f.blamed)
		tag := TagSigningCeremonyFailed
		if c.Kind == KeygenKind {
			tag = TagKeygenCeremonyFailed
		}
		blamed := make([]uint64, len(outcome.Blamed))
		for i, id := range outcome.Blamed {
			blamed[i] = uint64(id)
		}
		c.diag.warn(tag, "❌ ceremony failed", zap.String("reason", f.reason), zap.Uint64s("blamed", blamed))
		m.opts.OutcomeF(outcome)
		return
	}
	outcome.Result = f.result
	c.logger.Info("✅ ceremony finished successfully", zap.Int("result_len", len(f.result)))
	if c.Kind != KeygenKind {
		m.opts.OutcomeF(outcome)
		return
	}
	participants := make([]uint64, 0, c.parties.Len())
	for _, id := range c.parties.IDs() {
		participants = append(participants, uint64(id))
	}
	k := &keystore.Key{
		ID:           keystore.KeyIDFromGroupKey(f.result),
		CeremonyID:   uint64(c.ID),
		GroupKey:     f.result,
		Participants: participants,
		Threshold:    SuccessThreshold(c.parties.Len()),
		Secret:       f.secret,
	}
	outcome.KeyID = k.ID
	if err := m.opts.Keys.Put(k); err != nil {
		c.logger.Error("failed to store generated key", zap.Error(err))
	}
	m.opts.OutcomeF(outcome)
	m.replayPending(k.ID)
}

// replayPending retries every request waiting for keyID, exactly once.
func (m *Manager) replayPending(keyID keystore.KeyID) {
	reqs, ok := m.pending[keyID]
	if !ok {
		return
	}
	delete(m.pending, keyID)
	for _, p := range reqs {
		m.logger.Info("key is ready, replaying request to sign", zap.Uint64("ceremony_id", uint64(p.req.CeremonyID)), zap.String("key_id", keyID.String()))
		_ = m.RequestToSign(p.req)
	}
}

func (m *Manager) isPending(id CeremonyID) bool {
	for _, reqs := range m.pending {
		for _, p := range reqs {
			if p.req.CeremonyID == id {
				return true
			}
		}
	}
	return false
}

func (m *Manager) ignoreSign(err error, fields ...zap.Field) error {
	m.diag.warn(TagRequestToSignIgnored, "ignoring request to sign", append(fields, zap.Error(err))...)
	return err
}

func (m *Manager) ignoreKeygen(err error, fields ...zap.Field) error {
	m.diag.warn(TagRequestToKeygenIgnored, "ignoring request to keygen", append(fields, zap.Error(err))...)
	return err
}

// Stage returns the current stage of a ceremony, or StageFinishedOrNotStarted.
func (m *Manager) Stage(kind Kind, id CeremonyID) int {
	c, ok := m.ceremonies[ceremonyKey{kind: kind, id: id}]
	if !ok {
		return StageFinishedOrNotStarted
	}
	return c.Stage()
}

// Count returns the number of live ceremonies of a kind, unauthorized shells included.
func (m *Manager) Count(kind Kind) int {
	n := 0
	for key := range m.ceremonies {
		if key.kind == kind {
			n++
		}
	}
	return n
}

// UnauthorizedCount returns the number of live unauthorized shells of a kind.
func (m *Manager) UnauthorizedCount(kind Kind) int {
	n := 0
	for key, c := range m.ceremonies {
		if key.kind == kind && c.auth == Unauthorized {
			n++
		}
	}
	return n
}

// PendingRequests returns the number of requests to sign waiting for their key.
func (m *Manager) PendingRequests() int {
	n := 0
	for _, reqs := range m.pending {
		n += len(reqs)
	}
	return n
}

// Ceremonies returns a snapshot of every live ceremony ordered by kind and id.
func (m *Manager) Ceremonies() []Info {
	keys := sortedKeys(m.ceremonies)
	out := make([]Info, 0, len(keys))
	for _, key := range keys {
		out = append(out, m.ceremonies[key].info())
	}
	return out
}

// Used tells whether a ceremony id was already consumed by an authorized ceremony.
func (m *Manager) Used(kind Kind, id CeremonyID) bool {
	_, ok := m.consumed[ceremonyKey{kind: kind, id: id}]
	return ok
}
