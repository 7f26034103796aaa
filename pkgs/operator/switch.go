package operator

import (
	"context"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/ssvlabs/ssv-multisig/pkgs/ceremony"
	"github.com/ssvlabs/ssv-multisig/pkgs/crypto"
	"github.com/ssvlabs/ssv-multisig/pkgs/keystore"
	"github.com/ssvlabs/ssv-multisig/pkgs/metrics"
	"github.com/ssvlabs/ssv-multisig/pkgs/wire"
)

const (
	DefaultTickInterval = time.Second
	DefaultOutcomeTTL   = time.Hour
	outcomeCacheSize    = 4096
	eventQueueSize      = 1024
)

// SwitchOpts configures the ceremony side of a node
type SwitchOpts struct {
	Logger     *zap.Logger
	ID         uint64
	PrivateKey *rsa.PrivateKey
	Version    []byte
	Peers      wire.Peers
	Provider   ceremony.Provider
	Keys       keystore.Store
	Metrics    *metrics.Recorder

	StageTimeout          time.Duration
	UnauthorizedTimeout   time.Duration
	PendingRequestTimeout time.Duration
	TickInterval          time.Duration
	OutcomeTTL            time.Duration
}

// Switch owns the ceremony manager. Every access to it goes through the event loop in Run.
type Switch struct {
	Logger      *zap.Logger
	OperatorID  uint64
	PrivateKey  *rsa.PrivateKey
	PubKeyBytes []byte
	Version     []byte
	Peers       wire.Peers
	Keys        keystore.Store

	metrics  *metrics.Recorder
	manager  *ceremony.Manager
	sender   *Sender
	events   chan func()
	tick     time.Duration
	outcomes *expirable.LRU[string, *ceremony.Outcome]
}

// NewSwitch creates the manager and its outbound sender
func NewSwitch(opts *SwitchOpts) (*Switch, error) {
	if opts.PrivateKey == nil {
		return nil, fmt.Errorf("missing operator private key")
	}
	pkBytes, err := crypto.EncodeRSAPublicKey(&opts.PrivateKey.PublicKey)
	if err != nil {
		return nil, err
	}
	keys := opts.Keys
	if keys == nil {
		keys = keystore.NewMemoryStore()
	}
	tick := opts.TickInterval
	if tick == 0 {
		tick = DefaultTickInterval
	}
	ttl := opts.OutcomeTTL
	if ttl == 0 {
		ttl = DefaultOutcomeTTL
	}
	s := &Switch{
		Logger:      opts.Logger,
		OperatorID:  opts.ID,
		PrivateKey:  opts.PrivateKey,
		PubKeyBytes: pkBytes,
		Version:     opts.Version,
		Peers:       opts.Peers,
		Keys:        keys,
		metrics:     opts.Metrics,
		events:      make(chan func(), eventQueueSize),
		tick:        tick,
		outcomes:    expirable.NewLRU[string, *ceremony.Outcome](outcomeCacheSize, nil, ttl),
	}
	s.sender = NewSender(opts.Logger.Named("sender"), opts.ID, crypto.RSASigner(opts.PrivateKey), opts.Version, opts.Peers, opts.Metrics)
	s.manager = ceremony.NewManager(&ceremony.Opts{
		Logger:                opts.Logger.Named("ceremonies"),
		ID:                    ceremony.PartyID(opts.ID),
		Provider:              opts.Provider,
		Keys:                  keys,
		SendF:                 s.sender.Send,
		OutcomeF:              s.onOutcome,
		Tags:                  opts.Metrics,
		StageTimeout:          opts.StageTimeout,
		UnauthorizedTimeout:   opts.UnauthorizedTimeout,
		PendingRequestTimeout: opts.PendingRequestTimeout,
	})
	return s, nil
}

// Run is the event loop. It returns when ctx is done.
func (s *Switch) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	s.Logger.Info("🔁 ceremony loop started", zap.Duration("tick", s.tick))
	for {
		select {
		case <-ctx.Done():
			s.sender.Wait()
			return ctx.Err()
		case fn := <-s.events:
			fn()
		case <-ticker.C:
			s.manager.OnTimerTick()
			s.metrics.Active(ceremony.KeygenKind.String(), s.manager.Count(ceremony.KeygenKind))
			s.metrics.Active(ceremony.SigningKind.String(), s.manager.Count(ceremony.SigningKind))
		}
	}
}

func (s *Switch) enqueue(ctx context.Context, fn func()) error {
	select {
	case s.events <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// do runs fn on the event loop and waits for its result
func (s *Switch) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	if err := s.enqueue(ctx, func() { errc <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Switch) onOutcome(o *ceremony.Outcome) {
	s.outcomes.Add(outcomeKey(o.Kind, o.CeremonyID), o)
	s.metrics.Outcome(o.Kind.String(), o.Success())
}

func outcomeKey(kind ceremony.Kind, id ceremony.CeremonyID) string {
	return fmt.Sprintf("%s/%d", kind, id)
}

// ProcessMessage verifies a peer envelope and hands the stage data to the loop without waiting for it
func (s *Switch) ProcessMessage(ctx context.Context, st *wire.SignedTransport) error {
	if st.Message == nil {
		return fmt.Errorf("empty transport")
	}
	if err := checkVersion(s.Version, st.Message.Version); err != nil {
		return err
	}
	peer := s.Peers.ByID(st.Signer)
	if peer == nil {
		return fmt.Errorf("unknown peer %d", st.Signer)
	}
	if err := VerifySig(st, peer.PubKey); err != nil {
		return err
	}
	msg, err := toMessage(st)
	if err != nil {
		return err
	}
	err = s.enqueue(ctx, func() { s.manager.ProcessMessage(msg) })
	s.metrics.Message("in", err)
	return err
}

func (s *Switch) RequestToKeygen(ctx context.Context, inst *wire.KeygenInstruction) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	req := &ceremony.RequestToKeygen{
		CeremonyID:   ceremony.CeremonyID(inst.CeremonyID),
		Participants: toPartyIDs(inst.Participants),
	}
	return s.do(ctx, func() error { return s.manager.RequestToKeygen(req) })
}

func (s *Switch) RequestToSign(ctx context.Context, inst *wire.SignInstruction) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	keyID, err := keystore.ParseKeyID(inst.KeyID)
	if err != nil {
		return err
	}
	req := &ceremony.RequestToSign{
		CeremonyID: ceremony.CeremonyID(inst.CeremonyID),
		KeyID:      keyID,
		Message:    inst.Message,
		Signers:    toPartyIDs(inst.Signers),
	}
	return s.do(ctx, func() error { return s.manager.RequestToSign(req) })
}

// Ceremonies snapshots every live ceremony
func (s *Switch) Ceremonies(ctx context.Context) ([]ceremony.Info, error) {
	var infos []ceremony.Info
	err := s.do(ctx, func() error {
		infos = s.manager.Ceremonies()
		return nil
	})
	return infos, err
}

// Outcome returns a recently terminated ceremony
func (s *Switch) Outcome(kind ceremony.Kind, id ceremony.CeremonyID) (*ceremony.Outcome, bool) {
	return s.outcomes.Get(outcomeKey(kind, id))
}

func (s *Switch) Pong() *wire.Pong {
	return &wire.Pong{ID: s.OperatorID, PubKey: string(s.PubKeyBytes), Version: string(s.Version)}
}

func toPartyIDs(ids []uint64) []ceremony.PartyID {
	out := make([]ceremony.PartyID, len(ids))
	for i, id := range ids {
		out[i] = ceremony.PartyID(id)
	}
	return out
}

func toMessage(st *wire.SignedTransport) (*ceremony.Message, error) {
	var kind ceremony.Kind
	switch st.Message.Type {
	case wire.KeygenMessageType:
		kind = ceremony.KeygenKind
	case wire.SigningMessageType:
		kind = ceremony.SigningKind
	default:
		return nil, fmt.Errorf("unknown transport type %d", st.Message.Type)
	}
	if st.Message.Stage == 0 || st.Message.Stage > maxStage {
		return nil, fmt.Errorf("invalid stage %d", st.Message.Stage)
	}
	return &ceremony.Message{
		CeremonyID: ceremony.CeremonyID(st.Message.CeremonyID),
		Kind:       kind,
		Stage:      int(st.Message.Stage),
		Sender:     ceremony.PartyID(st.Signer),
		Payload:    st.Message.Data,
	}, nil
}

func toTransportType(kind ceremony.Kind) wire.TransportType {
	if kind == ceremony.KeygenKind {
		return wire.KeygenMessageType
	}
	return wire.SigningMessageType
}
