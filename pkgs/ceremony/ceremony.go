package ceremony

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// finish is the terminal state of a ceremony, before it is turned into an Outcome.
type finish struct {
	result []byte
	secret []byte
	blamed []PartyIndex
	reason string
}

func (f *finish) failed() bool {
	return f.result == nil
}

// Ceremony is the stage state machine of one keygen or signing run.
// It is only ever touched from the Manager's event loop.
type Ceremony struct {
	ID   CeremonyID
	Kind Kind

	logger *zap.Logger
	diag   diagnostics
	send   func(*Outgoing)
	self   PartyID

	auth     Authorization
	stages   []Stage
	stage    int
	parties  *PartySet
	selfIdx  PartyIndex
	protocol Protocol
	timeout  time.Duration
	deadline time.Time

	received map[PartyIndex][]byte
	// data for stage+1, first message per sender wins
	delayed      map[PartyID][]byte
	delayedOrder []PartyID
}

func newCeremony(key ceremonyKey, self PartyID, stages []Stage, logger *zap.Logger, diag diagnostics, send func(*Outgoing)) *Ceremony {
	return &Ceremony{
		ID:      key.id,
		Kind:    key.kind,
		logger:  logger,
		diag:    diag,
		send:    send,
		self:    self,
		auth:    Unauthorized,
		stages:  stages,
		delayed: make(map[PartyID][]byte),
	}
}

// Stage returns the current 1-based stage, or StageFinishedOrNotStarted while unauthorized.
func (c *Ceremony) Stage() int {
	if c.auth != Authorized {
		return StageFinishedOrNotStarted
	}
	return c.stage
}

func (c *Ceremony) Authorization() Authorization {
	return c.auth
}

func (c *Ceremony) current() Stage {
	return c.stages[c.stage-1]
}

// authorize binds the participant set and protocol and enters the first stage.
func (c *Ceremony) authorize(now time.Time, parties *PartySet, protocol Protocol, timeout time.Duration) *finish {
	selfIdx, ok := parties.Index(c.self)
	if !ok {
		return &finish{reason: ErrNotParticipating.Error()}
	}
	c.auth = Authorized
	c.parties = parties
	c.selfIdx = selfIdx
	c.protocol = protocol
	c.timeout = timeout
	c.stage = 1
	c.logger.Info("🚀 ceremony authorized", zap.Int("parties", parties.Len()), zap.Int("delayed", len(c.delayed)))
	contrib, err := protocol.Init()
	if err != nil {
		return c.fail(err)
	}
	return c.start(now, contrib)
}

// start enters the current stage with this party's own data, sends it out and replays delayed messages.
func (c *Ceremony) start(now time.Time, contrib *Contribution) *finish {
	c.received = make(map[PartyIndex][]byte, c.parties.Len())
	c.deadline = now.Add(c.timeout)
	if err := c.emit(contrib); err != nil {
		return c.fail(err)
	}
	c.logger.Debug("entered stage", zap.Int("stage", c.stage), zap.String("name", c.current().Name), zap.Int("delayed", len(c.delayed)))

	delayed, order := c.delayed, c.delayedOrder
	c.delayed, c.delayedOrder = make(map[PartyID][]byte), nil
	for _, sender := range order {
		c.accept(sender, delayed[sender])
	}
	if len(c.received) == c.parties.Len() {
		return c.close(now)
	}
	return nil
}

func (c *Ceremony) emit(contrib *Contribution) error {
	if contrib == nil {
		return errors.New("protocol returned no contribution")
	}
	if !c.current().Private {
		if contrib.Broadcast == nil {
			return fmt.Errorf("stage %s expects a broadcast contribution", c.current().Name)
		}
		c.received[c.selfIdx] = contrib.Broadcast
		if others := c.parties.Others(c.selfIdx); len(others) > 0 {
			c.send(&Outgoing{CeremonyID: c.ID, Kind: c.Kind, Stage: c.stage, Receivers: others, Payload: contrib.Broadcast})
		}
		return nil
	}
	own, ok := contrib.Private[c.selfIdx]
	if !ok || len(contrib.Private) != c.parties.Len() {
		return fmt.Errorf("stage %s expects one private contribution per party", c.current().Name)
	}
	c.received[c.selfIdx] = own
	for i := 0; i < c.parties.Len(); i++ {
		idx := PartyIndex(i)
		if idx == c.selfIdx {
			continue
		}
		c.send(&Outgoing{CeremonyID: c.ID, Kind: c.Kind, Stage: c.stage, Receivers: []PartyID{c.parties.ID(idx)}, Payload: contrib.Private[idx]})
	}
	return nil
}

// process routes stage data: current stage is applied, the next one is delayed, anything else is dropped.
func (c *Ceremony) process(now time.Time, sender PartyID, stage int, payload []byte) *finish {
	switch {
	case c.auth == Authorized && stage == c.stage:
		if !c.accept(sender, payload) {
			return nil
		}
		if len(c.received) == c.parties.Len() {
			return c.close(now)
		}
	case stage == c.stage+1 && stage <= len(c.stages):
		c.delay(sender, stage, payload)
	default:
		c.diag.tag(TagUnexpectedStageMessage, "ignoring message for unexpected stage",
			zap.Uint64("sender", uint64(sender)), zap.Int("stage", stage), zap.Int("current_stage", c.Stage()))
	}
	return nil
}

func (c *Ceremony) accept(sender PartyID, payload []byte) bool {
	idx, ok := c.parties.Index(sender)
	if !ok || idx == c.selfIdx {
		c.diag.tag(TagUnknownSender, "ignoring message from a party outside the ceremony", zap.Uint64("sender", uint64(sender)), zap.Int("stage", c.stage))
		return false
	}
	if _, ok := c.received[idx]; ok {
		c.diag.tag(TagDuplicateStageMessage, "ignoring duplicate stage message", zap.Uint64("sender", uint64(sender)), zap.Int("stage", c.stage))
		return false
	}
	if len(payload) == 0 {
		c.diag.tag(TagMalformedStageMessage, "ignoring empty stage message", zap.Uint64("sender", uint64(sender)), zap.Int("stage", c.stage))
		return false
	}
	if c.current().Kind == VerificationStage {
		if _, err := decodeReport(payload, c.parties.Len()); err != nil {
			c.diag.tag(TagMalformedStageMessage, "ignoring malformed verification report", zap.Uint64("sender", uint64(sender)), zap.Error(err))
			return false
		}
	}
	c.received[idx] = payload
	return true
}

func (c *Ceremony) delay(sender PartyID, stage int, payload []byte) {
	if c.parties != nil {
		if idx, ok := c.parties.Index(sender); !ok || idx == c.selfIdx {
			c.diag.tag(TagUnknownSender, "ignoring delayed message from a party outside the ceremony", zap.Uint64("sender", uint64(sender)), zap.Int("stage", stage))
			return
		}
	}
	if _, ok := c.delayed[sender]; ok {
		c.diag.tag(TagDuplicateStageMessage, "ignoring duplicate delayed message", zap.Uint64("sender", uint64(sender)), zap.Int("stage", stage))
		return
	}
	c.delayed[sender] = payload
	c.delayedOrder = append(c.delayedOrder, sender)
	c.logger.Debug("delaying message for next stage", zap.Uint64("sender", uint64(sender)), zap.Int("stage", stage))
}

// close finalizes the current stage and either enters the next one or terminates.
func (c *Ceremony) close(now time.Time) *finish {
	st := c.current()
	if reportsNext(c.stages, c.stage) {
		report, err := encodeReport(c.received)
		if err != nil {
			return c.fail(err)
		}
		c.stage++
		return c.start(now, &Contribution{Broadcast: report})
	}

	data := c.received
	if st.Kind == VerificationStage {
		reports := make(map[PartyIndex]map[PartyIndex][]byte, len(c.received))
		for idx, payload := range c.received {
			// reports were validated on receipt
			rep, err := decodeReport(payload, c.parties.Len())
			if err != nil {
				continue
			}
			reports[idx] = rep
		}
		agreed, missing := verifyBroadcasts(c.parties.Len(), reports)
		if len(missing) > 0 {
			return c.fail(NewBlameError(fmt.Sprintf("no majority agreement on %s data", c.stages[c.stage-2].Name), missing...))
		}
		data = agreed
	}

	out, err := c.protocol.Process(c.stage, data)
	if err != nil {
		return c.fail(err)
	}
	if c.stage == len(c.stages) {
		if out == nil || out.Result == nil {
			return c.fail(errors.New("protocol returned no result"))
		}
		return &finish{result: out.Result, secret: out.Secret}
	}
	if out == nil {
		return c.fail(errors.New("protocol returned no output"))
	}
	c.stage++
	return c.start(now, out.Next)
}

// timedOut reports whether the current stage deadline has passed.
func (c *Ceremony) timedOut(now time.Time) bool {
	return !now.Before(c.deadline)
}

// forceTimeout closes the current stage with whatever arrived.
func (c *Ceremony) forceTimeout(now time.Time) *finish {
	if c.auth != Authorized {
		return nil
	}
	missing := make([]uint64, 0)
	for i := 0; i < c.parties.Len(); i++ {
		if _, ok := c.received[PartyIndex(i)]; !ok {
			missing = append(missing, uint64(c.parties.ID(PartyIndex(i))))
		}
	}
	c.diag.warn(TagStageTimedOut, "⏰ stage timed out, proceeding with received data",
		zap.Int("stage", c.stage), zap.String("name", c.current().Name), zap.Uint64s("missing", missing))
	return c.close(now)
}

func (c *Ceremony) fail(err error) *finish {
	var blameErr *BlameError
	if errors.As(err, &blameErr) {
		return &finish{blamed: blameErr.Parties, reason: blameErr.Reason}
	}
	c.logger.Error("ceremony failed without attributable party", zap.Error(err))
	return &finish{reason: err.Error()}
}

func (c *Ceremony) info() Info {
	i := Info{
		CeremonyID:    c.ID,
		Kind:          c.Kind.String(),
		Authorization: c.auth.String(),
		Stage:         c.Stage(),
		Received:      len(c.received),
		Delayed:       len(c.delayed),
		Deadline:      c.deadline.Unix(),
	}
	if c.auth == Authorized {
		i.StageName = c.current().Name
		i.Participants = c.parties.IDs()
	}
	return i
}

func sortedKeys(m map[ceremonyKey]*Ceremony) []ceremonyKey {
	keys := make([]ceremonyKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].kind != keys[j].kind {
			return keys[i].kind < keys[j].kind
		}
		return keys[i].id < keys[j].id
	})
	return keys
}
