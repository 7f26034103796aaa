package initiator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/imroc/req/v3"
	"go.uber.org/zap"

	"github.com/ssvlabs/ssv-multisig/pkgs/ceremony"
	"github.com/ssvlabs/ssv-multisig/pkgs/wire"
)

// Initiator sends keygen and sign instructions to nodes on behalf of the chain observer
type Initiator struct {
	Logger *zap.Logger // logger
	Client *req.Client // http client
	Peers  wire.Peers  // nodes info mapping
}

// New creates a main initiator structure
func New(peers wire.Peers, logger *zap.Logger) *Initiator {
	client := req.C()
	// Set timeout for node responses
	client.SetTimeout(30 * time.Second)
	return &Initiator{
		Logger: logger,
		Client: client,
		Peers:  peers,
	}
}

// ValidatedPeers checks that every id is known and returns them sorted
func ValidatedPeers(ids []uint64, peers wire.Peers) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no node ids provided")
	}
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("duplicate node id %d", id)
		}
		seen[id] = struct{}{}
		if peers.ByID(id) == nil {
			return nil, fmt.Errorf("node id %d not found in peers list", id)
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// StartKeygen instructs every participant to run keygen ceremony id
func (c *Initiator) StartKeygen(id uint64, participants []uint64) error {
	ids, err := ValidatedPeers(participants, c.Peers)
	if err != nil {
		return err
	}
	body, err := json.Marshal(&wire.KeygenInstruction{CeremonyID: id, Participants: ids})
	if err != nil {
		return err
	}
	c.Logger.Info("➡️ sending keygen instruction", zap.Uint64("ceremony_id", id), zap.Uint64s("participants", ids))
	_, errs := c.SendToAll("keygen", body, ids)
	return joinErrors(errs)
}

// StartSigning instructs every signer to sign msg with the key
func (c *Initiator) StartSigning(id uint64, keyID string, msg []byte, signers []uint64) error {
	ids, err := ValidatedPeers(signers, c.Peers)
	if err != nil {
		return err
	}
	inst := &wire.SignInstruction{CeremonyID: id, KeyID: keyID, Message: msg, Signers: ids}
	if err := inst.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(inst)
	if err != nil {
		return err
	}
	c.Logger.Info("➡️ sending sign instruction", zap.Uint64("ceremony_id", id), zap.String("key_id", keyID), zap.Uint64s("signers", ids))
	_, errs := c.SendToAll("sign", body, ids)
	return joinErrors(errs)
}

// WaitOutcomes polls every node until all of them report the outcome of a ceremony
func (c *Initiator) WaitOutcomes(ctx context.Context, kind ceremony.Kind, id uint64, ids []uint64, poll time.Duration) (map[uint64]*wire.OutcomeJSON, error) {
	outcomes := make(map[uint64]*wire.OutcomeJSON, len(ids))
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		for _, nodeID := range ids {
			if _, ok := outcomes[nodeID]; ok {
				continue
			}
			peer := c.Peers.ByID(nodeID)
			if peer == nil {
				return nil, fmt.Errorf("node id %d not found in peers list", nodeID)
			}
			data, code, err := c.GetAndCollect(*peer, fmt.Sprintf("outcomes/%s/%d", kind, id))
			if err != nil || code != http.StatusOK {
				continue
			}
			out := &wire.OutcomeJSON{}
			if err := json.Unmarshal(data, out); err != nil {
				return nil, fmt.Errorf("node %d returned malformed outcome: %w", nodeID, err)
			}
			outcomes[nodeID] = out
		}
		if len(outcomes) == len(ids) {
			return outcomes, nil
		}
		select {
		case <-ctx.Done():
			return outcomes, fmt.Errorf("waiting for %s ceremony %d outcomes: %w", kind, id, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Ceremonies returns the live ceremonies of one node
func (c *Initiator) Ceremonies(nodeID uint64) ([]ceremony.Info, error) {
	peer := c.Peers.ByID(nodeID)
	if peer == nil {
		return nil, fmt.Errorf("node id %d not found in peers list", nodeID)
	}
	data, code, err := c.GetAndCollect(*peer, "ceremonies")
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("node %d responded with status %d", nodeID, code)
	}
	var infos []ceremony.Info
	if err := json.Unmarshal(data, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// HealthCheck pings the nodes and returns their pong messages
func (c *Initiator) HealthCheck(ids []uint64) (map[uint64]*wire.Pong, map[uint64]error) {
	pongs := make(map[uint64]*wire.Pong)
	errs := make(map[uint64]error)
	for _, id := range ids {
		peer := c.Peers.ByID(id)
		if peer == nil {
			errs[id] = fmt.Errorf("node id %d not found in peers list", id)
			continue
		}
		data, code, err := c.GetAndCollect(*peer, "health_check")
		if err != nil {
			errs[id] = ProcessError(err)
			continue
		}
		if code != http.StatusOK {
			errs[id] = fmt.Errorf("node %d responded with status %d", id, code)
			continue
		}
		pong := &wire.Pong{}
		if err := json.Unmarshal(data, pong); err != nil {
			errs[id] = err
			continue
		}
		if pong.ID != id {
			errs[id] = fmt.Errorf("node at %s reports id %d, expected %d", peer.Addr, pong.ID, id)
			continue
		}
		pongs[id] = pong
	}
	return pongs, errs
}
