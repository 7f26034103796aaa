package initiator

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ssvlabs/ssv-multisig/pkgs/wire"
)

// nodeReqResult structure to represent http communication messages incoming to initiator from nodes
type nodeReqResult struct {
	nodeID uint64
	err    error
	result []byte
}

// SendAndCollect sends http message to a node and reads the response
func (c *Initiator) SendAndCollect(peer wire.Peer, method string, data []byte) ([]byte, error) {
	r := c.Client.R()
	r.SetBodyBytes(data)
	r.SetContentType("application/json")
	res, err := r.Post(fmt.Sprintf("%v/%v", peer.Addr, method))
	if err != nil {
		return nil, err
	}
	resdata, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("node responded", zap.Uint64("node", peer.ID), zap.String("method", method))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		errmsg, parseErr := wire.ParseAsError(resdata)
		if parseErr == nil {
			return nil, fmt.Errorf("%v", errmsg)
		}
		return nil, fmt.Errorf("node %d failed with: %w", peer.ID, errors.New(string(resdata)))
	}
	return resdata, nil
}

// GetAndCollect request Get at node route
func (c *Initiator) GetAndCollect(peer wire.Peer, method string) ([]byte, int, error) {
	r := c.Client.R()
	res, err := r.Get(fmt.Sprintf("%v/%v", peer.Addr, method))
	if err != nil {
		return nil, 0, err
	}
	resdata, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, err
	}
	c.Logger.Debug("node responded", zap.String("IP", peer.Addr), zap.String("method", method), zap.Int("status", res.StatusCode))
	return resdata, res.StatusCode, nil
}

// SendToAll sends http messages to all nodes. Makes sure that all responses are received
func (c *Initiator) SendToAll(method string, msg []byte, ids []uint64) (map[uint64][]byte, map[uint64]error) {
	errs := make(map[uint64]error, 0)
	resc := make(chan nodeReqResult, len(ids))
	sent := 0
	for _, id := range ids {
		peer := c.Peers.ByID(id)
		if peer == nil {
			errs[id] = fmt.Errorf("node ID: %d not found in peers list", id)
			continue
		}
		sent++
		go func(peer wire.Peer) {
			res, err := c.SendAndCollect(peer, method, msg)
			resc <- nodeReqResult{
				nodeID: peer.ID,
				err:    err,
				result: res,
			}
		}(*peer)
	}
	responses := make(map[uint64][]byte)
	for i := 0; i < sent; i++ {
		res := <-resc
		if res.err != nil {
			errs[res.nodeID] = fmt.Errorf("node ID: %d, %w", res.nodeID, ProcessError(res.err))
			continue
		}
		responses[res.nodeID] = res.result
	}
	return responses, errs
}

func ProcessError(err error) error {
	if strings.Contains(err.Error(), "context deadline exceeded") {
		return fmt.Errorf("the requested server is not responding, not a multisig node endpoint: %w", err)
	}
	if strings.Contains(err.Error(), "no such host") {
		return fmt.Errorf("the requested server IP is not reachable: %w", err)
	}
	return err
}

func joinErrors(errs map[uint64]error) error {
	if len(errs) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(errs))
	for id := range errs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	joined := make([]error, 0, len(ids))
	for _, id := range ids {
		joined = append(joined, errs[id])
	}
	return errors.Join(joined...)
}
