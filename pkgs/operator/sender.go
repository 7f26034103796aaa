package operator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/imroc/req/v3"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/ssvlabs/ssv-multisig/pkgs/ceremony"
	"github.com/ssvlabs/ssv-multisig/pkgs/crypto"
	"github.com/ssvlabs/ssv-multisig/pkgs/metrics"
	"github.com/ssvlabs/ssv-multisig/pkgs/wire"
)

const (
	sendTimeout    = 10 * time.Second
	maxConcurrency = 16
)

// Sender signs outgoing stage data and posts it to peers. Delivery is best effort.
type Sender struct {
	logger  *zap.Logger
	client  *req.Client
	id      uint64
	signer  crypto.Signer
	version []byte
	peers   wire.Peers
	metrics *metrics.Recorder
	wg      sync.WaitGroup
}

func NewSender(logger *zap.Logger, id uint64, signer crypto.Signer, version []byte, peers wire.Peers, m *metrics.Recorder) *Sender {
	client := req.C()
	client.SetTimeout(sendTimeout)
	return &Sender{
		logger:  logger,
		client:  client,
		id:      id,
		signer:  signer,
		version: version,
		peers:   peers,
		metrics: m,
	}
}

// Send is called from the event loop, it signs synchronously and posts in the background.
func (s *Sender) Send(out *ceremony.Outgoing) {
	data, err := s.sign(out)
	if err != nil {
		s.logger.Error("failed to sign outgoing stage data", zap.Uint64("ceremony_id", uint64(out.CeremonyID)), zap.Error(err))
		return
	}
	receivers := out.Receivers
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		p := pool.New().WithContext(context.Background()).WithMaxGoroutines(maxConcurrency)
		for _, to := range receivers {
			to := to
			p.Go(func(ctx context.Context) error {
				err := s.post(ctx, uint64(to), data)
				s.metrics.Message("out", err)
				if err != nil {
					s.logger.Warn("failed to deliver stage data",
						zap.Uint64("to", uint64(to)),
						zap.Uint64("ceremony_id", uint64(out.CeremonyID)),
						zap.Int("stage", out.Stage),
						zap.Error(err))
				}
				return nil
			})
		}
		_ = p.Wait()
	}()
}

// Wait blocks until in-flight deliveries are done
func (s *Sender) Wait() {
	s.wg.Wait()
}

func (s *Sender) sign(out *ceremony.Outgoing) ([]byte, error) {
	msg := &wire.Transport{
		Type:       toTransportType(out.Kind),
		CeremonyID: uint64(out.CeremonyID),
		Stage:      uint64(out.Stage),
		Data:       out.Payload,
		Version:    s.version,
	}
	b, err := msg.MarshalSSZ()
	if err != nil {
		return nil, err
	}
	sig, err := s.signer.Sign(b)
	if err != nil {
		return nil, err
	}
	st := &wire.SignedTransport{Message: msg, Signer: s.id, Signature: sig}
	return st.MarshalSSZ()
}

func (s *Sender) post(ctx context.Context, to uint64, data []byte) error {
	peer := s.peers.ByID(to)
	if peer == nil {
		return fmt.Errorf("peer %d not found in peers list", to)
	}
	r := s.client.R().SetContext(ctx)
	r.SetBodyBytes(data)
	res, err := r.Post(fmt.Sprintf("%v/%v", peer.Addr, ceremonyRoute))
	if err != nil {
		return errors.Wrap(err, "post stage data")
	}
	resdata, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		errmsg, parseErr := wire.ParseAsError(resdata)
		if parseErr == nil {
			return fmt.Errorf("peer %d: %v", to, errmsg)
		}
		return fmt.Errorf("peer %d failed with status %d", to, res.StatusCode)
	}
	return nil
}
