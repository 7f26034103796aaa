package operator

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ssvlabs/ssv-multisig/pkgs/ceremony"
	"github.com/ssvlabs/ssv-multisig/pkgs/utils"
	"github.com/ssvlabs/ssv-multisig/pkgs/wire"
)

const maxBodySize = 16 << 20

func (s *Server) ceremonyHandler(writer http.ResponseWriter, request *http.Request) {
	rawdata, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, maxBodySize))
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	signedMsg := &wire.SignedTransport{}
	if err := signedMsg.UnmarshalSSZ(rawdata); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, errors.Wrap(err, "failed to unmarshal transport"), http.StatusBadRequest)
		return
	}
	if err := s.State.ProcessMessage(request.Context(), signedMsg); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, fmt.Errorf("operator %d, err: %v", s.State.OperatorID, err), http.StatusBadRequest)
		return
	}
	writer.WriteHeader(http.StatusOK)
}

func (s *Server) keygenHandler(writer http.ResponseWriter, request *http.Request) {
	inst := &wire.KeygenInstruction{}
	if err := json.NewDecoder(http.MaxBytesReader(writer, request.Body, maxBodySize)).Decode(inst); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, errors.Wrap(err, "failed to decode keygen instruction"), http.StatusBadRequest)
		return
	}
	logger := s.Logger.With(zap.Uint64("ceremony_id", inst.CeremonyID))
	if err := s.State.RequestToKeygen(request.Context(), inst); err != nil {
		utils.WriteErrorResponse(logger, writer, err, http.StatusBadRequest)
		return
	}
	logger.Info("✅ keygen request accepted", zap.Uint64s("participants", inst.Participants))
	utils.WriteJSONResponse(logger, writer, inst)
}

func (s *Server) signHandler(writer http.ResponseWriter, request *http.Request) {
	inst := &wire.SignInstruction{}
	if err := json.NewDecoder(http.MaxBytesReader(writer, request.Body, maxBodySize)).Decode(inst); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, errors.Wrap(err, "failed to decode sign instruction"), http.StatusBadRequest)
		return
	}
	logger := s.Logger.With(zap.Uint64("ceremony_id", inst.CeremonyID), zap.String("key_id", inst.KeyID))
	if err := s.State.RequestToSign(request.Context(), inst); err != nil {
		utils.WriteErrorResponse(logger, writer, err, http.StatusBadRequest)
		return
	}
	logger.Info("✅ sign request accepted", zap.Uint64s("signers", inst.Signers))
	utils.WriteJSONResponse(logger, writer, inst)
}

func (s *Server) ceremoniesHandler(writer http.ResponseWriter, request *http.Request) {
	infos, err := s.State.Ceremonies(request.Context())
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusServiceUnavailable)
		return
	}
	if infos == nil {
		infos = []ceremony.Info{}
	}
	utils.WriteJSONResponse(s.Logger, writer, infos)
}

func (s *Server) outcomeHandler(writer http.ResponseWriter, request *http.Request) {
	kind, err := ceremony.ParseKind(chi.URLParam(request, "kind"))
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(request, "id"), 10, 64)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, errors.Wrap(err, "invalid ceremony id"), http.StatusBadRequest)
		return
	}
	o, ok := s.State.Outcome(kind, ceremony.CeremonyID(id))
	if !ok {
		utils.WriteErrorResponse(s.Logger, writer, fmt.Errorf("no outcome for %s ceremony %d", kind, id), http.StatusNotFound)
		return
	}
	utils.WriteJSONResponse(s.Logger, writer, OutcomeToJSON(o))
}

func (s *Server) healthHandler(writer http.ResponseWriter, request *http.Request) {
	utils.WriteJSONResponse(s.Logger, writer, s.State.Pong())
}

// OutcomeToJSON converts an outcome to its API form
func OutcomeToJSON(o *ceremony.Outcome) *wire.OutcomeJSON {
	out := &wire.OutcomeJSON{
		CeremonyID: uint64(o.CeremonyID),
		Kind:       o.Kind.String(),
		Success:    o.Success(),
		Result:     o.Result,
		Blamed:     make([]uint64, 0, len(o.Blamed)),
	}
	if o.Kind == ceremony.KeygenKind && o.Success() {
		out.KeyID = o.KeyID.String()
	}
	for _, id := range o.Blamed {
		out.Blamed = append(out.Blamed, uint64(id))
	}
	return out
}
