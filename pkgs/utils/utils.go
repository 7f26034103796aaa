package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ssvlabs/ssv-multisig/pkgs/wire"
)

// SensitiveError keeps the real error in the logs and shows the peer a generic one
type SensitiveError struct {
	Err          error
	PresentedErr string
}

func (e *SensitiveError) Error() string {
	return e.Err.Error()
}

func (e *SensitiveError) Unwrap() error {
	return e.Err
}

// WriteErrorResponse logs err and writes it to the peer as an SSZ encoded error
func WriteErrorResponse(logger *zap.Logger, writer http.ResponseWriter, err error, statusCode int) {
	logger.Error("http request error", zap.Error(err))
	presented := err
	var sensitive *SensitiveError
	if errors.As(err, &sensitive) {
		presented = errors.New(sensitive.PresentedErr)
	}
	writer.WriteHeader(statusCode)
	if _, werr := writer.Write(wire.MakeErr(presented)); werr != nil {
		logger.Error("error writing error response", zap.Error(werr))
	}
}

// WriteJSONResponse writes v as a JSON body
func WriteJSONResponse(logger *zap.Logger, writer http.ResponseWriter, v any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(writer).Encode(v); err != nil {
		logger.Error("error writing json response", zap.Error(err))
	}
}

func WriteJSON(path string, data any) error {
	file, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer file.Close()
	return json.NewEncoder(file).Encode(data)
}
