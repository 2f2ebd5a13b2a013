// Package errors renders the JSON error and success envelopes shared by
// every feature. Error bodies carry a stable machine-readable code and
// a human-readable message; internal detail stays in the log.
package errors

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dalemusser/ledgerhub/internal/app/system/apperr"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RenderJSON writes v with the given status.
func RenderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RenderError writes the JSON error envelope for err. Unclassified
// errors are logged at Error and rendered as a generic 500; classified
// ones are expected conditions and logged at Debug.
func RenderError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	kind := apperr.KindOf(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Debug("request rejected",
			zap.String("kind", kind.String()), zap.Error(err))
	}
	RenderJSON(w, status, errorBody{
		Error:   kind.String(),
		Message: apperr.Message(err),
	})
}
