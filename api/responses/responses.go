// Package responses writes the storefront JSON envelopes.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteNotice writes a success payload with the toast text shown to the
// shopper. An empty notice is omitted.
func WriteNotice(w http.ResponseWriter, data any, notice string) {
	writeJSON(w, http.StatusOK, types.SuccessEnvelope{Data: data, Notice: notice})
}

// WriteError renders err through its public projection. Server-side
// failures are logged at error with the full chain; client errors at warn.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	pub := pkgerrors.ToPublic(err)
	if logg != nil {
		logCtx := logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
		if pub.Status >= http.StatusInternalServerError {
			logg.Error(logCtx, "request.error", err)
		} else {
			logg.Warn(logCtx, "request.rejected")
		}
	}

	writeJSON(w, pub.Status, types.ErrorEnvelope{
		Error: types.APIError{
			Code:    string(pub.Code),
			Message: pub.Message,
			Details: pub.Details,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are already sent; nothing useful left to report to the client
	_ = json.NewEncoder(w).Encode(payload)
}
