package handler

import (
	"errors"
	"net/http"

	"github.com/cradoe/lenda/internal/errHandler"
	"github.com/cradoe/lenda/internal/ledger"
	"github.com/cradoe/lenda/internal/response"
)

// respondLedgerError maps a typed ledger error to the response envelope.
// Everything needed for the mapping travels in the error value; internal
// failures go through the server-error reporter instead of leaking details.
func respondLedgerError(w http.ResponseWriter, r *http.Request, err error, eh *errHandler.ErrorRepository) {
	var lerr *ledger.Error
	if errors.As(err, &lerr) && lerr.Kind != ledger.KindInternal {
		response.JSONErrorResponse(w, nil, lerr.Error(), lerr.Kind.Status(), nil)
		return
	}

	eh.ServerError(w, r, err)
}
