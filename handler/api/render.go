package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/oxtoacart/bpool"
	"github.com/pandodao/paybridge/core"
)

var buffers = bpool.NewBufferPool(64)

type errorView struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func renderJSON(w http.ResponseWriter, status int, v any) {
	b := buffers.Get()
	defer buffers.Put(b)

	if err := json.NewEncoder(b).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = b.WriteTo(w)
}

func statusOf(kind core.ErrorKind) int {
	switch kind {
	case core.KindValidation, core.KindInsufficientBalance:
		return http.StatusBadRequest
	case core.KindIdentityNotFound:
		return http.StatusNotFound
	case core.KindAlreadyFunded:
		return http.StatusTooManyRequests
	case core.KindBackendUnavailable:
		return http.StatusBadGateway
	case core.KindSettlementTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var e *core.Error
	if !errors.As(err, &e) {
		s.logger.Error("unexpected error", "path", r.URL.Path, "err", err)
		renderJSON(w, http.StatusInternalServerError, errorView{Error: "internal_error", Message: err.Error()})
		return
	}

	status := statusOf(e.Kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "kind", e.Kind, "err", err)
	}

	msg := e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	renderJSON(w, status, errorView{Error: e.Code, Message: msg})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		return core.ErrInvalidBody.Wrap(err)
	}

	return nil
}
