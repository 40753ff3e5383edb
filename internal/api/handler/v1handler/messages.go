package v1handler

import (
	"io"
	"net/http"
	"urlguard/pkg/serrors"
)

// PostMessage handles one protocol message. Valid messages are answered with
// 200 even when the command itself failed; the failure is in the body.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "could not read body"))

		return
	}

	out, err := h.Dispatcher.HandleMessage(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)

		return
	}
	writeJSON(w, http.StatusOK, out)
}
