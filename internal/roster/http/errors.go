package http

import (
	"net/http"

	"github.com/koki-kondo/mind-status-app/pkg/httpx"
	"github.com/koki-kondo/mind-status-app/pkg/rostersdk"
)

func writeError(w http.ResponseWriter, status int, code, desc string) {
	httpx.WriteJSON(w, status, rostersdk.ErrorResponse{
		Error:            code,
		ErrorDescription: desc,
	})
}

func writeServerError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, rostersdk.ErrorCodeServerError, "An internal error occurred")
}

func writeBadJSON(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, rostersdk.ErrorCodeInvalidRequest, "Request body must be valid JSON")
}

// Every token failure looks the same to the caller.
func writeInvalidToken(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, rostersdk.ErrorCodeInvalidToken, "The link is invalid or has expired")
}
