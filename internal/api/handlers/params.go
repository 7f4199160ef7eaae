package handlers

import (
	"net/http"
	"strconv"

	"github.com/cloo-solutions/askbase/internal/api"
)

// queryLimit reads an optional non-negative ?limit. It writes the 400 itself.
func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		api.Error(w, http.StatusBadRequest, "invalid limit")
		return 0, false
	}
	return n, true
}
