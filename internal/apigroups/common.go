package apigroups

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// Encode failure here means the client went away; the status line is
	// already committed, so there is nothing useful left to return.
	_ = json.NewEncoder(w).Encode(v)
	return nil
}
