package healthcheck

import (
	"encoding/json"
	"net/http"
)

type status struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// Self reports that the process is up and serving.
func Self(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status{Success: true, Status: "OK"})
}
