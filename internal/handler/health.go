package handler

import "net/http"

// HandleHealth answers GET /healthz for load balancers and compose health checks.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
