package handlers

import "net/http"

// Health отвечает, что сервис запущен.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
