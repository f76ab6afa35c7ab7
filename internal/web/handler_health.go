package web

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Routes    map[string]string `json:"routes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Message:   "ShopExplore Backend API is running",
		Timestamp: time.Now().UTC(),
		Routes: map[string]string{
			"auth":  "/api/auth",
			"shops": "/api/shops",
		},
	}, s.log(r))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "Route not found",
		"path":  r.URL.Path,
	}, s.log(r))
}
