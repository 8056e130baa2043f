package handlers

import (
	"net/http"

	"github.com/jason-s-yu/falseshow/internal/middleware"
)

// Routes mounts every endpoint behind the request logger.
func Routes(s *TableServer) http.Handler {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(s.Logger)

	mux.Handle("/auth/guest", logged(http.HandlerFunc(GuestHandler)))

	mux.Handle("/table/create", logged(CreateTableHandler(s)))
	mux.Handle("/table/join", logged(JoinTableHandler(s)))
	mux.Handle("/table/ws/", logged(TableWSHandler(s.Logger, s)))
	mux.Handle("/table/", logged(TableStateHandler(s)))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "tables": s.Store.Len()})
	})
	return mux
}
