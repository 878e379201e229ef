package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// Router wires the API routes and middleware
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, Instrument(h.metrics), Recovery)

	r.HandleFunc("/api/classify-images", CORS(classifyAllowedHeaders, recoverWith(h.writeClassifyError, h.HandleClassifyImages)))
	r.HandleFunc("/api/image-tools", CORS(toolAllowedHeaders, recoverWith(h.writeToolError, h.HandleImageTools)))

	r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	}).Methods(http.MethodGet)

	return r
}
