package metrics

import (
	"net/http"

	"tailor-be/internal/transport"
)

func Handler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transport.WriteSuccess(w, http.StatusOK, "Metrics fetched", reg.Snapshot())
	}
}
