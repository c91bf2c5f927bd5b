package httpx

import (
	"net/http"
)

// Version is the build version, overridable at link time:
//
//	go build -ldflags "-X github.com/pleasantco/authzd/internal/http.Version=v1.2.3"
var Version = "dev"

type healthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
}

// healthHandler answers readiness/liveness checks with the build identity.
type healthHandler struct {
	environment string
}

func (h healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Environment: h.environment,
		Version:     Version,
	})
}
