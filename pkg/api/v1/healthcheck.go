package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HealthcheckRouter sets up the liveness route.
func HealthcheckRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/", getHealthcheck)
	return r
}

//	 getHealthcheck
//		@Summary		Health check
//		@Description	Liveness check, healthy as long as the process serves requests
//		@Tags			system
//		@Produce		json
//		@Success		200	{object}	messageResponse
//		@Router			/healthz [get]
func getHealthcheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: msgHealthy})
}
