package http

import "net/http"

type RouterDeps struct {
	Deployment *DeploymentHandler
	Credential *CredentialHandler
	Ws         http.Handler
}

func NewRouter(jwtSecret string, allowedOrigins []string, deps *RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, &Response{Message: "ok"})
	})

	api := http.NewServeMux()
	api.HandleFunc("POST /api/deployments", deps.Deployment.Create)
	api.HandleFunc("GET /api/deployments", deps.Deployment.Index)
	api.HandleFunc("GET /api/deployments/activity", deps.Deployment.Activity)
	api.HandleFunc("DELETE /api/deployments/activity", deps.Deployment.ClearActivity)
	api.HandleFunc("GET /api/deployments/events", deps.Deployment.Events)
	api.HandleFunc("GET /api/deployments/{id}", deps.Deployment.Show)
	api.HandleFunc("DELETE /api/deployments/{id}", deps.Deployment.Delete)
	api.HandleFunc("POST /api/deployments/{id}/publish", deps.Deployment.Publish)
	api.HandleFunc("POST /api/deployments/{id}/retry", deps.Deployment.Retry)

	api.HandleFunc("PUT /api/credentials", deps.Credential.Put)
	api.HandleFunc("GET /api/credentials", deps.Credential.Show)
	api.HandleFunc("DELETE /api/credentials", deps.Credential.Delete)

	mux.Handle("/api/", Auth(jwtSecret, api))

	if deps.Ws != nil {
		mux.Handle("/ws", Auth(jwtSecret, deps.Ws))
	}

	return cors(allowedOrigins, mux)
}
