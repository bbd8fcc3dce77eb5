package server

import (
	"net/http"
)

// Router mounts handlers for the loopback server.
//
// The authorization redirect always arrives as a GET; the router refuses
// everything else so a stray POST can't consume the one-shot callback.
type Router struct {
	mux *http.ServeMux
}

func NewRouter() *Router {
	return &Router{mux: http.NewServeMux()}
}

// Mount registers every route the handler serves.
func (r *Router) Mount(handler Handler) {
	for _, route := range handler.Routes() {
		r.mux.Handle(route, getOnly(handler))
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func getOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, req)
	})
}
