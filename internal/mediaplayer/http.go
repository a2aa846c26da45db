package mediaplayer

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// Handler exposes p over HTTP:
//
//	GET  /status  {"state":"playing"}
//	POST /play
//	POST /pause
//	POST /stop
//
// Every POST answers with the resulting status document.
func Handler(p *Player) http.Handler {
	r := chi.NewRouter()

	writeStatus := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"state": p.State().String()})
	}
	command := func(do func()) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			do()
			writeStatus(w, r)
		}
	}

	r.Get("/status", writeStatus)
	r.Post("/play", command(p.Play))
	r.Post("/pause", command(p.Pause))
	r.Post("/stop", command(p.Stop))
	return r
}
