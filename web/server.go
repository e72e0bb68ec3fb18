package web

import (
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type Server struct {
	Hub *Hub
}

func NewServer() *Server {
	return &Server{
		Hub: NewHub(),
	}
}

// Start runs the hub and the HTTP front. Blocks, so call it from a goroutine
// when serving alongside the ingest loop.
func (s *Server) Start(port int, distDir string) {
	go s.Hub.Run()

	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(s.Hub, w, r)
	})

	if distDir != "" {
		fs := http.FileServer(http.Dir(distDir))
		mux.Handle("/", fs)
	}

	addr := fmt.Sprintf(":%d", port)
	log.Infof("http server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Fatal("http server error")
	}
}
