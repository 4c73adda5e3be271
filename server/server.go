package server

import (
	"crypto/tls"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
	"golang.org/x/crypto/acme/autocert"

	"github.com/athellier/larecherche/handlers"
)

func SetupRoutes(research *handlers.ResearchHandler, index *handlers.IndexHandler, upload *handlers.UploadHandler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/research", research.Research).Methods("POST")
	r.HandleFunc("/research/execute", research.Execute).Methods("POST")
	r.HandleFunc("/research/execution/{id}", research.ExecutionStatus).Methods("GET")
	r.HandleFunc("/documents/upload", upload.Upload).Methods("POST")
	r.HandleFunc("/index/reset", index.Reset).Methods("POST")
	r.HandleFunc("/health", research.Health).Methods("GET")

	return r
}

type Config struct {
	Domains      []string
	CertCacheDir string
	HTTPPort     string
	HTTPSPort    string
}

// ServeProduction terminates TLS via Let's Encrypt and redirects plain
// HTTP to HTTPS.
func ServeProduction(n *negroni.Negroni, cfg Config) {
	autocertManager := autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.Domains...),
		Cache:      autocert.DirCache(cfg.CertCacheDir),
	}

	// Port 80 only answers ACME challenges and redirects to HTTPS.
	go func() {
		srv := &http.Server{
			Addr:         ":80",
			Handler:      autocertManager.HTTPHandler(nil),
			IdleTimeout:  time.Minute,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		log.Fatal(srv.ListenAndServe())
	}()

	tlsConfig := &tls.Config{
		GetCertificate:   autocertManager.GetCertificate,
		CurvePreferences: []tls.CurveID{tls.X25519, tls.CurveP256},
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPSPort,
		Handler:      n,
		TLSConfig:    tlsConfig,
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	log.Printf("Serving HTTPS on %s", srv.Addr)
	log.Fatal(srv.ListenAndServeTLS("", ""))
}

func ServeDevelopment(srv *http.Server) {
	log.Printf("Serving HTTP on %s", srv.Addr)
	log.Fatal(srv.ListenAndServe())
}
