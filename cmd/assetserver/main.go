package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"horizon.run/internal/transport/resolver"
)

// Dev template resolver: serves the documents under -templates over the
// resolver websocket protocol so the engine's async fetch path can be
// exercised end to end without the real asset-generation service.
func main() {
	var (
		addr        = flag.String("addr", ":8091", "http listen address")
		templateDir = flag.String("templates", "./configs/templates", "template document directory")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[assetserver] ", log.LstdFlags|log.Lmicroseconds)

	if st, err := os.Stat(*templateDir); err != nil || !st.IsDir() {
		logger.Fatalf("template directory %s: %v", *templateDir, err)
	}

	srv := resolver.NewServer(*templateDir, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", srv.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	logger.Printf("serving templates from %s on %s", *templateDir, *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Fatalf("listen: %v", err)
	}
}
