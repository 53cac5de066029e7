// Command mock-core is a self-contained stand-in for the clinops-core
// backend. It serves every dashboard endpoint with plausible synthetic data
// and streams scripted agent investigations over websockets, so the CLI can
// be exercised without a real deployment.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"
)

func main() {
	logger := log.New(log.Writer(), "mock-core ", log.LstdFlags|log.Lmicroseconds)

	srv := &http.Server{
		Addr:    ":8000",
		Handler: logRequests(logger, buildHandler(logger)),
	}

	logger.Println("listening on :8000")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func buildHandler(logger *log.Logger) http.Handler {
	mux := http.NewServeMux()
	inv := newInvestigations(logger)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	for endpoint, payload := range dashboardPayloads() {
		mux.HandleFunc("GET "+endpoint, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, payload())
		})
	}

	mux.HandleFunc("GET /dashboard/site/{site}", func(w http.ResponseWriter, r *http.Request) {
		detail, ok := siteDetail(r.PathValue("site"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, detail)
	})
	mux.HandleFunc("GET /dashboard/kri-timeseries/{site}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, kriTimeseries(r.PathValue("site")))
	})
	mux.HandleFunc("GET /dashboard/enrollment-velocity/{site}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, enrollmentVelocity(r.PathValue("site")))
	})
	mux.HandleFunc("GET /dashboard/vendor/{vendor}", func(w http.ResponseWriter, r *http.Request) {
		detail, ok := vendorDetail(r.PathValue("vendor"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, detail)
	})

	mux.HandleFunc("POST /agents/investigate", inv.start)
	mux.HandleFunc("GET /ws/query/{id}", inv.stream)

	return mux
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade reach the underlying connection through
// the logging wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}
