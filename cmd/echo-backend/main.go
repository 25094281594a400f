// Command echo-backend is an external handler for the http backend. Every
// envelope it accepts is posted back, unchanged, to the bridge's response
// channel with the envelope's handle in the correlation header.
//
// Configuration:
//
//	ECHO_PORT               - Listen port (default: 9090)
//	ECHO_RESPONSE_URL       - Response channel URL (default: http://127.0.0.1:8080/response)
//	ECHO_CORRELATION_HEADER - Handle header (default: X-Nginx-Request-Handle)
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rhuss/jsonhandler/pkg/dispatch"
)

func main() {
	port := envOrDefault("ECHO_PORT", "9090")
	responseURL := envOrDefault("ECHO_RESPONSE_URL", "http://127.0.0.1:8080/response")
	echo := dispatch.NewEcho(responseURL, os.Getenv("ECHO_CORRELATION_HEADER"), 30*time.Second)

	mux := http.NewServeMux()
	mux.Handle("POST /submit", submitHandler(echo))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("echo backend starting", "port", port, "response_url", responseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("echo backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("echo backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	echo.Close()
}

// submitHandler accepts an envelope. A non-zero submit code is answered
// with 422 and the code in X-Handler-Code.
func submitHandler(d dispatch.Dispatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64<<20))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		code, err := d.Submit(r.Context(), body)
		if err != nil {
			slog.Error("submit failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if code != 0 {
			w.Header().Set(dispatch.CodeHeader, strconv.Itoa(code))
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
