package app

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// healthHandler answers liveness probes.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// startOpsServer runs the operational HTTP server: /health for liveness and
// /metrics for Prometheus scrapes of the engine collectors.
func (a *App) startOpsServer(port int) {
	a.logger.Debug("Configuring ops server.")
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf(":%d", port)

	go func() {
		a.logger.Info("🩺 Ops server starting", "address", fmt.Sprintf("http://localhost%s", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			a.logger.Error("Ops server failed", "error", err)
		}
	}()
}
