package metrics

import (
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultPort = 9090

// NewHTTPServer builds the scrape endpoint server. It serves only /metrics
// and runs on its own listener so Prometheus traffic never shares a port with
// the download UI.
func NewHTTPServer(address string, port int) *http.Server {
	if port == 0 {
		port = defaultPort
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:    net.JoinHostPort(address, strconv.Itoa(port)),
		Handler: mux,
	}
}
