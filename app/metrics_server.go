package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsShutdownTimeout = 5 * time.Second

// metricsServer exports the prometheus metrics of the node on /metrics.
type metricsServer struct {
	listen   string
	server   *http.Server
	listener net.Listener
}

func newMetricsServer(listen string, gatherer prometheus.Gatherer) *metricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &metricsServer{
		listen: listen,
		server: &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second},
	}
}

func (s *metricsServer) start() error {
	listener, err := net.Listen("tcp", s.listen)
	if err != nil {
		return errors.Wrapf(err, "failed listening for metrics on %s", s.listen)
	}
	s.listener = listener
	log.Infof("Prometheus exporter started on %s/metrics", listener.Addr())

	spawn("metricsServer.serve", func() {
		err := s.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server stopped: %s", err)
		}
	})
	return nil
}

func (s *metricsServer) address() string {
	return s.listener.Addr().String()
}

func (s *metricsServer) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
