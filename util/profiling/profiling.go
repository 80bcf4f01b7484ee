package profiling

import (
	"net"
	"net/http"
	"time"

	// Required for profiling
	_ "net/http/pprof"

	"github.com/futurepia/futurepia-sub000/infrastructure/logger"
	"github.com/futurepia/futurepia-sub000/util/panics"
)

// Start starts the profiling server on the given port. The pprof handlers
// live on the default mux, everything else redirects to them.
func Start(port string, log *logger.Logger) {
	spawn := panics.GoroutineWrapperFunc(log)
	spawn("profiling.Start", func() {
		listenAddr := net.JoinHostPort("", port)
		log.Infof("Profile server listening on %s", listenAddr)
		http.Handle("/", http.RedirectHandler("/debug/pprof", http.StatusSeeOther))
		server := &http.Server{Addr: listenAddr, ReadHeaderTimeout: 10 * time.Second}
		log.Error(server.ListenAndServe())
	})
}
