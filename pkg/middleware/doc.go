// Package middleware provides HTTP instrumentation for chi routers.
//
// # Prometheus
//
// Metrics records request counts and durations labelled by chi route
// pattern, the number of in-flight requests, and WebSocket upgrade
// results:
//
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	r.Use(m.Handler)
//
// # OpenTelemetry
//
// OpenTelemetry opens a server span per request and stores it in the
// request context:
//
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
package middleware
