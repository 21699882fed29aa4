/*
Package httpserver runs the HTTP side of the secret service daemon.

Server wraps an http.Server whose chi router carries every registered
RouteRegistrar (normally the secrethandler.Handler) next to the operational
endpoints, and optionally a second server exposing Prometheus metrics.

# Endpoints

  - GET /livez - Liveness check
  - GET /readyz - Readiness check, 503 while draining
  - GET /drain - Mark server as not ready
  - GET /undrain - Mark server as ready
  - /debug/pprof/* - Profiling, when EnablePprof is set
  - GET /metrics - Prometheus metrics, on MetricsAddr

All requests are logged through httplogger.LoggingMiddlewareSlog.
*/
package httpserver
