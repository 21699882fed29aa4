// Package flags holds the command line flags shared by secretd and secretctl
// and turns them into logger, server and rate limit configuration.
package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/secret-service/api"
	"github.com/ruteri/secret-service/common"
	"github.com/urfave/cli/v2"
)

const envPrefix = "SECRET_SERVICE_"

func env(name string) []string {
	return []string{envPrefix + name}
}

// Logging.

var LogJSONFlag = &cli.BoolFlag{
	Name:    "log-json",
	Usage:   "log in JSON format",
	EnvVars: env("LOG_JSON"),
}
var LogDebugFlag = &cli.BoolFlag{
	Name:    "log-debug",
	Usage:   "log debug messages",
	EnvVars: env("LOG_DEBUG"),
}
var LogUIDFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Usage: "tag every log line with a random per-process uid",
}

const logServiceFlagName = "log-service"

// LogServiceFlag tags logs with service unless overridden.
func LogServiceFlag(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  logServiceFlagName,
		Value: service,
		Usage: "value of the 'service' log attribute",
	}
}

// LogFlags returns the logging flags for a binary called service.
func LogFlags(service string) []cli.Flag {
	return []cli.Flag{LogJSONFlag, LogDebugFlag, LogUIDFlag, LogServiceFlag(service)}
}

// LoggerFromFlags builds the process logger from LogFlags.
func LoggerFromFlags(cCtx *cli.Context) *slog.Logger {
	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   cCtx.Bool(LogDebugFlag.Name),
		JSON:    cCtx.Bool(LogJSONFlag.Name),
		Service: cCtx.String(logServiceFlagName),
		Version: common.Version,
	})
	if cCtx.Bool(LogUIDFlag.Name) {
		logger = logger.With("uid", uuid.Must(uuid.NewRandom()).String())
	}
	return logger
}

// HTTP server.

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address of the HTTP API",
	EnvVars: env("LISTEN_ADDR"),
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:    "metrics-addr",
	Value:   "127.0.0.1:8090",
	Usage:   "address of the Prometheus metrics endpoint, empty disables it",
	EnvVars: env("METRICS_ADDR"),
}
var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Usage: "serve /debug/pprof on the API address",
}
var DrainFlag = &cli.DurationFlag{
	Name:  "drain",
	Value: 45 * time.Second,
	Usage: "how long /drain waits after marking the server not ready",
}
var ShutdownTimeoutFlag = &cli.DurationFlag{
	Name:  "shutdown-timeout",
	Value: 30 * time.Second,
	Usage: "how long shutdown waits for in-flight requests",
}
var ReadTimeoutFlag = &cli.DurationFlag{
	Name:  "read-timeout",
	Value: 60 * time.Second,
	Usage: "maximum time to read a request",
}
var WriteTimeoutFlag = &cli.DurationFlag{
	Name:  "write-timeout",
	Value: 30 * time.Second,
	Usage: "maximum time to write a response",
}

var RateLimitFlag = &cli.Float64Flag{
	Name:    "rate-limit",
	Usage:   "HTTP requests per second per caller, zero disables limiting",
	EnvVars: env("RATE_LIMIT"),
}
var RateBurstFlag = &cli.IntFlag{
	Name:  "rate-burst",
	Value: 20,
	Usage: "HTTP request burst per caller",
}
var RateIdleFlag = &cli.DurationFlag{
	Name:  "rate-idle",
	Value: 10 * time.Minute,
	Usage: "forget the rate limit state of callers idle this long",
}

// ServerFlags configure the HTTP binding.
var ServerFlags = []cli.Flag{
	ListenAddrFlag,
	MetricsAddrFlag,
	PprofFlag,
	DrainFlag,
	ShutdownTimeoutFlag,
	ReadTimeoutFlag,
	WriteTimeoutFlag,
	RateLimitFlag,
	RateBurstFlag,
	RateIdleFlag,
}

// ServerConfigFromFlags reads ServerFlags into a server configuration logging to logger.
func ServerConfigFromFlags(cCtx *cli.Context, logger *slog.Logger) *api.HTTPServerConfig {
	return &api.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            cCtx.Duration(DrainFlag.Name),
		GracefulShutdownDuration: cCtx.Duration(ShutdownTimeoutFlag.Name),
		ReadTimeout:              cCtx.Duration(ReadTimeoutFlag.Name),
		WriteTimeout:             cCtx.Duration(WriteTimeoutFlag.Name),
	}
}

// RateLimitFromFlags reads the per-caller limits of ServerFlags.
func RateLimitFromFlags(cCtx *cli.Context) api.RateLimitConfig {
	return api.RateLimitConfig{
		RequestsPerSecond: cCtx.Float64(RateLimitFlag.Name),
		Burst:             cCtx.Int(RateBurstFlag.Name),
		IdleTTL:           cCtx.Duration(RateIdleFlag.Name),
	}
}

// Client.

var ServerAddrFlag = &cli.StringFlag{
	Name:    "server",
	Value:   "http://127.0.0.1:8080",
	Usage:   "secret service HTTP address",
	EnvVars: env("ADDR"),
}
