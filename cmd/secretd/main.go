package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/ruteri/secret-service/api/secrethandler"
	"github.com/ruteri/secret-service/cmd/flags"
	"github.com/ruteri/secret-service/dbusbinding"
	"github.com/ruteri/secret-service/httpserver"
	"github.com/ruteri/secret-service/interfaces"
	"github.com/ruteri/secret-service/secretservice"
	"github.com/ruteri/secret-service/storage"
	"github.com/urfave/cli/v2"
)

const (
	transportHTTP = "http"
	transportDBus = "dbus"
	transportBoth = "both"
)

var TransportFlag = &cli.StringFlag{
	Name:  "transport",
	Value: transportHTTP,
	Usage: "transport to serve on: 'http', 'dbus' or 'both'",
}
var BusNameFlag = &cli.StringFlag{
	Name:  "bus-name",
	Value: dbusbinding.DefaultBusName,
	Usage: "well-known session bus name to claim",
}
var FixturesFlag = &cli.StringSliceFlag{
	Name:  "fixtures",
	Usage: "collection source URI (file://, s3://, vault://, keyring://), repeatable",
}
var StandardObjectsFlag = &cli.BoolFlag{
	Name:  "standard-objects",
	Usage: "add the standard 'collection' and 'second' test collections",
}
var DeleteFixturesFlag = &cli.BoolFlag{
	Name:  "delete-fixtures",
	Usage: "add the 'todelete' and 'twodelete' test collections",
}
var AlgorithmsFlag = &cli.StringSliceFlag{
	Name:  "algorithms",
	Value: cli.NewStringSlice(secretservice.AlgorithmPlain, secretservice.AlgorithmDHAES),
	Usage: "session algorithms to offer",
}
var PromptDelayFlag = &cli.DurationFlag{
	Name:  "prompt-delay",
	Usage: "delay before a prompt completes, zero completes inline",
}

func algorithmsByName(names []string) ([]secretservice.Algorithm, error) {
	known := make(map[string]secretservice.Algorithm)
	for _, a := range secretservice.DefaultAlgorithms() {
		known[a.Name()] = a
	}

	algorithms := make([]secretservice.Algorithm, 0, len(names))
	for _, name := range names {
		a, ok := known[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("unknown algorithm %q", name)
		}
		algorithms = append(algorithms, a)
	}
	return algorithms, nil
}

func main() {
	app := &cli.App{
		Name:  "secretd",
		Usage: "Serve the secret service over HTTP and/or the session bus",
		Flags: append(append([]cli.Flag{
			TransportFlag,
			BusNameFlag,
			FixturesFlag,
			StandardObjectsFlag,
			DeleteFixturesFlag,
			AlgorithmsFlag,
			PromptDelayFlag,
		}, flags.ServerFlags...), flags.LogFlags("secretd")...),
		Action: func(cCtx *cli.Context) error {
			transport := cCtx.String(TransportFlag.Name)
			serveHTTP := transport == transportHTTP || transport == transportBoth
			serveDBus := transport == transportDBus || transport == transportBoth
			if !serveHTTP && !serveDBus {
				return fmt.Errorf("unknown transport %q", transport)
			}

			logger := flags.LoggerFromFlags(cCtx)

			algorithms, err := algorithmsByName(cCtx.StringSlice(AlgorithmsFlag.Name))
			if err != nil {
				logger.Error("Invalid algorithms", "err", err)
				return err
			}

			var emitters interfaces.SignalEmitters

			var signalQueue *secrethandler.SignalQueue
			if serveHTTP {
				signalQueue = secrethandler.NewSignalQueue(secrethandler.DefaultSignalQueueCapacity, logger)
				emitters = append(emitters, signalQueue)
			}

			var bus *dbus.Conn
			if serveDBus {
				bus, err = dbus.ConnectSessionBus()
				if err != nil {
					logger.Error("Failed to connect to the session bus", "err", err)
					return err
				}
				defer bus.Close()
				emitters = append(emitters, dbusbinding.NewEmitter(bus, logger))
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			svc := secretservice.New(logger, emitters,
				secretservice.WithAlgorithms(algorithms...),
				secretservice.WithPromptDelay(cCtx.Duration(PromptDelayFlag.Name)),
				secretservice.WithMetrics(registry),
			)

			if cCtx.Bool(StandardObjectsFlag.Name) {
				if err := svc.AddStandardObjects(); err != nil {
					logger.Error("Failed to add standard objects", "err", err)
					return err
				}
			}
			if cCtx.Bool(DeleteFixturesFlag.Name) {
				if err := svc.AddDeleteFixtures(); err != nil {
					logger.Error("Failed to add delete fixtures", "err", err)
					return err
				}
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			sources, err := storage.NewSourceFactory(logger).SourcesFor(cCtx.StringSlice(FixturesFlag.Name))
			if err != nil {
				logger.Error("Invalid fixture source", "err", err)
				return err
			}
			if err := storage.LoadInto(ctx, svc, logger, sources...); err != nil {
				logger.Error("Failed to load fixtures", "err", err)
				return err
			}

			var server *httpserver.Server
			if serveHTTP {
				cfg := flags.ServerConfigFromFlags(cCtx, logger)
				cfg.MetricsGatherer = registry

				handler := secrethandler.NewHandler(svc, signalQueue, flags.RateLimitFromFlags(cCtx), logger)

				server, err = httpserver.New(cfg, handler)
				if err != nil {
					logger.Error("Failed to create server", "err", err)
					return err
				}
				server.RunInBackground()
			}

			busDone := make(chan error, 1)
			if serveDBus {
				go func() {
					busDone <- dbusbinding.New(svc, logger).Serve(ctx, bus, cCtx.String(BusNameFlag.Name))
				}()
			}

			logger.Info("Secret service is running, press Ctrl+C to stop",
				"transport", transport,
				"algorithms", svc.Algorithms(),
				"objects", svc.ObjectCount())

			select {
			case <-ctx.Done():
				logger.Info("Shutdown signal received")
			case err = <-busDone:
				if err != nil {
					logger.Error("D-Bus binding failed", "err", err)
				}
			}

			if server != nil {
				server.Shutdown()
			}
			logger.Info("Server shutdown complete")
			return err
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
