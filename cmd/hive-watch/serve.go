package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chadibenrejeb/hive-watch/pkg/alerting"
	"github.com/chadibenrejeb/hive-watch/pkg/api"
	"github.com/chadibenrejeb/hive-watch/pkg/config"
	"github.com/chadibenrejeb/hive-watch/pkg/gateways/beehouse"
	"github.com/chadibenrejeb/hive-watch/pkg/gateways/beehouse/network"
	"github.com/chadibenrejeb/hive-watch/pkg/notify/natsnotify"
	"github.com/chadibenrejeb/hive-watch/pkg/notify/websocket"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the broker and serve the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newTransport(broker config.BrokerConfig) (network.Transport, error) {
	switch broker.Transport {
	case config.TransportMQTT:
		mqtt.ERROR = logger.Get("paho")
		mqtt.CRITICAL = logger.Get("paho")
		var filter *network.RedeliveryFilter
		if broker.RedeliveryFilter {
			filter = network.NewRedeliveryFilter(network.FilterCapacity, network.DuplicationProbability, network.ResetFilterUsagePercent)
		}
		return network.NewMQTTTransport(byte(broker.QoS), filter, logger.Get("mqtt")), nil
	case config.TransportAMQP:
		return network.NewAMQPTransport(broker.Exchange, logger.Get("amqp")), nil
	}
	return nil, errors.Errorf("unknown transport %q", broker.Transport)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Get("serve")

	rules, err := alerting.LoadRules(cfg.Alerts.RulesFile)
	if err != nil {
		return err
	}
	transport, err := newTransport(cfg.Broker)
	if err != nil {
		return err
	}

	notifier := alerting.NewMulti(logger.Get("notifier"), alerting.NewLogNotifier(logger.Get("alerts")))
	var hub *websocket.Hub
	if cfg.Notify.Websocket {
		hub = websocket.NewHub(logger.Get("websocket"))
		notifier.Add(hub)
	}
	if cfg.Notify.NatsURL != "" {
		bus, err := natsnotify.Connect(cfg.Notify.NatsURL, cfg.Notify.NatsSubject, logger.Get("nats"))
		if err != nil {
			return err
		}
		defer bus.Close()
		notifier.Add(bus)
	}

	manager := beehouse.NewManager(transport, notifier, beehouse.Settings{
		TopicPrefix:       cfg.Broker.TopicPrefix,
		HistoryCapacity:   cfg.Alerts.HistorySize,
		Rules:             rules,
		ConnectTimeout:    cfg.Broker.ConnectTimeout,
		ReconnectInterval: cfg.Broker.ReconnectInterval,
	}, logger.Get("connection-manager"))
	if hub != nil {
		manager.OnStatusChange(hub.BroadcastStatus)
	}

	handler := api.NewHandler(manager, hub, cfg.Broker.ConnectionConfig, logger.Get("api"))
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return manager.Run(ctx)
	})
	if hub != nil {
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}
	g.Go(func() error {
		log.WithField("address", cfg.Server.Address).Infoln("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "HTTP server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Infoln("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Broker.AutoConnect {
		if err := manager.Connect(cfg.Broker.ConnectionConfig); err != nil {
			log.WithError(err).Warnln("not connecting at startup")
		}
	}

	return g.Wait()
}
