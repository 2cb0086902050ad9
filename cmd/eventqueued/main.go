// Command eventqueued runs the event queue server: it loads
// configuration, recovers every topic under the configured data
// directory, and starts whichever of the three protocol adapters the
// configuration enables.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"eventqueued/internal/adapter/httpapi"
	"eventqueued/internal/adapter/tcpapi"
	"eventqueued/internal/adapter/wsapi"
	"eventqueued/internal/broker"
	"eventqueued/internal/config"
	"eventqueued/internal/rlog"
	"eventqueued/internal/subscription"
	"eventqueued/internal/topicregistry"
)

const shutdownGrace = 10 * time.Second

var overrides config.Overrides
var configFilePath string

func main() {
	root := &cobra.Command{
		Use:   "eventqueued",
		Short: "Run the event queue server",
		RunE:  run,
	}
	root.Flags().StringVarP(&configFilePath, "config", "c", "./eventqueued.yml", "path to the YAML configuration file")
	root.Flags().StringVar(&overrides.DataDirectory, "data-dir", "", "override data_directory")
	root.Flags().IntVar(&overrides.TCPPort, "tcp-port", 0, "override and enable the binary TCP adapter's port")
	root.Flags().IntVar(&overrides.HTTPPort, "http-port", 0, "override and enable the HTTP adapter's port")
	root.Flags().IntVar(&overrides.WSPort, "ws-port", 0, "override and enable the WebSocket adapter's port")

	if err := root.Execute(); err != nil {
		rlog.Error("eventqueued: %v", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry, err := topicregistry.Open(cfg.DataDirectory)
	if err != nil {
		return err
	}
	defer registry.Close()

	b := broker.New(registry)

	// The pool executor is the process-wide Executor backing the WS
	// adapter's subscriber dispatch (§5); WS connections themselves are
	// served on net/http's own goroutines. The
	// binary adapter has no subscribe command and dispatches each request
	// synchronously on its own session goroutine, so it has no use for it.
	executor := subscription.NewPoolExecutor(cfg.ThreadPoolSize)
	defer executor.Stop()

	servers, err := startAdapters(cfg, b, executor)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	rlog.Info("eventqueued: shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	for _, s := range servers {
		if err := s.Stop(shutdownCtx); err != nil {
			rlog.Warn("eventqueued: shutdown error: %v", err)
		}
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()

	if data, err := os.ReadFile(configFilePath); err == nil {
		parsed, err := config.Parse(data)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	} else {
		rlog.Warn("eventqueued: no config file at %q, using defaults", configFilePath)
	}

	overrides.Apply(cfg)
	return cfg, nil
}

type stoppable interface {
	Stop(ctx context.Context) error
}

func startAdapters(cfg *config.Config, b *broker.Broker, executor subscription.Executor) ([]stoppable, error) {
	var servers []stoppable

	if cfg.TCP.Enabled {
		srv := tcpapi.New(hostPort(cfg.TCP.Host, cfg.TCP.Port), b, cfg.TCP.TLSCertFile, cfg.TCP.TLSKeyFile)
		if err := srv.Start(); err != nil {
			return nil, err
		}
		servers = append(servers, srv)
	}
	if cfg.HTTP.Enabled {
		srv := httpapi.New(hostPort(cfg.HTTP.Host, cfg.HTTP.Port), b, cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile)
		if err := srv.Start(); err != nil {
			return nil, err
		}
		servers = append(servers, srv)
	}
	if cfg.WS.Enabled {
		srv := wsapi.New(hostPort(cfg.WS.Host, cfg.WS.Port), b, executor, cfg.WS.TLSCertFile, cfg.WS.TLSKeyFile)
		if err := srv.Start(); err != nil {
			return nil, err
		}
		servers = append(servers, srv)
	}
	return servers, nil
}

func hostPort(host string, port int) string {
	if host == "" {
		host = "0.0.0.0"
	}
	return host + ":" + strconv.Itoa(port)
}
