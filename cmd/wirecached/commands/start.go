package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/wirecache/internal/logger"
	"github.com/marmos91/wirecache/pkg/config"
	"github.com/marmos91/wirecache/pkg/metrics"
	"github.com/marmos91/wirecache/pkg/namespace"
	"github.com/marmos91/wirecache/pkg/protocol"
	"github.com/marmos91/wirecache/pkg/server"
	"github.com/marmos91/wirecache/pkg/snapshot"
	"github.com/marmos91/wirecache/pkg/wire"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the cache server",
	Long: `Start the cache server with the configured namespaces.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/wirecache/config.yaml.

Examples:
  # Start with the default configuration
  wirecached start

  # Start with a custom config file
  wirecached start --config /etc/wirecache/config.yaml

  # Start with environment variable overrides
  WIRECACHE_LOGGING_LEVEL=DEBUG wirecached start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(configFile)
	if err != nil {
		return err
	}

	if err := initLogger(cfg); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Snapshot engine, shared by every persistent namespace
	var snapshotters func(name string) snapshot.Snapshotter
	var badgerStore *snapshot.BadgerStore

	switch cfg.Snapshot.Engine {
	case "file":
		if err := os.MkdirAll(cfg.Snapshot.Dir, 0755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
		maxLoad := cfg.Snapshot.MaxLoadSize
		dir := cfg.Snapshot.Dir
		snapshotters = func(name string) snapshot.Snapshotter {
			s := snapshot.NewFileSnapshotter(filepath.Join(dir, name+".snap"))
			s.MaxLoadSize = maxLoad
			return s
		}
	case "badger":
		badgerStore, err = snapshot.OpenBadger(cfg.Snapshot.Dir)
		if err != nil {
			return err
		}
		defer badgerStore.Close()
		snapshotters = badgerStore.Snapshotter
	}

	srv := server.New(server.Config{
		BindAddress:     cfg.Server.BindAddress,
		Port:            cfg.Server.Port,
		MaxConnections:  cfg.Server.MaxConnections,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	srv.Metrics = metrics.NewServerMetrics()

	for _, nsCfg := range cfg.Namespaces {
		var snap snapshot.Snapshotter
		if nsCfg.Persist && snapshotters != nil {
			snap = snapshotters(nsCfg.Name)
		}

		ns, err := buildNamespace(ctx, nsCfg, snap)
		if err != nil {
			return err
		}
		if err := srv.Add(nsCfg.ID, ns); err != nil {
			return err
		}
		logger.Info("Namespace registered",
			"id", nsCfg.ID, "name", nsCfg.Name, "kind", nsCfg.Kind, "persist", nsCfg.Persist)
	}

	srv.ListenControl(ctx)

	// On SIGINT/SIGTERM: broadcast a save signal so persistent namespaces
	// snapshot, then shut the server down.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Signal received, shutting down", "signal", sig.String())
		srv.Registry().Hub().Publish(protocol.OpSave)
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenTCP(gctx)
	})

	if cfg.Metrics.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Metrics.BindAddress, cfg.Metrics.Port)
		g.Go(func() error {
			return metrics.Serve(gctx, addr)
		})
	}

	return g.Wait()
}

// buildNamespace instantiates the store matching the configured kind and
// restores its snapshot when persistence is enabled.
func buildNamespace(ctx context.Context, cfg config.NamespaceConfig, snap snapshot.Snapshotter) (namespace.Namespace, error) {
	switch cfg.Kind {
	case "u32:u32":
		return buildStore(ctx, cfg.Name, wire.Uint32Codec, wire.Uint32Codec, snap)
	case "u64:u64":
		return buildStore(ctx, cfg.Name, wire.Uint64Codec, wire.Uint64Codec, snap)
	case "u32:string":
		return buildStore(ctx, cfg.Name, wire.Uint32Codec, wire.StringCodec, snap)
	case "string:string":
		return buildStore(ctx, cfg.Name, wire.StringCodec, wire.StringCodec, snap)
	case "string:bytes":
		return buildStore(ctx, cfg.Name, wire.StringCodec, wire.BytesCodec, snap)
	default:
		return nil, fmt.Errorf("unknown namespace kind %q", cfg.Kind)
	}
}

// buildStore creates one typed store and loads its snapshot.
func buildStore[K comparable, V any](ctx context.Context, name string, keys wire.Codec[K], values wire.Codec[V], snap snapshot.Snapshotter) (namespace.Namespace, error) {
	var opts []namespace.StoreOption[K, V]
	if snap != nil {
		opts = append(opts, namespace.WithSnapshotter[K, V](snap))
	}

	store := namespace.NewStore(name, keys, values, opts...)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
