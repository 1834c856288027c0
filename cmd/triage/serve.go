package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/triage/pkg/server"
	"github.com/jamesainslie/triage/pkg/session"
	"github.com/jamesainslie/triage/pkg/session/store"
	"github.com/jamesainslie/triage/pkg/triage/config"
	"github.com/jamesainslie/triage/pkg/triage/logging"
	"github.com/jamesainslie/triage/pkg/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve [path]",
	Short: "Start the web interface",
	Long: `Start the triage web interface.

Each browser gets its own session, stored in the session database so a
restart picks up where it left off. With a path argument (or default_root
in the config) the printed URL opens that folder directly.

With --watch (or watch: true) open folders are rescanned automatically
when images are added or removed by other programs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

// serveFlags registers the server flags on cmd. The root command shares
// them because running triage without a subcommand serves.
func serveFlags(cmd *cobra.Command) {
	cmd.Flags().String("addr", "", "listen address (default "+config.DefaultAddr+")")
	cmd.Flags().Bool("watch", false, "rescan open folders when images change")
	cmd.Flags().Bool("memory", false, "keep sessions in memory only")
}

// bindServeFlags binds the invoked command's flags. Both commands share
// viper keys, so only the running command may bind them.
func bindServeFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("watch", cmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("memory", cmd.Flags().Lookup("memory"))
}

// runServe starts the web interface and blocks until interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	bindServeFlags(cmd)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, false); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()
	logger := logging.Get("server")

	root, err := resolveRoot(args, cfg)
	if err != nil {
		return err
	}

	if err := config.EnsureDataDir(); err != nil {
		return err
	}
	pidPath := config.DefaultPIDPath()
	storePath := cfg.Session.StorePath
	if storePath == "" {
		storePath = config.DefaultStorePath()
	}

	if err := server.RecoverFromStale(pidPath, storePath); err != nil {
		if errors.Is(err, server.ErrAlreadyRunning) {
			return fmt.Errorf("another triage server is running (see %s)", pidPath)
		}
		return err
	}
	if err := server.WritePIDFile(pidPath); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer func() { _ = server.RemovePIDFile(pidPath) }()

	var st *store.Store
	if !viper.GetBool("memory") {
		st, err = store.Open(storePath, store.WithTTL(cfg.Session.TTL))
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer func() { _ = st.Close() }()

		if n, err := st.PurgeOlderThan(cfg.Session.TTL); err != nil {
			logger.Warn("purging expired sessions failed", "error", err)
		} else if n > 0 {
			logger.Info("purged expired sessions", "count", n)
		}
	}

	opts, err := workspaceOptions(cfg)
	if err != nil {
		return err
	}
	registry := session.NewRegistry(st, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var onRoots func([]string)
	if cfg.Watch {
		w, err := watcher.New(cfg.Extensions, 0)
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer func() { _ = w.Close() }()

		onRoots = w.Sync
		go w.Run(ctx, func(root string) {
			if n := registry.ReconcileRoot(root); n > 0 {
				logger.Debug("reconciled sessions", "root", root, "sessions", n)
			}
		})
	}

	srv, err := server.New(server.Options{
		Addr:           cfg.Addr,
		Registry:       registry,
		Secret:         cfg.Session.Secret,
		CookieName:     cfg.Session.Cookie,
		DefaultRoot:    cfg.DefaultRoot,
		Extensions:     cfg.Extensions,
		OnRootsChanged: onRoots,
	})
	if err != nil {
		return err
	}

	printInfo("triage listening on %s", serverURL(cfg.Addr, root))
	if viper.GetBool("dry_run") {
		printInfo("Dry run: no files will be moved.")
	}
	return srv.Run(ctx)
}

// serverURL is the URL to open in a browser, pointing at root if set.
func serverURL(addr, root string) string {
	u := url.URL{Scheme: "http", Host: addr, Path: "/"}
	if root != "" {
		u.RawQuery = url.Values{"path": {root}}.Encode()
	}
	return u.String()
}
