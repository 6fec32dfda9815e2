package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/btc2/ledgerchain/app/services/node/handlers"
	"github.com/btc2/ledgerchain/foundation/blockchain/genesis"
	"github.com/btc2/ledgerchain/foundation/blockchain/ledger"
	"github.com/btc2/ledgerchain/foundation/blockchain/migration"
	"github.com/btc2/ledgerchain/foundation/blockchain/storage/sqldb"
	"github.com/btc2/ledgerchain/foundation/blockchain/utxo"
	"github.com/btc2/ledgerchain/foundation/blockchain/worker"
	"github.com/btc2/ledgerchain/foundation/events"
	"github.com/btc2/ledgerchain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.NewWithFile("NODE", os.Getenv("NODE_LOG_FILE"))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8545"`
		}
		DB struct {
			Driver       string `conf:"default:sqlite3"`
			URL          string `conf:"default:file:zblock/ledger.db,mask"`
			MaxIdleConns int    `conf:"default:2"`
			MaxOpenConns int    `conf:"default:0"`
		}
		Legacy struct {
			UTXOPath string `conf:"default:zblock/utxo.db"`
		}
		Ledger struct {
			GenesisPath    string        `conf:"default:zblock/genesis.json"`
			BlockInterval  time.Duration `conf:"default:1s"`
			AllowOverdraft bool          `conf:"default:true"`
		}
		Log struct {
			File string `conf:"help:rotating log file written next to stdout"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Genesis Support

	gen, err := genesis.Load(cfg.Ledger.GenesisPath)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	log.Infow("startup", "status", "genesis loaded", "date", gen.Date, "chainid", gen.ChainID, "lastlegacyblock", gen.LastLegacyBlockNumber)

	// =========================================================================
	// Database Support

	log.Infow("startup", "status", "initializing database support", "driver", cfg.DB.Driver)

	db, err := sqldb.Open(sqldb.Config{
		Driver:       cfg.DB.Driver,
		URL:          cfg.DB.URL,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		MaxOpenConns: cfg.DB.MaxOpenConns,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Infow("shutdown", "status", "stopping database support", "driver", cfg.DB.Driver)
		db.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.StatusCheck(ctx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	// =========================================================================
	// Legacy Output Set Support

	log.Infow("startup", "status", "opening legacy output set", "path", cfg.Legacy.UTXOPath)

	outputs, err := utxo.OpenBoltStore(cfg.Legacy.UTXOPath)
	if err != nil {
		return fmt.Errorf("opening legacy output set: %w", err)
	}
	defer outputs.Close()

	count, err := outputs.Count()
	if err != nil {
		return fmt.Errorf("counting legacy outputs: %w", err)
	}
	log.Infow("startup", "status", "legacy output set ready", "outputs", count)

	// =========================================================================
	// Blockchain Support

	// The blockchain packages accept a function of this signature to allow the
	// application to log. For now, these raw messages are sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)

		// Ticks without transactions happen every interval.
		if strings.HasPrefix(s, worker.IdlePrefix) {
			log.Debugw(s, "traceid", "00000000-0000-0000-0000-000000000000")
			return
		}

		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	if cfg.Ledger.AllowOverdraft {
		log.Warnw("startup", "status", "overdraft allowed: account balances may go negative")
	}

	ldgr, err := ledger.New(ledger.Config{
		Storage:        db,
		Claims:         migration.NewDecoder(utxo.NewValidator(outputs), gen.MigrationChainID),
		Genesis:        gen,
		AllowOverdraft: cfg.Ledger.AllowOverdraft,
		EvHandler:      ev,
	})
	if err != nil {
		return err
	}

	applied, err := ldgr.ApplyGenesis(ctx)
	if err != nil {
		return fmt.Errorf("applying genesis balances: %w", err)
	}
	log.Infow("startup", "status", "genesis balances", "applied", applied)

	// The worker seals the committed transactions into blocks.
	wrk := worker.Run(ldgr, cfg.Ledger.BlockInterval, ev)
	defer wrk.Shutdown()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, ldgr)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Ledger:   ldgr,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
