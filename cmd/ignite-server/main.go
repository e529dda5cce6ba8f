// Command ignite-server runs the ignitedb TCP server: open the embedded
// engine, bind a listener, and serve requests until interrupted (spec.md
// §6.4). Argument parsing lives here only — everything else is delegated
// to pkg/ignite and internal/server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iamNilotpal/ignitedb/internal/pool"
	"github.com/iamNilotpal/ignitedb/internal/server"
	"github.com/iamNilotpal/ignitedb/pkg/ignite"
	"github.com/iamNilotpal/ignitedb/pkg/logger"
	"github.com/iamNilotpal/ignitedb/pkg/options"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:4000", "listen address")
	dataDir := flag.String("data-dir", ".", "directory holding segment/bolt files")
	engineKind := flag.String("engine", "", "engine kind: kvs or sled (default: auto-detect)")
	threadPool := flag.String("thread-pool", options.DefaultThreadPoolKind, "thread pool kind: naive or better")
	flag.Parse()

	log := logger.New("ignite-server")

	inst, err := ignite.NewInstance(
		context.Background(), "ignite-server",
		options.WithDataDir(*dataDir),
		options.WithEngineKind(*engineKind),
		options.WithThreadPoolKind(*threadPool),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignite-server: %v\n", err)
		os.Exit(1)
	}
	defer inst.Close(context.Background())

	srvPool, err := pool.New(*threadPool, options.DefaultThreadPoolSize, options.DefaultPoolQueueSize, log, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignite-server: %v\n", err)
		os.Exit(1)
	}
	defer srvPool.Close()

	srv, err := server.New(server.Config{
		Addr:         *addr,
		Engine:       inst.Engine(),
		Pool:         srvPool,
		Logger:       log,
		ReadTimeout:  options.DefaultReadTimeout,
		WriteTimeout: options.DefaultWriteTimeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignite-server: %v\n", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Infow("shutdown signal received")
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "ignite-server: %v\n", err)
		os.Exit(1)
	}
}
