// txpumpd submits a steady stream of payments from one wallet to a
// destination address, tracking its own UTxO set between ledger syncs.
//
// Usage:
//
//	txpumpd --network preprod --destination addr_test1...   Run
//	txpumpd --write-config txpump.conf                      Write a config template
//	txpumpd --help                                          Show help
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/txpump/config"
	klog "github.com/Klingon-tech/txpump/internal/log"
	"github.com/Klingon-tech/txpump/internal/node"
)

func main() {
	cfg, _, err := config.LoadOS()
	if errors.Is(err, config.ErrExit) {
		os.Exit(0)
	}
	if err != nil {
		fatal(err)
	}

	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal(fmt.Errorf("open log file: %w", err))
	}

	keys, err := node.LoadKeys(cfg, os.Stdin, os.Stderr)
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := node.New(ctx, cfg, keys)
	if err != nil {
		keys.Zero()
		fatal(err)
	}
	n.Start()

	select {
	case <-ctx.Done():
	case <-n.Done():
	}
	n.Stop()

	if err := n.Err(); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
