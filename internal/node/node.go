// Package node wires txpumpd's components together from a validated
// configuration and runs the driver until stopped.
package node

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/txpump/config"
	"github.com/Klingon-tech/txpump/internal/driver"
	"github.com/Klingon-tech/txpump/internal/journal"
	"github.com/Klingon-tech/txpump/internal/ledger"
	klog "github.com/Klingon-tech/txpump/internal/log"
	"github.com/Klingon-tech/txpump/internal/storage"
	"github.com/Klingon-tech/txpump/internal/submit"
	"github.com/Klingon-tech/txpump/internal/wallet"
	"github.com/Klingon-tech/txpump/pkg/types"
)

// Node owns the ledger connection, submit client, journal and driver.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	keys    *wallet.Keys
	ledger  *ledger.Client
	submit  *submit.Client
	db      storage.DB
	journal *journal.Journal
	driver  *driver.Driver

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
	err    error
}

// New connects to the node, checks its network, and builds the driver.
// It does not start the loop; call Start for that. A node that cannot be
// reached or reports a different network magic is a ConnectionError.
func New(ctx context.Context, cfg *config.Config, keys *wallet.Keys) (*Node, error) {
	logger := klog.WithComponent("node")

	logger.Info().
		Str("network", cfg.Network).
		Uint32("magic", cfg.NetworkMagic).
		Str("address", keys.Address().String()).
		Str("destination", cfg.DestinationAddr.String()).
		Uint64("amount", cfg.Driver.Amount).
		Msg("Starting txpump")

	// ── 1. Ledger ───────────────────────────────────────────────────
	lc, err := ledger.Dial(ctx, cfg.Node.URL, cfg.NetworkMagic, ledger.Options{
		Timeout:            cfg.Node.Timeout,
		InsecureSkipVerify: cfg.Node.InsecureTLS,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("url", cfg.Node.URL).Msg("Ledger connected")

	// ── 2. Protocol parameters ──────────────────────────────────────
	params := cfg.FeeParams()
	if cfg.Fee.FromLedger {
		params, err = lc.ProtocolParams(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch protocol parameters: %w", err)
		}
	}
	logger.Info().
		Uint64("min_fee_a", params.MinFeeA).
		Uint64("min_fee_b", params.MinFeeB).
		Uint64("coins_per_utxo_byte", params.CoinsPerUTxOByte).
		Bool("from_ledger", cfg.Fee.FromLedger).
		Msg("Fee parameters")

	// ── 3. Submit client ────────────────────────────────────────────
	sc := submit.New(cfg.Submit.URL, submit.Options{
		Timeout:            cfg.Submit.Timeout,
		InsecureSkipVerify: cfg.Submit.InsecureTLS,
	})

	// ── 4. Journal ──────────────────────────────────────────────────
	db, err := storage.NewBadgerInMemory()
	if err != nil {
		return nil, err
	}
	j, err := journal.New(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	// ── 5. Driver ───────────────────────────────────────────────────
	d, err := driver.New(driver.Config{
		Amount:     cfg.Driver.Amount,
		RetryDelay: cfg.Driver.RetryDelay,
		MaxRetries: cfg.Driver.MaxRetries,
		IdleDelay:  cfg.Driver.IdleDelay,
		RateLimit:  cfg.Driver.RateLimit,
	}, driver.Deps{
		Source:      lc,
		Submitter:   sc,
		Builder:     wallet.NewPaymentBuilder(params),
		Journal:     j,
		Signer:      keys.Signer(),
		Address:     keys.Address(),
		Destination: cfg.DestinationAddr,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	return &Node{
		cfg:     cfg,
		logger:  logger,
		keys:    keys,
		ledger:  lc,
		submit:  sc,
		db:      db,
		journal: j,
		driver:  d,
		ctx:     runCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, nil
}

// Start runs the driver in the background.
func (n *Node) Start() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer close(n.done)
		err := n.driver.Run(n.ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		n.err = err
		if err != nil {
			n.logger.Error().Err(err).Msg("Driver stopped with error")
		}
	}()
	n.logger.Info().Str("submit", n.submit.URL()).Msg("Driver started")
}

// Done is closed when the driver has returned.
func (n *Node) Done() <-chan struct{} {
	return n.done
}

// Err returns the driver's fatal error, if any. Valid after Done is closed.
func (n *Node) Err() error {
	return n.err
}

// Address returns the funding address.
func (n *Node) Address() types.Address {
	return n.keys.Address()
}

// Stats returns the driver's counters.
func (n *Node) Stats() driver.Stats {
	return n.driver.Stats()
}

// Stop cancels the driver, waits for it, and releases resources.
func (n *Node) Stop() {
	n.cancel()
	n.wg.Wait()

	stats := n.driver.Stats()
	ev := n.logger.Info().
		Uint64("submitted", stats.Submitted).
		Uint64("failed", stats.Failed).
		Uint64("resyncs", stats.Resyncs)
	if unconfirmed, err := n.journal.Len(); err == nil {
		ev = ev.Int("journaled", unconfirmed)
	}
	ev.Msg("Stopped")

	if err := n.db.Close(); err != nil {
		klog.Storage.Error().Err(err).Msg("Failed to close journal store")
	}
	n.keys.Zero()
}
