// Package driver runs the build, submit and apply cycle against a single
// wallet's UTXO set.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Klingon-tech/txpump/internal/fault"
	"github.com/Klingon-tech/txpump/internal/journal"
	"github.com/Klingon-tech/txpump/internal/ledger"
	"github.com/Klingon-tech/txpump/internal/log"
	"github.com/Klingon-tech/txpump/internal/submit"
	"github.com/Klingon-tech/txpump/internal/utxo"
	"github.com/Klingon-tech/txpump/internal/wallet"
	"github.com/Klingon-tech/txpump/pkg/crypto"
	"github.com/Klingon-tech/txpump/pkg/types"
)

// Defaults for Config.
const (
	DefaultAmount     = 1_000_000
	DefaultRetryDelay = time.Second
	DefaultMaxRetries = 5
	DefaultIdleDelay  = 10 * time.Second
)

// Config holds the loop's tunables.
type Config struct {
	Amount     uint64        // lovelace paid to the destination per transaction
	RetryDelay time.Duration // fixed wait in RetryWait and between failed syncs
	MaxRetries int           // consecutive failures before a forced resync
	IdleDelay  time.Duration // wait before refreshing an empty set
	RateLimit  float64       // transactions per second, 0 for no limit
}

// DefaultConfig returns the default loop configuration.
func DefaultConfig() Config {
	return Config{
		Amount:     DefaultAmount,
		RetryDelay: DefaultRetryDelay,
		MaxRetries: DefaultMaxRetries,
		IdleDelay:  DefaultIdleDelay,
	}
}

// Builder builds a signed payment spending every input.
type Builder interface {
	Build(signer crypto.Signer, destination types.Address, amount uint64, change types.Address, inputs []types.Utxo) (*wallet.BuildResult, error)
}

// Deps are the driver's collaborators. Journal is optional.
type Deps struct {
	Source      ledger.Source
	Submitter   submit.Submitter
	Builder     Builder
	Journal     *journal.Journal
	Signer      crypto.Signer
	Address     types.Address // funding and change address
	Destination types.Address
}

// Stats are the driver's counters.
type Stats struct {
	State      string
	Submitted  uint64
	Failed     uint64
	Resyncs    uint64
	EmptyPolls uint64
	Failures   int // current consecutive-failure count
}

// cycle is the state carried between steps.
type cycle struct {
	failures int
	pending  *wallet.BuildResult
	synced   bool // a snapshot has been installed at least once
}

// Driver owns the UTXO set and runs the state machine. It is not safe to
// call Run more than once.
type Driver struct {
	cfg     Config
	deps    Deps
	utxos   *utxo.Manager
	fsm     *fsm.FSM
	limiter *rate.Limiter
	logger  zerolog.Logger

	submitted  atomic.Uint64
	failed     atomic.Uint64
	resyncs    atomic.Uint64
	emptyPolls atomic.Uint64
	failures   atomic.Int64
}

// New creates a driver in the Initializing state.
func New(cfg Config, deps Deps) (*Driver, error) {
	switch {
	case deps.Source == nil || deps.Submitter == nil || deps.Builder == nil || deps.Signer == nil:
		return nil, errors.New("driver: source, submitter, builder and signer are required")
	case deps.Address.IsZero() || deps.Destination.IsZero():
		return nil, errors.New("driver: address and destination are required")
	case cfg.Amount == 0:
		return nil, errors.New("driver: amount must be positive")
	case cfg.MaxRetries < 1:
		return nil, errors.New("driver: max retries must be at least 1")
	case cfg.RetryDelay < 0 || cfg.IdleDelay < 0 || cfg.RateLimit < 0:
		return nil, errors.New("driver: delays and rate limit must not be negative")
	}

	d := &Driver{
		cfg:    cfg,
		deps:   deps,
		utxos:  utxo.NewManager(),
		fsm:    newStateMachine(),
		logger: log.Driver.With().Str("address", deps.Address.String()).Logger(),
	}
	if cfg.RateLimit > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return d, nil
}

// State returns the current state name.
func (d *Driver) State() string {
	return d.fsm.Current()
}

// Stats returns a snapshot of the driver's counters.
func (d *Driver) Stats() Stats {
	return Stats{
		State:      d.fsm.Current(),
		Submitted:  d.submitted.Load(),
		Failed:     d.failed.Load(),
		Resyncs:    d.resyncs.Load(),
		EmptyPolls: d.emptyPolls.Load(),
		Failures:   int(d.failures.Load()),
	}
}

// UTXOs returns the driver's current set.
func (d *Driver) UTXOs() *utxo.Set {
	return d.utxos.Current()
}

// Run drives the loop until ctx is cancelled or a fatal error occurs. It
// returns ctx.Err() on cancellation and a ConnectionError when the first
// snapshot cannot be fetched.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.fire(evDerived); err != nil {
		return err
	}
	d.logger.Info().
		Str("destination", d.deps.Destination.String()).
		Uint64("amount", d.cfg.Amount).
		Msg("Driver started")

	var c cycle
	for {
		state := d.fsm.Current()
		// A reached Applying always completes so the set is never left
		// half-updated.
		if state != StateApplying {
			if err := ctx.Err(); err != nil {
				d.logger.Info().Str("state", state).Msg("Driver stopped")
				return err
			}
		}

		var err error
		switch state {
		case StateSyncing:
			c, err = d.sync(ctx, c)
		case StateReady:
			c, err = d.ready(ctx, c)
		case StateBuilding:
			c, err = d.build(c)
		case StateSubmitting:
			c, err = d.submit(ctx, c)
		case StateApplying:
			c, err = d.apply(c)
		case StateRetryWait:
			c, err = d.retryWait(ctx, c)
		case StateForcedResync:
			c, err = d.forcedResync(c)
		default:
			err = fmt.Errorf("driver: unexpected state %q", state)
		}
		d.failures.Store(int64(c.failures))
		if err != nil {
			return err
		}
	}
}

func (d *Driver) fire(event string) error {
	// Transitions are synchronous and never cancelled.
	if err := d.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("driver: event %s in state %s: %w", event, d.fsm.Current(), err)
	}
	return nil
}

// sync installs a fresh snapshot. Only the first one is required to
// succeed; later failures are retried after RetryDelay.
func (d *Driver) sync(ctx context.Context, c cycle) (cycle, error) {
	done := log.Benchmark(d.logger, "sync")
	set, err := d.deps.Source.Snapshot(ctx, d.deps.Address)
	done()
	if err != nil {
		if ctx.Err() != nil {
			return c, ctx.Err()
		}
		if !c.synced {
			return c, fault.New(fault.ConnectionError, "initial sync", err)
		}
		d.logFault(err, "Ledger sync failed, retrying")
		return c, sleep(ctx, d.cfg.RetryDelay)
	}

	d.utxos.Replace(set)
	c.synced = true
	c.pending = nil
	d.reconcile(set)

	total, _ := set.TotalLovelace()
	d.logger.Info().
		Int("utxos", set.Len()).
		Uint64("lovelace", total).
		Str("commitment", utxo.Commitment(set).String()).
		Msg("UTXO set synced")
	return c, d.fire(evSynced)
}

// reconcile reports which journaled transactions the snapshot has seen,
// then clears the journal.
func (d *Driver) reconcile(set *utxo.Set) {
	j := d.deps.Journal
	if j == nil {
		return
	}
	rep, err := j.Reconcile(set)
	if err != nil {
		log.Journal.Error().Err(err).Msg("Journal reconcile failed")
	} else if len(rep.Confirmed)+len(rep.Pending) > 0 {
		log.Journal.Info().
			Int("confirmed", len(rep.Confirmed)).
			Int("pending", len(rep.Pending)).
			Str("commitment", rep.Commitment.String()).
			Msg("Journal reconciled")
		for _, e := range rep.Pending {
			log.Journal.Warn().
				Str("tx", e.Hash.String()).
				Uint64("seq", e.Seq).
				Msg("Accepted transaction not reflected in ledger view")
		}
	}
	if err := j.Reset(); err != nil {
		log.Journal.Error().Err(err).Msg("Journal reset failed")
	}
}

// ready waits for funds and for the rate limiter, then starts a build.
func (d *Driver) ready(ctx context.Context, c cycle) (cycle, error) {
	if d.utxos.Current().IsEmpty() {
		d.emptyPolls.Add(1)
		d.logFault(fault.Newf(fault.EmptyFundsError, "ready", "no spendable outputs"), "Waiting for funds")
		if err := sleep(ctx, d.cfg.IdleDelay); err != nil {
			return c, err
		}
		set, err := d.deps.Source.Snapshot(ctx, d.deps.Address)
		if err != nil {
			if ctx.Err() != nil {
				return c, ctx.Err()
			}
			d.logFault(err, "Funds refresh failed")
			return c, nil
		}
		d.utxos.Replace(set)
		return c, nil
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return c, ctx.Err()
			}
			return c, fmt.Errorf("driver: rate limiter: %w", err)
		}
	}
	return c, d.fire(evBuild)
}

func (d *Driver) build(c cycle) (cycle, error) {
	inputs := d.utxos.Current().Items()
	res, err := d.deps.Builder.Build(d.deps.Signer, d.deps.Destination, d.cfg.Amount, d.deps.Address, inputs)
	if err != nil {
		if fault.KindOf(err) == fault.Unknown {
			err = fault.New(fault.BuildError, "build", err)
		}
		d.failed.Add(1)
		d.logFault(err, "Build failed")
		return c, d.fire(evFail)
	}

	c.pending = res
	d.logger.Debug().
		Str("tx", res.Hash.String()).
		Int("inputs", len(res.Consumed)).
		Uint64("fee", res.Fee).
		Int("size", len(res.Bytes)).
		Msg("Transaction built")
	return c, d.fire(evBuilt)
}

func (d *Driver) submit(ctx context.Context, c cycle) (cycle, error) {
	res := c.pending
	echoed, err := d.deps.Submitter.Submit(ctx, res.Bytes)
	if err != nil {
		// Cancelled mid-flight: nothing is applied.
		if ctx.Err() != nil {
			return c, ctx.Err()
		}
		if fault.KindOf(err) == fault.Unknown {
			err = fault.New(fault.SubmissionError, "submit", err)
		}
		err = withTx(err, res.Hash)
		d.failed.Add(1)
		d.logFault(err, "Submission failed")
		c.pending = nil
		return c, d.fire(evFail)
	}

	if !echoed.IsZero() && echoed != res.Hash {
		d.logger.Warn().
			Str("tx", res.Hash.String()).
			Str("echoed", echoed.String()).
			Msg("Submit endpoint returned a different transaction id")
	}
	d.submitted.Add(1)
	return c, d.fire(evAccepted)
}

func (d *Driver) apply(c cycle) (cycle, error) {
	res := c.pending
	c.pending = nil
	if res == nil {
		return c, fmt.Errorf("driver: applying without a built transaction")
	}

	set, err := d.utxos.Apply(res.ConsumedIDs(), res.Produced)
	if err != nil {
		d.logFault(withTx(err, res.Hash), "Local set disagrees with accepted transaction")
		return c, d.fire(evEscalate)
	}
	c.failures = 0

	if j := d.deps.Journal; j != nil {
		_, err := j.Record(journal.Entry{
			Hash:     res.Hash,
			Fee:      res.Fee,
			Consumed: res.ConsumedIDs(),
			Produced: producedIDs(res.Produced),
		})
		if err != nil {
			log.Journal.Error().Err(err).Str("tx", res.Hash.String()).Msg("Journal record failed")
		}
	}

	total, _ := set.TotalLovelace()
	d.logger.Info().
		Str("tx", res.Hash.String()).
		Uint64("fee", res.Fee).
		Int("inputs", len(res.Consumed)).
		Int("utxos", set.Len()).
		Uint64("lovelace", total).
		Msg("Transaction accepted")
	return c, d.fire(evApplied)
}

func (d *Driver) retryWait(ctx context.Context, c cycle) (cycle, error) {
	if err := sleep(ctx, d.cfg.RetryDelay); err != nil {
		return c, err
	}
	c.failures++
	if c.failures < d.cfg.MaxRetries {
		d.logger.Debug().Int("failures", c.failures).Msg("Retrying build")
		return c, d.fire(evRetry)
	}
	d.logger.Warn().Int("failures", c.failures).Msg("Too many consecutive failures, forcing resync")
	c.failures = 0
	return c, d.fire(evEscalate)
}

func (d *Driver) forcedResync(c cycle) (cycle, error) {
	d.resyncs.Add(1)
	c.pending = nil
	d.logger.Info().
		Str("commitment", utxo.Commitment(d.utxos.Current()).String()).
		Msg("Forced resync, discarding local set")
	return c, d.fire(evResync)
}

// logFault logs err with its kind and transaction hash.
func (d *Driver) logFault(err error, msg string) {
	ev := d.logger.Warn()
	if k := fault.KindOf(err); k == fault.ConsistencyError || k == fault.Unknown {
		ev = d.logger.Error()
	}
	ev = ev.Err(err).Str("kind", fault.KindOf(err).String()).Str("state", d.fsm.Current())
	if h := fault.TxHashOf(err); !h.IsZero() {
		ev = ev.Str("tx", h.String())
	}
	ev.Msg(msg)
}

// withTx tags the first fault.Error in err's chain with h unless it already
// carries a hash.
func withTx(err error, h types.Hash) error {
	var fe *fault.Error
	if errors.As(err, &fe) && fe.TxHash.IsZero() {
		return fe.WithTx(h)
	}
	return err
}

func producedIDs(us []types.Utxo) []types.UtxoID {
	ids := make([]types.UtxoID, len(us))
	for i, u := range us {
		ids[i] = u.ID
	}
	return ids
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
