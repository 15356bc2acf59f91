// Package engine executes all vault ledger operations. Each operation is a
// single-threaded unit of work: authorize, validate, stage mutations on
// cloned records, then commit everything at once. Any failure before commit
// leaves the ledger and the custody environment byte-identical, including
// rolling back funds an external venue call has already moved.
package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vaultledger/internal/custody"
	"vaultledger/internal/event"
	"vaultledger/internal/ledger"
	"vaultledger/internal/observability"
	"vaultledger/internal/venue"
)

// Fixed internal conversion rates. Illustrative placeholders, not market
// derived; the two directions are intentionally not exact inverses of each
// other and round-tripping does not preserve value.
const (
	BaseToQuoteRate  = 40_000_000
	BaseToQuoteScale = 1_000_000
	QuoteToBaseRate  = 25_000_000
	QuoteToBaseScale = 1_000_000_000
)

// Sink receives the record of every committed operation. Wired to the
// persistence worker and the outbound publisher; never consulted for the
// operation outcome.
type Sink interface {
	Record(op event.Operation)
}

// Engine is the single-writer operation executor over the ledger book and
// the custody environment.
type Engine struct {
	mu    sync.Mutex
	book  *ledger.Book
	env   custody.Env
	venue venue.Venue

	log     zerolog.Logger
	metrics *observability.Metrics
	sink    Sink

	now     func() time.Time
	newOpID func() uuid.UUID
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink attaches a committed-operation sink.
func WithSink(s Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the timestamp source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(env custody.Env, v venue.Venue, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		book:    ledger.NewBook(),
		env:     env,
		venue:   v,
		log:     log,
		now:     time.Now,
		newOpID: uuid.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Book exposes the ledger book for read-side services. Callers must not
// mutate through it.
func (e *Engine) Book() *ledger.Book {
	return e.book
}

// finish records per-operation metrics and logs, and forwards the committed
// record to the sink. Called at the end of every operation, success or not.
func (e *Engine) finish(op *event.Operation, start time.Time, err error) error {
	name := op.Type.String()

	if e.metrics != nil {
		e.metrics.OpDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if err != nil {
			e.metrics.OpsRejected.WithLabelValues(name, rejectReason(err)).Inc()
		} else {
			e.metrics.OpsApplied.WithLabelValues(name).Inc()
		}
	}

	if err != nil {
		e.log.Warn().
			Str("op", name).
			Str("op_id", op.OpID.String()).
			Str("user", op.User.String()).
			Err(err).
			Msg("operation rejected")
		return err
	}

	e.log.Info().
		Str("op", name).
		Str("op_id", op.OpID.String()).
		Str("user", op.User.String()).
		Uint64("amount_in", op.AmountIn).
		Uint64("amount_out", op.AmountOut).
		Msg("operation applied")

	if e.sink != nil {
		e.sink.Record(*op)
	}
	e.updateGauges()
	return nil
}

// updateGauges refreshes the aggregate gauges after a commit.
func (e *Engine) updateGauges() {
	if e.metrics == nil {
		return
	}
	if v, err := e.book.Vault(); err == nil {
		e.metrics.VaultTotalDeposits.Set(float64(v.TotalDeposits))
	}
	e.metrics.CustodyNativeFunds.Set(float64(e.env.NativeBalance()))
	if tc, err := e.book.TokenCustody(); err == nil {
		e.metrics.CustodyWrappedFunds.Set(float64(tc.TotalWrapped))
		e.metrics.CustodyQuoteFunds.Set(float64(tc.TotalQuote))
	}
	if s, err := e.book.SwapStats(); err == nil {
		e.metrics.SwapCount.Set(float64(s.SwapCount))
		e.metrics.LastSwapPrice.Set(float64(s.LastSwapPrice))
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ledger.ErrInsufficientWrappedBalance):
		return "insufficient_wrapped"
	case errors.Is(err, ledger.ErrInsufficientQuoteBalance):
		return "insufficient_quote"
	case errors.Is(err, ledger.ErrInsufficientCustodyFunds):
		return "insufficient_custody"
	case errors.Is(err, ledger.ErrArithmeticOverflow):
		return "overflow"
	case errors.Is(err, ledger.ErrSlippageExceeded):
		return "slippage"
	case errors.Is(err, ledger.ErrInvalidConfiguration):
		return "invalid_config"
	case errors.Is(err, ledger.ErrExternalCallFailed):
		return "venue_failed"
	case errors.Is(err, ledger.ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, ledger.ErrAlreadyInitialized):
		return "already_initialized"
	default:
		return "internal"
	}
}

// newOp builds the skeleton record for one operation attempt.
func (e *Engine) newOp(t event.OpType, user, actor ledger.Address, onBehalf bool) *event.Operation {
	return &event.Operation{
		OpID:      e.newOpID(),
		Type:      t,
		User:      user,
		Actor:     actor,
		OnBehalf:  onBehalf,
		Timestamp: e.now(),
	}
}
