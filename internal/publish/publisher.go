package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"vaultledger/internal/event"
	"vaultledger/internal/observability"
)

// Publisher publishes applied operations to NATS for downstream consumers.
// Subjects follow the pattern: vault.ledger.ops.{op_type}
type Publisher struct {
	js      jetstream.JetStream
	input   <-chan event.Operation
	log     zerolog.Logger
	metrics *observability.Metrics
}

func NewPublisher(js jetstream.JetStream, input <-chan event.Operation, metrics *observability.Metrics) *Publisher {
	return &Publisher{
		js:      js,
		input:   input,
		log:     observability.NewLogger("publish"),
		metrics: metrics,
	}
}

// Run drains the input channel until it is closed or the context is
// cancelled. Publish failures are logged and counted but never fatal:
// consumers can always recover from the operation log directly.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case op, ok := <-p.input:
			if !ok {
				return nil
			}

			if err := p.publish(ctx, op); err != nil {
				p.log.Warn().
					Err(err).
					Str("op_id", op.OpID.String()).
					Str("op_type", op.Type.String()).
					Msg("outbound publish failed")
				if p.metrics != nil {
					p.metrics.PublishFailures.Inc()
				}
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, op event.Operation) error {
	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("marshal operation: %w", err)
	}

	subject := fmt.Sprintf("vault.ledger.ops.%s", subjectToken(op.Type))
	_, err = p.js.Publish(ctx, subject, data)
	return err
}

// subjectToken lowercases the operation type for use as a subject segment.
func subjectToken(t event.OpType) string {
	return strings.ToLower(t.String())
}

// EnsureOutboundStream creates or updates the stream that retains
// published operations for downstream consumers.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "VAULT_LEDGER_OPS",
		Subjects:  []string{"vault.ledger.ops.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	return nil
}
