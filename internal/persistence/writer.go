package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// OperationLogWriter writes applied operation records to Postgres using
// multi-row INSERT. Writes are idempotent on op_id so a retried flush never
// duplicates rows.
type OperationLogWriter struct {
	db *sql.DB
}

// OperationRow represents a row in op_log.operations
type OperationRow struct {
	OpID      string
	OpType    string
	UserAddr  string
	ActorAddr string
	OnBehalf  bool
	AmountIn  int64
	AmountOut int64
	Balance   int64
	Timestamp time.Time
}

func NewOperationLogWriter(db *sql.DB) *OperationLogWriter {
	return &OperationLogWriter{db: db}
}

// WriteBatch writes a batch of operation rows inside the given transaction.
func (w *OperationLogWriter) WriteBatch(ctx context.Context, ops []OperationRow, tx *sql.Tx) error {
	if len(ops) == 0 {
		return nil
	}

	query := `INSERT INTO op_log.operations
		(op_id, op_type, user_addr, actor_addr, on_behalf, amount_in, amount_out, balance, timestamp)
		VALUES `

	values := make([]string, 0, len(ops))
	args := make([]interface{}, 0, len(ops)*9)

	for i, o := range ops {
		base := i * 9
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args,
			o.OpID, o.OpType, o.UserAddr, o.ActorAddr, o.OnBehalf,
			o.AmountIn, o.AmountOut, o.Balance, o.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (op_id) DO NOTHING" // Idempotent writes

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
