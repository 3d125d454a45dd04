package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// constraintFields names the ledger column each schema constraint guards.
var constraintFields = map[string]string{
	"chk_inventory_records_stock":            "stock",
	"chk_inventory_records_reserved":         "reserved_stock",
	"chk_inventory_records_threshold":        "low_stock_threshold",
	"chk_inventory_records_reorder_point":    "reorder_point",
	"chk_inventory_records_reorder_quantity": "reorder_quantity",
	"ux_inventory_records_key":               "record_key",
	"ux_inventory_records_tuple":             "record_key",
	"chk_audit_quantity":                     "quantity",
	"chk_audit_reason":                       "reason",
	"chk_audit_snapshot":                     "stock_after",
	"ux_audit_record_version":                "record_version",
}

// ErrorDump flattens an error chain for structured logs.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Retryable  bool     `json:"retryable,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`

	// LedgerField is set when the violated constraint maps to a known column.
	LedgerField string `json:"ledger_field,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Retryable = te.Retryable()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if d.fillPostgres(err) {
		d.LedgerField = constraintFields[d.PGConstraint]
	}
	return d
}

// fillPostgres copies driver details from either pgx or lib/pq errors.
func (d *ErrorDump) fillPostgres(err error) bool {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode, d.PGConstraint = pgxErr.Code, pgxErr.ConstraintName
		d.PGTable, d.PGColumn = pgxErr.TableName, pgxErr.ColumnName
		d.PGDetail, d.PGMessage = pgxErr.Detail, pgxErr.Message
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PGCode, d.PGConstraint = string(pqErr.Code), pqErr.Constraint
		d.PGTable, d.PGColumn = pqErr.Table, pqErr.Column
		d.PGDetail, d.PGMessage = pqErr.Detail, pqErr.Message
		return true
	}
	return false
}

// Fields returns the non-empty parts of the dump as log fields.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	if d.Code != "" {
		fields["error_code"] = string(d.Code)
	}
	if len(d.Chain) > 1 {
		fields["error_chain"] = d.Chain
	}
	for key, value := range map[string]string{
		"pg_code":       d.PGCode,
		"pg_constraint": d.PGConstraint,
		"pg_table":      d.PGTable,
		"pg_column":     d.PGColumn,
		"pg_detail":     d.PGDetail,
		"pg_message":    d.PGMessage,
		"ledger_field":  d.LedgerField,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
