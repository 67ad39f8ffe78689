package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TxBuilder assembles a single BEGIN/COMMIT block. Statements share one
// variable namespace so later statements can refer to LET bindings and
// parameters bound by earlier ones.
//
// Guards abort the whole transaction with a THROW when their condition holds;
// ExecuteTransaction reports that as a *GuardError carrying the reason.
//
//	tb := NewTxBuilder()
//	tb.Bind("shift", shiftID)
//	tb.Let("s", "(SELECT * FROM ONLY type::record($shift))")
//	tb.Guard("$s.slots_filled >= $s.slots_available", "shift_full")
//	tb.Add("UPDATE type::record($shift) SET slots_filled += 1")
//	_, err := ExecuteTransaction(ctx, db, tb)
type TxBuilder struct {
	statements []string
	vars       map[string]interface{}
	guards     []string
}

// GuardError is returned when a guard aborted the transaction
type GuardError struct {
	Reason string
}

func (e *GuardError) Error() string {
	return "transaction aborted: " + e.Reason
}

// Unwrap lets callers match guard failures with errors.Is(err, ErrCapacity)
func (e *GuardError) Unwrap() error {
	return ErrCapacity
}

// NewTxBuilder creates a new transaction builder
func NewTxBuilder() *TxBuilder {
	return &TxBuilder{
		vars: make(map[string]interface{}),
	}
}

// Bind sets a query parameter visible to every statement
func (tb *TxBuilder) Bind(name string, value interface{}) *TxBuilder {
	tb.vars[name] = value
	return tb
}

// Let binds the result of an expression to $name inside the transaction
func (tb *TxBuilder) Let(name, expr string) *TxBuilder {
	tb.statements = append(tb.statements, fmt.Sprintf("LET $%s = %s", name, expr))
	return tb
}

// Guard aborts the transaction with reason when condition is true
func (tb *TxBuilder) Guard(condition, reason string) *TxBuilder {
	tb.guards = append(tb.guards, reason)
	tb.statements = append(tb.statements, fmt.Sprintf("IF %s { THROW %q }", condition, reason))
	return tb
}

// Add appends a statement
func (tb *TxBuilder) Add(statement string) *TxBuilder {
	tb.statements = append(tb.statements, statement)
	return tb
}

// Len returns the number of statements added so far
func (tb *TxBuilder) Len() int {
	return len(tb.statements)
}

// Build returns the complete transaction query and variables
func (tb *TxBuilder) Build() (string, map[string]interface{}) {
	if len(tb.statements) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("BEGIN TRANSACTION;\n")
	for _, stmt := range tb.statements {
		sb.WriteString(stmt)
		if !strings.HasSuffix(strings.TrimSpace(stmt), ";") {
			sb.WriteString(";")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("COMMIT TRANSACTION;")

	return sb.String(), tb.vars
}

// ExecuteTransaction runs the transaction and returns one result per statement.
// A thrown guard becomes a *GuardError.
func ExecuteTransaction(ctx context.Context, db Querier, tb *TxBuilder) ([]interface{}, error) {
	query, vars := tb.Build()
	if query == "" {
		return nil, nil
	}

	results, err := db.Query(ctx, query, vars)
	if err != nil {
		if reason, ok := tb.matchGuard(err); ok {
			return nil, &GuardError{Reason: reason}
		}
		return nil, err
	}
	return results, nil
}

func (tb *TxBuilder) matchGuard(err error) (string, bool) {
	if !errors.Is(err, ErrQuery) {
		return "", false
	}
	msg := err.Error()
	for _, reason := range tb.guards {
		if strings.Contains(msg, reason) {
			return reason, true
		}
	}
	return "", false
}
