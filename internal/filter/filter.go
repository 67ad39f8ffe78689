// Package filter translates AIP-160 filter expressions into SurrealQL WHERE
// clauses with bound parameters.
package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// ErrInvalidFilter wraps every parse or translation failure
var ErrInvalidFilter = errors.New("invalid filter")

// Kind is the value type of a filterable field
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindTimestamp
	// KindRecord is a string id compared against a record link
	KindRecord
)

// Field maps a public filter name onto a stored column
type Field struct {
	Name   string
	Column string
	Kind   Kind
}

// Schema is the set of fields a list endpoint accepts
type Schema struct {
	fields map[string]Field
	decls  *filtering.Declarations
}

// NewSchema declares the filterable fields for one table
func NewSchema(fields ...Field) (*Schema, error) {
	opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		opts = append(opts, filtering.DeclareIdent(f.Name, declType(f.Kind)))
		byName[f.Name] = f
	}

	decls, err := filtering.NewDeclarations(opts...)
	if err != nil {
		return nil, fmt.Errorf("create declarations: %w", err)
	}
	return &Schema{fields: byName, decls: decls}, nil
}

// MustSchema is NewSchema for package-level schemas
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func declType(k Kind) *expr.Type {
	switch k {
	case KindInt:
		return filtering.TypeInt
	case KindBool:
		return filtering.TypeBool
	case KindTimestamp:
		return filtering.TypeTimestamp
	default:
		return filtering.TypeString
	}
}

// Condition is a WHERE clause fragment with its named parameters
type Condition struct {
	Clause string
	Vars   map[string]interface{}
}

// IsEmpty reports whether the filter matched nothing to translate
func (c Condition) IsEmpty() bool {
	return c.Clause == ""
}

// And joins the condition onto an existing clause
func (c Condition) And(clause string) string {
	if c.IsEmpty() {
		return clause
	}
	if clause == "" {
		return c.Clause
	}
	return clause + " AND " + c.Clause
}

// Parse translates a filter string. An empty string yields an empty condition.
func (s *Schema) Parse(filterStr string) (Condition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return Condition{}, nil
	}

	parsed, err := filtering.ParseFilterString(filterStr, s.decls)
	if err != nil {
		return Condition{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	t := &translator{schema: s, vars: make(map[string]interface{})}
	clause, err := t.expr(parsed.CheckedExpr.GetExpr())
	if err != nil {
		return Condition{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return Condition{Clause: clause, Vars: t.vars}, nil
}

type translator struct {
	schema *Schema
	vars   map[string]interface{}
	n      int
}

func (t *translator) bind(v interface{}) string {
	t.n++
	name := fmt.Sprintf("f%d", t.n)
	t.vars[name] = v
	return "$" + name
}

func (t *translator) expr(e *expr.Expr) (string, error) {
	if e == nil {
		return "", nil
	}
	call, ok := e.GetExprKind().(*expr.Expr_CallExpr)
	if !ok {
		return "", fmt.Errorf("unsupported expression type: %T", e.GetExprKind())
	}
	return t.call(call.CallExpr)
}

func (t *translator) call(c *expr.Expr_Call) (string, error) {
	switch c.GetFunction() {
	case "AND", "_&&_":
		return t.join(c.GetArgs(), "AND")
	case "OR", "_||_":
		return t.join(c.GetArgs(), "OR")
	case "NOT", "!_":
		if len(c.GetArgs()) != 1 {
			return "", errors.New("NOT requires 1 argument")
		}
		inner, err := t.expr(c.GetArgs()[0])
		if err != nil {
			return "", err
		}
		return "!(" + inner + ")", nil
	case "=", "_==_":
		return t.compare(c.GetArgs(), "=")
	case "!=", "_!=_":
		return t.compare(c.GetArgs(), "!=")
	case "<", "_<_":
		return t.compare(c.GetArgs(), "<")
	case "<=", "_<=_":
		return t.compare(c.GetArgs(), "<=")
	case ">", "_>_":
		return t.compare(c.GetArgs(), ">")
	case ">=", "_>=_":
		return t.compare(c.GetArgs(), ">=")
	case ":":
		return t.has(c.GetArgs())
	default:
		return "", fmt.Errorf("unsupported function: %s", c.GetFunction())
	}
}

func (t *translator) join(args []*expr.Expr, op string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("%s requires 2 arguments", op)
	}
	parts := make([]string, 0, len(args))
	for _, a := range args {
		p, err := t.expr(a)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")", nil
}

func (t *translator) compare(args []*expr.Expr, op string) (string, error) {
	if len(args) != 2 {
		return "", errors.New("comparison requires 2 arguments")
	}

	field, err := t.field(args[0])
	if err != nil {
		return "", err
	}

	value, err := constValue(args[1])
	if err != nil {
		return "", err
	}

	switch field.Kind {
	case KindTimestamp:
		ts, err := timestampValue(value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s <datetime>%s", field.Column, op, t.bind(ts)), nil
	case KindRecord:
		if op != "=" && op != "!=" {
			return "", fmt.Errorf("%s only supports = and !=", field.Name)
		}
		return fmt.Sprintf("%s %s type::record(%s)", field.Column, op, t.bind(value)), nil
	default:
		return fmt.Sprintf("%s %s %s", field.Column, op, t.bind(value)), nil
	}
}

// has implements the ':' operator as a case-insensitive substring match
func (t *translator) has(args []*expr.Expr) (string, error) {
	if len(args) != 2 {
		return "", errors.New("':' requires 2 arguments")
	}
	field, err := t.field(args[0])
	if err != nil {
		return "", err
	}
	if field.Kind != KindString {
		return "", fmt.Errorf("':' is only supported on text fields, not %s", field.Name)
	}
	value, err := constValue(args[1])
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("':' requires a string value")
	}
	return fmt.Sprintf("string::contains(string::lowercase(%s), %s)", field.Column, t.bind(strings.ToLower(s))), nil
}

func (t *translator) field(e *expr.Expr) (Field, error) {
	ident, ok := e.GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return Field{}, fmt.Errorf("expected field name, got %T", e.GetExprKind())
	}
	f, ok := t.schema.fields[ident.IdentExpr.GetName()]
	if !ok {
		return Field{}, fmt.Errorf("unknown field: %s", ident.IdentExpr.GetName())
	}
	return f, nil
}

func constValue(e *expr.Expr) (interface{}, error) {
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_ConstExpr:
		switch c := kind.ConstExpr.GetConstantKind().(type) {
		case *expr.Constant_StringValue:
			return c.StringValue, nil
		case *expr.Constant_Int64Value:
			return c.Int64Value, nil
		case *expr.Constant_Uint64Value:
			return c.Uint64Value, nil
		case *expr.Constant_DoubleValue:
			return c.DoubleValue, nil
		case *expr.Constant_BoolValue:
			return c.BoolValue, nil
		default:
			return nil, fmt.Errorf("unsupported constant type: %T", c)
		}
	case *expr.Expr_CallExpr:
		if kind.CallExpr.GetFunction() == "timestamp" && len(kind.CallExpr.GetArgs()) == 1 {
			return constValue(kind.CallExpr.GetArgs()[0])
		}
		return nil, fmt.Errorf("unsupported function in value position: %s", kind.CallExpr.GetFunction())
	default:
		return nil, fmt.Errorf("expected constant, got %T", kind)
	}
}

func timestampValue(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("timestamp value must be a string")
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return "", fmt.Errorf("invalid timestamp format: %s", s)
	}
	return ts.UTC().Format(time.RFC3339Nano), nil
}
