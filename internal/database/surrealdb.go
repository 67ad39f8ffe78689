package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName   = "github.com/forgo/shepherd/api/internal/database"
	maxSpanQuery = 256
)

// SurrealDB is the Database backed by a SurrealDB websocket connection.
// Every query is wrapped in a client span.
type SurrealDB struct {
	client *surrealdb.DB
	cfg    Config
	tracer trace.Tracer
}

func NewSurrealDB(cfg Config) *SurrealDB {
	return &SurrealDB{cfg: cfg, tracer: otel.Tracer(tracerName)}
}

// Connect dials, signs in as the configured root user and selects the
// namespace and database. A failure at any step closes the socket.
func (s *SurrealDB) Connect(ctx context.Context) error {
	client, err := surrealdb.FromEndpointURLString(ctx, s.cfg.Endpoint())
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrConnection, s.cfg.Endpoint(), err)
	}

	auth := &surrealdb.Auth{Username: s.cfg.User, Password: s.cfg.Password}
	if _, err = client.SignIn(ctx, auth); err == nil {
		err = client.Use(ctx, s.cfg.Namespace, s.cfg.Database)
	}
	if err != nil {
		_ = client.Close(ctx)
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	s.client = client
	return nil
}

func (s *SurrealDB) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close(context.Background())
}

// Ping asks the server for its version
func (s *SurrealDB) Ping(ctx context.Context) error {
	if s.client == nil {
		return ErrConnection
	}
	if _, err := s.client.Version(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// Query runs one or more statements. Each statement becomes one
// {"status": "OK", "result": ...} element; any failed statement fails the
// whole call with ErrQuery.
func (s *SurrealDB) Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
	if s.client == nil {
		return nil, ErrConnection
	}

	ctx, span := s.tracer.Start(ctx, "surrealdb.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "surrealdb"),
			attribute.String("db.namespace", s.cfg.Namespace+"/"+s.cfg.Database),
			attribute.String("db.query.text", firstStatement(query)),
		),
	)
	defer span.End()

	out, err := s.run(ctx, query, vars)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("db.statement_count", len(out)))
	return out, nil
}

func (s *SurrealDB) run(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
	results, err := surrealdb.Query[interface{}](ctx, s.client, query, vars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	if results == nil {
		return nil, nil
	}

	out := make([]interface{}, len(*results))
	for i, r := range *results {
		if r.Status != "OK" {
			msg := r.Status
			if r.Error != nil {
				msg = r.Error.Message
			}
			return nil, fmt.Errorf("%w: statement %d: %s", ErrQuery, i+1, msg)
		}
		out[i] = map[string]interface{}{"status": r.Status, "result": r.Result}
	}
	return out, nil
}

// QueryOne returns the first record of the first statement
func (s *SurrealDB) QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error) {
	results, err := s.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return FirstRecord(results)
}

func (s *SurrealDB) Execute(ctx context.Context, query string, vars map[string]interface{}) error {
	_, err := s.Query(ctx, query, vars)
	return err
}

// FirstRecord unwraps the first record of the first statement result.
// Scalar results such as RETURN values come back unchanged; an empty
// result set is ErrNotFound.
func FirstRecord(results []interface{}) (interface{}, error) {
	if len(results) == 0 {
		return nil, ErrNotFound
	}

	stmt, ok := results[0].(map[string]interface{})
	if !ok || stmt["status"] != "OK" {
		return results[0], nil
	}
	switch v := stmt["result"].(type) {
	case nil:
		return nil, ErrNotFound
	case []interface{}:
		if len(v) == 0 {
			return nil, ErrNotFound
		}
		return v[0], nil
	default:
		return v, nil
	}
}

// firstStatement shortens multi-statement transactions for span attributes
func firstStatement(query string) string {
	q := strings.TrimSpace(query)
	if head, rest, ok := strings.Cut(q, ";"); ok && strings.TrimSpace(rest) != "" {
		q = head + "; ..."
	}
	if len(q) > maxSpanQuery {
		q = q[:maxSpanQuery]
	}
	return q
}
