package database

import (
	"context"
	"errors"
	"net"
	"net/url"
)

// Sentinel errors; match with errors.Is
var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("duplicate record") // unique index violation, e.g. a second signup
	ErrConnection = errors.New("database connection error")
	ErrQuery      = errors.New("query error")
	ErrCapacity   = errors.New("capacity reached") // a transaction guard fired
)

// Querier runs SurrealQL. Repositories and migrations only need this half.
type Querier interface {
	// Query returns one {status, result} entry per statement
	Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error)
	// QueryOne returns the first record of the first statement
	QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error)
	// Execute runs a mutation and discards the results
	Execute(ctx context.Context, query string, vars map[string]interface{}) error
}

// Database is a Querier with a connection lifecycle
type Database interface {
	Querier
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error
}

// Config locates the church's SurrealDB namespace
type Config struct {
	Host      string
	Port      string
	User      string
	Password  string
	Namespace string
	Database  string
}

// Endpoint is the websocket RPC address for the server
func (c Config) Endpoint() string {
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(c.Host, c.Port)}
	return u.String()
}
