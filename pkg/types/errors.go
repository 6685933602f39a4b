package types

import (
	"errors"
	"fmt"
)

// FetchKind classifies price source failures.
type FetchKind string

// Fetch failure kinds.
const (
	FetchTransport        FetchKind = "transport"
	FetchMissingPrice     FetchKind = "missing_price"
	FetchMalformedPayload FetchKind = "malformed_payload"
)

// FetchError represents a failure to fetch or parse market data.
// It carries enough context (market, endpoint) for post-hoc diagnosis.
type FetchError struct {
	Kind     FetchKind
	MarketID string
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	if e.MarketID != "" {
		return fmt.Sprintf("fetch %s (market %s): %s: %v", e.Endpoint, e.MarketID, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchKind reports whether err is a FetchError of the given kind.
func IsFetchKind(err error, kind FetchKind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}

// Persistence sink names used in PersistenceError.
const (
	SinkCSV     = "csv"
	SinkIndexed = "indexed"
)

// PersistenceError represents a failed write or schema operation against
// one of the persistence sinks.
type PersistenceError struct {
	Op   string // "record", "schema-init", "query"
	Sink string // SinkCSV or SinkIndexed
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s (%s sink): %v", e.Op, e.Sink, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ConfigError represents invalid or missing configuration. Credential
// errors degrade the scanner to observation-only mode instead of
// aborting startup.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
