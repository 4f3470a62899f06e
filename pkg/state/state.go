// Package state defines the circuit state record shared between breaker
// instances, together with its two wire encodings: a text field map for
// stores with native hash support and a msgpack capsule for stores that
// only hold opaque values.
package state

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// Status is the circuit position of a breaker.
type Status string

const (
	StatusClosed   Status = "closed"
	StatusOpen     Status = "open"
	StatusHalfOpen Status = "half_open"
)

// Field names of the hash-store record. The blob capsule uses the same
// names as msgpack map keys.
const (
	FieldStatus       = "status"
	FieldLastFailure  = "last_failure"
	FieldFailureCount = "failure_count"
	FieldTimestamp    = "timestamp"
)

// ParseStatus maps a stored status token onto a Status. Unknown tokens are
// a DecodeError, never silently coerced to closed.
func ParseStatus(token string) (Status, error) {
	switch Status(token) {
	case StatusClosed, StatusOpen, StatusHalfOpen:
		return Status(token), nil
	default:
		return "", &DecodeError{Field: FieldStatus, Value: token}
	}
}

// CircuitState is a point-in-time snapshot of one breaker's shared state.
// Timestamp is in microseconds and orders writes from a single instance;
// across instances it is only a conflict-resolution hint.
type CircuitState struct {
	Status       Status
	LastFailure  *Failure
	FailureCount int64
	Timestamp    int64
}

// Initial returns the default seed record: closed, no failures observed,
// timestamp zero so any real write supersedes it.
func Initial() CircuitState {
	return CircuitState{Status: StatusClosed}
}

// Fields encodes the state into the hash-store field map. The failure
// payload is carried as a base64-wrapped msgpack capsule; an empty string
// marks its absence.
func (s CircuitState) Fields() (map[string]string, error) {
	failure := ""
	if s.LastFailure != nil {
		capsule, err := msgpack.Marshal(s.LastFailure)
		if err != nil {
			return nil, fmt.Errorf("state: encode failure payload: %w", err)
		}
		failure = base64.StdEncoding.EncodeToString(capsule)
	}

	return map[string]string{
		FieldStatus:       string(s.Status),
		FieldLastFailure:  failure,
		FieldFailureCount: strconv.FormatInt(s.FailureCount, 10),
		FieldTimestamp:    strconv.FormatInt(s.Timestamp, 10),
	}, nil
}

// FromFields decodes a hash-store field map. Stores differ in whether they
// hand back text or raw bytes; callers normalize values to strings first,
// which is lossless for this record since every field is text-encoded.
func FromFields(fields map[string]string) (CircuitState, error) {
	status, err := ParseStatus(fields[FieldStatus])
	if err != nil {
		return CircuitState{}, err
	}

	count, err := strconv.ParseInt(fields[FieldFailureCount], 10, 64)
	if err != nil {
		return CircuitState{}, &DecodeError{Field: FieldFailureCount, Value: fields[FieldFailureCount], Err: err}
	}

	// A record written before timestamps existed decodes with stamp zero,
	// which simply loses the next conflict-resolution round.
	var timestamp int64
	if raw, ok := fields[FieldTimestamp]; ok && raw != "" {
		timestamp, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return CircuitState{}, &DecodeError{Field: FieldTimestamp, Value: raw, Err: err}
		}
	}

	var failure *Failure
	if raw := fields[FieldLastFailure]; raw != "" {
		capsule, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return CircuitState{}, &DecodeError{Field: FieldLastFailure, Value: raw, Err: err}
		}
		failure = &Failure{}
		if err := msgpack.Unmarshal(capsule, failure); err != nil {
			return CircuitState{}, &DecodeError{Field: FieldLastFailure, Value: raw, Err: err}
		}
	}

	return CircuitState{
		Status:       status,
		LastFailure:  failure,
		FailureCount: count,
		Timestamp:    timestamp,
	}, nil
}

// blobRecord is the self-describing capsule stored by blob backends. Field
// names match the hash-store protocol so both flavors stay symmetric.
type blobRecord struct {
	Status       string `msgpack:"status"`
	LastFailure  []byte `msgpack:"last_failure"`
	FailureCount int64  `msgpack:"failure_count"`
	Timestamp    int64  `msgpack:"timestamp"`
}

// Blob encodes the state into a single opaque value for stores without
// hash support.
func (s CircuitState) Blob() ([]byte, error) {
	record := blobRecord{
		Status:       string(s.Status),
		FailureCount: s.FailureCount,
		Timestamp:    s.Timestamp,
	}

	if s.LastFailure != nil {
		capsule, err := msgpack.Marshal(s.LastFailure)
		if err != nil {
			return nil, fmt.Errorf("state: encode failure payload: %w", err)
		}
		record.LastFailure = capsule
	}

	encoded, err := msgpack.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("state: encode record: %w", err)
	}
	return encoded, nil
}

// FromBlob decodes a capsule produced by Blob.
func FromBlob(encoded []byte) (CircuitState, error) {
	var record blobRecord
	if err := msgpack.Unmarshal(encoded, &record); err != nil {
		return CircuitState{}, &DecodeError{Field: "record", Err: err}
	}

	status, err := ParseStatus(record.Status)
	if err != nil {
		return CircuitState{}, err
	}

	var failure *Failure
	if len(record.LastFailure) > 0 {
		failure = &Failure{}
		if err := msgpack.Unmarshal(record.LastFailure, failure); err != nil {
			return CircuitState{}, &DecodeError{Field: FieldLastFailure, Err: err}
		}
	}

	return CircuitState{
		Status:       status,
		LastFailure:  failure,
		FailureCount: record.FailureCount,
		Timestamp:    record.Timestamp,
	}, nil
}
