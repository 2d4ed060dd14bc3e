package service

import (
	"fmt"
	"net/http"

	"github.com/moltin/transfer-flow-data/internal/domain"
)

// Outcome is the result of transferring one pairing. StatusCode is zero when
// no write was attempted.
type Outcome struct {
	domain.Pairing
	Fields     []string
	StatusCode int
	Err        error
}

func (o Outcome) OK() bool {
	return o.Err == nil && o.StatusCode == http.StatusOK
}

type Result struct {
	Outcomes []Outcome
}

// Err returns nil only if every pairing succeeded. Otherwise it reports the
// first failed pairing in pairing order.
func (r *Result) Err() error {
	failed := 0
	var first *Outcome
	for i := range r.Outcomes {
		if r.Outcomes[i].OK() {
			continue
		}
		failed++
		if first == nil {
			first = &r.Outcomes[i]
		}
	}
	if first == nil {
		return nil
	}

	err := first.Err
	if err == nil {
		err = fmt.Errorf("unexpected status %d", first.StatusCode)
	}
	return &TransferError{Failed: failed, Total: len(r.Outcomes), Err: err}
}

// TransferError aggregates per-pairing failures. Its message is the message of
// the first failure.
type TransferError struct {
	Failed int
	Total  int
	Err    error
}

func (e *TransferError) Error() string { return e.Err.Error() }

func (e *TransferError) Unwrap() error { return e.Err }
