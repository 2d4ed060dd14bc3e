package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInputValidation   = errors.New("input validation failed")
	ErrTransport         = errors.New("unexpected platform status")
	ErrEmptyResult       = errors.New("empty item collection")
	ErrMalformedData     = errors.New("malformed item data")
	ErrUndefinedField    = errors.New("undefined custom field")
	ErrPairingResolution = errors.New("pairing references unknown item")
)

// Collection names the item collection being read.
type Collection string

const (
	CollectionOrder Collection = "order"
	CollectionCart  Collection = "cart"
)

// InputValidationError is returned when a required invocation field is absent.
type InputValidationError struct {
	Field string
}

func (e *InputValidationError) Error() string {
	return "You have not provided " + e.Field
}

func (e *InputValidationError) Unwrap() error { return ErrInputValidation }

// TransportError is returned when the platform answers with anything other
// than 200 OK, or could not be reached at all (StatusCode 0).
type TransportError struct {
	Resource   string
	Action     string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return fmt.Sprintf("error %s %s: %v", e.Action, e.Resource, e.Err)
	}
	return fmt.Sprintf("bad status code while %s %s: %d", e.Action, e.Resource, e.StatusCode)
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}

type EmptyResultError struct {
	Collection Collection
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no %s items", e.Collection)
}

func (e *EmptyResultError) Unwrap() error { return ErrEmptyResult }

type MalformedDataError struct {
	ItemID string
	Reason string
}

func (e *MalformedDataError) Error() string {
	if e.ItemID == "" {
		return "malformed item data: " + e.Reason
	}
	return fmt.Sprintf("malformed item %s: %s", e.ItemID, e.Reason)
}

func (e *MalformedDataError) Unwrap() error { return ErrMalformedData }

// UndefinedFieldError lists custom fields the target order item does not
// define.
type UndefinedFieldError struct {
	OrderItemID string
	Fields      []string
}

func (e *UndefinedFieldError) Error() string {
	return fmt.Sprintf("order item %s has no field(s) %s defined",
		e.OrderItemID, strings.Join(e.Fields, ", "))
}

func (e *UndefinedFieldError) Unwrap() error { return ErrUndefinedField }

type PairingResolutionError struct {
	Collection Collection
	ItemID     string
}

func (e *PairingResolutionError) Error() string {
	return fmt.Sprintf("%s item %s not found in fetched items", e.Collection, e.ItemID)
}

func (e *PairingResolutionError) Unwrap() error { return ErrPairingResolution }
