package main

import (
	"errors"
	"fmt"
)

// ServiceError ties an error to the component and operation that produced it.
// The [Service.Operation] prefix is for logs; clients see Public().
type ServiceError struct {
	Service   string
	Operation string
	Err       error
}

// Error formats as [Service.Operation] message.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s.%s] %v", e.Service, e.Operation, e.Err)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Public returns the cause's message with every nested [Service.Operation]
// prefix removed.
func (e *ServiceError) Public() string {
	if e.Err == nil {
		return e.Service + "." + e.Operation + " failed"
	}
	return PublicMessage(e.Err)
}

// WrapError returns nil for a nil err.
func WrapError(service, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Service: service, Operation: operation, Err: err}
}

// PublicMessage renders err for an API response. Errors that do not carry a
// ServiceError are returned as is.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Public()
	}
	return err.Error()
}
