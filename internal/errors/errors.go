package errors

import (
	"errors"
	"fmt"
)

// Basic error check functions from standard library
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// appError implements the Error interface
type appError struct {
	code    ErrorCode
	message string
	err     error
	data    any
}

func (e *appError) Error() string {
	msg := e.message
	if msg == "" {
		msg = GetErrorMessage(e.code)
	}

	switch {
	case e.data != nil && e.err != nil:
		return fmt.Sprintf("%s: %+v: %v", msg, e.data, e.err)
	case e.data != nil:
		return fmt.Sprintf("%s: %+v", msg, e.data)
	case e.err != nil:
		return fmt.Sprintf("%s: %v", msg, e.err)
	}

	return msg
}

func (e *appError) Code() ErrorCode {
	return e.code
}

func (e *appError) WithMessage(msg string) Error {
	return &appError{
		code:    e.code,
		message: msg,
		err:     e.err,
		data:    e.data,
	}
}

func (e *appError) WithData(data any) Error {
	return &appError{
		code:    e.code,
		message: e.message,
		err:     e.err,
		data:    data,
	}
}

func (e *appError) GetData() any {
	return e.data
}

func (e *appError) Unwrap() error {
	return e.err
}

type defaultFactory struct{}

func (*defaultFactory) New(code ErrorCode) Error {
	return &appError{
		code: code,
	}
}

func (*defaultFactory) Wrap(code ErrorCode, err error) Error {
	return &appError{
		code: code,
		err:  err,
	}
}

func (*defaultFactory) WithMessage(code ErrorCode, msg string) Error {
	return &appError{
		code:    code,
		message: msg,
	}
}

func (*defaultFactory) WithData(code ErrorCode, data any) Error {
	return &appError{
		code: code,
		data: data,
	}
}

func (*defaultFactory) WrapWithData(code ErrorCode, err error, data any) Error {
	return &appError{
		code: code,
		err:  err,
		data: data,
	}
}

// New creates a Factory instance for error creation
func New() Factory {
	return &defaultFactory{}
}

// HasCode reports whether any error in err's tree carries code. The tree
// is walked through both Unwrap() error and Unwrap() []error.
func HasCode(err error, code ErrorCode) bool {
	_, ok := find(err, code)
	return ok
}

// CodeOf returns the code of the outermost domain error in err's chain,
// or ErrInternal if there is none.
func CodeOf(err error) ErrorCode {
	var e Error
	if errors.As(err, &e) {
		return e.Code()
	}

	return ErrInternal
}

// DataOf returns the data attached to the first error in err's tree, in
// depth-first order, that carries code.
func DataOf(err error, code ErrorCode) (any, bool) {
	e, ok := find(err, code)
	if !ok {
		return nil, false
	}

	return e.GetData(), true
}

func find(err error, code ErrorCode) (Error, bool) {
	if err == nil {
		return nil, false
	}
	if e, ok := err.(Error); ok && e.Code() == code {
		return e, true
	}

	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return find(u.Unwrap(), code)
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if e, ok := find(inner, code); ok {
				return e, true
			}
		}
	}

	return nil, false
}
