// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Status is the signed 32-bit result code carried in replies and as the
// transaction status of a round trip. Zero is success; the named negative
// values are error kinds. Status implements error so it can be returned,
// wrapped and matched with errors.Is.
type Status int32

const (
	OK                 Status = 0
	UnknownError       Status = math.MinInt32
	NoMemory           Status = -12
	InvalidOperation   Status = -38
	BadValue           Status = -22
	BadType            Status = math.MinInt32 + 1
	NameNotFound       Status = -2
	PermissionDenied   Status = -1
	NoInit             Status = -19
	AlreadyExists      Status = -17
	DeadObject         Status = -32
	FailedTransaction  Status = math.MinInt32 + 2
	BadIndex           Status = -75
	NotEnoughData      Status = -61
	WouldBlock         Status = -11
	TimedOut           Status = -110
	UnknownTransaction Status = -74
)

var statusNames = map[Status]string{
	OK:                 "ok",
	UnknownError:       "unknown error",
	NoMemory:           "no memory",
	InvalidOperation:   "invalid operation",
	BadValue:           "bad value",
	BadType:            "bad type",
	NameNotFound:       "name not found",
	PermissionDenied:   "permission denied",
	NoInit:             "not initialized",
	AlreadyExists:      "already exists",
	DeadObject:         "dead object",
	FailedTransaction:  "failed transaction",
	BadIndex:           "bad index",
	NotEnoughData:      "not enough data",
	WouldBlock:         "would block",
	TimedOut:           "timed out",
	UnknownTransaction: "unknown transaction",
}

func (s Status) Error() string {
	if name, ok := statusNames[s]; ok {
		return "mediaplayer: " + name
	}
	return fmt.Sprintf("mediaplayer: status %d", int32(s))
}

// Err returns nil for OK and s otherwise.
func (s Status) Err() error {
	if s == OK {
		return nil
	}
	return s
}

// StatusFromError maps an error to the status that represents it on the
// wire: nil is OK, a (possibly wrapped) Status is itself, a deadline is
// TimedOut and anything else is UnknownError.
func StatusFromError(err error) Status {
	if err == nil {
		return OK
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TimedOut
	}
	return UnknownError
}

// transportError marks err as a failed round trip unless it already is a
// transaction status reported by the remote side.
func transportError(err error) error {
	var s Status
	if errors.As(err, &s) {
		return err
	}
	return fmt.Errorf("%w: %w", FailedTransaction, err)
}
