package core

import (
	"errors"
	"fmt"
)

// Error categories. Callers match them with errors.Is; concrete failures wrap
// one of these so the cause stays visible in the message.
var (
	// ErrStorageUnavailable means the local store could not be opened or a
	// read/write against it failed.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrValidation means a record was structurally invalid and was rejected
	// before anything was persisted.
	ErrValidation = errors.New("validation rejected")

	// ErrRemoteUnauthenticated means a sync call was made without a valid
	// remote session.
	ErrRemoteUnauthenticated = errors.New("remote not authenticated")

	// ErrRemoteTransient covers network and service failures during push or
	// pull. Local data is never rolled back because of it.
	ErrRemoteTransient = errors.New("remote sync failed")

	// ErrMalformedRow marks a pulled row that does not match the row format.
	ErrMalformedRow = errors.New("malformed remote row")

	// ErrScanRejected means a receipt scan response did not match the
	// expected structure.
	ErrScanRejected = errors.New("receipt scan rejected")
)

var (
	ErrEmptyID        = fmt.Errorf("%w: empty id", ErrValidation)
	ErrEmptyStoreName = fmt.Errorf("%w: empty store name", ErrValidation)
	ErrStoreNameLong  = fmt.Errorf("%w: store name too long (max %d characters)", ErrValidation, MaxStoreNameLen)
	ErrInvalidType    = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrInvalidAmount  = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrEmptyDate      = fmt.Errorf("%w: empty date", ErrValidation)
	ErrEmptyItemName  = fmt.Errorf("%w: empty item name", ErrValidation)
	ErrInvalidItem    = fmt.Errorf("%w: invalid item quantity or price", ErrValidation)
	ErrEmptyName      = fmt.Errorf("%w: empty name", ErrValidation)
	ErrInvalidPIN     = fmt.Errorf("%w: pin must be exactly 6 digits", ErrValidation)
	ErrInvalidPeriod  = fmt.Errorf("%w: invalid period", ErrValidation)
)

// ErrDuplicateCategory is returned when a category name is reused within
// one type.
var ErrDuplicateCategory = fmt.Errorf("%w: category already exists", ErrValidation)
