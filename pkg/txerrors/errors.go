// Package txerrors defines the error taxonomy the coordinator surfaces to
// callers. Every sentinel is backed by a grpc/codes status so the caller can
// branch on status.Code(err) without string matching, even though this
// module does not itself run a gRPC service.
package txerrors

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code identifies one of the coordinator's error classes.
type Code string

const (
	TransactionConflict      Code = "TRANSACTION_CONFLICT"
	NotSupported             Code = "NOT_SUPPORTED"
	AlreadyExists            Code = "ALREADY_EXISTS"
	TableNotFound            Code = "TABLE_NOT_FOUND"
	PartitionNotFound        Code = "PARTITION_NOT_FOUND"
	PathAlreadyExists        Code = "PATH_ALREADY_EXISTS"
	FilesystemError          Code = "FILESYSTEM_ERROR"
	MetastoreError           Code = "METASTORE_ERROR"
	TableDroppedDuringQuery  Code = "TABLE_DROPPED_DURING_QUERY"
	CorruptedColumnStatistics Code = "CORRUPTED_COLUMN_STATISTICS"
)

var grpcCode = map[Code]codes.Code{
	TransactionConflict:       codes.Aborted,
	NotSupported:              codes.Unimplemented,
	AlreadyExists:             codes.AlreadyExists,
	TableNotFound:             codes.NotFound,
	PartitionNotFound:         codes.NotFound,
	PathAlreadyExists:         codes.FailedPrecondition,
	FilesystemError:           codes.Unavailable,
	MetastoreError:            codes.Internal,
	TableDroppedDuringQuery:   codes.Aborted,
	CorruptedColumnStatistics: codes.DataLoss,
}

// CoordinatorError is a coordinator error tagged with a Code.
type CoordinatorError struct {
	code Code
	msg  string
	err  error
}

func (e *CoordinatorError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

func (e *CoordinatorError) Unwrap() error { return e.err }

// Code returns the error's taxonomy code.
func (e *CoordinatorError) Code() Code { return e.code }

// GRPCStatus lets status.FromError extract a *status.Status, so callers that
// already speak grpc/codes.Code get one for free.
func (e *CoordinatorError) GRPCStatus() *status.Status {
	return status.New(grpcCode[e.code], e.Error())
}

// New builds a CoordinatorError with the given code and message.
func New(code Code, msg string) error {
	return &CoordinatorError{code: code, msg: msg}
}

// Newf builds a CoordinatorError with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &CoordinatorError{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a CoordinatorError that carries an underlying cause.
func Wrap(code Code, msg string, cause error) error {
	return &CoordinatorError{code: code, msg: msg, err: cause}
}

// Is reports whether err is a CoordinatorError with the given code.
func Is(err error, code Code) bool {
	var ce *CoordinatorError
	if !asCoordinatorError(err, &ce) {
		return false
	}
	return ce.code == code
}

func asCoordinatorError(err error, target **CoordinatorError) bool {
	for err != nil {
		if ce, ok := err.(*CoordinatorError); ok {
			*target = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// MultiCause aggregates multiple failures from Phase E (irreversible
// deletes), surfacing one top-level METASTORE_ERROR with up to maxCauses
// suppressed causes attached.
type MultiCause struct {
	msg       string
	causes    []error
	maxCauses int
}

const defaultMaxCauses = 5

// NewMultiCause creates an aggregator. Call Add for each failure observed,
// then Err() once processing finishes; Err returns nil if nothing failed.
func NewMultiCause(msg string) *MultiCause {
	return &MultiCause{msg: msg, maxCauses: defaultMaxCauses}
}

// Add records one failure. Every cause is kept; Err attaches at most
// maxCauses of them.
func (m *MultiCause) Add(err error) {
	if err == nil {
		return
	}
	m.causes = append(m.causes, err)
}

// Failed reports whether any cause has been recorded.
func (m *MultiCause) Failed() bool { return len(m.causes) > 0 }

// Count returns the total number of recorded failures.
func (m *MultiCause) Count() int { return len(m.causes) }

// Err returns a METASTORE_ERROR carrying up to maxCauses suppressed causes,
// or nil if no failures were recorded.
func (m *MultiCause) Err() error {
	if !m.Failed() {
		return nil
	}
	n := len(m.causes)
	if n > m.maxCauses {
		n = m.maxCauses
	}
	msg := fmt.Sprintf("%s (%d failure(s), showing %d)", m.msg, len(m.causes), n)
	ce := &CoordinatorError{code: MetastoreError, msg: msg}
	for i := 0; i < n; i++ {
		ce.err = joinErr(ce.err, m.causes[i])
	}
	return ce
}

// joinErr chains causes so Unwrap still reaches the first one, while the
// rendered message lists every suppressed cause for diagnostics.
func joinErr(prev, next error) error {
	if prev == nil {
		return next
	}
	return fmt.Errorf("%w; also: %v", prev, next)
}
