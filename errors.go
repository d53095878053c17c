package promptscore

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrEvaluationInFlight = errors.New("an evaluation is already running")
	ErrSnapshotNotFound   = errors.New("session snapshot not found")
	ErrSnapshotTooLarge   = errors.New("session snapshot exceeds storage limit")
	ErrNoCredential       = errors.New("no verified API key")
	ErrEmptyResponse      = errors.New("model returned an empty response")
)

// Kind classifies an error by how the caller should react to it.
type Kind int

// Error kinds.
const (
	KindInternal Kind = iota
	KindCredential
	KindNetwork
	KindJudgeParse
	KindConcurrency
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindNetwork:
		return "network"
	case KindJudgeParse:
		return "judge_parse"
	case KindConcurrency:
		return "concurrency"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Error is a classified error raised by an operation.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "openrouter.complete"
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CredentialError marks err as a rejected or missing API key.
func CredentialError(op string, err error) error {
	return &Error{Kind: KindCredential, Op: op, Err: err}
}

// NetworkError marks err as a transport failure, timeout, or transient
// provider error that may succeed on retry.
func NetworkError(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// ConcurrencyRejection is returned when an evaluation is requested while
// another is still in flight.
func ConcurrencyRejection(op string) error {
	return &Error{Kind: KindConcurrency, Op: op, Err: ErrEvaluationInFlight}
}

// ErrorKind returns the kind of the first classified error in err's chain.
// Validation failures are reported as KindValidation and anything
// unclassified as KindInternal.
func ErrorKind(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var ve ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	var ves ValidationErrors
	if errors.As(err, &ves) {
		return KindValidation
	}
	return KindInternal
}

// IsRetryable reports whether err is worth retrying after a backoff.
func IsRetryable(err error) bool {
	return ErrorKind(err) == KindNetwork
}

// StatusKind classifies an HTTP status code returned by a provider.
// ok is false for statuses that carry no retry or credential meaning.
func StatusKind(code int) (kind Kind, ok bool) {
	switch {
	case code == 401 || code == 403:
		return KindCredential, true
	case code == 408 || code == 409 || code == 429:
		return KindNetwork, true
	case code >= 500:
		return KindNetwork, true
	default:
		return KindInternal, false
	}
}

// ClassifyStatus wraps err according to the HTTP status code it carries.
func ClassifyStatus(op string, code int, err error) error {
	kind, ok := StatusKind(code)
	if !ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
