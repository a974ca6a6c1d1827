package transport

import (
	"errors"
	"fmt"
)

// ErrGone is matched by errors.Is for responses saying the resource no
// longer exists.
var ErrGone = errors.New("resource gone")

// GoneError is returned when the target answers 404. It is never retried
// and tells the caller to forget the record behind the URL.
type GoneError struct {
	URL string
}

func (e *GoneError) Error() string {
	return fmt.Sprintf("%s: %v", e.URL, ErrGone)
}

// Is makes errors.Is(err, ErrGone) hold for every GoneError.
func (e *GoneError) Is(target error) bool {
	return target == ErrGone
}

// TransientError is returned once every attempt for a URL has failed with a
// network error or a non-success status other than 404.
type TransientError struct {
	URL        string
	Attempts   int
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s failed after %d attempts (HTTP %d): %v", e.URL, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsGone reports whether err says the resource no longer exists.
func IsGone(err error) bool {
	return errors.Is(err, ErrGone)
}
