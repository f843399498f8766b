package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zorins376-hub/music-bot/core/provider"
)

// Kind classifies a failed delivery for the user-facing message.
type Kind string

const (
	KindTooLarge            Kind = "too_large"
	KindAgeRestricted       Kind = "age_restricted"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindUnknown             Kind = "unknown"
)

// ErrProviderUnavailable marks a fetch that could not reach its source.
var ErrProviderUnavailable = errors.New("provider unavailable")

// DownloadError is the only error Deliver returns.
type DownloadError struct {
	Kind Kind
	Err  error
}

func (e *DownloadError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Messages sources print when a video needs age confirmation.
var ageMarkers = []string{
	"sign in to confirm your age",
	"age-restricted",
	"confirm your age",
}

// Classify maps any fetch or publish error to a DownloadError.
func Classify(err error) *DownloadError {
	if err == nil {
		return nil
	}
	var de *DownloadError
	if errors.As(err, &de) {
		return de
	}

	msg := strings.ToLower(err.Error())
	for _, m := range ageMarkers {
		if strings.Contains(msg, m) {
			return &DownloadError{Kind: KindAgeRestricted, Err: err}
		}
	}

	switch {
	case errors.Is(err, ErrProviderUnavailable),
		errors.Is(err, provider.ErrNotConfigured),
		errors.Is(err, context.DeadlineExceeded):
		return &DownloadError{Kind: KindProviderUnavailable, Err: err}
	}
	return &DownloadError{Kind: KindUnknown, Err: err}
}
