package session

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"struk/internal/core"
)

// Classify maps a Google API failure onto the remote error categories:
// rejected credentials become ErrRemoteUnauthenticated, anything else is
// ErrRemoteTransient. Errors already carrying a category pass through.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrRemoteUnauthenticated) || errors.Is(err, core.ErrRemoteTransient) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w: %w", op, core.ErrRemoteUnauthenticated, err)
		}
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%s: %w: %w", op, core.ErrRemoteUnauthenticated, err)
	}
	return fmt.Errorf("%s: %w: %w", op, core.ErrRemoteTransient, err)
}
