package chat

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
)

// ErrRateLimited marks a completion rejected by the provider's rate
// limiter, so the surface can suggest checking plan and billing.
var ErrRateLimited = errors.New("rate limited")

// classify maps transport failures onto the errors the surface
// distinguishes. Anything that is not a rate limit passes through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	if strings.Contains(err.Error(), "429") {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return err
}
