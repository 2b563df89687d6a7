package catalog

import (
	"context"
	"net/http"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
)

// CircuitOpenFallback turns an open breaker into a ServiceUnavailable error.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("catalog collaborators are temporarily unavailable")
}
