package openai

import (
	"errors"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/courtside-ai/courtside/internal/domain"
)

func TestIsRateLimit(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"api 429", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, true},
		{"api 500", &openai.APIError{HTTPStatusCode: http.StatusInternalServerError}, false},
		{"request 429", &openai.RequestError{HTTPStatusCode: http.StatusTooManyRequests}, true},
		{"request 400", &openai.RequestError{HTTPStatusCode: http.StatusBadRequest}, false},
		{"plain error", errors.New("connection refused"), false},
		{"wrapped 429", wrapErr(&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRateLimit(tt.err); got != tt.want {
				t.Errorf("isRateLimit = %v, want %v", got, tt.want)
			}
		})
	}
}

func wrapErr(err error) error {
	return errors.Join(errors.New("outer"), err)
}

func TestBackoffDelay(t *testing.T) {
	if d := backoffDelay(0); d != retryBaseDelay {
		t.Errorf("attempt 0 delay = %v, want %v", d, retryBaseDelay)
	}
	if d := backoffDelay(1); d != 2*retryBaseDelay {
		t.Errorf("attempt 1 delay = %v, want %v", d, 2*retryBaseDelay)
	}
	if d := backoffDelay(10); d != retryMaxDelay {
		t.Errorf("attempt 10 delay = %v, want cap %v", d, retryMaxDelay)
	}
	// Shift overflow must still land on the cap.
	if d := backoffDelay(80); d != retryMaxDelay {
		t.Errorf("attempt 80 delay = %v, want cap %v", d, retryMaxDelay)
	}
	if backoffDelay(3) > retryMaxDelay || backoffDelay(3) <= 0 {
		t.Errorf("delay outside bounds: %v", backoffDelay(3))
	}
}

func TestParseGenerationError(t *testing.T) {
	apiErr := &openai.APIError{HTTPStatusCode: 503, Message: "overloaded"}
	if err := parseGenerationError(apiErr); !errors.Is(err, domain.ErrGenerationProviderError) {
		t.Errorf("expected ErrGenerationProviderError, got %v", err)
	}

	plain := errors.New("dial tcp: refused")
	if err := parseGenerationError(plain); !errors.Is(err, domain.ErrGenerationProviderError) {
		t.Errorf("expected ErrGenerationProviderError for plain error, got %v", err)
	}
}
