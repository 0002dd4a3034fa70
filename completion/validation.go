package completion

import (
	"fmt"
	"strings"
)

// ValidationError carries the full list of reasons a request was rejected.
// Requests failing validation never reach a provider.
type ValidationError struct {
	Reasons []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid completion request: %s", strings.Join(e.Reasons, "; "))
}

// validate collects every problem with the request instead of stopping at the
// first, so callers can surface a complete reason list.
func (s *Service) validate(req Request) error {
	var reasons []string

	if len(req.Messages) == 0 {
		reasons = append(reasons, "messages must not be empty")
	}
	for i, m := range req.Messages {
		if !validProviderRole(m.Role) {
			reasons = append(reasons, fmt.Sprintf("message %d has invalid role %q", i, m.Role))
		}
		if strings.TrimSpace(m.Content) == "" {
			reasons = append(reasons, fmt.Sprintf("message %d has empty content", i))
		}
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		reasons = append(reasons, fmt.Sprintf("temperature %.2f outside [0, 2]", req.Temperature))
	}
	if req.MaxTokens <= 0 {
		reasons = append(reasons, fmt.Sprintf("max tokens must be positive, got %d", req.MaxTokens))
	}
	if req.Provider != "" {
		if _, ok := s.providers[req.Provider]; !ok {
			reasons = append(reasons, fmt.Sprintf("unknown provider %q", req.Provider))
		}
	}

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

func validProviderRole(role string) bool {
	switch role {
	case "user", "assistant", "system":
		return true
	default:
		return false
	}
}
