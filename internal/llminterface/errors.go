package llminterface

import (
	"errors"
	"fmt"
)

var (
	// ErrNoChoices is returned by response parsers when the backend sent a
	// completion without any choice.
	ErrNoChoices = errors.New("backend returned no choices")

	// ErrNoMessages marks a Chat call made without messages.
	ErrNoMessages = errors.New("no messages supplied")
)

// ConfigError reports a provider that cannot be constructed from its
// configuration. It is returned at construction time and never from Chat.
type ConfigError struct {
	Provider string
	Field    string
	Err      error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("%s provider: invalid %s: %v", e.Provider, e.Field, e.Err)
	}
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsConfigError reports whether err carries a *ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}
