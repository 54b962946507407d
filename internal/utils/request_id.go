package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const requestIDPrefix = "req:"

func CreateRequestID() string {
	return fmt.Sprintf("%s%s", requestIDPrefix, uuid.New().String())
}

// IsRequestID reports whether id has the form produced by CreateRequestID.
func IsRequestID(id string) bool {
	rest, ok := strings.CutPrefix(id, requestIDPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}
