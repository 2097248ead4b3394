// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"fmt"
	"strings"
)

// ValidationError rejects a malformed ranking request before any network
// call is made. It is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// AllStrategiesFailedError is raised only when every search strategy
// failed. Zero studies found is not an error; it is a valid empty
// result.
type AllStrategiesFailedError struct {
	Errors []error
}

func (e *AllStrategiesFailedError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("all search strategies failed: %s", strings.Join(msgs, "; "))
}
