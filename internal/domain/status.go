package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Status is the process-wide demo state that every snapshot is derived from.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Statuses lists every valid status in severity order.
var Statuses = []Status{StatusHealthy, StatusWarning, StatusCritical}

// ParseStatus maps user input to a Status. Matching is case-insensitive and ignores
// surrounding whitespace; anything else is ErrInvalidStatus.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusHealthy:
		return StatusHealthy, nil
	case StatusWarning:
		return StatusWarning, nil
	case StatusCritical:
		return StatusCritical, nil
	default:
		return "", fmt.Errorf("%w: %q (must be one of healthy, warning, critical)", ErrInvalidStatus, s)
	}
}

// Valid reports whether s is one of the canonical statuses. Unlike ParseStatus it does
// not normalise case or whitespace.
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

func (s Status) String() string { return string(s) }
