package offer

import "errors"

var ErrInvalidStatus = errors.New("invalid offer status")

type Status string

const (
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusExpired  Status = "expired"
	StatusClosed   Status = "closed"
)

func NewStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusSent, StatusAccepted, StatusExpired, StatusClosed:
		return Status(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

func (s Status) String() string { return string(s) }

// Settled reports whether the offer has reached a terminal state.
func (s Status) Settled() bool {
	return s == StatusAccepted || s == StatusExpired || s == StatusClosed
}
