package shift

import "errors"

var (
	ErrInvalidStatus = errors.New("invalid shift status")
	ErrInvalidSource = errors.New("invalid shift source")
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusFilled    Status = "filled"
	StatusCancelled Status = "cancelled"
)

func NewStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusPublished, StatusFilled, StatusCancelled:
		return Status(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

func (s Status) String() string { return string(s) }

// Source records which planning flow produced the shift.
type Source string

const (
	SourceRota     Source = "rota"
	SourceSickness Source = "sickness"
	SourceSwap     Source = "swap"
)

func NewSource(s string) (Source, error) {
	switch Source(s) {
	case SourceRota, SourceSickness, SourceSwap:
		return Source(s), nil
	default:
		return "", ErrInvalidSource
	}
}

func (s Source) String() string { return string(s) }
