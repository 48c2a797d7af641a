package request

import (
	"time"

	"github.com/google/uuid"
)

type UpsertShiftRequest struct {
	ID       *uuid.UUID `json:"id,omitempty"`
	Role     string     `json:"role" binding:"required"`
	StartsAt time.Time  `json:"startsAt" binding:"required"`
	EndsAt   time.Time  `json:"endsAt" binding:"required"`
	Status   string     `json:"status" binding:"required,oneof=draft published"`
}
