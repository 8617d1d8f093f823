// Package activities rewards children for completing learning modules.
package activities

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/shared"
)

// ErrAlreadyCompleted is returned when a child completes a module twice.
var ErrAlreadyCompleted = fmt.Errorf("%w: module already completed", shared.ErrConflict)

// Progress records a completed module.
type Progress struct {
	ActorID     uuid.UUID `json:"actor_id"`
	ModuleID    uuid.UUID `json:"module_id"`
	Score       int       `json:"score"`
	CoinsEarned int64     `json:"coins_earned"`
	CompletedAt time.Time `json:"completed_at"`
}

// CompleteInput membungkus hasil modul yang dilaporkan anak.
type CompleteInput struct {
	Score int `json:"score" validate:"gte=0,lte=100"`
}

// Reward is floor(score/100 × points), split so that score × points never
// has to fit in an int64.
func Reward(score int, points int64) int64 {
	s := int64(score)
	return points/100*s + points%100*s/100
}
