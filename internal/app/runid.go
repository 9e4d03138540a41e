package app

import (
	"fmt"

	"github.com/chrissnell/apanalyzer/internal/types"
	"github.com/google/uuid"
)

func parseRunID(id string) (uuid.UUID, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad run id %q: %v", types.ErrInvalidConfig, id, err)
	}
	return runID, nil
}
