// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"

	"github.com/pdiddy/content-pipeline/internal/store"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

// ErrNotFound reports that no item matches the given id.
var ErrNotFound = store.ErrNotFound

// ErrInvalidState reports that an operation was attempted on an item
// whose current stage does not allow it.
var ErrInvalidState = errors.New("operation not allowed in current stage")

// DuplicateError rejects a new topic that duplicates an item already
// moving through the pipeline. Existing identifies that item so callers
// can point the operator at it.
type DuplicateError struct {
	Existing types.ItemRef
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("topic duplicates active item %s (stage %s)", e.Existing.ID, e.Existing.Stage)
}

func invalidState(id string, stage types.Stage, action string) error {
	return fmt.Errorf("cannot %s item %s in stage %s: %w", action, id, stage, ErrInvalidState)
}
