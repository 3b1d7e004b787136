// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

const (
	minRevisionCycles     = 1
	maxRevisionCycles     = 3
	defaultRevisionCycles = 2
)

// StartOptions tune one pipeline run. The normalized options are
// persisted on the item so later advancement reads them back rather
// than the configured defaults.
type StartOptions = types.StartOptions

// normalizeOptions fills unset options from run defaults and validates
// the result.
func normalizeOptions(o StartOptions, defaults types.PipelineDefaults) (StartOptions, error) {
	if o.MaxRevisionCycles == 0 {
		o.MaxRevisionCycles = defaults.MaxRevisionCycles
	}
	if o.MaxRevisionCycles == 0 {
		o.MaxRevisionCycles = defaultRevisionCycles
	}
	if o.MaxRevisionCycles < minRevisionCycles || o.MaxRevisionCycles > maxRevisionCycles {
		return o, fmt.Errorf("max revision cycles %d out of range %d-%d",
			o.MaxRevisionCycles, minRevisionCycles, maxRevisionCycles)
	}

	if !o.SkipResearch && !defaults.EnableWebResearch {
		o.SkipResearch = true
	}

	if o.ResearchModel == "" {
		o.ResearchModel = defaults.ResearchModel
	}
	if o.ResearchModel == "" {
		o.ResearchModel = types.ResearchSonar
	}
	if !o.ResearchModel.Valid() {
		return o, fmt.Errorf("unknown research model %q", o.ResearchModel)
	}

	if o.BlogStatus == "" {
		o.BlogStatus = defaults.BlogStatus
	}
	if o.BlogStatus == "" {
		o.BlogStatus = types.BlogStatusDraft
	}
	if !o.BlogStatus.Valid() {
		return o, fmt.Errorf("unknown blog status %q", o.BlogStatus)
	}

	if !o.SkipSocial && !defaults.PostToSocial {
		o.SkipSocial = true
	}

	return o, nil
}
