// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package router classifies tasks by complexity tier and selects the
// cheapest backend that can handle them, with per-call cost estimation.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

// Tier is a task complexity classification.
type Tier string

const (
	TierHigh   Tier = "HIGH"
	TierMedium Tier = "MEDIUM"
	TierLow    Tier = "LOW"
)

// Method records which classification stage produced a decision.
type Method string

const (
	MethodKeyword   Method = "keyword"
	MethodHeuristic Method = "heuristic"
	MethodModel     Method = "model"
)

// highKeywords signal high-complexity work: long-form writing, research,
// and analysis tasks.
var highKeywords = []string{
	"write article", "write blog", "write report", "write analysis",
	"draft article", "long-form", "deep dive", "comprehensive",
	"memo", "research briefing", "security analysis", "threat analysis",
	"vulnerability report", "research", "investigate",
	"architect", "design system", "strategy", "risk assessment",
}

// mediumKeywords signal editing, summarizing, and structured output.
var mediumKeywords = []string{
	"summarize", "summarise", "summary", "overview", "brief",
	"improve", "enhance", "rewrite", "edit", "refine", "polish",
	"outline", "bullet points", "categorize", "title",
	"meta description", "social post",
}

// lowKeywords signal lookups and formatting.
var lowKeywords = []string{
	"what is", "define", "explain briefly", "quick", "simple",
	"format", "convert", "parse", "extract", "clean up",
}

// technicalTerms feed the length heuristic: technical tasks promote to
// HIGH at a lower word count.
var technicalTerms = []string{
	"api", "code", "script", "security", "vulnerability", "cve",
	"exploit", "audit", "architecture", "zero trust",
}

// backendRates is the published per-1K-token rate (input and output
// combined into a single blended USD rate) for each known backend.
var backendRates = map[string]float64{
	"gpt-4o":      0.00625,
	"gpt-4o-mini": 0.000375,
}

// defaultRate covers backends without a published rate.
const defaultRate = 0.00625

// Classifier is the model-call fallback for ambiguous tasks. It is a
// lightweight model invocation; errors fall back to a MEDIUM decision.
type Classifier interface {
	ClassifyTier(ctx context.Context, task string) (string, error)
}

// Decision is the outcome of routing one task.
type Decision struct {
	// Tier is the complexity classification.
	Tier Tier

	// Backend is the backend id the task should execute on.
	Backend string

	// EstimatedCost is the projected USD cost for the call.
	EstimatedCost float64

	// Method records which classification stage decided.
	Method Method

	// Reason explains the decision for the audit trail.
	Reason string
}

// Router maps tasks to tiers and tiers to backends.
type Router struct {
	cfg        types.RouterConfig
	classifier Classifier
}

// New returns a Router. classifier may be nil, in which case ambiguous
// tasks default to MEDIUM without a model call. Unset backend ids
// default to gpt-4o (high) and gpt-4o-mini (fast).
func New(cfg types.RouterConfig, classifier Classifier) *Router {
	if cfg.HighBackend == "" {
		cfg.HighBackend = "gpt-4o"
	}
	if cfg.FastBackend == "" {
		cfg.FastBackend = "gpt-4o-mini"
	}
	return &Router{cfg: cfg, classifier: classifier}
}

// Classify runs the three-stage classification: keyword match,
// length/shape heuristics, then the model fallback when both are
// ambiguous. The fallback order is fixed and each stage is
// independently deterministic.
func (r *Router) Classify(ctx context.Context, task string) (Tier, Method, string) {
	if tier, reason, ok := keywordClassify(task); ok {
		return tier, MethodKeyword, reason
	}

	tier, reason, confident := heuristicClassify(task)
	if confident || r.classifier == nil {
		return tier, MethodHeuristic, reason
	}

	raw, err := r.classifier.ClassifyTier(ctx, task)
	if err != nil {
		return TierMedium, MethodHeuristic, fmt.Sprintf("classifier call failed (%v), defaulting to MEDIUM", err)
	}
	switch Tier(strings.ToUpper(strings.TrimSpace(raw))) {
	case TierHigh:
		return TierHigh, MethodModel, "model classification"
	case TierLow:
		return TierLow, MethodModel, "model classification"
	default:
		return TierMedium, MethodModel, "model classification"
	}
}

// Select maps a tier to its backend id: HIGH routes to the
// high-capability backend, MEDIUM and LOW share the fast backend.
func (r *Router) Select(tier Tier) string {
	if tier == TierHigh {
		return r.cfg.HighBackend
	}
	return r.cfg.FastBackend
}

// EstimateCost projects the USD cost of running expectedTokens through
// the backend serving the tier. The estimate is linear in token volume.
func (r *Router) EstimateCost(tier Tier, expectedTokens int) float64 {
	backend := r.Select(tier)
	rate, ok := backendRates[backend]
	if !ok {
		rate = defaultRate
	}
	return float64(expectedTokens) / 1000 * rate
}

// Route classifies a task and packages the full decision.
func (r *Router) Route(ctx context.Context, task string, expectedTokens int) Decision {
	tier, method, reason := r.Classify(ctx, task)
	return Decision{
		Tier:          tier,
		Backend:       r.Select(tier),
		EstimatedCost: r.EstimateCost(tier, expectedTokens),
		Method:        method,
		Reason:        reason,
	}
}

// keywordClassify matches the task against the fixed keyword lists.
// The third return value is false when no list matches unambiguously.
func keywordClassify(task string) (Tier, string, bool) {
	lower := strings.ToLower(task)

	high := matches(lower, highKeywords)
	medium := matches(lower, mediumKeywords)
	low := matches(lower, lowKeywords)

	switch {
	case len(high) > 0 && len(medium) == 0 && len(low) == 0:
		return TierHigh, "high-complexity keywords: " + strings.Join(cap2(high), ", "), true
	case len(low) > 0 && len(high) == 0 && len(medium) == 0:
		return TierLow, "low-complexity keywords: " + strings.Join(cap2(low), ", "), true
	case len(medium) > 0 && len(high) == 0:
		return TierMedium, "medium-complexity keywords: " + strings.Join(cap2(medium), ", "), true
	case len(high) > 0:
		// Mixed signals with a high-complexity hit present.
		return TierHigh, "high-complexity signals present: " + strings.Join(cap2(high), ", "), true
	}
	return "", "", false
}

// heuristicClassify applies length and shape rules. confident is false
// for the ambiguous middle ground, which is where the model fallback
// earns its cost.
func heuristicClassify(task string) (tier Tier, reason string, confident bool) {
	lower := strings.ToLower(task)
	words := len(strings.Fields(task))
	technical := len(matches(lower, technicalTerms)) > 0
	question := strings.Contains(task, "?")

	switch {
	case words > 30 || (technical && words > 15):
		return TierHigh, fmt.Sprintf("long or technical task (%d words, technical=%v)", words, technical), true
	case question && words <= 10:
		return TierLow, fmt.Sprintf("short question (%d words)", words), true
	case words <= 10:
		return TierMedium, fmt.Sprintf("short task (%d words)", words), true
	default:
		return TierMedium, fmt.Sprintf("default medium (%d words)", words), false
	}
}

func matches(lower string, keywords []string) []string {
	var hits []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

func cap2(hits []string) []string {
	if len(hits) > 2 {
		return hits[:2]
	}
	return hits
}
