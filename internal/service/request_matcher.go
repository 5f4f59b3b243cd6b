package service

import (
	"strings"

	"go.uber.org/zap"

	"github.com/repairjunction/repairjunction-api/internal/models"
	"github.com/repairjunction/repairjunction-api/pkg/pincode"
)

// matchPrefixLength is the number of leading digits compared by the prefix step.
const matchPrefixLength = 3

// MatchResult is the outcome of matching pending requests to a technician.
// Fallback is set when nothing matched and Requests is the unfiltered input.
type MatchResult struct {
	Requests   []models.RepairRequest         `json:"requests"`
	Strategies map[int64]models.MatchStrategy `json:"strategies,omitempty"`
	Fallback   bool                           `json:"fallback"`
}

type matchStep struct {
	strategy models.MatchStrategy
	matches  func(req models.RepairRequest, extracted, technicianPincode string) bool
}

var matchSteps = []matchStep{
	{
		strategy: models.MatchExactPincode,
		matches: func(req models.RepairRequest, extracted, technicianPincode string) bool {
			return extracted != "" && extracted == technicianPincode
		},
	},
	{
		strategy: models.MatchSubstring,
		matches: func(req models.RepairRequest, extracted, technicianPincode string) bool {
			return strings.Contains(req.AddressValue(), technicianPincode)
		},
	},
	{
		strategy: models.MatchPrefix,
		matches: func(req models.RepairRequest, extracted, technicianPincode string) bool {
			return extracted != "" && len(technicianPincode) >= matchPrefixLength &&
				strings.HasPrefix(extracted, pincode.Prefix(technicianPincode, matchPrefixLength))
		},
	},
}

// RequestMatcher selects the pending requests relevant to a technician.
type RequestMatcher struct {
	metrics *MetricsService
	logger  *zap.Logger
}

// NewRequestMatcher constructs a RequestMatcher.
func NewRequestMatcher(metrics *MetricsService, logger *zap.Logger) *RequestMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestMatcher{metrics: metrics, logger: logger}
}

// Match runs the exact, substring and prefix steps in order. Each step only
// considers requests no earlier step claimed. Results are grouped by step,
// exact matches first, keeping the input order inside each group.
// When no step matches anything the whole input is returned with Fallback set.
// An empty input or an empty technician pincode yields an empty result.
func (m *RequestMatcher) Match(requests []models.RepairRequest, technicianPincode string) MatchResult {
	technicianPincode = strings.TrimSpace(technicianPincode)
	if len(requests) == 0 || technicianPincode == "" {
		m.logger.Info("matcher skipped", zap.Int("requests", len(requests)), zap.Bool("has_pincode", technicianPincode != ""))
		m.metrics.RecordMatch("empty")
		return MatchResult{Requests: []models.RepairRequest{}}
	}

	extracted := make([]string, len(requests))
	for i, req := range requests {
		pin, strategy, ok := pincode.Extract(req.AddressValue())
		if ok {
			extracted[i] = pin
			m.logger.Info("pincode extracted", zap.Int64("request_id", req.ID), zap.String("strategy", string(strategy)))
		}
	}

	strategies := make(map[int64]models.MatchStrategy)
	matched := make([]models.RepairRequest, 0, len(requests))
	for _, step := range matchSteps {
		hits := 0
		for i, req := range requests {
			if _, taken := strategies[req.ID]; taken {
				continue
			}
			if step.matches(req, extracted[i], technicianPincode) {
				strategies[req.ID] = step.strategy
				matched = append(matched, req)
				hits++
			}
		}
		m.logger.Info("matcher step", zap.String("strategy", string(step.strategy)), zap.Int("matches", hits))
	}

	if len(strategies) == 0 {
		m.logger.Info("no requests matched technician area, returning all pending requests",
			zap.String("technician_pincode", technicianPincode),
			zap.Int("requests", len(requests)),
		)
		m.metrics.RecordMatch(string(models.MatchFallback))
		all := make([]models.RepairRequest, len(requests))
		copy(all, requests)
		return MatchResult{Requests: all, Fallback: true}
	}

	m.metrics.RecordMatch("matched")
	return MatchResult{Requests: matched, Strategies: strategies}
}
