package stats

import (
	"context"
	"fmt"
	"time"

	"linker/internal/common"
	"linker/internal/constants"
	"linker/internal/db/repositories"
	"linker/internal/metrics"

	"github.com/goccy/go-json"
)

const reportCacheKey = string(constants.CachePrefixStats) + "report"

// Service serves the stats report from the cache, recomputing it at most once per TTL.
type Service struct {
	reference *repositories.ReferenceRepo
	teams     *repositories.TeamRepo
	logs      *repositories.CheckpointLogRepo
	cache     common.CacheInterface
	ttl       time.Duration
	metrics   *metrics.MetricsRegistry
}

func NewService(
	reference *repositories.ReferenceRepo,
	teams *repositories.TeamRepo,
	logs *repositories.CheckpointLogRepo,
	cache common.CacheInterface,
	ttl time.Duration,
	metricsReg *metrics.MetricsRegistry,
) *Service {
	return &Service{
		reference: reference,
		teams:     teams,
		logs:      logs,
		cache:     cache,
		ttl:       ttl,
		metrics:   metricsReg,
	}
}

// Report returns the encoded report. Concurrent misses may each recompute;
// the result is the same.
func (s *Service) Report(ctx context.Context) ([]byte, error) {
	if data, found := s.cache.Get(reportCacheKey); found {
		s.observe(true)
		return data, nil
	}
	s.observe(false)

	return s.cache.GetOrSet(reportCacheKey, s.ttl, func() ([]byte, error) {
		return s.encode(ctx)
	})
}

// Refresh recomputes the report and replaces the cached copy.
func (s *Service) Refresh(ctx context.Context) error {
	data, err := s.encode(ctx)
	if err != nil {
		return err
	}
	s.cache.Set(reportCacheKey, data, s.ttl)
	return nil
}

// Compute loads the inputs and runs Calculate.
func (s *Service) Compute(ctx context.Context) (*Report, error) {
	fiches, err := s.reference.SequencedFiches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load fiches: %w", err)
	}

	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}

	logs, err := s.logs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint logs: %w", err)
	}

	input := make([]TeamLogs, 0, len(teams))
	index := make(map[uint]int, len(teams))
	for _, team := range teams {
		index[team.ID] = len(input)
		input = append(input, TeamLogs{TeamID: team.ID, Direction: team.Direction})
	}
	for _, log := range logs {
		if i, ok := index[log.TeamID]; ok {
			input[i].Logs = append(input[i].Logs, log)
		}
	}

	return Calculate(NewSequence(fiches), input), nil
}

func (s *Service) encode(ctx context.Context) ([]byte, error) {
	report, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stats: %w", err)
	}
	return data, nil
}

func (s *Service) observe(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHitsTotal.WithLabelValues(reportCacheKey).Inc()
	} else {
		s.metrics.CacheMissesTotal.WithLabelValues(reportCacheKey).Inc()
	}
}
