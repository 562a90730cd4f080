// Package radarsvc projects approved solutions onto the tech radar.
package radarsvc

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/techradar/compass/internal/app/system/metrics"
	"github.com/techradar/compass/internal/domain/models"
	"go.uber.org/zap"
)

// Rings in display order. EXIT has no recommend status mapped onto it.
var ringNames = []string{"ADOPT", "TRIAL", "ASSESS", "HOLD", "EXIT"}

var ringIndex = map[string]int{
	models.RecommendAdopt:  0,
	models.RecommendTrial:  1,
	models.RecommendAssess: 2,
	models.RecommendHold:   3,
}

// NewWindow is how long a solution counts as new or recently moved.
const NewWindow = 14 * 24 * time.Hour

// QuadrantCount is the number of radar quadrants.
const QuadrantCount = 4

type SolutionStore interface {
	FindApproved(ctx context.Context, group string) ([]models.Solution, error)
}

type CategoryStore interface {
	FindByNames(ctx context.Context, names []string) (map[string]models.Category, error)
	FindOnRadar(ctx context.Context) ([]models.Category, error)
}

type Service struct {
	solutions  SolutionStore
	categories CategoryStore
	log        *zap.Logger
	now        func() time.Time
}

func New(solutions SolutionStore, categories CategoryStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{solutions: solutions, categories: categories, log: log, now: time.Now}
}

// Data builds the radar from approved solutions, optionally limited to
// one group. Solutions whose category is missing or off the radar, or
// whose recommend status has no ring, are left out.
func (s *Service) Data(ctx context.Context, group string) (models.TechRadarData, error) {
	sols, err := s.solutions.FindApproved(ctx, group)
	if err != nil {
		return models.TechRadarData{}, fmt.Errorf("load approved solutions: %w", err)
	}

	names := make([]string, 0, len(sols))
	seen := make(map[string]bool)
	for _, sol := range sols {
		if sol.Category != "" && !seen[sol.Category] {
			seen[sol.Category] = true
			names = append(names, sol.Category)
		}
	}
	cats := map[string]models.Category{}
	if len(names) > 0 {
		if cats, err = s.categories.FindByNames(ctx, names); err != nil {
			return models.TechRadarData{}, fmt.Errorf("load categories: %w", err)
		}
	}

	now := s.now().UTC()
	entries := make([]models.TechRadarEntry, 0, len(sols))
	for _, sol := range sols {
		cat, ok := cats[sol.Category]
		if !ok {
			metrics.RadarSkipped.WithLabelValues("no_category").Inc()
			continue
		}
		if !cat.OnRadar() {
			reason := "off_radar"
			if cat.RadarQuadrant > 3 {
				reason = "bad_quadrant"
				s.log.Warn("category quadrant out of range",
					zap.String("category", cat.Name),
					zap.Int("radar_quadrant", cat.RadarQuadrant))
			}
			metrics.RadarSkipped.WithLabelValues(reason).Inc()
			continue
		}
		ring, ok := ringIndex[sol.RecommendStatus]
		if !ok {
			metrics.RadarSkipped.WithLabelValues("unknown_status").Inc()
			s.log.Warn("solution has no radar ring",
				zap.String("slug", sol.Slug),
				zap.String("recommend_status", sol.RecommendStatus))
			continue
		}
		entries = append(entries, models.TechRadarEntry{
			Quadrant:                      cat.RadarQuadrant,
			Ring:                          ring,
			Label:                         sol.Name,
			Link:                          "/tech-radar/items/" + sol.Slug,
			Active:                        true,
			Moved:                         0,
			IsNewOrRecommendStatusChanged: isRecent(sol, now),
		})
	}

	metrics.RadarEntries.WithLabelValues(strconv.FormatBool(group != "")).Set(float64(len(entries)))
	return models.TechRadarData{Date: now.Format("2006-01"), Entries: entries}, nil
}

func isRecent(sol models.Solution, now time.Time) bool {
	if t := sol.StatusChangedAt(); t != nil {
		return now.Sub(*t) < NewWindow
	}
	if sol.CreatedAt.IsZero() {
		return false
	}
	return now.Sub(sol.CreatedAt) < NewWindow
}

// Quadrants names the four quadrants from the categories placed in them.
// When several categories share a quadrant the first by _id names it.
// Quadrants no category occupies are omitted.
func (s *Service) Quadrants(ctx context.Context) ([]models.RadarName, error) {
	cats, err := s.categories.FindOnRadar(ctx)
	if err != nil {
		return nil, fmt.Errorf("load radar categories: %w", err)
	}
	var byIndex [QuadrantCount]string
	for _, c := range cats {
		if c.OnRadar() && byIndex[c.RadarQuadrant] == "" {
			byIndex[c.RadarQuadrant] = c.Name
		}
	}
	out := make([]models.RadarName, 0, QuadrantCount)
	for _, name := range byIndex {
		if name != "" {
			out = append(out, models.RadarName{Name: name})
		}
	}
	return out, nil
}

// Rings returns the ring names in display order.
func (s *Service) Rings() []models.RadarName {
	out := make([]models.RadarName, len(ringNames))
	for i, n := range ringNames {
		out[i] = models.RadarName{Name: n}
	}
	return out
}
