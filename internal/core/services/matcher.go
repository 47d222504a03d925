package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

type MatchWeights struct {
	Area     float64 `json:"area"`
	Budget   float64 `json:"presupuesto"`
	Services float64 `json:"servicios"`
	Zone     float64 `json:"zona"`
}

func DefaultMatchWeights() MatchWeights {
	return MatchWeights{
		Area:     0.40,
		Budget:   0.20,
		Services: 0.20,
		Zone:     0.20,
	}
}

func (w MatchWeights) sum() float64 {
	return w.Area + w.Budget + w.Services + w.Zone
}

func (w MatchWeights) Validate() error {
	if w.Area < 0 || w.Budget < 0 || w.Services < 0 || w.Zone < 0 {
		return fmt.Errorf("matching weights must not be negative")
	}

	if math.Abs(w.sum()-1) > 1e-6 {
		return fmt.Errorf("matching weights must sum to 1, got %.4f", w.sum())
	}

	return nil
}

type MatchResult struct {
	Compatible     bool     `json:"compatible"`
	Score          float64  `json:"score"`
	Recommendation string   `json:"recomendacion"`
	Reasons        []string `json:"motivos,omitempty"`
}

type RankedStand struct {
	Stand domain.Stand `json:"stand"`
	Match MatchResult  `json:"compatibilidad"`
}

// CompatibilityMatcher grades a stand against request criteria. It holds no
// state besides its weights and is safe for concurrent use.
type CompatibilityMatcher struct {
	Weights MatchWeights
}

func NewCompatibilityMatcher(weights MatchWeights) CompatibilityMatcher {
	return CompatibilityMatcher{Weights: weights}
}

func (m CompatibilityMatcher) Match(c domain.Criteria, st domain.Stand) MatchResult {
	var reasons []string

	if c.AreaMin != nil && st.Area < *c.AreaMin {
		reasons = append(reasons, fmt.Sprintf("area %.2f below minimum %.2f", st.Area, *c.AreaMin))
	}

	if c.AreaMax != nil && st.Area > *c.AreaMax {
		reasons = append(reasons, fmt.Sprintf("area %.2f above maximum %.2f", st.Area, *c.AreaMax))
	}

	if c.BudgetMax != nil && st.Price > *c.BudgetMax {
		reasons = append(reasons, fmt.Sprintf("price %.2f exceeds budget %.2f", st.Price, *c.BudgetMax))
	}

	if missing := st.MissingServices(c.RequiredServices); len(missing) > 0 {
		reasons = append(reasons, "missing services: "+strings.Join(missing, ", "))
	}

	if len(reasons) > 0 {
		return MatchResult{
			Compatible:     false,
			Score:          0,
			Recommendation: "not compatible",
			Reasons:        reasons,
		}
	}

	w := m.Weights
	if w.sum() == 0 {
		w = DefaultMatchWeights()
	}

	zone := 1.0
	if c.PreferredZone != "" && !st.InZone(c.PreferredZone) {
		zone = 0
		reasons = append(reasons, fmt.Sprintf("zone %s differs from preferred %s", st.Zone, c.PreferredZone))
	}

	score := round2(100 * (w.Area*areaCentering(c, st.Area) + w.Budget + w.Services + w.Zone*zone))

	return MatchResult{
		Compatible:     true,
		Score:          score,
		Recommendation: recommendation(score),
		Reasons:        reasons,
	}
}

// areaCentering is 1 at the center of a closed area range and falls to 0 at
// its edges. Open or unspecified ranges impose no preference.
func areaCentering(c domain.Criteria, area float64) float64 {
	if c.AreaMin == nil || c.AreaMax == nil {
		return 1
	}

	half := (*c.AreaMax - *c.AreaMin) / 2
	if half == 0 {
		return 1
	}

	center := *c.AreaMin + half

	return clamp(1-math.Abs(area-center)/half, 0, 1)
}

func recommendation(score float64) string {
	switch {
	case score >= 85:
		return "highly recommended"
	case score >= 60:
		return "recommended"
	default:
		return "acceptable"
	}
}

// Rank grades every stand, compatible stands first by descending score.
func (m CompatibilityMatcher) Rank(c domain.Criteria, stands []domain.Stand) []RankedStand {
	ranked := make([]RankedStand, 0, len(stands))
	for _, st := range stands {
		ranked = append(ranked, RankedStand{Stand: st, Match: m.Match(c, st)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Match.Compatible != b.Match.Compatible {
			return a.Match.Compatible
		}
		return betterStand(a, b)
	})

	return ranked
}

// Best returns the highest scoring compatible stand accepted by the filter.
func (m CompatibilityMatcher) Best(c domain.Criteria, stands []domain.Stand, accept func(domain.Stand) bool) (RankedStand, bool) {
	var best RankedStand
	found := false

	for _, st := range stands {
		if accept != nil && !accept(st) {
			continue
		}

		res := m.Match(c, st)
		if !res.Compatible {
			continue
		}

		cand := RankedStand{Stand: st, Match: res}
		if !found || betterStand(cand, best) {
			best = cand
			found = true
		}
	}

	return best, found
}

func betterStand(a, b RankedStand) bool {
	if a.Match.Score != b.Match.Score {
		return a.Match.Score > b.Match.Score
	}

	if a.Stand.Price != b.Stand.Price {
		return a.Stand.Price < b.Stand.Price
	}

	if a.Stand.Code != b.Stand.Code {
		return a.Stand.Code < b.Stand.Code
	}

	return a.Stand.ID.String() < b.Stand.ID.String()
}
