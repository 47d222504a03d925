package services

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

const defaultParticipationCap = 10

// ScoreWeights weighs the normalized priority sub-scores. The weights must
// sum to 1.
type ScoreWeights struct {
	Historial    float64 `json:"historial"`
	Categoria    float64 `json:"categoria"`
	Presupuesto  float64 `json:"presupuesto"`
	Preferencias float64 `json:"preferencias"`
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Historial:    0.30,
		Categoria:    0.25,
		Presupuesto:  0.25,
		Preferencias: 0.20,
	}
}

func (w ScoreWeights) sum() float64 {
	return w.Historial + w.Categoria + w.Presupuesto + w.Preferencias
}

func (w ScoreWeights) Validate() error {
	for name, v := range map[string]float64{
		"historial":    w.Historial,
		"categoria":    w.Categoria,
		"presupuesto":  w.Presupuesto,
		"preferencias": w.Preferencias,
	} {
		if v < 0 {
			return fmt.Errorf("scoring weight %s must not be negative", name)
		}
	}

	if math.Abs(w.sum()-1) > 1e-6 {
		return fmt.Errorf("scoring weights must sum to 1, got %.4f", w.sum())
	}

	return nil
}

// PriorityScorer computes the priority of a request in [0,100].
type PriorityScorer struct {
	Weights          ScoreWeights
	ParticipationCap int
}

func NewPriorityScorer(weights ScoreWeights) PriorityScorer {
	return PriorityScorer{
		Weights:          weights,
		ParticipationCap: defaultParticipationCap,
	}
}

type ScoreInput struct {
	Request *domain.AssignmentRequest
	Company *domain.Company
	Event   *domain.Event
	Stands  []domain.Stand
}

type ScoreBreakdown struct {
	Historial    float64 `json:"historial"`
	Categoria    float64 `json:"categoria"`
	Presupuesto  float64 `json:"presupuesto"`
	Preferencias float64 `json:"preferencias"`
	Total        float64 `json:"total"`
}

func (s PriorityScorer) Score(in ScoreInput) float64 {
	return s.Breakdown(in).Total
}

func (s PriorityScorer) Breakdown(in ScoreInput) ScoreBreakdown {
	w := s.Weights
	if w.sum() == 0 {
		w = DefaultScoreWeights()
	}

	b := ScoreBreakdown{
		Historial:    s.historyScore(in.Company),
		Categoria:    categoryScore(in.Company, in.Event),
		Presupuesto:  budgetScore(declaredBudget(in.Request, in.Company), in.Stands),
		Preferencias: preferenceScore(in.Request, in.Stands),
	}

	total := 100 * (w.Historial*b.Historial +
		w.Categoria*b.Categoria +
		w.Presupuesto*b.Presupuesto +
		w.Preferencias*b.Preferencias)
	b.Total = round2(clamp(total, 0, 100))

	return b
}

func (s PriorityScorer) historyScore(c *domain.Company) float64 {
	if c == nil || c.Participations <= 0 {
		return 0
	}

	limit := s.ParticipationCap
	if limit <= 0 {
		limit = defaultParticipationCap
	}

	return math.Min(float64(c.Participations), float64(limit)) / float64(limit)
}

func categoryScore(c *domain.Company, e *domain.Event) float64 {
	if c == nil || e == nil {
		return 0
	}

	if e.HasFocusCategory(c.PrimaryCategory) {
		return 1
	}

	return 0
}

func declaredBudget(r *domain.AssignmentRequest, c *domain.Company) float64 {
	if r != nil && r.Criteria.BudgetMax != nil {
		return *r.Criteria.BudgetMax
	}

	if c != nil {
		return c.Budget
	}

	return 0
}

// budgetScore is 1 when the budget sits on the median stand price and decays
// linearly with the distance to it, measured against the price range.
func budgetScore(budget float64, stands []domain.Stand) float64 {
	if budget <= 0 || len(stands) == 0 {
		return 0
	}

	prices := make([]float64, 0, len(stands))
	for _, st := range stands {
		prices = append(prices, st.Price)
	}
	sort.Float64s(prices)

	median := stat.Quantile(0.5, stat.Empirical, prices, nil)
	spread := prices[len(prices)-1] - prices[0]

	if spread == 0 {
		if median <= 0 || budget >= median {
			return 1
		}
		return budget / median
	}

	return clamp(1-math.Abs(budget-median)/spread, 0, 1)
}

func preferenceScore(r *domain.AssignmentRequest, stands []domain.Stand) float64 {
	if r == nil || !r.Criteria.HasPreferences() {
		return 0
	}

	if r.RequestedStandID != nil {
		for i := range stands {
			if stands[i].ID == *r.RequestedStandID {
				return preferenceFit(r.Criteria, &stands[i])
			}
		}
		return 0
	}

	best := 0.0
	for i := range stands {
		best = math.Max(best, preferenceFit(r.Criteria, &stands[i]))
	}

	return best
}

func preferenceFit(c domain.Criteria, st *domain.Stand) float64 {
	var dims, total float64

	if c.PreferredZone != "" {
		dims++
		if st.InZone(c.PreferredZone) {
			total++
		}
	}

	if n := len(c.RequiredServices); n > 0 {
		dims++
		total += float64(n-len(st.MissingServices(c.RequiredServices))) / float64(n)
	}

	if dims == 0 {
		return 0
	}

	return total / dims
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
