package services_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/services"
)

func TestMatch_CompatibleStand(t *testing.T) {
	m := services.NewCompatibilityMatcher(services.DefaultMatchWeights())
	criteria := domain.Criteria{
		AreaMin:          domain.Float(10),
		AreaMax:          domain.Float(50),
		BudgetMax:        domain.Float(1000),
		RequiredServices: []string{"electricidad", "internet"},
	}
	stand := domain.Stand{Area: 30, Price: 800, Services: []string{"electricidad", "internet", "agua"}}

	res := m.Match(criteria, stand)

	assert.True(t, res.Compatible)
	assert.Greater(t, res.Score, 0.0)
}

func TestMatch_ExactCenterInZoneScoresFull(t *testing.T) {
	m := services.NewCompatibilityMatcher(services.DefaultMatchWeights())
	criteria := domain.Criteria{
		AreaMin:          domain.Float(20),
		AreaMax:          domain.Float(40),
		RequiredServices: []string{"Internet"},
		PreferredZone:    "Norte",
	}
	stand := domain.Stand{Area: 30, Price: 900, Zone: "norte", Services: []string{"internet", "agua"}}

	res := m.Match(criteria, stand)

	assert.True(t, res.Compatible)
	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, "highly recommended", res.Recommendation)
}

func TestMatch_ZoneIsSoft(t *testing.T) {
	m := services.NewCompatibilityMatcher(services.DefaultMatchWeights())

	res := m.Match(domain.Criteria{PreferredZone: "sur"}, domain.Stand{Area: 10, Zone: "norte"})

	assert.True(t, res.Compatible)
	assert.Equal(t, 80.0, res.Score)
	assert.NotEmpty(t, res.Reasons)
}

func TestMatch_HardConstraints(t *testing.T) {
	m := services.NewCompatibilityMatcher(services.DefaultMatchWeights())
	stand := domain.Stand{Area: 30, Price: 800, Services: []string{"internet"}}

	tests := []struct {
		name     string
		criteria domain.Criteria
	}{
		{"area just below minimum", domain.Criteria{AreaMin: domain.Float(30.01)}},
		{"area above maximum", domain.Criteria{AreaMax: domain.Float(29.99)}},
		{"over budget", domain.Criteria{BudgetMax: domain.Float(799.99)}},
		{"missing service", domain.Criteria{RequiredServices: []string{"internet", "agua"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Match(tt.criteria, stand)

			assert.False(t, res.Compatible)
			assert.Zero(t, res.Score)
			assert.Len(t, res.Reasons, 1)
		})
	}
}

func TestMatch_Deterministic(t *testing.T) {
	m := services.NewCompatibilityMatcher(services.DefaultMatchWeights())
	criteria := domain.Criteria{AreaMin: domain.Float(12), AreaMax: domain.Float(40), PreferredZone: "sur"}
	stand := domain.Stand{Area: 17, Price: 300, Zone: "sur"}

	assert.Equal(t, m.Match(criteria, stand), m.Match(criteria, stand))
}

func TestRank_CompatibleFirstThenCheaper(t *testing.T) {
	m := services.NewCompatibilityMatcher(services.DefaultMatchWeights())
	criteria := domain.Criteria{BudgetMax: domain.Float(1000)}

	cheap := domain.Stand{ID: uuid.New(), Code: "B", Price: 400}
	pricey := domain.Stand{ID: uuid.New(), Code: "A", Price: 900}
	over := domain.Stand{ID: uuid.New(), Code: "C", Price: 1200}

	ranked := m.Rank(criteria, []domain.Stand{over, pricey, cheap})

	require.Len(t, ranked, 3)
	assert.Equal(t, "B", ranked[0].Stand.Code)
	assert.Equal(t, "A", ranked[1].Stand.Code)
	assert.False(t, ranked[2].Match.Compatible)

	best, ok := m.Best(criteria, []domain.Stand{over, pricey, cheap}, func(st domain.Stand) bool { return st.Code != "B" })
	require.True(t, ok)
	assert.Equal(t, "A", best.Stand.Code)
}
