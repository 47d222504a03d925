package domain

// Criteria is the fixed set of optional stand constraints a request may state.
// Nil bounds and empty values mean "unspecified".
type Criteria struct {
	AreaMin          *float64 `json:"area_minima,omitempty"`
	AreaMax          *float64 `json:"area_maxima,omitempty"`
	BudgetMax        *float64 `json:"presupuesto_maximo,omitempty"`
	RequiredServices []string `json:"servicios_requeridos,omitempty"`
	PreferredZone    string   `json:"zona_preferida,omitempty"`
}

func (c Criteria) Validate() error {
	if c.AreaMin != nil && *c.AreaMin < 0 {
		return Errorf(ErrValidation, "area_minima must not be negative")
	}

	if c.AreaMax != nil && *c.AreaMax < 0 {
		return Errorf(ErrValidation, "area_maxima must not be negative")
	}

	if c.AreaMin != nil && c.AreaMax != nil && *c.AreaMin > *c.AreaMax {
		return Errorf(ErrValidation, "area_minima %.2f is greater than area_maxima %.2f", *c.AreaMin, *c.AreaMax)
	}

	if c.BudgetMax != nil && *c.BudgetMax < 0 {
		return Errorf(ErrValidation, "presupuesto_maximo must not be negative")
	}

	for _, svc := range c.RequiredServices {
		if normalize(svc) == "" {
			return Errorf(ErrValidation, "servicios_requeridos contains an empty service")
		}
	}

	return nil
}

func (c Criteria) HasPreferences() bool {
	return c.PreferredZone != "" || len(c.RequiredServices) > 0
}

func Float(v float64) *float64 {
	return &v
}
