package model

// Plan is an internal plan identity. Plans are few and static, so the
// catalog is a fixed lookup loaded from config rather than a database table.
type Plan struct {
	ID   string
	Name string
}

// PlanCatalog maps provider price references to internal plans.
type PlanCatalog struct {
	byPrice map[string]Plan
}

func NewPlanCatalog(byPrice map[string]Plan) *PlanCatalog {
	m := make(map[string]Plan, len(byPrice))
	for price, plan := range byPrice {
		m[price] = plan
	}
	return &PlanCatalog{byPrice: m}
}

// ResolvePrice returns the internal plan for a provider price reference.
func (c *PlanCatalog) ResolvePrice(priceID string) (Plan, bool) {
	p, ok := c.byPrice[priceID]
	return p, ok
}

// NameOf returns the display name for a plan id, or the id itself when the
// plan is not in the catalog (old rows may reference retired plans).
func (c *PlanCatalog) NameOf(planID string) string {
	for _, p := range c.byPrice {
		if p.ID == planID {
			return p.Name
		}
	}
	return planID
}
