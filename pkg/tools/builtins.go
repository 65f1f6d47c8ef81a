package tools

import "github.com/tripflow/tripflow/pkg/store"

// RegisterBuiltins fills a registry with every builtin tool, wired to the
// given store and map provider.
func RegisterBuiltins(r *Registry, s *store.Store, maps MapAPI) {
	r.Register(NewSearchPOITool(maps))
	r.Register(NewCalculateRouteTool(maps))
	r.Register(NewMarkLocationTool(maps))
	r.Register(NewPlanTripTool())

	r.Register(NewCreateTripTool(s))
	r.Register(NewAddItineraryItemTool(s))
	r.Register(NewListTripsTool(s))

	r.Register(NewAddExpenseTool(s))
	r.Register(NewUpdateExpenseTool(s))
	r.Register(NewDeleteExpenseTool(s))
	r.Register(NewQueryTripBudgetTool(s))
}
