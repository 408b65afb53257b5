package model

// Facet dimensions over the resource catalog.
const (
	FacetTypes       = "types"
	FacetGenerations = "generations"
)

// FacetState maps every distinct type and generation value observed in the
// catalog to an inclusion flag. The key sets mirror the catalog exactly:
// values that disappear are pruned, newly observed values default to included.
// Derived state, never a source of truth.
type FacetState struct {
	Types       map[string]bool `json:"types"`
	Generations map[string]bool `json:"generations"`
}

func NewFacetState() FacetState {
	return FacetState{
		Types:       map[string]bool{},
		Generations: map[string]bool{},
	}
}

// Clone returns a deep copy so reducers can stay free of aliasing surprises.
func (s FacetState) Clone() FacetState {
	out := FacetState{
		Types:       make(map[string]bool, len(s.Types)),
		Generations: make(map[string]bool, len(s.Generations)),
	}
	for k, v := range s.Types {
		out.Types[k] = v
	}
	for k, v := range s.Generations {
		out.Generations[k] = v
	}
	return out
}
