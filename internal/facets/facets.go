// Package facets implements the sidebar filter over the resource catalog as a
// pure reducer: state in, state out, no storage. The view layer owns the
// per-user copies and feeds catalog changes through Reconcile.
package facets

import (
	"labslot/pkg/model"
)

// Reconcile aligns facet state with the catalog. Newly observed type and
// generation values enter as included; values no longer present in any
// resource are pruned. Existing flags are preserved, so reconciling twice
// with the same catalog is a no-op.
func Reconcile(state model.FacetState, resources []*model.Resource) model.FacetState {
	next := model.NewFacetState()

	for _, res := range resources {
		if _, seen := next.Types[res.Type]; !seen {
			included, known := state.Types[res.Type]
			if !known {
				included = true
			}
			next.Types[res.Type] = included
		}
		if _, seen := next.Generations[res.Generation]; !seen {
			included, known := state.Generations[res.Generation]
			if !known {
				included = true
			}
			next.Generations[res.Generation] = included
		}
	}

	return next
}

// Toggle flips the inclusion flag for one value of one dimension. Unknown
// dimensions or values leave the state unchanged; the caller reconciled
// against the catalog first, so an unknown value means a stale client.
func Toggle(state model.FacetState, dimension, value string) model.FacetState {
	next := state.Clone()

	switch dimension {
	case model.FacetTypes:
		if current, ok := next.Types[value]; ok {
			next.Types[value] = !current
		}
	case model.FacetGenerations:
		if current, ok := next.Generations[value]; ok {
			next.Generations[value] = !current
		}
	}

	return next
}

// Set forces the inclusion flag for one value of one dimension.
func Set(state model.FacetState, dimension, value string, included bool) model.FacetState {
	next := state.Clone()

	switch dimension {
	case model.FacetTypes:
		if _, ok := next.Types[value]; ok {
			next.Types[value] = included
		}
	case model.FacetGenerations:
		if _, ok := next.Generations[value]; ok {
			next.Generations[value] = included
		}
	}

	return next
}

// VisibleResources filters the catalog down to resources whose type AND
// generation are both included. A value missing from the state counts as
// included, matching the default for values the state has not seen yet.
func VisibleResources(state model.FacetState, resources []*model.Resource) []*model.Resource {
	visible := make([]*model.Resource, 0, len(resources))
	for _, res := range resources {
		if included(state.Types, res.Type) && included(state.Generations, res.Generation) {
			visible = append(visible, res)
		}
	}
	return visible
}

// VisibleIDs returns the id set of visible resources for membership checks.
func VisibleIDs(state model.FacetState, resources []*model.Resource) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, res := range VisibleResources(state, resources) {
		ids[res.ID] = struct{}{}
	}
	return ids
}

func included(flags map[string]bool, value string) bool {
	inc, ok := flags[value]
	if !ok {
		return true
	}
	return inc
}
