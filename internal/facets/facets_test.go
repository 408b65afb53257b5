package facets

import (
	"testing"

	"labslot/pkg/model"
)

func catalog() []*model.Resource {
	return []*model.Resource{
		{ID: "a", Name: "osc-1", Type: "oscilloscope", Generation: "gen2"},
		{ID: "b", Name: "osc-2", Type: "oscilloscope", Generation: "gen3"},
		{ID: "c", Name: "psu-1", Type: "power-supply", Generation: "gen2"},
	}
}

func TestReconcile_NewValuesDefaultIncluded(t *testing.T) {
	state := Reconcile(model.NewFacetState(), catalog())

	if len(state.Types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(state.Types))
	}
	if len(state.Generations) != 2 {
		t.Fatalf("expected 2 generations, got %d", len(state.Generations))
	}
	for value, included := range state.Types {
		if !included {
			t.Errorf("type %q should default to included", value)
		}
	}
	for value, included := range state.Generations {
		if !included {
			t.Errorf("generation %q should default to included", value)
		}
	}
}

func TestReconcile_PreservesExistingFlags(t *testing.T) {
	state := Reconcile(model.NewFacetState(), catalog())
	state = Toggle(state, model.FacetTypes, "oscilloscope")

	state = Reconcile(state, catalog())

	if state.Types["oscilloscope"] {
		t.Error("excluded type should stay excluded across reconcile")
	}
	if !state.Types["power-supply"] {
		t.Error("included type should stay included across reconcile")
	}
}

func TestReconcile_PrunesStaleValues(t *testing.T) {
	state := Reconcile(model.NewFacetState(), catalog())

	// power-supply leaves the catalog entirely
	remaining := catalog()[:2]
	state = Reconcile(state, remaining)

	if _, ok := state.Types["power-supply"]; ok {
		t.Error("stale type value should be pruned")
	}
	if _, ok := state.Types["oscilloscope"]; !ok {
		t.Error("live type value should survive")
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	resources := catalog()
	once := Reconcile(model.NewFacetState(), resources)
	twice := Reconcile(once, resources)

	if len(once.Types) != len(twice.Types) || len(once.Generations) != len(twice.Generations) {
		t.Fatal("reconcile changed state on identical catalog")
	}
	for k, v := range once.Types {
		if twice.Types[k] != v {
			t.Errorf("type %q flag changed: %v -> %v", k, v, twice.Types[k])
		}
	}
}

func TestReconcile_EmptyCatalogEmptiesKeySets(t *testing.T) {
	state := Reconcile(model.NewFacetState(), catalog())

	state = Reconcile(state, []*model.Resource{})
	if len(state.Types) != 0 || len(state.Generations) != 0 {
		t.Errorf("empty catalog must yield empty key sets, got %d types and %d generations",
			len(state.Types), len(state.Generations))
	}

	state = Reconcile(state, nil)
	if len(state.Types) != 0 || len(state.Generations) != 0 {
		t.Error("nil catalog must yield empty key sets")
	}
}

func TestToggle_FlipsAndIgnoresUnknown(t *testing.T) {
	state := Reconcile(model.NewFacetState(), catalog())

	state = Toggle(state, model.FacetGenerations, "gen2")
	if state.Generations["gen2"] {
		t.Error("toggle should exclude gen2")
	}

	state = Toggle(state, model.FacetGenerations, "gen2")
	if !state.Generations["gen2"] {
		t.Error("second toggle should re-include gen2")
	}

	before := state.Clone()
	state = Toggle(state, model.FacetTypes, "does-not-exist")
	if len(state.Types) != len(before.Types) {
		t.Error("toggling an unknown value must not add it")
	}

	state = Toggle(state, "colors", "red")
	if len(state.Types) != len(before.Types) || len(state.Generations) != len(before.Generations) {
		t.Error("toggling an unknown dimension must be a no-op")
	}
}

func TestToggle_DoesNotMutateInput(t *testing.T) {
	state := Reconcile(model.NewFacetState(), catalog())
	_ = Toggle(state, model.FacetTypes, "oscilloscope")

	if !state.Types["oscilloscope"] {
		t.Error("input state was mutated")
	}
}

func TestVisibleResources_AndOfDimensions(t *testing.T) {
	resources := catalog()
	state := Reconcile(model.NewFacetState(), resources)

	// Exclude gen3: only the gen2 resources remain.
	state = Toggle(state, model.FacetGenerations, "gen3")
	visible := VisibleResources(state, resources)
	if len(visible) != 2 {
		t.Fatalf("expected 2 visible resources, got %d", len(visible))
	}

	// Additionally exclude power-supply: a resource must match both
	// dimensions to stay visible.
	state = Toggle(state, model.FacetTypes, "power-supply")
	visible = VisibleResources(state, resources)
	if len(visible) != 1 {
		t.Fatalf("expected 1 visible resource, got %d", len(visible))
	}
	if visible[0].ID != "a" {
		t.Errorf("expected resource a, got %s", visible[0].ID)
	}
}

func TestVisibleResources_UnknownValuesVisible(t *testing.T) {
	resources := catalog()
	// Empty state has seen nothing; everything is visible by default.
	visible := VisibleResources(model.NewFacetState(), resources)
	if len(visible) != len(resources) {
		t.Fatalf("expected all %d resources visible, got %d", len(resources), len(visible))
	}
}

func TestVisibleResources_AllOffHidesAllOnShows(t *testing.T) {
	resources := catalog()
	state := Reconcile(model.NewFacetState(), resources)

	allOff := state.Clone()
	for value := range allOff.Types {
		allOff = Set(allOff, model.FacetTypes, value, false)
	}
	for value := range allOff.Generations {
		allOff = Set(allOff, model.FacetGenerations, value, false)
	}
	if visible := VisibleResources(allOff, resources); len(visible) != 0 {
		t.Errorf("all facets off must hide everything, got %d visible", len(visible))
	}

	allOn := allOff.Clone()
	for value := range allOn.Types {
		allOn = Set(allOn, model.FacetTypes, value, true)
	}
	for value := range allOn.Generations {
		allOn = Set(allOn, model.FacetGenerations, value, true)
	}
	if visible := VisibleResources(allOn, resources); len(visible) != len(resources) {
		t.Errorf("all facets on must show the full catalog, got %d of %d",
			len(visible), len(resources))
	}
}

func TestVisibleIDs(t *testing.T) {
	resources := catalog()
	state := Reconcile(model.NewFacetState(), resources)
	state = Toggle(state, model.FacetTypes, "oscilloscope")

	ids := VisibleIDs(state, resources)
	if len(ids) != 1 {
		t.Fatalf("expected 1 visible id, got %d", len(ids))
	}
	if _, ok := ids["c"]; !ok {
		t.Error("expected resource c to be visible")
	}
}
