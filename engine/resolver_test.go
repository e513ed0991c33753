package engine

import (
	"errors"
	"reflect"
	"testing"

	"dealgate/deal"
)

type stubEvaluator struct {
	id     string
	deps   []string
	result Result
	err    error
}

func (s *stubEvaluator) ID() string             { return s.id }
func (s *stubEvaluator) Dependencies() []string { return s.deps }
func (s *stubEvaluator) Evaluate(_ *deal.Record, _ Results) (Result, error) {
	if s.err != nil {
		return Result{}, s.err
	}
	return s.result, nil
}

func stub(id string, deps ...string) *stubEvaluator {
	return &stubEvaluator{id: id, deps: deps, result: Result{Score: 100, Status: StatusGreen}}
}

func TestResolveOrder_LayersAndTieBreak(t *testing.T) {
	evs := []Evaluator{
		stub("b"),
		stub("a"),
		stub("c", "a", "b"),
		stub("d", "c"),
		stub("e", "b"),
	}

	order, layers, err := resolveOrder(evs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantOrder := []string{"b", "a", "c", "e", "d"}
	if !reflect.DeepEqual(order, wantOrder) {
		t.Fatalf("expected order %v got %v", wantOrder, order)
	}

	wantLayers := [][]string{{"b", "a"}, {"c", "e"}, {"d"}}
	if !reflect.DeepEqual(layers, wantLayers) {
		t.Fatalf("expected layers %v got %v", wantLayers, layers)
	}
}

func TestResolveOrder_UnknownDependency(t *testing.T) {
	_, _, err := resolveOrder([]Evaluator{stub("a", "ghost")})
	if !errors.Is(err, ErrUnknownDependency) {
		t.Fatalf("expected ErrUnknownDependency, got %v", err)
	}
}

func TestResolveOrder_Cycle(t *testing.T) {
	_, _, err := resolveOrder([]Evaluator{
		stub("a", "c"),
		stub("b", "a"),
		stub("c", "b"),
		stub("free"),
	})

	var cyc *CyclicDependencyError
	if !errors.As(err, &cyc) {
		t.Fatalf("expected CyclicDependencyError, got %v", err)
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(cyc.Members, want) {
		t.Fatalf("expected cycle members %v got %v", want, cyc.Members)
	}
}

func TestNewRegistry_DuplicateID(t *testing.T) {
	_, err := NewRegistry(stub("a"), stub("a"))
	if !errors.Is(err, ErrDuplicateEvaluator) {
		t.Fatalf("expected ErrDuplicateEvaluator, got %v", err)
	}
}

func TestStandardRegistry_Order(t *testing.T) {
	r, err := NewStandardRegistry()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"program", "collateral", "governance", "banking", "risk", "closing", "escrow"}
	if got := r.Order(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected order %v got %v", want, got)
	}
}
