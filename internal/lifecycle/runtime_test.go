package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type recordedComponent struct {
	name     string
	startErr error
	stopErr  error
	trace    *[]string
	stops    int
}

func (c *recordedComponent) Start(context.Context) error {
	if c.trace != nil {
		*c.trace = append(*c.trace, "start:"+c.name)
	}
	return c.startErr
}

func (c *recordedComponent) Stop(context.Context) error {
	c.stops++
	if c.trace != nil {
		*c.trace = append(*c.trace, "stop:"+c.name)
	}
	return c.stopErr
}

func TestRuntimeStopsInReverseOrder(t *testing.T) {
	t.Parallel()

	trace := make([]string, 0, 4)
	cleaner := &recordedComponent{name: "cleaner", trace: &trace}
	metrics := &recordedComponent{name: "metrics", trace: &trace}

	rt := NewRuntime(cleaner, metrics)
	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("start runtime: %v", err)
	}
	if err := rt.Stop(context.Background()); err != nil {
		t.Fatalf("stop runtime: %v", err)
	}

	want := []string{"start:cleaner", "start:metrics", "stop:metrics", "stop:cleaner"}
	if !reflect.DeepEqual(trace, want) {
		t.Fatalf("unexpected order: got %v want %v", trace, want)
	}
}

func TestRuntimeRollsBackOnStartFailure(t *testing.T) {
	t.Parallel()

	trace := make([]string, 0, 3)
	startErr := errors.New("boom")
	cleaner := &recordedComponent{name: "cleaner", trace: &trace}
	broken := &recordedComponent{name: "broken", trace: &trace, startErr: startErr}

	rt := NewRuntime(cleaner, broken)
	err := rt.Start(context.Background())
	if err == nil {
		t.Fatalf("expected start error")
	}
	if !errors.Is(err, startErr) {
		t.Fatalf("unexpected start error: %v", err)
	}

	if cleaner.stops != 1 {
		t.Fatalf("started component must be stopped once, got %d", cleaner.stops)
	}
	if broken.stops != 0 {
		t.Fatalf("failed component must not be stopped, got %d", broken.stops)
	}
}
