package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/multierr"
)

// step is a completed side effect and the action that reverses it.
type step struct {
	name string
	undo func(ctx context.Context) error
}

// saga accumulates compensations for the stages that have run. Unwinding
// runs them in reverse order and keeps going past failures.
type saga struct {
	steps []step
}

func (s *saga) done(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, step{name: name, undo: undo})
}

func (s *saga) empty() bool {
	return len(s.steps) == 0
}

// unwind reverses every recorded step and returns the names of the steps
// that were undone, most recent first.
func (s *saga) unwind(ctx context.Context) ([]string, error) {
	var (
		undone []string
		err    error
	)
	for i := len(s.steps) - 1; i >= 0; i-- {
		st := s.steps[i]
		if uErr := st.undo(ctx); uErr != nil {
			err = multierr.Append(err, errors.Wrapf(uErr, "undo %s", st.name))
			continue
		}
		undone = append(undone, st.name)
	}
	s.steps = nil
	return undone, err
}

func describe(undone []string) string {
	if len(undone) == 0 {
		return "nothing undone"
	}
	return "undone=" + strings.Join(undone, ",")
}
