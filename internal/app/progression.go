package app

import "fmt"

// initialPosition is where every user starts the curriculum.
func initialPosition() (int, int) {
	return 1, 1
}

// advance computes the next curriculum position after (step, index):
// the next index inside the same step when it exists, otherwise the
// first index of the next step. Fails with ErrCurriculumNotFound when
// neither exists, so a successful advance always lands on a real entry.
func (a *App) advance(step, index int) (int, int, error) {
	if _, ok, err := a.store.GetCurriculumEntry(step, index+1); err != nil {
		return 0, 0, fmt.Errorf("probe next index: %w", err)
	} else if ok {
		return step, index + 1, nil
	}
	if _, ok, err := a.store.GetCurriculumEntry(step+1, 1); err != nil {
		return 0, 0, fmt.Errorf("probe next step: %w", err)
	} else if ok {
		return step + 1, 1, nil
	}
	return 0, 0, ErrCurriculumNotFound
}
