package grading

import (
	"golang.org/x/sync/errgroup"

	"quiz-mastery-service/internal/domain"
)

// BatchItem pairs a question with the text submitted for it.
type BatchItem struct {
	Question  domain.Question
	Submitted string
}

// GradeBatch grades every item independently and preserves input order.
// Items share no state, so they run concurrently; the first caller error
// (misconfigured question) fails the whole batch.
func GradeBatch(items []BatchItem) ([]Result, error) {
	results := make([]Result, len(items))
	var g errgroup.Group
	for i := range items {
		i := i
		g.Go(func() error {
			r, err := Grade(items[i].Question, items[i].Submitted)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
