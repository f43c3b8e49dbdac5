package tagging

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"tasklens/internal/domain"
)

const defaultBatchConcurrency = 4

type BatchItem struct {
	Title       string
	Description string
}

// BatchResult holds the outcome for the item at the same index of the input.
type BatchResult struct {
	Analysis domain.TagAnalysis
	Err      error
}

// BatchError reports the items that failed in an otherwise completed batch.
type BatchError struct {
	Failed []int
	Total  int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("tagging failed for %d of %d items", len(e.Failed), e.Total)
}

func batchConcurrencyLimit(total, configured int) int {
	limit := configured
	if limit < 1 {
		limit = defaultBatchConcurrency
	}
	if total < limit {
		limit = total
	}
	if limit < 1 {
		return 1
	}
	return limit
}

// ClassifyBatch tags every item independently on a bounded set of goroutines.
// Results are index-aligned with items. A failing or panicking item is
// recorded in its own result and does not stop the rest; when any item failed
// the returned error is a *BatchError.
func ClassifyBatch(ctx context.Context, c Classifier, items []BatchItem, concurrency int) ([]BatchResult, error) {
	results := make([]BatchResult, len(items))
	if len(items) == 0 {
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(batchConcurrencyLimit(len(items), concurrency))
	for i, item := range items {
		g.Go(func() error {
			results[i] = classifyOne(ctx, c, item)
			return nil
		})
	}
	_ = g.Wait()

	var failed []int
	for i, r := range results {
		if r.Err != nil {
			failed = append(failed, i)
		}
	}
	if len(failed) > 0 {
		log.Printf("tagging batch items=%d failed=%d", len(items), len(failed))
		return results, &BatchError{Failed: failed, Total: len(items)}
	}
	return results, nil
}

func classifyOne(ctx context.Context, c Classifier, item BatchItem) (res BatchResult) {
	defer func() {
		if r := recover(); r != nil {
			res = BatchResult{Err: fmt.Errorf("classifier panic: %v", r)}
		}
	}()
	if err := ctx.Err(); err != nil {
		return BatchResult{Err: err}
	}
	analysis, err := c.ClassifyTask(ctx, item.Title, item.Description)
	if err != nil {
		return BatchResult{Err: err}
	}
	if err := Validate(analysis); err != nil {
		return BatchResult{Err: err}
	}
	return BatchResult{Analysis: analysis}
}
