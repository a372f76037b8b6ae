package service

import (
	"math"

	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
)

// Chunk splits recipients into consecutive batches of at most size numbers,
// keeping their order
func Chunk(recipients []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	batches := make([][]string, 0, (len(recipients)+size-1)/size)
	for start := 0; start < len(recipients); start += size {
		end := start + size
		if end > len(recipients) {
			end = len(recipients)
		}
		batch := make([]string, end-start)
		copy(batch, recipients[start:end])
		batches = append(batches, batch)
	}
	return batches
}

// BatchPlan steps through one text blast a batch at a time. It holds no
// timers or goroutines; the caller sends Current, reports the result with
// Record and repeats until Done.
type BatchPlan struct {
	batches        [][]string
	cursor         int
	settled        int
	abortOnFailure bool
	aborted        bool
	outcome        domain.BlastOutcome
}

func NewBatchPlan(recipients []string, batchSize int, abortOnFailure bool) *BatchPlan {
	batches := Chunk(recipients, batchSize)
	return &BatchPlan{
		batches:        batches,
		abortOnFailure: abortOnFailure,
		outcome: domain.BlastOutcome{
			Results:      []domain.BlastDelivery{},
			Errors:       []domain.BlastFailure{},
			TotalBatches: len(batches),
		},
	}
}

// Batches returns the number of batches in the plan
func (p *BatchPlan) Batches() int {
	return len(p.batches)
}

// Cursor is the number of batches already recorded
func (p *BatchPlan) Cursor() int {
	return p.cursor
}

// Done reports whether no batch remains to be sent
func (p *BatchPlan) Done() bool {
	return p.aborted || p.cursor >= len(p.batches)
}

// Aborted reports whether a failed batch stopped the plan
func (p *BatchPlan) Aborted() bool {
	return p.aborted
}

// Current returns the next batch to send and its 1-based index
func (p *BatchPlan) Current() ([]string, int, bool) {
	if p.Done() {
		return nil, 0, false
	}
	return p.batches[p.cursor], p.cursor + 1, true
}

// HasNext reports whether another batch follows the current one
func (p *BatchPlan) HasNext() bool {
	return !p.Done() && p.cursor+1 < len(p.batches)
}

// Record stores the response of the current batch and advances the cursor.
// A failed batch aborts the plan, or with abort disabled counts every number
// of the batch as failed with message.
func (p *BatchPlan) Record(result *domain.SendBlastResult, err error, message string) {
	if p.Done() {
		return
	}
	batch := p.batches[p.cursor]
	p.cursor++

	if err != nil {
		if p.abortOnFailure {
			p.aborted = true
			p.outcome.FailedBatch = p.cursor
			p.outcome.Error = message
			return
		}
		p.settled++
		p.outcome.FailedCount += len(batch)
		for _, number := range batch {
			p.outcome.Errors = append(p.outcome.Errors, domain.BlastFailure{
				PhoneNumber: number,
				Error:       message,
			})
		}
		return
	}

	p.settled++
	p.outcome.BatchesCompleted++
	if result == nil {
		return
	}
	p.outcome.SentCount += result.SentCount
	p.outcome.FailedCount += result.FailedCount
	p.outcome.Results = append(p.outcome.Results, result.Results...)
	p.outcome.Errors = append(p.outcome.Errors, result.Errors...)
}

// Abort stops the plan before the current batch is sent
func (p *BatchPlan) Abort(message string) {
	if p.Done() {
		return
	}
	p.aborted = true
	p.outcome.FailedBatch = p.cursor + 1
	p.outcome.Error = message
}

// Progress is round(100 * settled / total), 0 for an empty plan. A batch
// settles when it is sent, or when it fails and the plan carries on; the
// batch that aborts the plan does not count.
func (p *BatchPlan) Progress() int {
	if len(p.batches) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(p.settled) / float64(len(p.batches))))
}

// Outcome returns the totals accumulated so far
func (p *BatchPlan) Outcome() domain.BlastOutcome {
	out := p.outcome
	out.Results = append([]domain.BlastDelivery{}, p.outcome.Results...)
	out.Errors = append([]domain.BlastFailure{}, p.outcome.Errors...)
	return out
}
