package sms

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"
)

const (
	// DefaultBatchSize is the number of recipients dispatched concurrently
	// before pausing.
	DefaultBatchSize = 10
	// DefaultBatchPause is the pause between consecutive batches, kept to
	// respect provider rate limits.
	DefaultBatchPause = 1 * time.Second
)

// BulkResult is the aggregate outcome of one dispatch call. The invariant
// Total == Successful + Failed == len(Details) holds after SendBulk returns.
type BulkResult struct {
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Details    []SendResult `json:"details"`
	Message    string       `json:"message,omitempty"`
}

// Dispatcher fans a message out to a recipient list in fixed-size batches.
type Dispatcher struct {
	sender     Sender
	batchSize  int
	batchPause time.Duration
}

// NewDispatcher creates a dispatcher with the default batch size and pause.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{
		sender:     sender,
		batchSize:  DefaultBatchSize,
		batchPause: DefaultBatchPause,
	}
}

// SendBulk sends message to every recipient. Recipients are partitioned into
// batches in submission order; all sends within a batch run concurrently and
// batch b+1 does not start before every send of batch b has settled. There is
// no retry and no deduplication of recipients.
func (d *Dispatcher) SendBulk(ctx context.Context, recipients []string, message string, urgent bool) *BulkResult {
	result := &BulkResult{Total: len(recipients)}
	if len(recipients) == 0 {
		return result
	}

	var mu sync.Mutex
	for start := 0; start < len(recipients); start += d.batchSize {
		end := start + d.batchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		batch := recipients[start:end]

		var wg sync.WaitGroup
		for _, to := range batch {
			wg.Add(1)
			go func(to string) {
				defer wg.Done()
				res := d.sender.Send(ctx, to, message, urgent)
				mu.Lock()
				if res.Success {
					result.Successful++
				} else {
					result.Failed++
				}
				result.Details = append(result.Details, res)
				mu.Unlock()
			}(to)
		}
		wg.Wait()

		// Pause between batches, not after the last one.
		if end < len(recipients) {
			select {
			case <-time.After(d.batchPause):
			case <-ctx.Done():
				log.Warnf("Dispatch interrupted after %d of %d recipients", end, len(recipients))
				result.Total = end
				return result
			}
		}
	}

	return result
}
