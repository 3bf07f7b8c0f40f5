// Package ingest turns batches of already-parsed commercial invoices into
// canonical settlement lines. Each accepted invoice carries a nested list
// of line items; the batch is flattened, keys are normalized, and duplicate
// (branch, product) pairs are collapsed under the same aggregation policy
// the spreadsheet adapters use. Invoices are processed by a bounded worker
// pool, and progress is reported through a callback owned by the
// invocation, never through process-wide state.
package ingest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"consignment-reconciliation-service/internal/models"
	"consignment-reconciliation-service/pkg/errors"
	"consignment-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// DefaultWorkers bounds the pool when the caller does not choose a size.
const DefaultWorkers = 4

// InvoiceItem is one line item of a parsed commercial invoice.
type InvoiceItem struct {
	ProductID   string          `json:"product_id"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	NetValue    decimal.Decimal `json:"net_value"`
	GrossValue  decimal.Decimal `json:"gross_value"`
}

// Invoice is one accepted commercial document.
type Invoice struct {
	Number   string        `json:"number"`
	Branch   string        `json:"branch"`
	Supplier string        `json:"supplier,omitempty"`
	IssuedAt time.Time     `json:"issued_at"`
	Items    []InvoiceItem `json:"items"`
}

// ProgressFunc receives (processed, total) after each invoice completes.
// Calls may arrive from pool workers concurrently with each other.
type ProgressFunc func(processed, total int)

// Options configures a batch aggregation.
type Options struct {
	// Workers bounds the pool; values below 1 fall back to DefaultWorkers.
	Workers int
	// Progress, when non-nil, is invoked once per completed invoice.
	Progress ProgressFunc
	Logger   logger.Logger
}

// Result is the aggregated output of one invoice batch.
type Result struct {
	Lines []models.CanonicalLine
	// DroppedItems counts line items discarded for an invalid product id.
	DroppedItems int
	// Invoices is the number of documents processed.
	Invoices int
}

// Aggregate flattens an invoice batch into canonical settlement lines.
// Output order is deterministic regardless of worker interleaving: lines
// appear in first-seen order over the batch as given.
func Aggregate(ctx context.Context, invoices []Invoice, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("ingest")

	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	if workers > len(invoices) && len(invoices) > 0 {
		workers = len(invoices)
	}

	if len(invoices) == 0 {
		return &Result{Lines: []models.CanonicalLine{}}, nil
	}

	tracker := logger.NewProgressTracker(logger.ProgressConfig{
		Operation: "invoice ingestion",
		Total:     int64(len(invoices)),
		Logger:    log,
	})

	type job struct {
		index   int
		invoice *Invoice
	}

	jobs := make(chan job)
	outcomes := make([]outcome, len(invoices))

	var (
		wg        sync.WaitGroup
		processed int
		progMu    sync.Mutex
	)

	report := func() {
		tracker.Increment()
		if opts.Progress == nil {
			return
		}
		progMu.Lock()
		processed++
		done := processed
		progMu.Unlock()
		opts.Progress(done, len(invoices))
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				outcomes[j.index] = convertInvoice(j.invoice)
				report()
			}
		}()
	}

	var cancelled error
feed:
	for i := range invoices {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		select {
		case jobs <- job{index: i, invoice: &invoices[i]}:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		tracker.CompleteWithError(cancelled)
		return nil, errors.Wrap(cancelled, errors.CategoryReconciliation,
			errors.CodeProcessingError, "invoice ingestion cancelled")
	}

	// Collapse sequentially in batch order so the result does not depend
	// on worker interleaving.
	result := &Result{Invoices: len(invoices)}
	order := make([]models.LineKey, 0, len(invoices))
	byKey := make(map[models.LineKey]*models.CanonicalLine)

	for i := range outcomes {
		result.DroppedItems += outcomes[i].dropped
		for _, line := range outcomes[i].lines {
			key := line.Key()
			if existing, ok := byKey[key]; ok {
				existing.Quantity = existing.Quantity.Add(line.Quantity)
				continue
			}
			order = append(order, key)
			copied := line
			byKey[key] = &copied
		}
	}
	for _, key := range order {
		result.Lines = append(result.Lines, *byKey[key])
	}

	tracker.Complete()
	log.WithFields(logger.Fields{
		"invoices":      result.Invoices,
		"lines":         len(result.Lines),
		"dropped_items": result.DroppedItems,
	}).Debug("Invoice batch aggregated")

	return result, nil
}

// AggregateSorted is Aggregate with the output in canonical key order, for
// callers that feed the merge stage directly.
func AggregateSorted(ctx context.Context, invoices []Invoice, opts Options) (*Result, error) {
	result, err := Aggregate(ctx, invoices, opts)
	if err != nil {
		return nil, err
	}
	sort.Slice(result.Lines, func(i, j int) bool {
		return result.Lines[i].Key().Less(result.Lines[j].Key())
	})
	return result, nil
}

// outcome is the per-invoice conversion result, kept per batch index so
// the final collapse runs in batch order.
type outcome struct {
	lines   []models.CanonicalLine
	dropped int
}

// convertInvoice maps one document to canonical lines. Items with an
// invalid product id are dropped and counted; the per-unit price and
// discount are derived from the item's gross and net values, guarding the
// zero-quantity division.
func convertInvoice(inv *Invoice) (out outcome) {
	branch := models.NormalizeBranch(inv.Branch)

	for i := range inv.Items {
		item := &inv.Items[i]

		productID, ok := models.NormalizeProductID(item.ProductID)
		if !ok {
			out.dropped++
			continue
		}

		out.lines = append(out.lines, models.CanonicalLine{
			Branch:       branch,
			ProductID:    productID,
			Title:        strings.TrimSpace(item.Description),
			Quantity:     item.Quantity,
			UnitPrice:    unitValue(item.GrossValue, item.Quantity),
			DiscountRate: discountRate(item.GrossValue, item.NetValue),
			Supplier:     inv.Supplier,
		})
	}
	return out
}

// unitValue derives a per-unit price from a total, short-circuiting to
// zero when the quantity is zero.
func unitValue(total, quantity decimal.Decimal) decimal.Decimal {
	if quantity.IsZero() {
		return decimal.Zero
	}
	return total.Div(quantity)
}

// discountRate derives the fractional discount from gross and net totals.
// Zero or inverted totals yield a zero rate.
func discountRate(gross, net decimal.Decimal) decimal.Decimal {
	if gross.IsZero() || net.GreaterThan(gross) {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Sub(net.Div(gross))
}
