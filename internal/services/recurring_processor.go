package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hesab/internal/core"
	"hesab/internal/log"
)

// RecurringProcessor materializes due occurrences of recurring templates.
// A template's own date counts as its first execution; every generated
// occurrence points back to it through ParentID.
type RecurringProcessor struct {
	ledger *LedgerService
	logger *log.Logger
}

func NewRecurringProcessor(ledger *LedgerService, logger *log.Logger) *RecurringProcessor {
	if logger == nil {
		logger = log.Default()
	}
	return &RecurringProcessor{ledger: ledger, logger: logger.WithComponent(log.ComponentRecurring)}
}

// ProcessDue creates at most one occurrence per due template and returns how many
// were created. Failures of single templates are logged and skipped.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.ledger == nil {
		return 0, errors.New("recurring processor not properly initialized")
	}
	store := p.ledger.Store()

	templates, err := store.ListTransactions(ctx, core.TransactionQuery{RecurringOnly: true})
	if err != nil {
		return 0, fmt.Errorf("list recurring templates: %w", err)
	}

	p.logger.InfoContext(ctx, "Processing recurring transactions",
		log.FieldCount, len(templates),
		"processing_date", now.Format(time.DateOnly))

	processed := 0
	for _, tpl := range templates {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		due, err := p.isDue(ctx, tpl, now)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to check recurring template",
				log.FieldTransactionID, tpl.ID, log.FieldError, err.Error())
			continue
		}
		if !due {
			continue
		}

		occ := tpl
		occ.ID = ""
		occ.Date = now
		occ.RecurringType = ""
		occ.ParentID = tpl.ID

		if occ.Type == core.Transfer {
			_, err = p.ledger.Transfer(ctx, occ)
		} else {
			_, err = p.ledger.AddTransaction(ctx, occ)
		}
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to create occurrence from recurring template",
				log.FieldTransactionID, tpl.ID,
				log.FieldUserID, tpl.UserID,
				log.FieldError, err.Error())
			continue
		}

		processed++
		p.logger.InfoContext(ctx, "Created occurrence from recurring template",
			log.FieldTransactionID, tpl.ID,
			log.FieldAmount, tpl.Amount,
			"frequency", string(tpl.RecurringType))
	}

	p.logger.InfoContext(ctx, "Recurring processing complete",
		"processed", processed,
		"total_checked", len(templates))

	return processed, nil
}

func (p *RecurringProcessor) isDue(ctx context.Context, tpl core.Transaction, now time.Time) (bool, error) {
	checker, err := GetDuenessChecker(tpl.RecurringType)
	if err != nil {
		return false, err
	}
	last := tpl.Date
	latest, err := p.ledger.Store().ListTransactions(ctx, core.TransactionQuery{
		UserID:   tpl.UserID,
		ParentID: tpl.ID,
		Newest:   true,
		Limit:    1,
	})
	if err != nil {
		return false, fmt.Errorf("last occurrence: %w", err)
	}
	if len(latest) > 0 {
		last = latest[0].Date
	}
	return checker.IsDue(last, now, tpl.Date), nil
}

// Run processes due templates every interval until ctx is done.
func (p *RecurringProcessor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *RecurringProcessor) runOnce(ctx context.Context) {
	if _, err := p.ProcessDue(ctx, time.Now()); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.ErrorContext(ctx, "Recurring processing failed", log.FieldError, err.Error())
	}
}
