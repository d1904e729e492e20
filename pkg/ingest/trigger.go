package ingest

import (
	"context"
	"fmt"
	"time"

	"campus-desk-be/internal/entity"
	"campus-desk-be/pkg/deskerr"
	"campus-desk-be/pkg/remote"

	"github.com/cenkalti/backoff/v4"
)

// TriggerProcessingAsync asks the remote processor to start on doc in a
// detached goroutine. It returns immediately and reports nothing: a failed
// trigger is logged and the document stays uploaded, which is still a valid
// state. Callers must not depend on the outcome.
func (p *Pipeline) TriggerProcessingAsync(doc *entity.Document) {
	target := *doc
	p.triggers.Add(1)
	go func() {
		defer p.triggers.Done()

		ctx, cancel := context.WithTimeout(context.Background(), p.opts.MaxElapsed+30*time.Second)
		defer cancel()

		err := p.triggerWithRetry(ctx, &target)
		if err != nil {
			p.log.Warn(moduleName, "Processing trigger failed, document stays uploaded", map[string]interface{}{
				"document_id": target.Id.String(),
				"kind":        string(target.Kind),
				"error":       err.Error(),
			})
			return
		}
		p.log.Info(moduleName, "Processing triggered", map[string]interface{}{
			"document_id": target.Id.String(),
			"kind":        string(target.Kind),
		})
	}()
}

// Wait blocks until every detached trigger has finished. Used on shutdown
// and in tests.
func (p *Pipeline) Wait() {
	p.triggers.Wait()
}

// Retrigger re-sends a document that is still waiting for processing. Unlike
// TriggerProcessingAsync it makes a single attempt and reports the result.
func (p *Pipeline) Retrigger(ctx context.Context, doc *entity.Document) error {
	if doc.Status != entity.DocumentStatusUploaded {
		return deskerr.New(deskerr.CodeInvalidTransition,
			fmt.Sprintf("Only documents waiting for processing can be re-sent; this one is %s.", doc.Status))
	}
	if err := p.trigger(ctx, doc); err != nil {
		return err
	}
	p.log.Info(moduleName, "Processing re-triggered", map[string]interface{}{
		"document_id": doc.Id.String(),
	})
	return nil
}

func (p *Pipeline) triggerWithRetry(ctx context.Context, doc *entity.Document) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.opts.InitialInterval
	b.MaxElapsedTime = p.opts.MaxElapsed

	attempt := 0
	operation := func() error {
		attempt++
		err := p.trigger(ctx, doc)
		if err == nil {
			return nil
		}
		if !remote.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		p.log.Debug(moduleName, "Processing trigger attempt failed", map[string]interface{}{
			"document_id": doc.Id.String(),
			"attempt":     attempt,
			"error":       err.Error(),
		})
		return err
	}

	policy := backoff.WithMaxRetries(b, uint64(p.opts.MaxAttempts-1))
	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

func (p *Pipeline) trigger(ctx context.Context, doc *entity.Document) error {
	switch doc.Kind {
	case entity.DocumentKindSyllabus:
		if doc.CourseId == nil {
			return deskerr.New(deskerr.CodeValidation, "Syllabus has no course.")
		}
		return p.processor.ProcessSyllabus(ctx, *doc.CourseId, doc.UserId, doc.StoragePath)
	default:
		return p.processor.ProcessHandbook(ctx, doc.Id, doc.UserId)
	}
}
