// Package query answers questions about a user's processed handbook or
// syllabus, gated on the document's processing status.
package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"campus-desk-be/internal/entity"
	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/pkg/deskerr"
	"campus-desk-be/pkg/remote"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	moduleName = "QueryEngine"

	MinQuestionLength   = 3
	MaxQuestionLength   = 1000
	MaxRefinementLength = 1000
)

var tracer = otel.Tracer("campus-desk-be/pkg/query")

type Finder interface {
	FindCurrent(ctx context.Context, scope entity.DocumentScope) (*entity.Document, error)
}

type Answerer interface {
	Chat(ctx context.Context, req remote.ChatRequest) (*remote.ChatReply, error)
}

// Question is one submission. Options and Refinement shape how the answer
// is presented and take part in the cache key.
type Question struct {
	Text       string
	Options    []string
	Refinement string
}

// Reply always holds the question turn and the answer turn, including for
// rejections, where the answer turn carries the reason.
type Reply struct {
	Question entity.QueryTurn
	Answer   entity.QueryTurn
	Cached   bool
}

// Engine is one query session over one document scope. Submissions are
// serialized: a second Ask waits until the first has finished.
type Engine struct {
	scope    entity.DocumentScope
	records  Finder
	answerer Answerer
	log      logger.ILogger
	now      func() time.Time

	askMu sync.Mutex

	mu              sync.Mutex
	remoteSessionId string
	conversation    []entity.QueryTurn
	cache           *answerCache
}

func NewEngine(scope entity.DocumentScope, records Finder, answerer Answerer, log logger.ILogger) *Engine {
	return &Engine{
		scope:           scope,
		records:         records,
		answerer:        answerer,
		log:             log,
		now:             time.Now,
		remoteSessionId: newRemoteSessionId(),
		cache:           newAnswerCache(),
	}
}

func newRemoteSessionId() string {
	return "desk_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (e *Engine) Scope() entity.DocumentScope {
	return e.scope
}

// Ask runs the gate, validation, scope check, cache and remote call in that
// order. The first failing step produces the reply and its typed error.
func (e *Engine) Ask(ctx context.Context, q Question) (*Reply, error) {
	e.askMu.Lock()
	defer e.askMu.Unlock()

	ctx, span := tracer.Start(ctx, "query.Ask")
	defer span.End()
	span.SetAttributes(attribute.String("document.kind", string(e.scope.Kind)))

	text := strings.TrimSpace(q.Text)

	doc, err := e.gate(ctx)
	if err != nil {
		return e.reject(text, err), err
	}

	options, err := e.validate(text, q.Options, q.Refinement)
	if err != nil {
		return e.reject(text, err), err
	}

	if IsOutOfScope(text) {
		err := deskerr.New(deskerr.CodeOutOfScope, fmt.Sprintf(
			"That question doesn't look like it's about your %s. For placements, admissions or campus life, try asking %s instead.",
			e.scope.Kind.Label(), OutOfScopeAssistant))
		return e.reject(text, err), err
	}

	key := cacheKey(e.scope.Kind, text, options, q.Refinement)
	if hit, ok := e.cache.get(key); ok {
		span.SetAttributes(attribute.Bool("query.cached", true))
		reply := e.record(text, hit.Text)
		reply.Cached = true
		return reply, nil
	}

	answer, err := e.answerer.Chat(ctx, e.chatRequest(doc, text, options, q.Refinement))
	if err != nil {
		span.RecordError(err)
		e.log.Warn(moduleName, "Answer failed", map[string]interface{}{
			"owner_id": e.scope.OwnerId.String(),
			"code":     string(deskerr.CodeOf(err)),
			"error":    err.Error(),
		})
		if deskerr.CodeOf(err) == "" {
			err = deskerr.Wrap(deskerr.CodeRemoteFailure, "Query processing failed.", err)
		}
		return e.reject(text, err), err
	}

	e.cache.set(key, cachedAnswer{Text: answer.Text, Shape: answer.Shape, Answered: e.now()})
	return e.record(text, answer.Text), nil
}

func (e *Engine) gate(ctx context.Context) (*entity.Document, error) {
	label := e.scope.Kind.Label()

	doc, err := e.records.FindCurrent(ctx, e.scope)
	if err != nil {
		return nil, deskerr.Wrap(deskerr.CodeRecord, fmt.Sprintf("Could not check your %s right now. Please try again.", label), err)
	}

	switch doc.State() {
	case entity.DocumentStateNotFound:
		return nil, deskerr.New(deskerr.CodeNoDocument, fmt.Sprintf("No %s found. Please upload a %s first.", label, label))
	case entity.DocumentStateUploaded:
		return nil, deskerr.New(deskerr.CodeNotReady, fmt.Sprintf("Your %s is still being processed. Please wait a few minutes and try again.", label))
	case entity.DocumentStateProcessing:
		return nil, deskerr.New(deskerr.CodeNotReady, fmt.Sprintf("Your %s is currently being processed. Please wait a few minutes and try again.", label))
	case entity.DocumentStateFailed:
		return nil, deskerr.New(deskerr.CodeProcessingFailed, fmt.Sprintf("There was an error processing your %s. Please try re-uploading it.", label))
	}
	return doc, nil
}

func (e *Engine) validate(text string, options []string, refinement string) ([]string, error) {
	n := utf8.RuneCountInString(text)
	switch {
	case n == 0:
		return nil, deskerr.New(deskerr.CodeInputTooShort, "Please enter a question.")
	case n < MinQuestionLength:
		return nil, deskerr.New(deskerr.CodeInputTooShort, "Question is too short.")
	case n > MaxQuestionLength:
		return nil, deskerr.New(deskerr.CodeInputTooLong, "Question is too long.")
	}
	if utf8.RuneCountInString(refinement) > MaxRefinementLength {
		return nil, deskerr.New(deskerr.CodeInputTooLong, "Custom instructions are too long.")
	}
	return normalizeOptions(options)
}

func (e *Engine) chatRequest(doc *entity.Document, text string, options []string, refinement string) remote.ChatRequest {
	e.mu.Lock()
	sessionId := e.remoteSessionId
	e.mu.Unlock()

	tag := "[HANDBOOK QUERY]"
	queryType := "handbook_query"
	if e.scope.Kind == entity.DocumentKindSyllabus {
		tag = "[SYLLABUS QUERY]"
		queryType = "syllabus_query"
	}

	reqContext := map[string]interface{}{
		"type":        queryType,
		"question":    text,
		"document_id": doc.Id.String(),
	}
	if doc.CourseId != nil {
		reqContext["course_id"] = doc.CourseId.String()
	}
	if len(options) > 0 {
		reqContext["options"] = options
	}
	if r := strings.TrimSpace(refinement); r != "" {
		reqContext["custom_prompt"] = r
	}

	return remote.ChatRequest{
		Message:   tag + " " + text,
		UserId:    e.scope.OwnerId.String(),
		SessionId: sessionId,
		Context:   reqContext,
	}
}

// reject turns a failed step into a paired exchange and appends it.
func (e *Engine) reject(question string, err error) *Reply {
	return e.record(question, deskerr.MessageOf(err, "Query processing failed."))
}

func (e *Engine) record(question, answer string) *Reply {
	now := e.now()
	reply := &Reply{
		Question: entity.QueryTurn{Id: uuid.New(), FromUser: true, Question: question, Timestamp: now},
		Answer:   entity.QueryTurn{Id: uuid.New(), Answer: answer, Timestamp: now},
	}

	e.mu.Lock()
	e.conversation = append(e.conversation, reply.Question, reply.Answer)
	e.mu.Unlock()
	return reply
}

// History returns a copy of the conversation, oldest first.
func (e *Engine) History() []entity.QueryTurn {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]entity.QueryTurn, len(e.conversation))
	copy(out, e.conversation)
	return out
}

// Reset clears the conversation and the answer cache and starts a new
// remote session. It waits for an in-flight Ask to finish.
func (e *Engine) Reset() {
	e.askMu.Lock()
	defer e.askMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.conversation = nil
	e.remoteSessionId = newRemoteSessionId()
	e.cache.flush()
}
