package service

import (
	"context"
	"errors"
	"time"

	"campus-desk-be/internal/dto"
	"campus-desk-be/internal/entity"
	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/internal/repository/memory"
	"campus-desk-be/internal/repository/unitofwork"
	"campus-desk-be/pkg/deskerr"
	"campus-desk-be/pkg/query"
	"campus-desk-be/pkg/remote"

	"github.com/google/uuid"
)

type IQueryService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateQuerySessionRequest) (*dto.CreateQuerySessionResponse, error)
	Ask(ctx context.Context, userId uuid.UUID, req *dto.AskQuestionRequest) (*dto.AskQuestionResponse, error)
	History(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.QueryHistoryResponse, error)
	EndSession(ctx context.Context, userId uuid.UUID, sessionId string) error
	Suggestions(kind string) (*dto.SuggestedQuestionsResponse, error)
	Health(ctx context.Context) (*dto.HealthResponse, error)
}

// BackendClient is what the query side needs from the remote backend.
type BackendClient interface {
	query.Answerer
	Health(ctx context.Context) error
}

type queryService struct {
	uowFactory  unitofwork.RepositoryFactory
	sessionRepo *memory.SessionRepository
	backend     BackendClient
	logger      logger.ILogger
}

func NewQueryService(
	uowFactory unitofwork.RepositoryFactory,
	sessionRepo *memory.SessionRepository,
	backend BackendClient,
	log logger.ILogger,
) IQueryService {
	return &queryService{
		uowFactory:  uowFactory,
		sessionRepo: sessionRepo,
		backend:     backend,
		logger:      log,
	}
}

// scopeFinder resolves the current document through a fresh unit of work on
// every call, so the gate always sees committed state.
type scopeFinder struct {
	uowFactory unitofwork.RepositoryFactory
}

func (f scopeFinder) FindCurrent(ctx context.Context, scope entity.DocumentScope) (*entity.Document, error) {
	return f.uowFactory.NewUnitOfWork(ctx).DocumentRepository().FindCurrent(ctx, scope)
}

func (s *queryService) CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateQuerySessionRequest) (*dto.CreateQuerySessionResponse, error) {
	scope, err := ParseScope(userId, req.Kind, req.CourseId)
	if err != nil {
		return nil, err
	}

	session := &memory.QuerySession{
		ID:        uuid.NewString(),
		OwnerId:   userId,
		Engine:    query.NewEngine(scope, scopeFinder{uowFactory: s.uowFactory}, s.backend, s.logger),
		CreatedAt: time.Now(),
	}
	s.sessionRepo.Save(session)

	s.logger.Info("QueryService", "Query session opened", map[string]interface{}{
		"session_id": session.ID,
		"user_id":    userId.String(),
		"kind":       req.Kind,
	})

	return &dto.CreateQuerySessionResponse{
		SessionId: session.ID,
		Kind:      string(scope.Kind),
		CourseId:  scope.CourseId,
	}, nil
}

// Ask returns the paired turns for every outcome the engine resolves
// itself; ErrorCode tells the client why a question was not answered. Only
// session lookup failures come back as errors.
func (s *queryService) Ask(ctx context.Context, userId uuid.UUID, req *dto.AskQuestionRequest) (*dto.AskQuestionResponse, error) {
	session, err := s.ownedSession(userId, req.SessionId)
	if err != nil {
		return nil, err
	}

	reply, askErr := session.Engine.Ask(ctx, query.Question{
		Text:       req.Question,
		Options:    req.Options,
		Refinement: req.CustomPrompt,
	})
	if reply == nil {
		return nil, askErr
	}

	res := &dto.AskQuestionResponse{
		UserTurn: toTurnResponse(reply.Question),
		BotTurn:  toTurnResponse(reply.Answer),
		Cached:   reply.Cached,
	}
	if askErr != nil {
		var derr *deskerr.Error
		if errors.As(askErr, &derr) {
			res.ErrorCode = string(derr.Code)
		} else {
			res.ErrorCode = string(deskerr.CodeRemoteFailure)
		}
	}
	return res, nil
}

func (s *queryService) History(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.QueryHistoryResponse, error) {
	session, err := s.ownedSession(userId, sessionId)
	if err != nil {
		return nil, err
	}

	turns := session.Engine.History()
	res := &dto.QueryHistoryResponse{
		SessionId: session.ID,
		Turns:     make([]dto.QueryTurnResponse, 0, len(turns)),
	}
	for _, t := range turns {
		res.Turns = append(res.Turns, toTurnResponse(t))
	}
	return res, nil
}

func (s *queryService) EndSession(ctx context.Context, userId uuid.UUID, sessionId string) error {
	session, err := s.ownedSession(userId, sessionId)
	if err != nil {
		return err
	}
	session.Engine.Reset()
	s.sessionRepo.Delete(session.ID)
	return nil
}

func (s *queryService) Suggestions(kind string) (*dto.SuggestedQuestionsResponse, error) {
	if kind == "" {
		kind = string(entity.DocumentKindHandbook)
	}
	k := entity.DocumentKind(kind)
	if !k.Valid() {
		return nil, deskerr.New(deskerr.CodeValidation, "Unknown document kind.")
	}
	return &dto.SuggestedQuestionsResponse{
		Kind:      kind,
		Questions: query.SuggestedQuestions(k),
	}, nil
}

func (s *queryService) Health(ctx context.Context) (*dto.HealthResponse, error) {
	res := &dto.HealthResponse{Status: "ok", Backend: "online"}
	if err := s.backend.Health(ctx); err != nil {
		s.logger.Warn("QueryService", "Backend health check failed", map[string]interface{}{
			"error": err.Error(),
		})
		res.Backend = "offline"
	}
	return res, nil
}

func (s *queryService) ownedSession(userId uuid.UUID, sessionId string) (*memory.QuerySession, error) {
	session, ok := s.sessionRepo.Get(sessionId)
	if !ok {
		return nil, deskerr.New(deskerr.CodeNotFound, "Query session not found or expired.")
	}
	if session.OwnerId != userId {
		return nil, deskerr.New(deskerr.CodeForbidden, "You do not have access to this query session.")
	}
	return session, nil
}

func toTurnResponse(t entity.QueryTurn) dto.QueryTurnResponse {
	return dto.QueryTurnResponse{
		Id:        t.Id,
		Text:      t.Text(),
		IsUser:    t.IsUser(),
		Timestamp: t.Timestamp,
	}
}

var _ BackendClient = (*remote.Client)(nil)
