package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateQuerySessionRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=handbook syllabus"`
	CourseId string `json:"course_id" validate:"omitempty,uuid"`
}

type CreateQuerySessionResponse struct {
	SessionId string     `json:"session_id"`
	Kind      string     `json:"kind"`
	CourseId  *uuid.UUID `json:"course_id,omitempty"`
}

type AskQuestionRequest struct {
	SessionId    string
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CustomPrompt string   `json:"custom_prompt"`
}

type QueryTurnResponse struct {
	Id        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"is_user"`
	Timestamp time.Time `json:"timestamp"`
}

// AskQuestionResponse always carries both turns. Error is set when the
// answer turn explains why the question was not answered.
type AskQuestionResponse struct {
	UserTurn  QueryTurnResponse `json:"user_turn"`
	BotTurn   QueryTurnResponse `json:"bot_turn"`
	Cached    bool              `json:"cached"`
	ErrorCode string            `json:"error_code,omitempty"`
}

type QueryHistoryResponse struct {
	SessionId string              `json:"session_id"`
	Turns     []QueryTurnResponse `json:"turns"`
}

type SuggestedQuestionsResponse struct {
	Kind      string   `json:"kind"`
	Questions []string `json:"questions"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}
