package entity

import (
	"time"

	"github.com/google/uuid"
)

// QueryTurn is one side of a question/answer exchange. A user turn carries
// only Question, a bot turn only Answer.
type QueryTurn struct {
	Id        uuid.UUID
	FromUser  bool
	Question  string
	Answer    string
	Timestamp time.Time
}

func (t QueryTurn) IsUser() bool {
	return t.FromUser
}

// Text is whichever side of the exchange the turn carries.
func (t QueryTurn) Text() string {
	if t.FromUser {
		return t.Question
	}
	return t.Answer
}
