package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to DocumentStatus
		want     bool
	}{
		{DocumentStatusUploaded, DocumentStatusProcessing, true},
		{DocumentStatusUploaded, DocumentStatusCompleted, true},
		{DocumentStatusUploaded, DocumentStatusFailed, true},
		{DocumentStatusProcessing, DocumentStatusCompleted, true},
		{DocumentStatusProcessing, DocumentStatusFailed, true},
		{DocumentStatusUploaded, DocumentStatusUploaded, false},
		{DocumentStatusProcessing, DocumentStatusUploaded, false},
		{DocumentStatusCompleted, DocumentStatusFailed, false},
		{DocumentStatusFailed, DocumentStatusProcessing, false},
		{DocumentStatusCompleted, DocumentStatusCompleted, false},
		{DocumentStatus("archived"), DocumentStatusCompleted, false},
		{DocumentStatusUploaded, DocumentStatus("archived"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestPredecessors(t *testing.T) {
	assert.Empty(t, Predecessors(DocumentStatusUploaded))
	assert.Equal(t, []DocumentStatus{DocumentStatusUploaded}, Predecessors(DocumentStatusProcessing))
	assert.Equal(t, []DocumentStatus{DocumentStatusUploaded, DocumentStatusProcessing}, Predecessors(DocumentStatusCompleted))
}

func TestCountsAsExisting(t *testing.T) {
	assert.True(t, CountsAsExisting(DocumentStateUploaded))
	assert.True(t, CountsAsExisting(DocumentStateProcessing))
	assert.True(t, CountsAsExisting(DocumentStateCompleted))
	assert.False(t, CountsAsExisting(DocumentStateFailed))
	assert.False(t, CountsAsExisting(DocumentStateNotFound))
}

func TestSelectCurrent(t *testing.T) {
	doc := func(s DocumentStatus) *Document {
		return &Document{Id: uuid.New(), Status: s}
	}

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, SelectCurrent(nil))
	})

	t.Run("newest active wins over newer failure", func(t *testing.T) {
		failed := doc(DocumentStatusFailed)
		completed := doc(DocumentStatusCompleted)
		assert.Same(t, completed, SelectCurrent([]*Document{failed, completed}))
	})

	t.Run("only failures gives newest failure", func(t *testing.T) {
		newer := doc(DocumentStatusFailed)
		older := doc(DocumentStatusFailed)
		assert.Same(t, newer, SelectCurrent([]*Document{newer, older}))
	})
}

func TestDocumentState(t *testing.T) {
	var missing *Document
	assert.Equal(t, DocumentStateNotFound, missing.State())
	assert.Equal(t, DocumentStateProcessing, (&Document{Status: DocumentStatusProcessing}).State())
}
