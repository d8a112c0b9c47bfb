package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Exchange is one question and the assistant's answer.
type Exchange struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// State is the per-user conversation state: chat history and the uploaded document text.
type State struct {
	ID           string     `json:"id"`
	History      []Exchange `json:"history"`
	Document     string     `json:"-"`
	DocumentName string     `json:"document_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// HasDocument reports whether a document was uploaded into the session.
func (s *State) HasDocument() bool {
	return s != nil && s.Document != ""
}

// Store keeps session state. Lifecycle is Create, then Append/SetDocument, then Clear.
type Store interface {
	Create(ctx context.Context) (*State, error)
	Get(ctx context.Context, id string) (*State, error)
	Append(ctx context.Context, id string, exchange Exchange) (*State, error)
	SetDocument(ctx context.Context, id, name, text string) (*State, error)
	Clear(ctx context.Context, id string) (*State, error)
}

var now = time.Now

func newState() *State {
	return &State{
		ID:        uuid.NewString(),
		History:   []Exchange{},
		CreatedAt: now().UTC(),
	}
}
