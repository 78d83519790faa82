// Package publish reconciles a rendered document with a remote
// version-controlled store using a read-token then write-with-token protocol.
//
// State transitions of one attempt:
//
//	NotFound      -> Created
//	Found(token)  -> Updated | Conflict
package publish

import (
	"context"
	"log/slog"
)

// DocumentStore is the remote store holding the published document.
type DocumentStore interface {
	// ReadToken returns the version token of path on branch; found is false
	// when the document does not exist.
	ReadToken(ctx context.Context, path, branch string) (token string, found bool, err error)
	// Write stores content at path on branch, conditioned on token when it
	// is non-empty, and returns the new token.
	Write(ctx context.Context, path, branch string, content []byte, message, token string) (string, error)
}

// State is the observed remote state before a write.
type State string

const (
	StateNotFound State = "not_found"
	StateFound    State = "found"
)

// Outcome is the result of a successful write.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
)

// Result describes a successful publish.
type Result struct {
	Outcome       Outcome
	Path          string
	Branch        string
	PreviousToken string
	Token         string
}

// Publisher writes documents to a DocumentStore. It never retries.
type Publisher struct {
	store  DocumentStore
	logger *slog.Logger
}

// NewPublisher creates a Publisher backed by store.
func NewPublisher(store DocumentStore, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

// Attempt holds the token read in the first step of a publish.
type Attempt struct {
	publisher *Publisher
	path      string
	branch    string
	state     State
	token     string
}

// Prepare reads the current version token of path on branch. A missing
// document is not an error; the attempt will create it.
func (p *Publisher) Prepare(ctx context.Context, path, branch string) (*Attempt, error) {
	token, found, err := p.store.ReadToken(ctx, path, branch)
	if err != nil {
		return nil, err
	}

	a := &Attempt{publisher: p, path: path, branch: branch, state: StateNotFound}
	if found {
		a.state = StateFound
		a.token = token
	}
	p.logger.Debug("Read document version", "path", path, "branch", branch, "state", a.state, "token", a.token)
	return a, nil
}

// State returns the remote state observed by Prepare.
func (a *Attempt) State() State {
	return a.state
}

// Token returns the version token observed by Prepare, or "" when not found.
func (a *Attempt) Token() string {
	return a.token
}

// Write stores content conditioned on the token read by Prepare. A concurrent
// change since Prepare surfaces as *errors.ErrPublishConflict from the store.
func (a *Attempt) Write(ctx context.Context, content []byte, message string) (Result, error) {
	newToken, err := a.publisher.store.Write(ctx, a.path, a.branch, content, message, a.token)
	if err != nil {
		return Result{}, err
	}

	outcome := OutcomeCreated
	if a.state == StateFound {
		outcome = OutcomeUpdated
	}
	a.publisher.logger.Info("Published document", "path", a.path, "branch", a.branch, "outcome", outcome)

	return Result{
		Outcome:       outcome,
		Path:          a.path,
		Branch:        a.branch,
		PreviousToken: a.token,
		Token:         newToken,
	}, nil
}

// Publish runs Prepare followed by Write.
func (p *Publisher) Publish(ctx context.Context, path string, content []byte, branch, message string) (Result, error) {
	attempt, err := p.Prepare(ctx, path, branch)
	if err != nil {
		return Result{}, err
	}
	return attempt.Write(ctx, content, message)
}
