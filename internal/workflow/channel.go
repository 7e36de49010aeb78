package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/formdesk/channel-relay/internal/repository"
)

// SlackClient is the remote capability surface the workflow needs
type SlackClient interface {
	CreateChannel(ctx context.Context, name string, isPrivate bool) (string, error)
	LookupUserByEmail(ctx context.Context, email string) (string, error)
	InviteUsers(ctx context.Context, channelID string, userIDs []string) error
}

// Store persists channel request lifecycle transitions
type Store interface {
	Create(ctx context.Context, req *repository.ChannelRequest) error
	MarkCreated(ctx context.Context, id int, channelID string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id int, errorMessage string, completedAt time.Time) error
}

// PartialFailure reports that the channel was created on the remote
// platform but a later step (user lookup or invite) failed. There is no
// rollback: the channel stays. Callers can distinguish this from "nothing
// happened" failures.
type PartialFailure struct {
	ChannelID string
	Err       error
}

// Error carries the underlying platform error text verbatim
func (e *PartialFailure) Error() string {
	return e.Err.Error()
}

func (e *PartialFailure) Unwrap() error {
	return e.Err
}

// ChannelRequestInput is a validated channel-creation request
type ChannelRequestInput struct {
	ChannelName      string
	RequesterEmail   string
	RequesterName    *string
	Visibility       string
	UsersToAdd       []string
	FormSubmissionID *string
}

// Workflow orchestrates channel creation: persist pending record, create
// the channel, resolve invitees, invite them, record the terminal status.
// Strictly sequential, single attempt, no retries.
type Workflow struct {
	store  Store
	slack  SlackClient
	logger *zap.Logger
}

func New(store Store, slack SlackClient, logger *zap.Logger) *Workflow {
	return &Workflow{
		store:  store,
		slack:  slack,
		logger: logger,
	}
}

// Execute runs the channel-creation workflow for a webhook request. The
// pending record is persisted before any remote call so a crash mid-way
// leaves an auditable trace. On failure after channel creation the
// returned error is a *PartialFailure; the channel is not rolled back.
func (w *Workflow) Execute(ctx context.Context, input ChannelRequestInput) (*repository.ChannelRequest, error) {
	req := &repository.ChannelRequest{
		ChannelName:      input.ChannelName,
		RequesterEmail:   input.RequesterEmail,
		RequesterName:    input.RequesterName,
		Visibility:       input.Visibility,
		UsersToAdd:       input.UsersToAdd,
		FormSubmissionID: input.FormSubmissionID,
	}

	// Durability point: no remote call happens unless this write succeeds.
	if err := w.store.Create(ctx, req); err != nil {
		return nil, err
	}

	channelID, err := w.slack.CreateChannel(ctx, input.ChannelName,
		input.Visibility == repository.VisibilityPrivate)
	if err != nil {
		w.fail(ctx, req, err)
		return req, err
	}

	userIDs, err := EmailInvitees(input.UsersToAdd).Resolve(ctx, w.slack)
	if err != nil {
		w.fail(ctx, req, err)
		return req, &PartialFailure{ChannelID: channelID, Err: err}
	}

	if len(userIDs) > 0 {
		if err := w.slack.InviteUsers(ctx, channelID, userIDs); err != nil {
			w.fail(ctx, req, err)
			return req, &PartialFailure{ChannelID: channelID, Err: err}
		}
	}

	completedAt := time.Now().UTC()
	if err := w.store.MarkCreated(ctx, req.ID, channelID, completedAt); err != nil {
		return req, err
	}

	req.Status = repository.StatusCreated
	req.ChannelID = &channelID
	req.CompletedAt = &completedAt

	w.logger.Info("Channel request completed",
		zap.Int("id", req.ID),
		zap.String("channel_id", channelID),
		zap.Int("invited", len(userIDs)))

	return req, nil
}

// fail records the terminal failure transition with the first error
// encountered. A store failure here is logged but does not mask the
// original error.
func (w *Workflow) fail(ctx context.Context, req *repository.ChannelRequest, cause error) {
	completedAt := time.Now().UTC()
	message := cause.Error()

	if err := w.store.MarkFailed(ctx, req.ID, message, completedAt); err != nil {
		w.logger.Error("Failed to record request failure",
			zap.Int("id", req.ID),
			zap.Error(err))
	}

	req.Status = repository.StatusFailed
	req.ErrorMessage = &message
	req.CompletedAt = &completedAt

	w.logger.Error("Channel request failed",
		zap.Int("id", req.ID),
		zap.String("channel_name", req.ChannelName),
		zap.String("error", message))
}
