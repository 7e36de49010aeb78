package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/formdesk/channel-relay/internal/repository"
)

type fakeStore struct {
	createErr     error
	nextID        int
	created       []*repository.ChannelRequest
	markedCreated int
	markedFailed  int
	lastChannelID string
	lastError     string
	lastCompleted time.Time
}

func (f *fakeStore) Create(ctx context.Context, req *repository.ChannelRequest) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	req.ID = f.nextID
	req.Status = repository.StatusPending
	req.CreatedAt = time.Now().UTC()
	f.created = append(f.created, req)
	return nil
}

func (f *fakeStore) MarkCreated(ctx context.Context, id int, channelID string, completedAt time.Time) error {
	f.markedCreated++
	f.lastChannelID = channelID
	f.lastCompleted = completedAt
	return nil
}

func (f *fakeStore) MarkFailed(ctx context.Context, id int, errorMessage string, completedAt time.Time) error {
	f.markedFailed++
	f.lastError = errorMessage
	f.lastCompleted = completedAt
	return nil
}

type fakeSlack struct {
	createErr   error
	lookupErrs  map[string]error
	inviteErr   error
	createCalls int
	lookups     []string
	inviteCalls int
	invited     []string
}

func (f *fakeSlack) CreateChannel(ctx context.Context, name string, isPrivate bool) (string, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	return "C0001", nil
}

func (f *fakeSlack) LookupUserByEmail(ctx context.Context, email string) (string, error) {
	f.lookups = append(f.lookups, email)
	if err := f.lookupErrs[email]; err != nil {
		return "", err
	}
	return "U-" + email, nil
}

func (f *fakeSlack) InviteUsers(ctx context.Context, channelID string, userIDs []string) error {
	f.inviteCalls++
	f.invited = append([]string{}, userIDs...)
	return f.inviteErr
}

func newTestWorkflow(t *testing.T, store *fakeStore, slack *fakeSlack) *Workflow {
	return New(store, slack, zaptest.NewLogger(t))
}

func TestWorkflow_ExecuteSuccess(t *testing.T) {
	store := &fakeStore{}
	slack := &fakeSlack{}
	wf := newTestWorkflow(t, store, slack)

	req, err := wf.Execute(context.Background(), ChannelRequestInput{
		ChannelName:    "growth-team",
		RequesterEmail: "lead@example.com",
		Visibility:     repository.VisibilityPrivate,
		UsersToAdd:     []string{"a@example.com", "b@example.com"},
	})

	require.NoError(t, err)
	assert.Equal(t, repository.StatusCreated, req.Status)
	require.NotNil(t, req.ChannelID)
	assert.Equal(t, "C0001", *req.ChannelID)
	assert.NotNil(t, req.CompletedAt)

	assert.Equal(t, 1, slack.createCalls)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, slack.lookups)
	assert.Equal(t, 1, slack.inviteCalls)
	assert.Equal(t, []string{"U-a@example.com", "U-b@example.com"}, slack.invited)
	assert.Equal(t, 1, store.markedCreated)
	assert.Equal(t, 0, store.markedFailed)
}

func TestWorkflow_ExecuteNoInvitees(t *testing.T) {
	store := &fakeStore{}
	slack := &fakeSlack{}
	wf := newTestWorkflow(t, store, slack)

	req, err := wf.Execute(context.Background(), ChannelRequestInput{
		ChannelName:    "announcements",
		RequesterEmail: "lead@example.com",
		Visibility:     repository.VisibilityPublic,
	})

	require.NoError(t, err)
	assert.Equal(t, repository.StatusCreated, req.Status)
	assert.Empty(t, slack.lookups)
	assert.Equal(t, 0, slack.inviteCalls)
}

func TestWorkflow_StoreFailureBlocksRemoteCalls(t *testing.T) {
	store := &fakeStore{createErr: errors.New("connection refused")}
	slack := &fakeSlack{}
	wf := newTestWorkflow(t, store, slack)

	_, err := wf.Execute(context.Background(), ChannelRequestInput{
		ChannelName:    "growth-team",
		RequesterEmail: "lead@example.com",
		Visibility:     repository.VisibilityPublic,
	})

	require.Error(t, err)
	assert.Equal(t, 0, slack.createCalls)
}

func TestWorkflow_ChannelCreationFailure(t *testing.T) {
	store := &fakeStore{}
	slack := &fakeSlack{createErr: errors.New("slack API error: name_taken")}
	wf := newTestWorkflow(t, store, slack)

	req, err := wf.Execute(context.Background(), ChannelRequestInput{
		ChannelName:    "growth-team",
		RequesterEmail: "lead@example.com",
		Visibility:     repository.VisibilityPublic,
		UsersToAdd:     []string{"a@example.com"},
	})

	require.Error(t, err)

	// Nothing was created remotely, so this is not a partial failure
	var partial *PartialFailure
	assert.False(t, errors.As(err, &partial))

	assert.Equal(t, repository.StatusFailed, req.Status)
	assert.Nil(t, req.ChannelID)
	require.NotNil(t, req.ErrorMessage)
	assert.Equal(t, "slack API error: name_taken", *req.ErrorMessage)
	assert.NotNil(t, req.CompletedAt)

	// Lookups and invites are never attempted after a failed create
	assert.Empty(t, slack.lookups)
	assert.Equal(t, 0, slack.inviteCalls)
	assert.Equal(t, 1, store.markedFailed)
}

func TestWorkflow_LookupFailureIsPartial(t *testing.T) {
	store := &fakeStore{}
	slack := &fakeSlack{
		lookupErrs: map[string]error{
			"b@example.com": errors.New("slack API error: users_not_found"),
		},
	}
	wf := newTestWorkflow(t, store, slack)

	req, err := wf.Execute(context.Background(), ChannelRequestInput{
		ChannelName:    "growth-team",
		RequesterEmail: "lead@example.com",
		Visibility:     repository.VisibilityPublic,
		UsersToAdd:     []string{"a@example.com", "b@example.com", "c@example.com"},
	})

	require.Error(t, err)

	// The channel exists remotely even though the request failed
	var partial *PartialFailure
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, "C0001", partial.ChannelID)
	assert.Equal(t, "slack API error: users_not_found", err.Error())

	assert.Equal(t, repository.StatusFailed, req.Status)
	require.NotNil(t, req.ErrorMessage)
	assert.NotEmpty(t, *req.ErrorMessage)

	// Resolution stops at the first failing email; no invite is attempted
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, slack.lookups)
	assert.Equal(t, 0, slack.inviteCalls)
	assert.Equal(t, 1, store.markedFailed)
	assert.Equal(t, 0, store.markedCreated)
}

func TestWorkflow_InviteFailureIsPartial(t *testing.T) {
	store := &fakeStore{}
	slack := &fakeSlack{inviteErr: errors.New("slack API error: cant_invite")}
	wf := newTestWorkflow(t, store, slack)

	_, err := wf.Execute(context.Background(), ChannelRequestInput{
		ChannelName:    "growth-team",
		RequesterEmail: "lead@example.com",
		Visibility:     repository.VisibilityPublic,
		UsersToAdd:     []string{"a@example.com"},
	})

	require.Error(t, err)

	var partial *PartialFailure
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, "C0001", partial.ChannelID)
	assert.Equal(t, 1, slack.inviteCalls)
	assert.Equal(t, 1, store.markedFailed)
}

func TestEmailInvitees_ResolveOrder(t *testing.T) {
	slack := &fakeSlack{}

	ids, err := EmailInvitees{"x@example.com", "y@example.com", "x@example.com"}.Resolve(context.Background(), slack)

	require.NoError(t, err)
	// In input order, duplicates untouched
	assert.Equal(t, []string{"U-x@example.com", "U-y@example.com", "U-x@example.com"}, ids)
}

func TestUserIDInvitees_ResolveIsIdentity(t *testing.T) {
	ids, err := UserIDInvitees{"U111", "U222"}.Resolve(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"U111", "U222"}, ids)
}

func TestInviteesEmptyResolvesToNothing(t *testing.T) {
	for _, invitees := range []Invitees{EmailInvitees(nil), UserIDInvitees(nil)} {
		ids, err := invitees.Resolve(context.Background(), &fakeSlack{})
		require.NoError(t, err)
		assert.Empty(t, ids, fmt.Sprintf("%T should resolve empty input to nothing", invitees))
	}
}
