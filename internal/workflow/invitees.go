package workflow

import (
	"context"
)

// UserLookup resolves an email address to a platform user id
type UserLookup interface {
	LookupUserByEmail(ctx context.Context, email string) (string, error)
}

// Invitees resolves a list of invitees to platform user ids. Two
// strategies exist: email addresses that need a remote lookup each, and
// user ids already resolved by the Slack UI. Both converge on the same
// invite call.
type Invitees interface {
	Resolve(ctx context.Context, lookup UserLookup) ([]string, error)
}

// EmailInvitees resolves each email with one remote lookup, in input
// order, no batching, no deduplication. The first lookup failure aborts
// the whole resolution.
type EmailInvitees []string

func (e EmailInvitees) Resolve(ctx context.Context, lookup UserLookup) ([]string, error) {
	if len(e) == 0 {
		return nil, nil
	}

	userIDs := make([]string, 0, len(e))
	for _, email := range e {
		userID, err := lookup.LookupUserByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		userIDs = append(userIDs, userID)
	}

	return userIDs, nil
}

// UserIDInvitees are already platform user ids (picked in the modal UI);
// resolution is the identity function.
type UserIDInvitees []string

func (u UserIDInvitees) Resolve(ctx context.Context, lookup UserLookup) ([]string, error) {
	if len(u) == 0 {
		return nil, nil
	}
	return []string(u), nil
}
