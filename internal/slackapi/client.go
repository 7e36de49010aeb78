package slackapi

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/formdesk/channel-relay/internal/config"
)

// APIError is the single error kind for remote failures. Code carries the
// platform's own error string (name_taken, users_not_found, ...); this
// package never interprets individual codes.
type APIError struct {
	Op   string
	Code string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack API error: %s", e.Code)
}

// TokenIdentity describes the credential in use
type TokenIdentity struct {
	UserID string
	Team   string
	URL    string
}

// conversationsAPI is the subset of the slack.Client surface this adapter
// depends on
type conversationsAPI interface {
	CreateConversationContext(ctx context.Context, params slack.CreateConversationParams) (*slack.Channel, error)
	GetUserByEmailContext(ctx context.Context, email string) (*slack.User, error)
	InviteUsersToConversationContext(ctx context.Context, channelID string, users ...string) (*slack.Channel, error)
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	OpenViewContext(ctx context.Context, triggerID string, view slack.ModalViewRequest) (*slack.ViewResponse, error)
}

// Client wraps outbound calls to the Slack Web API. It holds no local
// state; every method is a single synchronous request/response.
type Client struct {
	api         conversationsAPI
	logger      *zap.Logger
	postWebhook func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		api:         slack.New(cfg.SlackBotToken),
		logger:      logger,
		postWebhook: slack.PostWebhookContext,
	}
}

// CreateChannel creates a channel and returns the platform-assigned id
func (c *Client) CreateChannel(ctx context.Context, name string, isPrivate bool) (string, error) {
	channel, err := c.api.CreateConversationContext(ctx, slack.CreateConversationParams{
		ChannelName: name,
		IsPrivate:   isPrivate,
	})
	if err != nil {
		return "", &APIError{Op: "conversations.create", Code: err.Error()}
	}

	c.logger.Info("Channel created",
		zap.String("channel_name", name),
		zap.String("channel_id", channel.ID),
		zap.Bool("is_private", isPrivate))

	return channel.ID, nil
}

// LookupUserByEmail resolves an email address to a platform user id
func (c *Client) LookupUserByEmail(ctx context.Context, email string) (string, error) {
	user, err := c.api.GetUserByEmailContext(ctx, email)
	if err != nil {
		return "", &APIError{Op: "users.lookupByEmail", Code: err.Error()}
	}
	return user.ID, nil
}

// InviteUsers invites all user ids to a channel in a single call. The
// platform's own partial-success semantics pass through unchanged.
func (c *Client) InviteUsers(ctx context.Context, channelID string, userIDs []string) error {
	_, err := c.api.InviteUsersToConversationContext(ctx, channelID, userIDs...)
	if err != nil {
		return &APIError{Op: "conversations.invite", Code: err.Error()}
	}

	c.logger.Info("Users invited",
		zap.String("channel_id", channelID),
		zap.Int("count", len(userIDs)))

	return nil
}

// TokenIdentity introspects the bot credential in use
func (c *Client) TokenIdentity(ctx context.Context) (*TokenIdentity, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return nil, &APIError{Op: "auth.test", Code: err.Error()}
	}

	return &TokenIdentity{
		UserID: resp.UserID,
		Team:   resp.Team,
		URL:    resp.URL,
	}, nil
}

// OpenModal opens a modal view keyed by a short-lived trigger id. Fails if
// the trigger has expired.
func (c *Client) OpenModal(ctx context.Context, triggerID string, view slack.ModalViewRequest) error {
	if _, err := c.api.OpenViewContext(ctx, triggerID, view); err != nil {
		return &APIError{Op: "views.open", Code: err.Error()}
	}
	return nil
}

// PostDelayedResponse posts a follow-up message to a response_url.
// Fire-and-forget: failures are logged, never surfaced, never retried.
func (c *Client) PostDelayedResponse(ctx context.Context, responseURL, text, responseType string) {
	err := c.postWebhook(ctx, responseURL, &slack.WebhookMessage{
		ResponseType: responseType,
		Text:         text,
	})
	if err != nil {
		c.logger.Error("Failed to post delayed response",
			zap.String("response_url", responseURL),
			zap.Error(err))
		return
	}

	c.logger.Debug("Delayed response posted", zap.String("response_url", responseURL))
}
