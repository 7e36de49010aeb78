package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/formdesk/channel-relay/internal/repository"
	"github.com/formdesk/channel-relay/internal/slackapi"
	"github.com/formdesk/channel-relay/internal/version"
	"github.com/formdesk/channel-relay/internal/workflow"
)

type formsWebhookRequest struct {
	ChannelName      string   `json:"channel_name"`
	RequesterEmail   string   `json:"requester_email"`
	RequesterName    *string  `json:"requester_name,omitempty"`
	Visibility       string   `json:"visibility"`
	UsersToAdd       []string `json:"users_to_add,omitempty"`
	FormSubmissionID *string  `json:"form_submission_id,omitempty"`
}

type channelRequestResponse struct {
	ID           int        `json:"id"`
	ChannelName  string     `json:"channel_name"`
	ChannelID    *string    `json:"channel_id"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type createChannelRequest struct {
	ChannelName string  `json:"channel_name"`
	ChannelType string  `json:"channel_type"`
	WhoFor      *string `json:"who_for,omitempty"`
	SubmittedBy *string `json:"submitted_by,omitempty"`
}

type createChannelResponse struct {
	ChannelName string `json:"channel_name"`
	ChannelID   string `json:"channel_id"`
}

type tokenInfoResponse struct {
	UserID string `json:"user_id"`
	Team   string `json:"team,omitempty"`
	URL    string `json:"url,omitempty"`
}

func newChannelRequestResponse(req *repository.ChannelRequest) channelRequestResponse {
	return channelRequestResponse{
		ID:           req.ID,
		ChannelName:  req.ChannelName,
		ChannelID:    req.ChannelID,
		Status:       req.Status,
		ErrorMessage: req.ErrorMessage,
		CreatedAt:    req.CreatedAt,
		CompletedAt:  req.CompletedAt,
	}
}

// handleHealth reports liveness. Deliberately independent of store and
// Slack availability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	info := version.GetVersionInfo()
	info["app"] = "channel-relay"
	writeJSON(w, http.StatusOK, info)
}

// handleFormsWebhook accepts a structured form payload and runs the full
// persisted workflow
func (s *Server) handleFormsWebhook(w http.ResponseWriter, r *http.Request) {
	var payload formsWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if err := validateFormsWebhook(&payload); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	req, err := s.workflow.Execute(r.Context(), workflow.ChannelRequestInput{
		ChannelName:      payload.ChannelName,
		RequesterEmail:   payload.RequesterEmail,
		RequesterName:    payload.RequesterName,
		Visibility:       payload.Visibility,
		UsersToAdd:       payload.UsersToAdd,
		FormSubmissionID: payload.FormSubmissionID,
	})
	if err != nil {
		s.logger.Error("Channel request workflow failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, newChannelRequestResponse(req))
}

func validateFormsWebhook(payload *formsWebhookRequest) error {
	if strings.TrimSpace(payload.ChannelName) == "" {
		return fmt.Errorf("channel_name is required")
	}
	if strings.TrimSpace(payload.RequesterEmail) == "" {
		return fmt.Errorf("requester_email is required")
	}
	if payload.Visibility != repository.VisibilityPublic && payload.Visibility != repository.VisibilityPrivate {
		return fmt.Errorf("visibility must be 'public' or 'private'")
	}
	for _, email := range payload.UsersToAdd {
		if strings.TrimSpace(email) == "" {
			return fmt.Errorf("users_to_add must not contain empty entries")
		}
	}
	return nil
}

// handleGetRequest returns the persisted record for a request id
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request id")
		return
	}

	req, err := s.requests.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to load channel request", zap.Int("id", id), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	if req == nil {
		writeDetail(w, http.StatusNotFound, "request not found")
		return
	}

	writeJSON(w, http.StatusOK, newChannelRequestResponse(req))
}

// handleCreateChannel creates a channel directly via the API. No record
// is persisted on this path.
func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var payload createChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if strings.TrimSpace(payload.ChannelName) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "channel_name is required")
		return
	}
	if !strings.EqualFold(payload.ChannelType, "public") && !strings.EqualFold(payload.ChannelType, "private") {
		writeDetail(w, http.StatusUnprocessableEntity, "channel_type must be 'Public' or 'Private'")
		return
	}

	isPrivate := strings.EqualFold(payload.ChannelType, "private")
	channelID, err := s.slack.CreateChannel(r.Context(), payload.ChannelName, isPrivate)
	if err != nil {
		s.logger.Error("Channel creation failed",
			zap.String("channel_name", payload.ChannelName),
			zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, createChannelResponse{
		ChannelName: payload.ChannelName,
		ChannelID:   channelID,
	})
}

// handleTokenInfo returns basic identity information for the configured
// bot token
func (s *Server) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	identity, err := s.slack.TokenIdentity(r.Context())
	if err != nil {
		s.logger.Error("Token info retrieval failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tokenInfoResponse{
		UserID: identity.UserID,
		Team:   identity.Team,
		URL:    identity.URL,
	})
}

// handleSlashCommand opens the channel-creation modal keyed by the
// inbound trigger id. The actual creation happens later through the
// interaction callback, never here.
func (s *Server) handleSlashCommand(w http.ResponseWriter, r *http.Request) {
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		s.logger.Error("Failed to parse slash command", zap.Error(err))
		writeDetail(w, http.StatusBadRequest, "invalid slash command payload")
		return
	}

	s.logger.Info("Received slash command",
		zap.String("command", cmd.Command),
		zap.String("user_id", cmd.UserID),
		zap.String("channel_id", cmd.ChannelID))

	text := "Opening the channel creation form..."
	if err := s.slack.OpenModal(r.Context(), cmd.TriggerID, slackapi.BuildCreateChannelModal()); err != nil {
		// Trigger ids expire within seconds; nothing to do but tell the user
		s.logger.Error("Failed to open modal",
			zap.String("trigger_id", cmd.TriggerID),
			zap.Error(err))
		text = fmt.Sprintf("Could not open the channel creation form: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"response_type": "ephemeral",
		"text":          text,
	})
}

// handleInteraction dispatches Slack interaction callbacks. The payload
// arrives JSON-encoded inside a form field.
func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form payload")
		return
	}

	var callback slack.InteractionCallback
	if err := json.Unmarshal([]byte(r.FormValue("payload")), &callback); err != nil {
		s.logger.Error("Failed to parse interaction payload", zap.Error(err))
		writeDetail(w, http.StatusBadRequest, "invalid interaction payload")
		return
	}

	switch {
	case callback.Type == slack.InteractionTypeViewSubmission && callback.View.CallbackID == slackapi.ModalCallbackID:
		s.handleModalSubmission(w, r, &callback)
	default:
		s.logger.Debug("Ignoring interaction",
			zap.String("type", string(callback.Type)),
			zap.String("callback_id", callback.View.CallbackID))
		w.WriteHeader(http.StatusOK)
	}
}

// handleModalSubmission creates the channel from submitted view state.
// The member picker already returns platform user ids, so there is no
// email lookup on this path.
func (s *Server) handleModalSubmission(w http.ResponseWriter, r *http.Request, callback *slack.InteractionCallback) {
	if callback.View.State == nil {
		writeDetail(w, http.StatusBadRequest, "missing view state")
		return
	}
	values := callback.View.State.Values

	channelName := values[slackapi.BlockChannelName][slackapi.ActionChannelName].Value
	visibility := values[slackapi.BlockVisibility][slackapi.ActionVisibility].SelectedOption.Value
	userIDs := values[slackapi.BlockUsers][slackapi.ActionUsers].SelectedUsers

	if strings.TrimSpace(channelName) == "" {
		writeViewErrors(w, map[string]string{
			slackapi.BlockChannelName: "Channel name is required",
		})
		return
	}

	isPrivate := visibility == slackapi.VisibilityOptionPrivate
	channelID, err := s.slack.CreateChannel(r.Context(), channelName, isPrivate)
	if err != nil {
		s.logger.Error("Modal channel creation failed",
			zap.String("channel_name", channelName),
			zap.Error(err))
		writeViewErrors(w, map[string]string{
			slackapi.BlockChannelName: err.Error(),
		})
		return
	}

	invitees, err := workflow.UserIDInvitees(userIDs).Resolve(r.Context(), s.slack)
	if err == nil && len(invitees) > 0 {
		err = s.slack.InviteUsers(r.Context(), channelID, invitees)
	}
	if err != nil {
		// The channel exists at this point; only the invites failed
		s.logger.Error("Modal invite failed",
			zap.String("channel_id", channelID),
			zap.Error(err))
		writeViewErrors(w, map[string]string{
			slackapi.BlockUsers: err.Error(),
		})
		return
	}

	if callback.ResponseURL != "" {
		responseURL := callback.ResponseURL
		text := fmt.Sprintf("Channel #%s created.", channelName)
		go s.slack.PostDelayedResponse(context.Background(), responseURL, text, "ephemeral")
	}

	s.logger.Info("Modal channel request completed",
		zap.String("channel_name", channelName),
		zap.String("channel_id", channelID),
		zap.String("user_id", callback.User.ID),
		zap.Int("invited", len(userIDs)))

	writeJSON(w, http.StatusOK, map[string]string{"response_action": "clear"})
}

func writeViewErrors(w http.ResponseWriter, errors map[string]string) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"response_action": "errors",
		"errors":          errors,
	})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
