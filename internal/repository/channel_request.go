package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Request status values. A request starts pending and moves exactly once
// to created or failed; it never moves back.
const (
	StatusPending = "pending"
	StatusCreated = "created"
	StatusFailed  = "failed"
)

// Channel visibility values
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

type ChannelRequest struct {
	ID               int        `db:"id"`
	ChannelName      string     `db:"channel_name"`
	ChannelID        *string    `db:"channel_id"`
	RequesterEmail   string     `db:"requester_email"`
	RequesterName    *string    `db:"requester_name"`
	Visibility       string     `db:"visibility"`
	UsersToAdd       []string   `db:"users_to_add"`
	Status           string     `db:"status"`
	ErrorMessage     *string    `db:"error_message"`
	FormSubmissionID *string    `db:"form_submission_id"`
	CreatedAt        time.Time  `db:"created_at"`
	CompletedAt      *time.Time `db:"completed_at"`
}

type ChannelRequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewChannelRequestRepository(db *sql.DB, logger *zap.Logger) *ChannelRequestRepository {
	return &ChannelRequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new request in pending status and fills in the
// store-assigned id and creation timestamp.
func (r *ChannelRequestRepository) Create(ctx context.Context, req *ChannelRequest) error {
	usersJSON, err := marshalUsers(req.UsersToAdd)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO channel_requests (channel_name, requester_email, requester_name, visibility, users_to_add, status, form_submission_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query, req.ChannelName, req.RequesterEmail,
		req.RequesterName, req.Visibility, usersJSON, StatusPending,
		req.FormSubmissionID).Scan(&req.ID, &req.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create channel request: %w", err)
	}
	req.Status = StatusPending

	r.logger.Debug("Channel request stored",
		zap.Int("id", req.ID),
		zap.String("channel_name", req.ChannelName))

	return nil
}

// MarkCreated records the terminal success transition for a request.
func (r *ChannelRequestRepository) MarkCreated(ctx context.Context, id int, channelID string, completedAt time.Time) error {
	query := `UPDATE channel_requests SET status = $1, channel_id = $2, completed_at = $3 WHERE id = $4`

	_, err := r.db.ExecContext(ctx, query, StatusCreated, channelID, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark channel request created: %w", err)
	}

	r.logger.Debug("Channel request created",
		zap.Int("id", id),
		zap.String("channel_id", channelID))

	return nil
}

// MarkFailed records the terminal failure transition for a request.
func (r *ChannelRequestRepository) MarkFailed(ctx context.Context, id int, errorMessage string, completedAt time.Time) error {
	query := `UPDATE channel_requests SET status = $1, error_message = $2, completed_at = $3 WHERE id = $4`

	_, err := r.db.ExecContext(ctx, query, StatusFailed, errorMessage, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark channel request failed: %w", err)
	}

	r.logger.Debug("Channel request failed",
		zap.Int("id", id),
		zap.String("error", errorMessage))

	return nil
}

// GetByID retrieves a request by its database id. Returns nil when no
// row matches.
func (r *ChannelRequestRepository) GetByID(ctx context.Context, id int) (*ChannelRequest, error) {
	query := `SELECT id, channel_name, channel_id, requester_email, requester_name, visibility, users_to_add, status, error_message, form_submission_id, created_at, completed_at FROM channel_requests WHERE id = $1`

	req := &ChannelRequest{}
	var usersJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&req.ID, &req.ChannelName, &req.ChannelID, &req.RequesterEmail,
		&req.RequesterName, &req.Visibility, &usersJSON, &req.Status,
		&req.ErrorMessage, &req.FormSubmissionID, &req.CreatedAt, &req.CompletedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get channel request: %w", err)
	}

	if len(usersJSON) > 0 {
		if err := json.Unmarshal(usersJSON, &req.UsersToAdd); err != nil {
			return nil, fmt.Errorf("failed to decode users_to_add: %w", err)
		}
	}

	return req, nil
}

func marshalUsers(users []string) ([]byte, error) {
	if users == nil {
		return nil, nil
	}
	data, err := json.Marshal(users)
	if err != nil {
		return nil, fmt.Errorf("failed to encode users_to_add: %w", err)
	}
	return data, nil
}
