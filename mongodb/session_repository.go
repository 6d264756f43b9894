package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/relaychat/auth-service/domain"
)

// SessionRepository is the Mongo-backed session store.
type SessionRepository struct {
	sessions *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{
		sessions: db.Collection(SessionsCollection),
	}
}

// Create inserts the session; a duplicate session ID or refresh token fails
// with ErrConflict.
func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if _, err := r.sessions.InsertOne(ctx, session); err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("session already exists: %w", domain.ErrConflict)
		}
		log.Error().Err(err).Str("sessionID", session.ID).Msg("error saving session")
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get retrieves a session by its ID.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	return r.findOne(ctx, bson.M{"session_id": sessionID})
}

// GetByRefreshToken retrieves a session by refresh-token value, backed by
// the unique refresh_token index.
func (r *SessionRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return r.findOne(ctx, bson.M{"refresh_token": refreshToken})
}

// UpdateExpiry slides the refresh-token expiry to expiresAt.
func (r *SessionRepository) UpdateExpiry(ctx context.Context, sessionID string, expiresAt time.Time) error {
	result, err := r.sessions.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"refresh_token_expires_at": expiresAt}},
	)
	if err != nil {
		log.Error().Err(err).Str("sessionID", sessionID).Msg("error extending session")
		return fmt.Errorf("failed to extend session: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	return nil
}

// Delete removes a session, revoking its refresh token and, through the
// liveness check, every access token minted under it.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	result, err := r.sessions.DeleteOne(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		log.Error().Err(err).Str("sessionID", sessionID).Msg("error deleting session")
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *SessionRepository) findOne(ctx context.Context, filter bson.M) (*domain.Session, error) {
	var session domain.Session
	err := r.sessions.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
		}
		log.Error().Err(err).Msg("error retrieving session")
		return nil, fmt.Errorf("failed to retrieve session: %w", err)
	}
	return &session, nil
}

var _ domain.SessionRepository = (*SessionRepository)(nil)
