package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/relaychat/auth-service/domain"
)

// FlowAttemptRepository is the Mongo-backed flow-attempt store.
type FlowAttemptRepository struct {
	attempts *mongo.Collection
}

func NewFlowAttemptRepository(db *mongo.Database) *FlowAttemptRepository {
	return &FlowAttemptRepository{
		attempts: db.Collection(FlowAttemptsCollection),
	}
}

// Create inserts the attempt. The unique index on xsrf_token makes this a
// conditional put: a replayed token fails with ErrConflict instead of
// merging with the existing attempt.
func (r *FlowAttemptRepository) Create(ctx context.Context, attempt *domain.FlowAttempt) error {
	if attempt.XSRFToken == "" {
		return errors.New("flow attempt xsrf token cannot be empty")
	}

	if _, err := r.attempts.InsertOne(ctx, attempt); err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("flow attempt already exists: %w", domain.ErrConflict)
		}
		log.Error().Err(err).Str("clientID", attempt.ClientID).Msg("error saving flow attempt")
		return fmt.Errorf("failed to save flow attempt: %w", err)
	}

	log.Debug().Str("clientID", attempt.ClientID).Msg("flow attempt created")
	return nil
}

// Get retrieves the attempt for an XSRF token. TTL-expired attempts are
// filtered out even if Mongo has not physically reaped them yet.
func (r *FlowAttemptRepository) Get(ctx context.Context, xsrfToken string) (*domain.FlowAttempt, error) {
	return r.findOne(ctx, bson.M{"xsrf_token": xsrfToken})
}

// GetByAuthorizationCode is the reverse lookup used at exchange time, backed
// by the sparse unique index on authorization_code.
func (r *FlowAttemptRepository) GetByAuthorizationCode(ctx context.Context, code string) (*domain.FlowAttempt, error) {
	return r.findOne(ctx, bson.M{"authorization_code": code})
}

// Update applies a merge patch and returns the updated record.
func (r *FlowAttemptRepository) Update(ctx context.Context, xsrfToken string, patch *domain.FlowAttemptPatch) (*domain.FlowAttempt, error) {
	set := bson.M{}
	unset := bson.M{}

	setOrUnset := func(field string, value any, isZero bool) {
		if isZero {
			unset[field] = ""
		} else {
			set[field] = value
		}
	}
	if p := patch.ConfirmationCode; p != nil {
		setOrUnset("confirmation_code", *p, *p == "")
	}
	if p := patch.ConfirmationCodeCreatedAt; p != nil {
		setOrUnset("confirmation_code_created_at", *p, p.IsZero())
	}
	if p := patch.AuthorizationCode; p != nil {
		setOrUnset("authorization_code", *p, *p == "")
	}
	if p := patch.AuthorizationCodeCreated; p != nil {
		setOrUnset("authorization_code_created_at", *p, p.IsZero())
	}
	if p := patch.UserID; p != nil {
		setOrUnset("user_id", *p, *p == "")
	}
	if p := patch.ExternalProvider; p != nil {
		setOrUnset("external_provider", *p, *p == "")
	}
	if p := patch.ExternalProviderState; p != nil {
		setOrUnset("external_provider_state", *p, *p == "")
	}
	if p := patch.ExpiresAt; p != nil {
		setOrUnset("expires_at", *p, p.IsZero())
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(update) == 0 {
		return r.Get(ctx, xsrfToken)
	}

	var updated domain.FlowAttempt
	err := r.attempts.FindOneAndUpdate(ctx,
		notExpired(bson.M{"xsrf_token": xsrfToken}),
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("flow attempt not found: %w", domain.ErrNotFound)
		}
		log.Error().Err(err).Msg("error updating flow attempt")
		return nil, fmt.Errorf("failed to update flow attempt: %w", err)
	}
	return &updated, nil
}

// Delete removes the attempt. Deleting an absent attempt is not an error;
// deletion doubles as the protocol's mutual-exclusion mechanism and racing
// deleters are expected.
func (r *FlowAttemptRepository) Delete(ctx context.Context, xsrfToken string) error {
	if _, err := r.attempts.DeleteOne(ctx, bson.M{"xsrf_token": xsrfToken}); err != nil {
		log.Error().Err(err).Msg("error deleting flow attempt")
		return fmt.Errorf("failed to delete flow attempt: %w", err)
	}
	return nil
}

func (r *FlowAttemptRepository) findOne(ctx context.Context, filter bson.M) (*domain.FlowAttempt, error) {
	var attempt domain.FlowAttempt
	err := r.attempts.FindOne(ctx, notExpired(filter)).Decode(&attempt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("flow attempt not found: %w", domain.ErrNotFound)
		}
		log.Error().Err(err).Msg("error retrieving flow attempt")
		return nil, fmt.Errorf("failed to retrieve flow attempt: %w", err)
	}
	return &attempt, nil
}

// notExpired narrows filter to attempts whose TTL has not elapsed. The TTL
// index reaps lazily; reads must not see the corpse in the meantime.
func notExpired(filter bson.M) bson.M {
	filter["$or"] = bson.A{
		bson.M{"expires_at": bson.M{"$exists": false}},
		bson.M{"expires_at": bson.M{"$gt": time.Now()}},
	}
	return filter
}

var _ domain.FlowAttemptRepository = (*FlowAttemptRepository)(nil)
