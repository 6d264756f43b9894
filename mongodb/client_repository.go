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

// ClientRepository is thin record access for OAuth client registrations.
type ClientRepository struct {
	clients *mongo.Collection
}

func NewClientRepository(db *mongo.Database) *ClientRepository {
	return &ClientRepository{
		clients: db.Collection(ClientsCollection),
	}
}

// Create registers a client; a duplicate ID fails with ErrConflict.
func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) error {
	client.CreatedAt = time.Now().UTC()
	if _, err := r.clients.InsertOne(ctx, client); err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("client %s already exists: %w", client.ID, domain.ErrConflict)
		}
		log.Error().Err(err).Str("clientID", client.ID).Msg("error saving client")
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

// Get retrieves a client registration.
func (r *ClientRepository) Get(ctx context.Context, clientID string) (*domain.Client, error) {
	var client domain.Client
	err := r.clients.FindOne(ctx, bson.M{"client_id": clientID}).Decode(&client)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("client %s not found: %w", clientID, domain.ErrNotFound)
		}
		log.Error().Err(err).Str("clientID", clientID).Msg("error retrieving client")
		return nil, fmt.Errorf("failed to retrieve client: %w", err)
	}
	return &client, nil
}

// Delete removes a client registration.
func (r *ClientRepository) Delete(ctx context.Context, clientID string) error {
	result, err := r.clients.DeleteOne(ctx, bson.M{"client_id": clientID})
	if err != nil {
		log.Error().Err(err).Str("clientID", clientID).Msg("error deleting client")
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("client %s not found: %w", clientID, domain.ErrNotFound)
	}
	return nil
}

var _ domain.ClientRepository = (*ClientRepository)(nil)
