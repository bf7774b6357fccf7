package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/analytics-middletier/internal/model"
)

type APIClientRepository interface {
	GetByClientID(ctx context.Context, clientID string) (*model.APIClient, error)
	Create(ctx context.Context, client *model.APIClient) error
}

type apiClientRepository struct {
	db *pgxpool.Pool
}

func NewAPIClientRepository(db *pgxpool.Pool) APIClientRepository {
	return &apiClientRepository{db: db}
}

func (r *apiClientRepository) GetByClientID(ctx context.Context, clientID string) (*model.APIClient, error) {
	query := `SELECT id, client_id, name, secret_hash, permissions, created_at FROM public.api_clients WHERE client_id = $1`
	c := &model.APIClient{}
	err := r.db.QueryRow(ctx, query, clientID).
		Scan(&c.ID, &c.ClientID, &c.Name, &c.SecretHash, &c.Permissions, &c.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return c, nil
}

func (r *apiClientRepository) Create(ctx context.Context, client *model.APIClient) error {
	query := `
		INSERT INTO public.api_clients (client_id, name, secret_hash, permissions)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query, client.ClientID, client.Name, client.SecretHash, client.Permissions).
		Scan(&client.ID, &client.CreatedAt)
}
