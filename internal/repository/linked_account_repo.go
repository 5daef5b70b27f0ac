package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkhub/internal/domain"
)

// LinkedAccountRepository define el contrato de persistencia para cuentas vinculadas.
type LinkedAccountRepository interface {
	Upsert(ctx context.Context, account domain.LinkedAccount) (domain.LinkedAccount, error)
	ListByUser(ctx context.Context, userID string) ([]domain.LinkedAccount, error)
	Delete(ctx context.Context, userID, id string) error
}

// PgLinkedAccountRepository implementa LinkedAccountRepository usando pgxpool.
type PgLinkedAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPgLinkedAccountRepository(pool *pgxpool.Pool) *PgLinkedAccountRepository {
	return &PgLinkedAccountRepository{pool: pool}
}

// Upsert inserta la cuenta o devuelve la fila existente sin modificarla.
// El índice único sobre (user_id, provider, provider_account_id) garantiza
// atomicidad frente a escritores concurrentes; el DO UPDATE no cambia datos,
// solo habilita el RETURNING de la fila ya presente.
func (r *PgLinkedAccountRepository) Upsert(ctx context.Context, account domain.LinkedAccount) (domain.LinkedAccount, error) {
	const query = `
		INSERT INTO linked_accounts (id, user_id, provider, provider_account_id, display_name, method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, provider, provider_account_id)
		DO UPDATE SET provider_account_id = EXCLUDED.provider_account_id
		RETURNING id, user_id, provider, provider_account_id, display_name, method, created_at
	`
	var a domain.LinkedAccount
	err := r.pool.QueryRow(ctx, query,
		account.ID,
		account.UserID,
		account.Provider,
		account.ProviderAccountID,
		account.DisplayName,
		account.Method,
		account.CreatedAt,
	).Scan(
		&a.ID,
		&a.UserID,
		&a.Provider,
		&a.ProviderAccountID,
		&a.DisplayName,
		&a.Method,
		&a.CreatedAt,
	)
	if err != nil {
		return domain.LinkedAccount{}, err
	}
	return a, nil
}

func (r *PgLinkedAccountRepository) ListByUser(ctx context.Context, userID string) ([]domain.LinkedAccount, error) {
	const query = `
		SELECT id, user_id, provider, provider_account_id, display_name, method, created_at
		FROM linked_accounts
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]domain.LinkedAccount, 0)
	for rows.Next() {
		var a domain.LinkedAccount
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.Provider,
			&a.ProviderAccountID,
			&a.DisplayName,
			&a.Method,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Delete verifica propiedad en el WHERE: la cuenta de otro usuario aparece
// como inexistente, nunca como borrable.
func (r *PgLinkedAccountRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM linked_accounts WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
