package grant

import (
	"context"
	"fmt"
	"time"

	"github.com/abduss/mediavault/internal/apperr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repositoryTimeout = 5 * time.Second

// Repository persists user-bucket grants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a grant repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// HasGrant reports whether the user holds a grant for the bucket.
func (r *Repository) HasGrant(ctx context.Context, userID uuid.UUID, bucketName string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT EXISTS (
  SELECT 1 FROM bucket_grants WHERE user_id = $1 AND bucket_name = $2
);`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, bucketName).Scan(&exists); err != nil {
		return false, repoErr("check grant", err).With("bucket", bucketName)
	}
	return exists, nil
}

// ListBucketsForUser returns bucket names granted to the user.
func (r *Repository) ListBucketsForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT bucket_name FROM bucket_grants WHERE user_id = $1 ORDER BY bucket_name;`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, repoErr("list user grants", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, repoErr("scan grant row", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, repoErr("iterate grant rows", err)
	}
	return names, nil
}

// ListUsersForBucket returns IDs of users granted access to the bucket.
func (r *Repository) ListUsersForBucket(ctx context.Context, bucketName string) ([]uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT user_id FROM bucket_grants WHERE bucket_name = $1;`

	rows, err := r.pool.Query(ctx, query, bucketName)
	if err != nil {
		return nil, repoErr("list bucket grants", err).With("bucket", bucketName)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, repoErr("scan grant row", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, repoErr("iterate grant rows", err)
	}
	return ids, nil
}

// Apply executes a batch of grant commands in a single transaction. Either
// every command takes effect or none do.
func (r *Repository) Apply(ctx context.Context, commands []Command) error {
	if len(commands) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return repoErr("begin grant transaction", err)
	}
	defer tx.Rollback(ctx)

	for _, cmd := range commands {
		if err := applyCommand(ctx, tx, cmd); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return repoErr("commit grant transaction", err)
	}
	return nil
}

func applyCommand(ctx context.Context, tx pgx.Tx, cmd Command) error {
	switch cmd.Kind {
	case CommandGrant:
		query := `
INSERT INTO bucket_grants (user_id, bucket_name)
VALUES ($1, $2)
ON CONFLICT (user_id, bucket_name) DO NOTHING;`
		if _, err := tx.Exec(ctx, query, cmd.UserID, cmd.BucketName); err != nil {
			return repoErr("grant bucket", err).With("bucket", cmd.BucketName)
		}
	case CommandRevoke:
		query := `
DELETE FROM bucket_grants WHERE user_id = $1 AND bucket_name = $2;`
		if _, err := tx.Exec(ctx, query, cmd.UserID, cmd.BucketName); err != nil {
			return repoErr("revoke bucket", err).With("bucket", cmd.BucketName)
		}
	case CommandRevokeBucket:
		query := `
DELETE FROM bucket_grants WHERE bucket_name = $1;`
		if _, err := tx.Exec(ctx, query, cmd.BucketName); err != nil {
			return repoErr("revoke bucket grants", err).With("bucket", cmd.BucketName)
		}
	case CommandRevokeUser:
		query := `
DELETE FROM bucket_grants WHERE user_id = $1;`
		if _, err := tx.Exec(ctx, query, cmd.UserID); err != nil {
			return repoErr("revoke user grants", err)
		}
	default:
		return apperr.New(apperr.KindRepository, "unknown grant command").
			With("kind", string(cmd.Kind))
	}
	return nil
}

func repoErr(op string, cause error) *apperr.Error {
	return apperr.Wrap(apperr.KindRepository, fmt.Sprintf("%s failed", op), cause).With("op", op)
}
