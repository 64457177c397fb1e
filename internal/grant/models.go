package grant

import (
	"time"

	"github.com/google/uuid"
)

// Grant records that a user may access a bucket.
type Grant struct {
	UserID     uuid.UUID `json:"user_id"`
	BucketName string    `json:"bucket_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// CommandKind tags a grant mutation variant.
type CommandKind string

const (
	// CommandGrant adds a (user, bucket) pair.
	CommandGrant CommandKind = "grant"
	// CommandRevoke removes a (user, bucket) pair.
	CommandRevoke CommandKind = "revoke"
	// CommandRevokeBucket removes every grant referencing a bucket.
	CommandRevokeBucket CommandKind = "revoke_bucket"
	// CommandRevokeUser removes every grant held by a user.
	CommandRevokeUser CommandKind = "revoke_user"
)

// Command is one tagged grant mutation. Heterogeneous side effects are
// batched as a command list and applied inside a single transaction.
type Command struct {
	Kind       CommandKind
	UserID     uuid.UUID
	BucketName string
}
