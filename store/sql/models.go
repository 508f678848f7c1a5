package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type appInstanceRecord struct {
	bun.BaseModel `bun:"table:app_instances,alias:ai"`

	ID           string    `bun:"id,pk"`
	ClientID     string    `bun:"client_id,notnull"`
	ClientSecret string    `bun:"client_secret,notnull"`
	Status       string    `bun:"status,notnull"`
	// InstanceLock carries a unique constraint so a second row can never be
	// inserted, even by racing writers.
	InstanceLock int       `bun:"instance_lock,notnull,default:1"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type apiTokenRecord struct {
	bun.BaseModel `bun:"table:api_tokens,alias:at"`

	ID          string    `bun:"id,pk"`
	UserID      string    `bun:"user_id,notnull"`
	Name        string    `bun:"name,notnull"`
	TokenID     string    `bun:"token_id,notnull,unique"`
	TokenPrefix string    `bun:"token_prefix,notnull"`
	TokenHash   string    `bun:"token_hash,notnull"`
	Scopes      string    `bun:"scopes,notnull"`
	Status      string    `bun:"status,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type cachedTokenRecord struct {
	bun.BaseModel `bun:"table:cached_tokens,alias:ct"`

	ID          string    `bun:"id,pk"`
	TokenID     string    `bun:"token_id,notnull,unique"`
	TokenPrefix string    `bun:"token_prefix,notnull"`
	AccessToken string    `bun:"access_token,notnull"`
	ExpiresAt   time.Time `bun:"expires_at,nullzero,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type accessRequestRecord struct {
	bun.BaseModel `bun:"table:access_requests,alias:ar"`

	ID            string     `bun:"id,pk"`
	AppClientID   string     `bun:"app_client_id,notnull,unique"`
	AppName       string     `bun:"app_name,notnull"`
	Description   string     `bun:"description"`
	RedirectURI   string     `bun:"redirect_uri"`
	UserID        string     `bun:"user_id"`
	RequestedRole string     `bun:"requested_role,notnull"`
	ApprovedRole  *string    `bun:"approved_role"`
	Status        string     `bun:"status,notnull"`
	ErrorMessage  string     `bun:"error_message"`
	ExpiresAt     *time.Time `bun:"expires_at,nullzero"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type authSessionRecord struct {
	bun.BaseModel `bun:"table:auth_sessions,alias:as"`

	ID        string         `bun:"id,pk"`
	UserID    string         `bun:"user_id"`
	Data      map[string]any `bun:"data,type:jsonb,notnull"`
	ExpiresAt time.Time      `bun:"expires_at,nullzero,notnull"`
	CreatedAt time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
