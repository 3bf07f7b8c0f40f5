// Package store persists reconciliation sessions between the initial
// run and later override rounds, so an operator can adjust quantities and
// resettle without re-ingesting the source files. Two backends implement
// the same interface: a JSON file store for single-host use and a Redis
// store for shared deployments. Sessions expire; a load after the TTL
// fails with a session-expired error.
package store

import (
	"context"
	"time"

	"consignment-reconciliation-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTTL is how long a session stays loadable after its last write.
const DefaultTTL = 2 * time.Hour

// Session is a persisted reconciliation: the settled table plus everything
// needed to resettle it after an override round.
type Session struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	Supplier  string    `json:"supplier,omitempty"`
	Branch    string    `json:"branch,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`

	Table      []models.SettlementState   `json:"table"`
	Overrides  models.OverrideMap         `json:"overrides,omitempty"`
	GrossSales map[string]decimal.Decimal `json:"gross_sales,omitempty"`
}

// Expired reports whether the session has passed its TTL.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Touch extends the session lifetime after a write.
func (s *Session) Touch(now time.Time, ttl time.Duration) {
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(ttl)
}

// NewSession mints a session with a fresh id and TTL.
func NewSession(mode string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Store is the session persistence contract shared by the file and Redis
// backends. Save and Update both extend the TTL; Load on an expired or
// missing session returns a store error carrying CodeSessionExpired or
// CodeSessionNotFound.
type Store interface {
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}
