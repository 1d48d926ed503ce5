package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cv-optimizer/internal/shared/apperr"
)

// ErrNotFound is returned by every store when the id has no session.
var ErrNotFound = apperr.ErrSessionNotFound

// Store persists whole sessions keyed by id. Update never creates a record:
// updating a missing id returns ErrNotFound so a deleted session stays deleted.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
}

// Purger is implemented by stores that support age-based cleanup.
type Purger interface {
	PurgeExpired(ctx context.Context, before time.Time) ([]string, error)
}

func encodeState(s Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return data, nil
}

func decodeState(data []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}
