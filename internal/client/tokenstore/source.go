package tokenstore

import (
	"context"
	"time"

	"github.com/dmitrijs2005/moneyxfer/internal/client/token"
)

// ValidTokenSource hands out the stored token only while it decodes and has
// not expired. It re-checks on every call and never refreshes.
type ValidTokenSource struct {
	Store Store
	Now   func() time.Time
}

func NewValidTokenSource(store Store) *ValidTokenSource {
	return &ValidTokenSource{Store: store, Now: time.Now}
}

// Token returns the current token, or ErrNoToken, token.ErrMalformedToken or
// token.ErrExpiredToken.
func (s *ValidTokenSource) Token(ctx context.Context) (string, error) {
	raw, err := s.Store.Get(ctx)
	if err != nil {
		return "", err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if _, err := token.Validate(raw, now()); err != nil {
		return "", err
	}
	return raw, nil
}
