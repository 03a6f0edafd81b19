package oauth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"

	"github.com/Skotchmaster/storefront/internal/service"
)

// validateFunc matches idtoken.Validate.
type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// GoogleVerifier checks Google ID tokens issued for ClientID.
type GoogleVerifier struct {
	ClientID string
	validate validateFunc
}

func NewGoogleVerifier(clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("oauth: GOOGLE_CLIENT_ID is required")
	}
	return &GoogleVerifier{ClientID: clientID, validate: idtoken.Validate}, nil
}

func (g *GoogleVerifier) Verify(ctx context.Context, token string) (*service.FederatedIdentity, error) {
	payload, err := g.validate(ctx, token, g.ClientID)
	if err != nil {
		return nil, fmt.Errorf("oauth: %w", err)
	}

	ident := &service.FederatedIdentity{}
	if v, ok := payload.Claims["email"].(string); ok {
		ident.Email = v
	}
	if v, ok := payload.Claims["name"].(string); ok {
		ident.Name = v
	}
	switch v := payload.Claims["email_verified"].(type) {
	case bool:
		ident.EmailVerified = v
	case string:
		ident.EmailVerified = v == "true"
	}
	return ident, nil
}
