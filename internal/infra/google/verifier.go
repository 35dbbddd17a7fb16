package google

import (
	"context"

	"app/internal/apperr"
	"app/internal/usecase"

	"google.golang.org/api/idtoken"
)

// Verifier はGoogleのIDトークン検証をusecase.GoogleTokenVerifierとして提供する。
type Verifier struct {
	clientID string
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID}
}

func (v *Verifier) Verify(ctx context.Context, rawToken string) (usecase.GoogleIdentity, error) {
	if v.clientID == "" {
		return usecase.GoogleIdentity{}, apperr.Configuration("google_not_configured", "Google client ID not configured")
	}

	payload, err := idtoken.Validate(ctx, rawToken, v.clientID)
	if err != nil {
		return usecase.GoogleIdentity{}, apperr.Wrap(err, apperr.KindUnauthorized, "google_auth_failed", "Google auth failed")
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return usecase.GoogleIdentity{}, apperr.Unauthorized("google_auth_failed", "invalid Google token")
	}

	given, _ := payload.Claims["given_name"].(string)
	family, _ := payload.Claims["family_name"].(string)

	return usecase.GoogleIdentity{
		Email:      email,
		GivenName:  given,
		FamilyName: family,
	}, nil
}
