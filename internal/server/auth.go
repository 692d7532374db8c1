package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bloodlink/internal"
	"bloodlink/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// JWKVerifier checks Cognito access tokens against the pool's cached key set.
type JWKVerifier struct {
	cache   *jwk.Cache
	jwksURL string
	issuer  string
}

func NewJWKVerifier(cache *jwk.Cache, jwksURL, issuer string) *JWKVerifier {
	return &JWKVerifier{cache: cache, jwksURL: jwksURL, issuer: issuer}
}

func (v *JWKVerifier) Verify(ctx context.Context, accessToken string) (Identity, error) {
	set, err := v.cache.Lookup(ctx, v.jwksURL)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	opts := []jwt.ParseOption{jwt.WithKeySet(set), jwt.WithValidate(true)}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse([]byte(accessToken), opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to parse JWT: %w", err)
	}

	userID, ok := token.Subject()
	if !ok || userID == "" {
		return Identity{}, errors.New("no user ID in JWT subject claim")
	}

	// access tokens carry no email; id tokens do
	var email string
	_ = token.Get("email", &email)

	return Identity{UserID: userID, Email: email}, nil
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	if s.cognito == nil {
		s.writeError(w, http.StatusServiceUnavailable, "authentication is not configured")
		return
	}

	var login types.LoginForm
	if err := s.decodeInput(r, &login); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	email := strings.TrimSpace(login.Email)

	input := &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: ctypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(s.config.CognitoClientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": login.Password,
		},
	}

	resp, err := s.cognito.InitiateAuth(r.Context(), input)
	if err != nil {
		var notConfirmed *ctypes.UserNotConfirmedException
		if errors.As(err, &notConfirmed) {
			s.writeError(w, http.StatusForbidden, "Confirm your account before logging in.")
			return
		}
		s.logger.WithError(err).Info("login rejected")
		s.writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if resp.AuthenticationResult == nil || resp.AuthenticationResult.AccessToken == nil {
		s.writeError(w, http.StatusUnauthorized, "Login failed")
		return
	}

	accessToken := aws.ToString(resp.AuthenticationResult.AccessToken)
	expiresIn := int(resp.AuthenticationResult.ExpiresIn)

	identity, err := s.verifier.Verify(r.Context(), accessToken)
	if err != nil {
		s.logger.WithError(err).Error("cognito issued a token we cannot verify")
		s.internalServerError(w)
		return
	}

	if s.users != nil {
		err = s.users.UpsertIdentity(r.Context(), identity.UserID, email, "", "")
		if err != nil {
			s.logger.WithError(err).WithField("user_id", identity.UserID).Error("failed to record user identity")
			s.internalServerError(w)
			return
		}
	}

	encryptedToken, err := s.cookie.Encode(internal.COOKIE_ACCESS_TOKEN_NAME, accessToken)
	if err != nil {
		s.logger.WithError(err).Error("failed to encrypt access token")
		s.internalServerError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    encryptedToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   expiresIn,
		Path:     "/",
	})

	s.writeJSON(w, http.StatusOK, types.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
	})
}

func (s *Service) handlePostLogout(w http.ResponseWriter, r *http.Request) {
	if accessToken, err := s.accessToken(r); err == nil && s.cognito != nil {
		_, err := s.cognito.GlobalSignOut(r.Context(), &cognitoidentityprovider.GlobalSignOutInput{
			AccessToken: aws.String(accessToken),
		})
		if err != nil {
			s.logger.WithError(err).Warn("failed to revoke cognito session")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})

	w.WriteHeader(http.StatusNoContent)
}
