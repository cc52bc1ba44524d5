// Package identity validates presented join tokens and extracts the
// identity, address, and entitlement claims the gateway trusts.
//
// The token is the sole source of truth for a joining actor: the relay's
// transport-reported address is never consulted.
package identity

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/uyjulian/naoka-ng/internal/platform/errors"
)

// TagModerator marks identities allowed to hold multiple concurrent
// sessions in one room.
const TagModerator = "admin_moderator"

// userIDPrefix is stripped before truncating identities for moderation-list
// comparisons.
const userIDPrefix = "usr_"

// shortUserIDLength is the truncated-identity length used in block and mute
// lists on the wire.
const shortUserIDLength = 6

// verifierEnv holds raw env values before post-parse validation.
type verifierEnv struct {
	Issuer    string `env:"NAOKA_JOIN_TOKEN_ISSUER"`
	Audience  string `env:"NAOKA_JOIN_TOKEN_AUDIENCE"`
	PublicKey string `env:"NAOKA_JOIN_TOKEN_PUBLIC_KEY"`
}

// VerifierConfig defines how join tokens are verified.
type VerifierConfig struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// UserClaims is the identity payload embedded in the join token. It carries
// the display data the gateway projects into the actor's properties.
type UserClaims struct {
	ID                             string   `json:"id"`
	DisplayName                    string   `json:"displayName"`
	DeveloperType                  string   `json:"developerType"`
	CurrentAvatarImageURL          string   `json:"currentAvatarImageUrl"`
	CurrentAvatarThumbnailImageURL string   `json:"currentAvatarThumbnailImageUrl"`
	UserIcon                       string   `json:"userIcon"`
	LastPlatform                   string   `json:"lastPlatform"`
	Status                         string   `json:"status"`
	StatusDescription              string   `json:"statusDescription"`
	Bio                            string   `json:"bio"`
	Tags                           []string `json:"tags"`
	AllowAvatarCopying             bool     `json:"allowAvatarCopying"`
}

// Claims captures a validated join token. Immutable after admission.
type Claims struct {
	UserID    string
	Address   string
	User      UserClaims
	ExpiresAt time.Time
}

// joinTokenClaims is the internal claims type used for JWT parsing.
type joinTokenClaims struct {
	jwt.RegisteredClaims
	IP   string     `json:"ip"`
	User UserClaims `json:"user"`
}

// HasTag reports whether the identity carries the given entitlement tag.
func (c Claims) HasTag(tag string) bool {
	for _, t := range c.User.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ShortUserID returns the fixed-length identity prefix used by block and
// mute lists: the first six characters after stripping the usr_ prefix.
func (c Claims) ShortUserID() string {
	id := strings.TrimPrefix(c.UserID, userIDPrefix)
	if len(id) > shortUserIDLength {
		id = id[:shortUserIDLength]
	}
	return id
}

// ActorProperties projects the validated user payload into the server-owned
// "user" property blob broadcast with the actor.
func (c Claims) ActorProperties() map[string]any {
	return map[string]any{
		"id":                             c.User.ID,
		"displayName":                    c.User.DisplayName,
		"developerType":                  c.User.DeveloperType,
		"currentAvatarImageUrl":          c.User.CurrentAvatarImageURL,
		"currentAvatarThumbnailImageUrl": c.User.CurrentAvatarThumbnailImageURL,
		"userIcon":                       c.User.UserIcon,
		"lastPlatform":                   c.User.LastPlatform,
		"status":                         c.User.Status,
		"statusDescription":              c.User.StatusDescription,
		"bio":                            c.User.Bio,
		"tags":                           c.User.Tags,
		"allowAvatarCopying":             c.User.AllowAvatarCopying,
	}
}

// LoadVerifierConfigFromEnv reads join token verification configuration.
func LoadVerifierConfigFromEnv(now func() time.Time) (VerifierConfig, error) {
	var raw verifierEnv
	if err := env.Parse(&raw); err != nil {
		return VerifierConfig{}, fmt.Errorf("parse join token env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return VerifierConfig{}, fmt.Errorf("NAOKA_JOIN_TOKEN_ISSUER is required")
	}
	if audience == "" {
		return VerifierConfig{}, fmt.Errorf("NAOKA_JOIN_TOKEN_AUDIENCE is required")
	}
	if publicKey == "" {
		return VerifierConfig{}, fmt.Errorf("NAOKA_JOIN_TOKEN_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return VerifierConfig{}, fmt.Errorf("decode join token public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return VerifierConfig{}, fmt.Errorf("join token public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return VerifierConfig{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// Verifier validates join tokens against a fixed verification config.
type Verifier struct {
	cfg VerifierConfig
}

// NewVerifier creates a Verifier. The config must carry issuer, audience,
// and a well-formed public key.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return nil, errors.New("join token verifier is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{cfg: cfg}, nil
}

// Verify validates a presented join token and extracts its claims. Any
// failure is an untrusted-input rejection, never a fatal error: callers
// must reject the enclosing callback.
func (v *Verifier) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeJoinTokenInvalid, "join token is required")
	}

	var parsed joinTokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return v.cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != v.cfg.Issuer {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeJoinTokenInvalid,
			"join token issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, v.cfg.Audience) {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeJoinTokenInvalid,
			"join token audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeJoinTokenInvalid, "join token exp is required")
	}

	now := v.cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeJoinTokenExpired, "join token is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return Claims{}, apperrors.New(apperrors.CodeJoinTokenInvalid, "join token not active yet")
	}

	if strings.TrimSpace(parsed.User.ID) == "" {
		return Claims{}, apperrors.New(apperrors.CodeJoinTokenInvalid, "join token user id is required")
	}
	if strings.TrimSpace(parsed.IP) == "" {
		return Claims{}, apperrors.New(apperrors.CodeJoinTokenInvalid, "join token address is required")
	}

	return Claims{
		UserID:    parsed.User.ID,
		Address:   parsed.IP,
		User:      parsed.User,
		ExpiresAt: exp,
	}, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeJoinTokenInvalid, "join token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeJoinTokenInvalid, "join token alg is invalid")
	}
	return apperrors.New(apperrors.CodeJoinTokenInvalid, "join token is invalid")
}

// audienceContains reports whether the audience list contains the value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(value)
}
