package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"buddy-api/common"
	"buddy-api/logger"
	"buddy-api/model"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	errMissingClaim         = errors.New("token is missing a required claim")
	errIssuedInFuture       = errors.New("token used before issued")
)

// ITokenCodec mints and verifies signed access tokens.
type ITokenCodec interface {
	Encode(user *model.User) (*model.AccessToken, error)
	// Decode verifies the signature, the presence of sub, iat and exp, and
	// that iat is not in the future. Expiry is only enforced when
	// verifyExpiry is set, which lets refresh identify the user behind an
	// expired access token. Every failure matches common.ErrInvalidCredentials.
	Decode(token string, verifyExpiry bool) (*model.AccessClaims, error)
	// DecodeAuthorizationHeader parses "Bearer <token>" and decodes the
	// token. Any failure is reported as ok == false.
	DecodeAuthorizationHeader(header string, verifyExpiry bool) (*model.AccessClaims, bool)
}

// JWTCodec implements ITokenCodec with a shared HMAC secret.
type JWTCodec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	clock  common.Clock
}

// NewJWTCodec builds a codec for the given HMAC algorithm (HS256, HS384 or
// HS512).
func NewJWTCodec(secret, algorithm string, ttl time.Duration, clock common.Clock) (*JWTCodec, error) {
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnsupportedAlgorithm, algorithm)
	}
	if secret == "" {
		return nil, errors.New("jwt secret key is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid access token lifetime %s", ttl)
	}
	if clock == nil {
		clock = common.NewSystemClock(time.UTC)
	}
	return &JWTCodec{secret: []byte(secret), method: method, ttl: ttl, clock: clock}, nil
}

func (c *JWTCodec) Encode(user *model.User) (*model.AccessToken, error) {
	now := c.clock.Now()
	claims := model.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Error("Failed to sign JWT")
		return nil, fmt.Errorf("failed to sign token string: %w", err)
	}

	return &model.AccessToken{
		AccessToken:     signed,
		TokenType:       model.TokenTypeBearer,
		ExpiryTimestamp: claims.ExpiresAt.Unix(),
	}, nil
}

func (c *JWTCodec) Decode(token string, verifyExpiry bool) (*model.AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.clock.Now),
	}
	if verifyExpiry {
		opts = append(opts, jwt.WithExpirationRequired(), jwt.WithIssuedAt())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &model.AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, invalidToken(err)
	}
	if !parsed.Valid {
		return nil, invalidToken(jwt.ErrTokenInvalidClaims)
	}

	if claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, invalidToken(errMissingClaim)
	}
	// Claims validation is off on the refresh path; iat is still checked.
	if !verifyExpiry && claims.IssuedAt.After(c.clock.Now()) {
		return nil, invalidToken(errIssuedInFuture)
	}
	return claims, nil
}

func (c *JWTCodec) DecodeAuthorizationHeader(header string, verifyExpiry bool) (*model.AccessClaims, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], model.TokenTypeBearer) {
		return nil, false
	}

	claims, err := c.Decode(parts[1], verifyExpiry)
	if err != nil {
		logger.Log.WithError(err).Debug("Rejected access token")
		return nil, false
	}
	return claims, true
}

func invalidToken(err error) error {
	return fmt.Errorf("%w: %w", common.ErrInvalidCredentials, err)
}

// subjectUserID reads the user ID carried in the sub claim.
func subjectUserID(claims *model.AccessClaims) (int64, bool) {
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
