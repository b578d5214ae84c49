package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/maynagashev/calculations/internal/models"
)

// Типы токенов, записываемые в claim token_type.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenConfig - параметры выпуска и проверки JWT.
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenPair - пара токенов, выдаваемая при входе.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// TokenPayload - результат проверки токена. Реализации: SubjectPayload и ClaimsPayload.
type TokenPayload interface {
	tokenPayload()
}

// SubjectPayload - токен содержит только канонический идентификатор пользователя.
type SubjectPayload struct {
	ID uuid.UUID
}

// ClaimsPayload - токен содержит произвольный subject и/или описательные claims.
// Subject может оказаться id, именем пользователя или email.
type ClaimsPayload struct {
	Subject  string
	Username string
	Email    string
}

func (SubjectPayload) tokenPayload() {}
func (ClaimsPayload) tokenPayload()  {}

// TokenVerifier проверяет bearer-токен.
type TokenVerifier interface {
	VerifyAccessToken(tokenString string) (TokenPayload, error)
}

// TokenService выпускает и проверяет токены.
type TokenService interface {
	TokenVerifier
	IssueTokens(user *models.User) (*TokenPair, error)
}

// Структура для пользовательских данных в JWT (claims).
type jwtClaims struct {
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// Убедимся, что jwtTokenService удовлетворяет интерфейсу TokenService.
var _ TokenService = (*jwtTokenService)(nil)

type jwtTokenService struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenService создает сервис токенов с подписью HS256.
func NewTokenService(cfg TokenConfig) TokenService {
	return &jwtTokenService{cfg: cfg, now: time.Now}
}

// IssueTokens выпускает access и refresh токены. В subject записывается id пользователя.
func (s *jwtTokenService) IssueTokens(user *models.User) (*TokenPair, error) {
	now := s.now()
	accessExp := now.Add(s.cfg.AccessTTL)

	access, err := s.sign(user.ID, tokenTypeAccess, now, accessExp)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(user.ID, tokenTypeRefresh, now, now.Add(s.cfg.RefreshTTL))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: accessExp.UTC(),
	}, nil
}

func (s *jwtTokenService) sign(userID uuid.UUID, tokenType string, now, expiresAt time.Time) (string, error) {
	claims := jwtClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("ошибка подписи JWT: %w", err)
	}
	return signedToken, nil
}

// VerifyAccessToken проверяет подпись, срок действия и тип токена и возвращает его полезную нагрузку.
// Refresh-токен для аутентификации запросов не принимается.
func (s *jwtTokenService) VerifyAccessToken(tokenString string) (TokenPayload, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "" && claims.TokenType != tokenTypeAccess {
		return nil, fmt.Errorf("%w: неподходящий тип токена %q", ErrInvalidToken, claims.TokenType)
	}

	return payloadFromClaims(claims)
}

// payloadFromClaims раскладывает claims по вариантам TokenPayload.
func payloadFromClaims(claims *jwtClaims) (TokenPayload, error) {
	if claims.Username == "" && claims.Email == "" {
		if claims.Subject == "" {
			return nil, fmt.Errorf("%w: пустая полезная нагрузка", ErrInvalidToken)
		}
		if id, err := uuid.Parse(claims.Subject); err == nil {
			return SubjectPayload{ID: id}, nil
		}
	}
	return ClaimsPayload{
		Subject:  claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}

// Ошибки сервиса токенов.
var (
	ErrInvalidToken = errors.New("невалидный токен")
)
