package auth

import (
	"context"
	"errors"
	"time"

	"github.com/vilnisdev/catoctin-mountain/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

type Service struct {
	secret []byte
	db     db.Querier
}

type Claims struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

func NewService(secret string, db db.Querier) *Service {
	return &Service{
		secret: []byte(secret),
		db:     db,
	}
}

// Register provisions a new family member profile. New profiles are never
// admins; the admin flag is granted directly in the database.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (Profile, TokenResponse, error) {
	if req.Email == "" || req.DisplayName == "" || req.Password == "" {
		return Profile{}, TokenResponse{}, errors.New("email, display_name, password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Profile{}, TokenResponse{}, err
	}

	profile := Profile{
		ID:           uuid.NewString(),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO profiles (id, email, display_name, is_admin, password_hash)
		VALUES ($1,$2,$3,false,$4)
		RETURNING created_at
	`, profile.ID, profile.Email, profile.DisplayName, profile.PasswordHash)
	if err := row.Scan(&profile.CreatedAt); err != nil {
		return Profile{}, TokenResponse{}, err
	}

	tokens, err := s.GenerateTokens(ctx, profile.ID, profile.IsAdmin)
	if err != nil {
		return Profile{}, TokenResponse{}, err
	}
	return profile, tokens, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (Profile, TokenResponse, error) {
	profile, err := s.profileByEmail(ctx, req.Email)
	if err != nil {
		return Profile{}, TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return Profile{}, TokenResponse{}, errors.New("invalid credentials")
	}

	tokens, err := s.GenerateTokens(ctx, profile.ID, profile.IsAdmin)
	if err != nil {
		return Profile{}, TokenResponse{}, err
	}
	return profile, tokens, nil
}

func (s *Service) ProfileByID(ctx context.Context, id string) (Profile, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, email, display_name, is_admin, password_hash, created_at
		FROM profiles WHERE id = $1
	`, id)

	var p Profile
	if err := row.Scan(&p.ID, &p.Email, &p.DisplayName, &p.IsAdmin, &p.PasswordHash, &p.CreatedAt); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (s *Service) profileByEmail(ctx context.Context, email string) (Profile, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, email, display_name, is_admin, password_hash, created_at
		FROM profiles WHERE email = $1
	`, email)

	var p Profile
	if err := row.Scan(&p.ID, &p.Email, &p.DisplayName, &p.IsAdmin, &p.PasswordHash, &p.CreatedAt); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (s *Service) GenerateTokens(ctx context.Context, userID string, isAdmin bool) (TokenResponse, error) {
	access, err := s.signToken(userID, isAdmin, accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	refresh, err := s.signToken(userID, isAdmin, refreshTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := s.saveRefreshToken(ctx, refresh, userID, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

// ValidateRefreshToken re-reads the admin flag from the profile so a revoked
// admin does not keep minting admin sessions off an old refresh token.
func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (string, bool, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", false, err
	}

	userID, expiresAt, err := s.lookupRefreshToken(ctx, token)
	if err != nil || userID != claims.UserID || time.Now().After(expiresAt) {
		return "", false, errors.New("refresh token invalid")
	}

	profile, err := s.ProfileByID(ctx, userID)
	if err != nil {
		return "", false, err
	}
	return profile.ID, profile.IsAdmin, nil
}

func (s *Service) ValidateAccessToken(token string) (*Claims, error) {
	return s.parseToken(token)
}

func (s *Service) signToken(userID string, isAdmin bool, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:  userID,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), userID, token, time.Now().Add(ttl))
	return err
}

func (s *Service) lookupRefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL
	`, token)
	var userID string
	var expiresAt time.Time
	if err := row.Scan(&userID, &expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return userID, expiresAt, nil
}
