package auth

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/hongminglow/cryptodesk-be/internal/apperr"
	"github.com/hongminglow/cryptodesk-be/internal/models"
	"github.com/hongminglow/cryptodesk-be/internal/models/dto"
	"github.com/hongminglow/cryptodesk-be/internal/storage"
)

const (
	maxUsernameLength = 150
	maxNameLength     = 150
	fieldRequired     = "This field is required."
	invalidCreds      = "Invalid credentials"
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// RefreshPolicy controls refresh token rotation.
type RefreshPolicy struct {
	Rotate                 bool
	BlacklistAfterRotation bool
}

// Service is the auth gateway: registration, login, refresh and bearer resolution.
type Service struct {
	users     storage.UserStore
	blacklist storage.TokenBlacklist
	tokens    *TokenManager
	policy    RefreshPolicy
	log       zerolog.Logger
}

// NewService wires the gateway.
func NewService(users storage.UserStore, blacklist storage.TokenBlacklist, tokens *TokenManager, policy RefreshPolicy, log zerolog.Logger) *Service {
	return &Service{
		users:     users,
		blacklist: blacklist,
		tokens:    tokens,
		policy:    policy,
		log:       log.With().Str("component", "auth").Logger(),
	}
}

// Register validates the request, stores the user with a hashed password and
// returns a fresh token pair. Nothing is written when validation fails.
func (s *Service) Register(ctx context.Context, req dto.RegisterRequest) (models.User, TokenPair, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)

	fe := apperr.FieldErrors{}
	switch {
	case username == "":
		fe.Add("username", fieldRequired)
	case utf8.RuneCountInString(username) > maxUsernameLength:
		fe.Add("username", "Ensure this field has no more than 150 characters.")
	case !usernamePattern.MatchString(username):
		fe.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	default:
		if _, err := s.users.FindUserByUsername(ctx, username); err == nil {
			fe.Add("username", "A user with that username already exists.")
		} else if !errors.Is(err, storage.ErrNotFound) {
			return models.User{}, TokenPair{}, apperr.Internal(err)
		}
	}
	if email != "" && !validEmail(email) {
		fe.Add("email", "Enter a valid email address.")
	}
	checkName(fe, "first_name", firstName)
	checkName(fe, "last_name", lastName)

	if req.Password == "" {
		fe.Add("password", fieldRequired)
	} else {
		for _, msg := range ValidatePassword(req.Password,
			UserAttribute{Name: "username", Value: username},
			UserAttribute{Name: "first name", Value: firstName},
			UserAttribute{Name: "last name", Value: lastName},
			UserAttribute{Name: "email address", Value: email},
		) {
			fe.Add("password", msg)
		}
	}
	if req.Password2 == "" {
		fe.Add("password2", fieldRequired)
	}
	if err := fe.Err(); err != nil {
		return models.User{}, TokenPair{}, err
	}
	if req.Password != req.Password2 {
		fe.Add("password", "Password fields didn't match.")
		return models.User{}, TokenPair{}, fe.Err()
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return models.User{}, TokenPair{}, apperr.Internal(err)
	}
	user, err := s.users.CreateUser(ctx, models.User{
		Username:     username,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			fe.Add("username", "A user with that username already exists.")
			return models.User{}, TokenPair{}, fe.Err()
		}
		return models.User{}, TokenPair{}, apperr.Internal(err)
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return models.User{}, TokenPair{}, apperr.Internal(err)
	}
	s.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, pair, nil
}

// Login verifies credentials. Unknown users and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, username, password string) (models.User, TokenPair, error) {
	user, err := s.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return models.User{}, TokenPair{}, apperr.Internal(err)
		}
		BurnPasswordCheck(password)
		s.log.Debug().Str("username", username).Msg("login failed")
		return models.User{}, TokenPair{}, apperr.Unauthorized(invalidCreds)
	}
	if !CheckPassword(user.PasswordHash, password) {
		s.log.Debug().Str("username", username).Msg("login failed")
		return models.User{}, TokenPair{}, apperr.Unauthorized(invalidCreds)
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return models.User{}, TokenPair{}, apperr.Internal(err)
	}
	return user, pair, nil
}

// Refresh exchanges a refresh token for a new access token. With rotation on,
// a new refresh token is returned as well and the old one may be blacklisted.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		fe := apperr.FieldErrors{}
		fe.Add("refresh", fieldRequired)
		return TokenPair{}, fe.Err()
	}
	claims, err := s.tokens.Parse(refreshToken, RefreshToken)
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("Token is invalid or expired")
	}
	listed, err := s.blacklist.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return TokenPair{}, apperr.Internal(err)
	}
	if listed {
		return TokenPair{}, apperr.Unauthorized("Token is blacklisted")
	}

	access, err := s.tokens.IssueAccess(claims.UserID)
	if err != nil {
		return TokenPair{}, apperr.Internal(err)
	}
	pair := TokenPair{Access: access}
	if !s.policy.Rotate {
		return pair, nil
	}

	if s.policy.BlacklistAfterRotation {
		if err := s.blacklist.BlacklistToken(ctx, claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
			return TokenPair{}, apperr.Internal(err)
		}
	}
	if pair.Refresh, err = s.tokens.IssueRefresh(claims.UserID); err != nil {
		return TokenPair{}, apperr.Internal(err)
	}
	return pair, nil
}

// Resolve maps a bearer token to its user. An empty token is anonymous and
// yields (nil, nil); a present but invalid token is an error.
func (s *Service) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := s.tokens.Parse(token, AccessToken)
	if err != nil {
		return nil, apperr.Unauthorized("Given token not valid for any token type")
	}
	user, err := s.users.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Unauthorized("User not found")
		}
		return nil, apperr.Internal(err)
	}
	return &user, nil
}

func checkName(fe apperr.FieldErrors, field, value string) {
	switch {
	case value == "":
		fe.Add(field, fieldRequired)
	case utf8.RuneCountInString(value) > maxNameLength:
		fe.Add(field, "Ensure this field has no more than 150 characters.")
	}
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}
