package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-review-api/internal/apperr"
	"github.com/iliyamo/movie-review-api/internal/model"
	"github.com/iliyamo/movie-review-api/internal/repository"
)

// maxBackfillAttempts bounds the suffix search for a legacy username.
const maxBackfillAttempts = 1000

const (
	msgRegisterRequired = "username, email, and password required"
	msgLoginRequired    = "username or email and password required"
	msgEmailInUse       = "Email already in use"
	msgUsernameTaken    = "Username already taken"
	msgBadCredentials   = "Invalid credentials"
	msgRegisterFailed   = "Registration failed"
	msgLoginFailed      = "Login failed"
)

var errBackfillExhausted = errors.New("no free username candidate")

// Account is the identity returned by register and login.  It never carries
// the password hash.
type Account struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string `validate:"required"`
	Email     string `validate:"required"`
	Password  string `validate:"required"`
}

// LoginInput identifies the account by username or, when no username is
// given, by email.
type LoginInput struct {
	Username string `validate:"required_without=Email"`
	Email    string `validate:"required_without=Username"`
	Password string `validate:"required"`
}

type AccountService struct {
	users  UserStore
	hasher PasswordHasher
	log    zerolog.Logger
}

func NewAccountService(users UserStore, hasher PasswordHasher, log zerolog.Logger) *AccountService {
	return &AccountService{users: users, hasher: hasher, log: log}
}

// Register creates an account.  The email check runs before the username
// check; the unique indexes remain the final arbiter when two registrations
// race past both checks.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (Account, error) {
	in.Username = normalize(in.Username)
	in.Email = normalize(in.Email)
	if invalid(in) {
		return Account{}, apperr.Validation(msgRegisterRequired)
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return Account{}, apperr.Conflict(msgEmailInUse)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return Account{}, apperr.Infra(msgRegisterFailed, err)
	}
	if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
		return Account{}, apperr.Conflict(msgUsernameTaken)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return Account{}, apperr.Infra(msgRegisterFailed, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Account{}, apperr.Infra(msgRegisterFailed, err)
	}

	id, err := s.users.Create(ctx, model.User{
		FirstName:    optional(in.FirstName),
		LastName:     optional(in.LastName),
		Username:     &in.Username,
		Email:        &in.Email,
		PasswordHash: hash,
	})
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return Account{}, apperr.Conflict(msgEmailInUse)
	case errors.Is(err, repository.ErrDuplicateUsername):
		return Account{}, apperr.Conflict(msgUsernameTaken)
	case err != nil:
		return Account{}, apperr.Infra(msgRegisterFailed, err)
	}
	return Account{ID: id, Username: in.Username}, nil
}

// Login verifies credentials.  When both username and email are supplied
// only the username is used.  Unknown identities and wrong passwords fail
// with the same error.  Legacy records without a username get one derived
// and persisted before Login returns.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (Account, error) {
	in.Username = normalize(in.Username)
	in.Email = normalize(in.Email)
	if invalid(in) {
		return Account{}, apperr.Validation(msgLoginRequired)
	}

	var (
		u   model.User
		err error
	)
	if in.Username != "" {
		u, err = s.users.GetByUsername(ctx, in.Username)
	} else {
		u, err = s.users.GetByEmail(ctx, in.Email)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return Account{}, apperr.Auth(msgBadCredentials)
	}
	if err != nil {
		return Account{}, apperr.Infra(msgLoginFailed, err)
	}
	if !s.hasher.Verify(u.PasswordHash, in.Password) {
		return Account{}, apperr.Auth(msgBadCredentials)
	}

	username := u.UsernameOrEmpty()
	if !u.HasUsername() {
		username, err = s.backfillUsername(ctx, u)
		if err != nil {
			return Account{}, apperr.Infra(msgLoginFailed, err)
		}
	}
	return Account{ID: u.ID, Username: username}, nil
}

// backfillUsername derives a username for a legacy record and persists it.
// Candidates are base, base1, base2, ... ; a candidate that loses a race
// on the unique index is skipped like a taken one.
func (s *AccountService) backfillUsername(ctx context.Context, u model.User) (string, error) {
	base := legacyUsernameBase(u)
	for i := 0; i < maxBackfillAttempts; i++ {
		candidate := base
		if i > 0 {
			candidate = base + strconv.Itoa(i)
		}
		taken, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if taken {
			continue
		}

		ok, err := s.users.SetUsername(ctx, u.ID, candidate)
		if errors.Is(err, repository.ErrDuplicateUsername) {
			continue
		}
		if err != nil {
			return "", err
		}
		if !ok {
			// A concurrent login already assigned one.
			fresh, err := s.users.GetByID(ctx, u.ID)
			if err != nil {
				return "", err
			}
			if !fresh.HasUsername() {
				return "", fmt.Errorf("user %d: username not assigned", u.ID)
			}
			return fresh.UsernameOrEmpty(), nil
		}
		s.log.Info().Uint64("user_id", u.ID).Str("username", candidate).Msg("backfilled legacy username")
		return candidate, nil
	}
	return "", fmt.Errorf("user %d: %w after %d attempts", u.ID, errBackfillExhausted, maxBackfillAttempts)
}

// legacyUsernameBase returns the lowercased local part of the email, or
// "user" plus the last four hex digits of the id when there is no usable
// email.
func legacyUsernameBase(u model.User) string {
	if email := u.EmailOrEmpty(); email != "" {
		local, _, _ := strings.Cut(email, "@")
		if local = strings.ToLower(strings.TrimSpace(local)); local != "" {
			return local
		}
	}
	hex := fmt.Sprintf("%04x", u.ID)
	return "user" + hex[len(hex)-4:]
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
