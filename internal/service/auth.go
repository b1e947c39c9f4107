package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/plugtech/internal/domain"
	"github.com/Skotchmaster/plugtech/internal/hash"
	"github.com/Skotchmaster/plugtech/internal/logging"
	"github.com/Skotchmaster/plugtech/internal/models"
	"github.com/Skotchmaster/plugtech/internal/repo"
	"github.com/Skotchmaster/plugtech/internal/tokens"
)

type AuthService struct {
	Repo          *repo.GormRepo
	AccessSecret  []byte
	RefreshSecret []byte
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	Session      domain.Session
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, invalid("invalid email")
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooShort) {
			return nil, invalid("password must be at least %d characters", hash.MinPasswordLength)
		}
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Email: email, PasswordHash: pwHash}
	if err := s.Repo.CreateUser(ctx, user, domain.RoleUser); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
			return nil, fmt.Errorf("register %s: %w", email, domain.ErrConflict)
		}
		l.Error("register_error", "status", 502, "error", err)
		return nil, fmt.Errorf("register: %w: %v", domain.ErrFetch, err)
	}
	return user, nil
}

// SignIn checks the password and resolves the role once; the role then
// travels inside the access token until the next refresh.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	user, err := s.Repo.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, fmt.Errorf("invalid email or password: %w", domain.ErrAuth)
		}
		l.Error("login_failed", "status", 502, "error", err)
		return nil, fmt.Errorf("login: %w: %v", domain.ErrFetch, err)
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password")
		return nil, fmt.Errorf("invalid email or password: %w", domain.ErrAuth)
	}

	return s.issue(ctx, user)
}

// Refresh rotates the refresh token: the presented one is revoked and a
// new pair is issued with a freshly resolved role.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(rawRefresh, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", domain.ErrAuth)
	}

	active, err := s.Repo.RefreshActive(ctx, claims.ID)
	if err != nil {
		l.Error("refresh_failed", "status", 502, "error", err)
		return nil, fmt.Errorf("refresh: %w: %v", domain.ErrFetch, err)
	}
	if !active {
		l.Warn("refresh_failed", "status", 401, "reason", "token expired or revoked")
		return nil, fmt.Errorf("refresh token expired or revoked: %w", domain.ErrAuth)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("refresh subject: %w", domain.ErrAuth)
	}
	user, err := s.Repo.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("refresh user gone: %w", domain.ErrAuth)
		}
		return nil, fmt.Errorf("refresh: %w: %v", domain.ErrFetch, err)
	}

	// the conditional revoke is the gate: of two concurrent refreshes with
	// the same token only one flips it and gets a new pair
	revoked, err := s.Repo.RevokeRefreshByJTI(ctx, claims.ID)
	if err != nil {
		l.Error("refresh_failed", "status", 502, "reason", "cannot revoke old token", "error", err)
		return nil, fmt.Errorf("refresh: %w: %v", domain.ErrFetch, err)
	}
	if !revoked {
		l.Warn("refresh_failed", "status", 401, "reason", "token already used")
		return nil, fmt.Errorf("refresh token already used: %w", domain.ErrAuth)
	}
	return s.issue(ctx, user)
}

// LogOut revokes the refresh token. Unknown tokens are not an error.
func (s *AuthService) LogOut(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	if err := s.Repo.RevokeRefreshToken(ctx, rawRefresh); err != nil {
		return fmt.Errorf("logout: %w: %v", domain.ErrFetch, err)
	}
	return nil
}

// Session reads the session carried by an access token without touching
// the database. The error also matches jwt.ErrTokenExpired when that is the
// cause.
func (s *AuthService) Session(accessToken string) (domain.Session, error) {
	claims, err := tokens.AccessClaimsFromToken(accessToken, s.AccessSecret)
	if err != nil {
		return domain.Anonymous(), fmt.Errorf("access token: %w: %w", domain.ErrAuth, err)
	}
	return domain.Session{
		State:  domain.AuthSignedIn,
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

type Account struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Account loads the signed-in user's record. The role comes from the
// database, so it can be newer than the one in the access token.
func (s *AuthService) Account(ctx context.Context, sess domain.Session) (*Account, error) {
	if !sess.Authenticated() {
		return nil, fmt.Errorf("account: %w", domain.ErrAuth)
	}
	userID, err := uuid.Parse(sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("account subject: %w", domain.ErrAuth)
	}

	user, err := s.Repo.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %s: %w", sess.UserID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("account: %w: %v", domain.ErrFetch, err)
	}
	role, err := s.resolveRole(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve role: %w: %v", domain.ErrFetch, err)
	}
	return &Account{ID: user.ID, Email: user.Email, Role: role, CreatedAt: user.CreatedAt}, nil
}

// PromoteAdmins grants the admin role to every listed email that belongs
// to a registered user and returns how many were promoted. Unknown emails
// are logged and skipped.
func (s *AuthService) PromoteAdmins(ctx context.Context, emails []string) (int, error) {
	l := logging.FromContext(ctx).With("svc", "auth.promote_admins")

	promoted := 0
	for _, email := range emails {
		email = normalizeEmail(email)
		if email == "" {
			continue
		}
		user, err := s.Repo.UserByEmail(ctx, email)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("admin_not_registered", "email", email)
			continue
		}
		if err != nil {
			return promoted, fmt.Errorf("promote %s: %w: %v", email, domain.ErrFetch, err)
		}
		if err := s.Repo.SetRole(ctx, user.ID, domain.RoleAdmin); err != nil {
			return promoted, fmt.Errorf("promote %s: %w: %v", email, domain.ErrFetch, err)
		}
		l.Info("admin_promoted", "user_id", user.ID.String(), "email", email)
		promoted++
	}
	return promoted, nil
}

func (s *AuthService) resolveRole(ctx context.Context, userID uuid.UUID) (string, error) {
	role, err := s.Repo.ProfileRole(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.RoleUser, nil
	}
	return role, err
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*LoginResult, error) {
	role, err := s.resolveRole(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve role: %w: %v", domain.ErrFetch, err)
	}

	now := time.Now()
	accessExp := now.Add(tokens.AccessTTL)
	refreshExp := now.Add(tokens.RefreshTTL)

	access, err := tokens.SignAccess(s.AccessSecret, user.ID.String(), user.Email, role, accessExp)
	if err != nil {
		return nil, fmt.Errorf("sign access: %w", err)
	}
	refresh, jti, err := tokens.SignRefresh(s.RefreshSecret, user.ID.String(), refreshExp)
	if err != nil {
		return nil, fmt.Errorf("sign refresh: %w", err)
	}

	rt := &models.RefreshToken{
		Token:     tokens.Sha256Hex(refresh),
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
	}
	if err := s.Repo.SaveRefreshToken(ctx, rt); err != nil {
		return nil, fmt.Errorf("save refresh: %w: %v", domain.ErrFetch, err)
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		Session: domain.Session{
			State:  domain.AuthSignedIn,
			UserID: user.ID.String(),
			Email:  user.Email,
			Role:   role,
		},
	}, nil
}
