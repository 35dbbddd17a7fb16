package usecase

import (
	"context"
	"strings"
	"time"

	"app/internal/apperr"
	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// GoogleIdentity は検証済みIDトークンから取り出した本人情報。
type GoogleIdentity struct {
	Email      string
	GivenName  string
	FamilyName string
}

type GoogleTokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (GoogleIdentity, error)
}

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"

	customerTokenTTL = 7 * 24 * time.Hour
	adminTokenTTL    = 8 * time.Hour
)

type AuthUsecase struct {
	admins      repo.AdminRepository
	customers   repo.CustomerRepository
	verifier    GoogleTokenVerifier
	log         *zap.Logger
	jwtSecret   string
	adminEmails map[string]struct{}
}

func NewAuthUsecase(
	admins repo.AdminRepository,
	customers repo.CustomerRepository,
	verifier GoogleTokenVerifier,
	log *zap.Logger,
	jwtSecret string,
	adminGoogleEmails []string,
) *AuthUsecase {
	allow := make(map[string]struct{}, len(adminGoogleEmails))
	for _, e := range adminGoogleEmails {
		allow[strings.ToLower(e)] = struct{}{}
	}
	return &AuthUsecase{
		admins:      admins,
		customers:   customers,
		verifier:    verifier,
		log:         log,
		jwtSecret:   jwtSecret,
		adminEmails: allow,
	}
}

func (u *AuthUsecase) signToken(subject string, email string, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(u.jwtSecret))
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindInternal, "token_signing_failed", "failed to sign token")
	}
	return signed, nil
}

// IsAdminEmail は許可リスト照合。大文字小文字は区別しない。
func (u *AuthUsecase) IsAdminEmail(email string) bool {
	_, ok := u.adminEmails[strings.ToLower(email)]
	return ok
}

type AdminLoginOutput struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// AdminLogin はユーザー名+パスワードでの管理者ログイン。
func (u *AuthUsecase) AdminLogin(ctx context.Context, username string, password string) (AdminLoginOutput, error) {
	if username == "" || password == "" {
		return AdminLoginOutput{}, apperr.Validation("missing_credentials", "username and password are required")
	}

	admin, err := u.admins.FindByUsername(ctx, username)
	if err == repo.ErrNotFound {
		return AdminLoginOutput{}, apperr.Unauthorized("invalid_credentials", "invalid credentials")
	}
	if err != nil {
		return AdminLoginOutput{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return AdminLoginOutput{}, apperr.Unauthorized("invalid_credentials", "invalid credentials")
	}

	token, err := u.signToken(admin.ID, "", RoleAdmin, adminTokenTTL)
	if err != nil {
		return AdminLoginOutput{}, err
	}
	return AdminLoginOutput{Token: token, Username: admin.Username}, nil
}

type GoogleLoginOutput struct {
	Token    string         `json:"token"`
	Customer model.Customer `json:"customer"`
	IsAdmin  bool           `json:"isAdmin"`
	Created  bool           `json:"created"`
}

// GoogleLogin はGoogle IDトークンで顧客を認証する。初回は顧客レコードを作る。
func (u *AuthUsecase) GoogleLogin(ctx context.Context, rawToken string) (GoogleLoginOutput, error) {
	if rawToken == "" {
		return GoogleLoginOutput{}, apperr.Validation("missing_token", "token is required")
	}

	identity, err := u.verifier.Verify(ctx, rawToken)
	if err != nil {
		return GoogleLoginOutput{}, err
	}

	var firstName, lastName *string
	if identity.GivenName != "" {
		firstName = &identity.GivenName
	}
	if identity.FamilyName != "" {
		lastName = &identity.FamilyName
	}

	customer, created, err := u.customers.UpsertByEmail(ctx, identity.Email, firstName, lastName)
	if err != nil {
		return GoogleLoginOutput{}, err
	}
	if created {
		u.log.Info("customer created via Google login", zap.String("customer_id", customer.ID))
	}

	token, err := u.signToken(customer.ID, customer.Email, RoleCustomer, customerTokenTTL)
	if err != nil {
		return GoogleLoginOutput{}, err
	}

	return GoogleLoginOutput{
		Token:    token,
		Customer: customer,
		IsAdmin:  u.IsAdminEmail(customer.Email),
		Created:  created,
	}, nil
}

// GoogleAdminLogin はGoogleアカウントでの管理者ログイン。許可リストにある
// メールだけが管理者トークンを得られる。
func (u *AuthUsecase) GoogleAdminLogin(ctx context.Context, rawToken string) (AdminLoginOutput, error) {
	if rawToken == "" {
		return AdminLoginOutput{}, apperr.Validation("missing_token", "token is required")
	}

	identity, err := u.verifier.Verify(ctx, rawToken)
	if err != nil {
		return AdminLoginOutput{}, err
	}
	if !u.IsAdminEmail(identity.Email) {
		return AdminLoginOutput{}, apperr.Forbidden("not_an_admin", "account is not an administrator")
	}

	token, err := u.signToken(identity.Email, identity.Email, RoleAdmin, adminTokenTTL)
	if err != nil {
		return AdminLoginOutput{}, err
	}
	return AdminLoginOutput{Token: token, Username: identity.Email}, nil
}

// defaultAdminUsers は ADMIN_USERS 未設定時のseed値。
const defaultAdminUsers = "mabel:1234,elima:1234"

// EnsureAdmins は起動時に管理者アカウントをseedする。既存ユーザーは触らない。
func (u *AuthUsecase) EnsureAdmins(ctx context.Context, adminUsers string) error {
	if adminUsers == "" {
		adminUsers = defaultAdminUsers
	}

	for _, entry := range strings.Split(adminUsers, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			u.log.Warn("skipping malformed admin entry", zap.String("entry", entry))
			continue
		}
		username, password := parts[0], parts[1]

		if _, err := u.admins.FindByUsername(ctx, username); err == nil {
			continue
		} else if err != repo.ErrNotFound {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
		if err != nil {
			return err
		}
		if _, err := u.admins.Create(ctx, model.Admin{Username: username, PasswordHash: string(hash)}); err != nil {
			return err
		}
		u.log.Info("admin user seeded", zap.String("username", username))
	}
	return nil
}
