package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/validator"
)

// 入力パスワードと保存したハッシュを扱う約束
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

// JWTを発行する約束。subはusername（owner識別子）。
type AccessTokenIssuer interface {
	Issue(username string, role model.Role, now time.Time) (token string, expiresAt time.Time, err error)
}

type AuthUsecase struct {
	userRepo repo.UserRepository
	hasher   PasswordHasher
	verifier PasswordVerifier
	issuer   AccessTokenIssuer
}

func NewAuthUsecase(
	userRepo repo.UserRepository,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
) *AuthUsecase {
	return &AuthUsecase{
		userRepo: userRepo,
		hasher:   hasher,
		verifier: verifier,
		issuer:   issuer,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type TokenOutput struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type LoginOutput struct {
	User  model.User  `json:"user"`
	Token TokenOutput `json:"token"`
}

// 会員登録（CUSTOMER固定）。
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	return u.register(ctx, in, model.RoleCustomer)
}

// 管理者作成（管理者APIからのみ呼ぶ）。
func (u *AuthUsecase) CreateAdmin(ctx context.Context, in RegisterInput) (model.User, error) {
	return u.register(ctx, in, model.RoleAdmin)
}

func (u *AuthUsecase) register(ctx context.Context, in RegisterInput, role model.Role) (model.User, error) {
	if err := validator.ValidateRegister(in.Username, in.Email, in.Password); err != nil {
		return model.User{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid input")
	}

	//username重複チェック
	if _, err := u.userRepo.FindByUsername(ctx, in.Username); err == nil {
		return model.User{}, NewHTTPError(http.StatusConflict, CodeConflict, "username already used")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "hash error")
	}

	created, err := u.userRepo.Create(ctx, model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	})
	if err != nil {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	created.PasswordHash = ""
	return created, nil
}

// ログイン。成功でJWTを返す。
func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	if err := validator.ValidateLogin(in.Username, in.Password); err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidInput, "invalid input")
	}

	user, err := u.userRepo.FindByUsername(ctx, in.Username)
	if errors.Is(err, repo.ErrNotFound) {
		// usernameの存在は明かさない
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "invalid credentials")
	}
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	if !user.IsActive {
		return LoginOutput{}, NewHTTPError(http.StatusForbidden, CodeForbidden, "user is inactive")
	}

	if !u.verifier.Verify(in.Password, user.PasswordHash) {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, "invalid credentials")
	}

	now := time.Now()
	token, expiresAt, err := u.issuer.Issue(user.Username, user.Role, now)
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "token error")
	}

	//最終ログイン時刻更新（失敗してもログインは成立させる）
	_ = u.userRepo.UpdateLastLogin(ctx, user.ID, now)

	user.PasswordHash = ""
	return LoginOutput{
		User: user,
		Token: TokenOutput{
			AccessToken: token,
			ExpiresIn:   int(expiresAt.Sub(now).Seconds()),
		},
	}, nil
}
