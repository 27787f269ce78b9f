package usecase

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// JWTを発行する約束（mainで実装を注入する）
type AccessTokenIssuer interface {
	Issue(userID int64, role string, now time.Time) (token string, expiresAt time.Time, err error)
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginOutput struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// 管理者ログイン。ユーザー管理は対象外なので、
// 照合先は環境変数で渡された1アカウントだけ。
type AdminAuthUsecase struct {
	adminEmail        string
	adminPasswordHash string
	verifier          PasswordVerifier
	issuer            AccessTokenIssuer
	clock             Clock
}

func NewAdminAuthUsecase(
	adminEmail string,
	adminPasswordHash string,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
	clock Clock,
) *AdminAuthUsecase {
	return &AdminAuthUsecase{
		adminEmail:        adminEmail,
		adminPasswordHash: adminPasswordHash,
		verifier:          verifier,
		issuer:            issuer,
		clock:             clock,
	}
}

func (u *AdminAuthUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return LoginOutput{}, NewHTTPError(http.StatusBadRequest, "invalid input")
	}

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(u.adminEmail)) == 1

	//emailが違ってもbcryptは回して時間差を作らない
	passOK := u.verifier.Verify(in.Password, u.adminPasswordHash)

	if !emailOK || !passOK {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	now := u.clock.Now()
	token, expiresAt, err := u.issuer.Issue(1, "ADMIN", now)
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "token error")
	}

	return LoginOutput{
		AccessToken: token,
		ExpiresIn:   int64(expiresAt.Sub(now).Seconds()),
	}, nil
}
