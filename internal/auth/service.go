// Package auth は資格情報の検証とセッショントークンの発行・検証を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/pingman/internal/model"
)

// UsersTable はユーザー台帳の論理テーブル名。プロビジョニングと共有する。
const UsersTable = "users"

// UsersHeader はusersテーブルの列定義。
var UsersHeader = []string{"username", "password_hash", "fullname"}

// usersテーブルの列位置
const (
	colUsername     = 0
	colPasswordHash = 1
	colFullname     = 2
)

// RowReader はユーザー台帳の読み取りに必要なインターフェース。
// tablestore.Storeの部分集合として定義する。
type RowReader interface {
	ReadAll(ctx context.Context, table string) ([][]string, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionSecret string
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は資格情報検証とセッション管理のビジネスロジックを提供する。
type Service struct {
	users  RowReader
	config ServiceConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewService はServiceを生成する。
func NewService(users RowReader, config ServiceConfig, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Verify はユーザー名とパスワードをユーザー台帳と照合する。
//
// 台帳は毎回全件読み込み、先頭から線形走査する。インデックスもキャッシュも
// 持たない（運用者が管理する小さな許可リストであり、正しさを優先する）。
// ユーザー名は大文字小文字を区別した完全一致で、最初に一致した行を採用する。
//
// 未知のユーザー、パスワード不一致、空または壊れたハッシュ、ストア障害は
// すべてfalseとなる。エラーは返さない（認証失敗に縮退させる）。
func (s *Service) Verify(ctx context.Context, username, password string) bool {
	rows, err := s.users.ReadAll(ctx, UsersTable)
	if err != nil {
		s.logger.Error("failed to read users table",
			slog.String("error", err.Error()),
		)
		return false
	}

	for _, row := range rows {
		if len(row) <= colPasswordHash || row[colUsername] != username {
			continue
		}

		hash := row[colPasswordHash]
		if hash == "" {
			return false
		}

		// 壊れたハッシュ（bcrypt形式でない等）も認証失敗として扱う
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
			return false
		}
		return true
	}

	return false
}

// FindUser はユーザー名に一致するユーザーを返す。見つからない場合はnilを返す。
// Verifyと同じく完全一致・先頭一致優先。
func (s *Service) FindUser(ctx context.Context, username string) (*model.User, error) {
	rows, err := s.users.ReadAll(ctx, UsersTable)
	if err != nil {
		return nil, fmt.Errorf("failed to read users table: %w", err)
	}

	for _, row := range rows {
		if len(row) <= colFullname || row[colUsername] != username {
			continue
		}
		return &model.User{
			Username:     row[colUsername],
			PasswordHash: row[colPasswordHash],
			Fullname:     row[colFullname],
		}, nil
	}

	return nil, nil
}

// sessionClaims はセッショントークンのJWTクレーム。
type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IssueSession はユーザー名入りの署名付きセッショントークンを発行する。
// HS256で署名し、有効期限はSessionMaxAge秒後。
func (s *Service) IssueSession(username string) (string, error) {
	now := s.now()
	claims := sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.config.SessionMaxAge) * time.Second)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.SessionSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// VerifySession はセッショントークンを検証し、ユーザー名を返す。
// 署名不正、期限切れ、形式不正の場合はエラーを返す。
func (s *Service) VerifySession(tokenString string) (string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.SessionSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid || claims.Username == "" {
		return "", fmt.Errorf("invalid session token")
	}
	return claims.Username, nil
}
