// Package user はユーザーアカウントのプロビジョニングを提供する。
//
// 利用者テーブルはマイグレーションではなくプロビジョニング時に確保する。
// パスワードは常にbcryptでハッシュ化して保存し、平文は保持しない。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/pingman/internal/auth"
	"github.com/hitoshi/pingman/internal/tablestore"
)

// Provisioner はユーザーアカウントを登録する。
type Provisioner struct {
	store  tablestore.Store
	logger *slog.Logger
}

// NewProvisioner はProvisionerを生成する。
func NewProvisioner(store tablestore.Store, logger *slog.Logger) *Provisioner {
	return &Provisioner{store: store, logger: logger}
}

// Add はユーザーを1件登録する。
// usersテーブルが存在しない場合は作成してから追記する。
// 既存ユーザー名との重複チェックは行わない（認証は先勝ちで解決される）。
func (p *Provisioner) Add(ctx context.Context, username, password, fullname string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("ユーザー名が空です")
	}
	if password == "" {
		return fmt.Errorf("パスワードが空です")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	if err := p.store.EnsureTable(ctx, auth.UsersTable, auth.UsersHeader); err != nil {
		return fmt.Errorf("usersテーブルの確保に失敗しました: %w", err)
	}

	row := []string{username, string(hash), fullname}
	if err := p.store.AppendRow(ctx, auth.UsersTable, row); err != nil {
		return fmt.Errorf("ユーザー行の追記に失敗しました: %w", err)
	}

	p.logger.Info("user provisioned",
		slog.String("username", username),
	)

	return nil
}
