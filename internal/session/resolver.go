// Package session は永続化されたトークンからのセッション再構築を提供する。
// セッションはキャッシュせず、解決のたびにトークン検証から導出する。
package session

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/eventgate/internal/model"
)

// Verifier はリモートのトークン検証に必要なインターフェース。
// backend.Clientの部分集合として定義する。
type Verifier interface {
	Verify(ctx context.Context, tok string) (*model.TokenPayload, error)
}

// TokenStore はトークンスロットの読み取りと削除に必要なインターフェース。
type TokenStore interface {
	Get(r *http.Request, role model.Role) string
	Clear(w http.ResponseWriter, role model.Role)
}

// Result はセッション解決の結果。
// 未認証の場合Sessionはnil。Slotはトークンが見つかったスロット（ヒントであり、
// ロールの根拠にはならない。ロールは常にSession.Roleを信頼する）。
type Result struct {
	Authenticated bool
	Session       *model.TokenPayload
	Slot          model.Role
}

// Resolver はトークンスロットを探索し、リモート検証でセッションを再構築する。
// 状態を持たないため、ページ表示ごとに何度呼んでも安全。
type Resolver struct {
	store    TokenStore
	verifier Verifier
	logger   *slog.Logger
}

// NewResolver はResolverを生成する。
func NewResolver(store TokenStore, verifier Verifier, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:    store,
		verifier: verifier,
		logger:   logger,
	}
}

// Resolve はトークンを検証しセッションを返す。
// roleがnilの場合はADMIN→ORGANIZER→USERの優先順で全スロットを探索し、
// 最初に見つかったトークンで解決する。roleが指定された場合はそのスロットのみ。
//
// トークンが見つからない場合は未認証を返す（副作用なし）。
// 検証に失敗した場合（通信エラー、success:false、ペイロード不備）は
// 探索したスロットのCookieを削除して未認証を返す。
//
// 返却するロールは検証ペイロードのものであり、スロット位置からは推定しない。
// スロットとペイロードのロール不一致の扱いは呼び出し元（ガード）の責務。
func (rs *Resolver) Resolve(ctx context.Context, r *http.Request, w http.ResponseWriter, role *model.Role) Result {
	probe := model.AllRoles
	if role != nil {
		probe = []model.Role{*role}
	}

	for _, slot := range probe {
		tok := rs.store.Get(r, slot)
		if tok == "" {
			continue
		}

		payload, err := rs.verifier.Verify(ctx, tok)
		if err != nil {
			// 失敗の種別（期限切れ、改竄、通信不能）は区別せず、
			// すべて未認証に集約してスロットを掃除する
			rs.logger.Warn("token verification failed, clearing slot",
				slog.String("slot", string(slot)),
				slog.String("error", err.Error()),
			)
			rs.store.Clear(w, slot)
			return Result{}
		}

		return Result{
			Authenticated: true,
			Session:       payload,
			Slot:          slot,
		}
	}

	return Result{}
}
