package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gp-directory/internal/core/auth"
	"gp-directory/internal/core/session"
	"gp-directory/internal/domain"
	"gp-directory/pkg/utils"
)

// DefaultSessionTTL 会话绝对有效期
const DefaultSessionTTL = time.Hour

type Verifier interface {
	Verify(ctx context.Context, username, password string) (uint, error)
}

// SessionGuard 管理员会话生命周期：
// Anonymous -> Authenticated -> (Expired | LoggedOut) -> Anonymous
type SessionGuard struct {
	admins Verifier
	store  *session.Store
	tokens *auth.JWTer
	ttl    time.Duration
	now    func() time.Time
	log    *zap.Logger
}

type GuardOpts struct {
	TTL    time.Duration
	Now    func() time.Time
	Logger *zap.Logger
}

func NewSessionGuard(admins Verifier, store *session.Store, tokens *auth.JWTer, o GuardOpts) *SessionGuard {
	if o.TTL <= 0 {
		o.TTL = DefaultSessionTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &SessionGuard{admins: admins, store: store, tokens: tokens, ttl: o.TTL, now: o.Now, log: o.Logger}
}

func (g *SessionGuard) TTL() time.Duration { return g.ttl }

// Authenticate 校验成功后先清掉客户端已有的会话再签发新会话（防会话固定）。
// 失败时不动已有会话，只返回 ErrAuthFailed。
func (g *SessionGuard) Authenticate(ctx context.Context, prevToken, username, password string) (string, session.Session, error) {
	adminID, err := g.admins.Verify(ctx, username, password)
	if err != nil {
		return "", session.Session{}, err
	}

	g.Logout(prevToken)

	now := g.now()
	sess := session.Session{
		ID:         uuid.NewString(),
		AdminID:    adminID,
		CSRFToken:  utils.RandomHex(32),
		Persistent: true,
		IssuedAt:   now,
		ExpiresAt:  now.Add(g.ttl),
	}
	tok, err := g.tokens.Issue(sess.ID, sess.AdminID, sess.IssuedAt, sess.ExpiresAt)
	if err != nil {
		return "", session.Session{}, fmt.Errorf("issue session token: %w", err)
	}
	g.store.Put(sess)
	g.log.Info("admin signed in", zap.Uint("admin_id", adminID))
	return tok, sess, nil
}

// Require 受保护操作前调用；缺失/伪造返回 ErrSessionMissing，过期返回 ErrSessionExpired
func (g *SessionGuard) Require(token string) (session.Session, error) {
	if token == "" {
		return session.Session{}, domain.ErrSessionMissing
	}
	claims, err := g.tokens.Parse(token)
	if err != nil {
		if auth.IsExpired(err) {
			if sid, perr := g.tokens.PeekSID(token); perr == nil {
				g.store.Delete(sid)
			}
			return session.Session{}, domain.ErrSessionExpired
		}
		return session.Session{}, domain.ErrSessionMissing
	}
	sess, ok, expired := g.store.Get(claims.SID)
	switch {
	case !ok:
		return session.Session{}, domain.ErrSessionMissing
	case expired:
		return session.Session{}, domain.ErrSessionExpired
	case sess.AdminID != claims.AdminID:
		return session.Session{}, domain.ErrSessionMissing
	}
	return sess, nil
}

// Logout 无条件清除；token 为空或无效时什么也不做
func (g *SessionGuard) Logout(token string) {
	if token == "" {
		return
	}
	sid, err := g.tokens.PeekSID(token)
	if err != nil {
		return
	}
	g.store.Delete(sid)
}

// RunSweeper 周期清理过期会话，ctx 取消后退出
func (g *SessionGuard) RunSweeper(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := g.store.Sweep(); n > 0 {
				g.log.Debug("expired sessions swept", zap.Int("count", n))
			}
		}
	}
}
