package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"gp-directory/internal/domain"
	"gp-directory/pkg/utils"
)

// BootstrapUsername 首个管理员账号名
const BootstrapUsername = "admin"

type AdminService struct {
	repo domain.AdminRepository
	log  *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAdminService(repo domain.AdminRepository, log *zap.Logger) *AdminService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminService{repo: repo, log: log}
}

// Verify 用户名精确匹配 + bcrypt 校验；用户不存在与口令错误返回同一个 ErrAuthFailed
func (s *AdminService) Verify(ctx context.Context, username, password string) (uint, error) {
	a, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		// 仍做一次哈希比较，避免按响应时间探测用户名
		utils.CheckPassword(password, s.dummy())
		return 0, domain.ErrAuthFailed
	}
	if err != nil {
		return 0, fmt.Errorf("find admin: %w", err)
	}
	if !utils.CheckPassword(password, a.PasswordHash) {
		return 0, domain.ErrAuthFailed
	}
	return a.ID, nil
}

func (s *AdminService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := utils.HashPassword(utils.RandomHex(16))
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// Bootstrap 表为空时创建 admin；override 非空且已有管理员时轮换 admin 口令。
// 重复启动结果一致。
func (s *AdminService) Bootstrap(ctx context.Context, defaultPassword, override string) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}

	switch {
	case n == 0:
		pw := override
		if pw == "" {
			pw = defaultPassword
		}
		hash, err := utils.HashPassword(pw)
		if err != nil {
			return err
		}
		a := &domain.Admin{Username: BootstrapUsername, PasswordHash: hash}
		if err := s.repo.Create(ctx, a); err != nil {
			// 并发启动：另一进程已建好
			if !isDupKey(err) {
				return fmt.Errorf("create bootstrap admin: %w", err)
			}
		} else {
			s.log.Info("bootstrap admin created", zap.String("username", BootstrapUsername))
		}
	case override != "":
		hash, err := utils.HashPassword(override)
		if err != nil {
			return err
		}
		if err := s.repo.UpdatePasswordHash(ctx, BootstrapUsername, hash); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.log.Warn("admin password override ignored: no such admin", zap.String("username", BootstrapUsername))
				return nil
			}
			return fmt.Errorf("rotate admin password: %w", err)
		}
		s.log.Info("admin password rotated", zap.String("username", BootstrapUsername))
	}

	if s.usesPassword(ctx, defaultPassword) {
		s.log.Warn("admin is using the default password; set ADMIN_PASSWORD",
			zap.String("username", BootstrapUsername))
	}
	return nil
}

func (s *AdminService) usesPassword(ctx context.Context, pw string) bool {
	a, err := s.repo.FindByUsername(ctx, BootstrapUsername)
	if err != nil {
		return false
	}
	return utils.CheckPassword(pw, a.PasswordHash)
}

func isDupKey(err error) bool {
	// 不依赖 gorm.ErrDuplicatedKey（需开启 TranslateError）
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
