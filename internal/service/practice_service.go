package service

import (
	"context"
	"strings"

	"gp-directory/internal/domain"
)

const (
	DefaultPublicLimit = 100
	DefaultAdminLimit  = 200
)

type PracticeService struct {
	repo        domain.PracticeRepository
	publicLimit int
	adminLimit  int
}

// NewPracticeService limit<=0 时取默认上限
func NewPracticeService(repo domain.PracticeRepository, publicLimit, adminLimit int) *PracticeService {
	if publicLimit <= 0 {
		publicLimit = DefaultPublicLimit
	}
	if adminLimit <= 0 {
		adminLimit = DefaultAdminLimit
	}
	return &PracticeService{repo: repo, publicLimit: publicLimit, adminLimit: adminLimit}
}

func (s *PracticeService) Create(ctx context.Context, f domain.PracticeFields) (*domain.Practice, error) {
	p, err := Normalize(f)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PracticeService) Get(ctx context.Context, id uint) (*domain.Practice, error) {
	return s.repo.FindByID(ctx, id)
}

// Update 整体替换全部可编辑字段
func (s *PracticeService) Update(ctx context.Context, id uint, f domain.PracticeFields) (*domain.Practice, error) {
	p, err := Normalize(f)
	if err != nil {
		return nil, err
	}
	p.ID = id
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PracticeService) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

// DeleteAll 导入工具重导前清表
func (s *PracticeService) DeleteAll(ctx context.Context) (int64, error) {
	return s.repo.DeleteAll(ctx)
}

func (s *PracticeService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// List 按名称排序；limit 超过后台上限时截断
func (s *PracticeService) List(ctx context.Context, limit, offset int) ([]domain.Practice, error) {
	if limit <= 0 || limit > s.adminLimit {
		limit = s.adminLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, offset, limit)
}

// SearchPublic 六列任一包含即命中，最多 publicLimit 条；空词返回 ErrEmptyQuery
func (s *PracticeService) SearchPublic(ctx context.Context, term string) ([]domain.Practice, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, domain.ErrEmptyQuery
	}
	return s.repo.Search(ctx, term, domain.PublicSearchColumns, s.publicLimit)
}

// SearchAdmin 只查名称/邮编/代码三列，最多 adminLimit 条
func (s *PracticeService) SearchAdmin(ctx context.Context, term string) ([]domain.Practice, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, domain.ErrEmptyQuery
	}
	return s.repo.Search(ctx, term, domain.AdminSearchColumns, s.adminLimit)
}

type AdminListing struct {
	Query string
	Items []domain.Practice
	Total int64 // 全表行数，不受检索条件影响
}

// AdminListing 后台首页：有检索词走检索，否则按名称列出
func (s *PracticeService) AdminListing(ctx context.Context, term string) (*AdminListing, error) {
	term = strings.TrimSpace(term)
	var (
		items []domain.Practice
		err   error
	)
	if term != "" {
		items, err = s.SearchAdmin(ctx, term)
	} else {
		items, err = s.List(ctx, s.adminLimit, 0)
	}
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &AdminListing{Query: term, Items: items, Total: total}, nil
}

func (s *PracticeService) PublicLimit() int { return s.publicLimit }
func (s *PracticeService) AdminLimit() int  { return s.adminLimit }

// Normalize 去首尾空白，空串落库为 NULL；practice_name 必填
func Normalize(f domain.PracticeFields) (*domain.Practice, error) {
	name := strings.TrimSpace(f.PracticeName)
	if name == "" {
		return nil, &domain.ValidationError{Field: "practice_name", Msg: "practice name is required"}
	}
	return &domain.Practice{
		PracticeCode:    nullable(f.PracticeCode),
		PracticeName:    name,
		PartnershipName: nullable(f.PartnershipName),
		Neighbourhood:   nullable(f.Neighbourhood),
		Area:            nullable(f.Area),
		AddressLine1:    nullable(f.AddressLine1),
		AddressLine2:    nullable(f.AddressLine2),
		AddressLine3:    nullable(f.AddressLine3),
		Postcode:        nullable(f.Postcode),
		Telephone:       nullable(f.Telephone),
		Email:           nullable(f.Email),
		Region:          nullable(f.Region),
	}, nil
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
