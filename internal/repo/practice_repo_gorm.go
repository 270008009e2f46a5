package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"gp-directory/internal/domain"
)

// 名称排序不区分大小写，id 兜底保证稳定
const orderByName = "LOWER(practice_name) ASC, id ASC"

// LIKE 转义符；'!' 在 sqlite/postgres/mysql 中写法一致
const likeEscape = "!"

var searchable = map[string]struct{}{
	domain.ColPracticeName:  {},
	domain.ColPostcode:      {},
	domain.ColPracticeCode:  {},
	domain.ColAddressLine1:  {},
	domain.ColNeighbourhood: {},
	domain.ColArea:          {},
}

type PracticeRepo struct{ db *gorm.DB }

func NewPracticeRepo(db *gorm.DB) *PracticeRepo { return &PracticeRepo{db: db} }

func (r *PracticeRepo) Create(ctx context.Context, p *domain.Practice) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PracticeRepo) FindByID(ctx context.Context, id uint) (*domain.Practice, error) {
	var p domain.Practice
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find practice %d: %w", id, err)
	}
	return &p, nil
}

// Update 整行替换（id/created_at 除外）；先确认存在，避免 mysql 对未变更行返回 0
func (r *PracticeRepo) Update(ctx context.Context, p *domain.Practice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur domain.Practice
		if err := tx.Select("id", "created_at").First(&cur, "id = ?", p.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load practice %d: %w", p.ID, err)
		}
		if err := tx.Model(&cur).Select("*").Omit("id", "created_at").Updates(p).Error; err != nil {
			return fmt.Errorf("update practice %d: %w", p.ID, err)
		}
		p.CreatedAt = cur.CreatedAt
		return nil
	})
}

func (r *PracticeRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Practice{})
	if res.Error != nil {
		return fmt.Errorf("delete practice %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAll 仅供导入工具 --replace 使用
func (r *PracticeRepo) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.Practice{})
	return res.RowsAffected, res.Error
}

func (r *PracticeRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Practice{}).Count(&total).Error
	return total, err
}

func (r *PracticeRepo) List(ctx context.Context, offset, limit int) ([]domain.Practice, error) {
	var out []domain.Practice
	err := r.db.WithContext(ctx).
		Order(orderByName).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Search 任一列包含 term（不区分大小写）即命中
func (r *PracticeRepo) Search(ctx context.Context, term string, columns []string, limit int) ([]domain.Practice, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("search: no columns")
	}
	like := LikePattern(term)
	conds := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for _, col := range columns {
		if _, ok := searchable[col]; !ok {
			return nil, fmt.Errorf("search: column %q not searchable", col)
		}
		conds = append(conds, "LOWER("+col+") LIKE ? ESCAPE '"+likeEscape+"'")
		args = append(args, like)
	}

	var out []domain.Practice
	err := r.db.WithContext(ctx).
		Where(strings.Join(conds, " OR "), args...).
		Order(orderByName).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// LikePattern 生成包含匹配的 LIKE 模式，term 中的通配符按字面处理
func LikePattern(term string) string {
	esc := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return "%" + esc.Replace(strings.ToLower(term)) + "%"
}
