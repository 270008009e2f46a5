package domain

import (
	"context"
	"time"
)

// Practice 一条 GP 诊所记录；除 PracticeName 外的文本列均可为 NULL
type Practice struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PracticeCode    *string   `gorm:"size:32;index" json:"practiceCode"`
	PracticeName    string    `gorm:"size:255;not null;index" json:"practiceName"`
	PartnershipName *string   `gorm:"size:255" json:"partnershipName"`
	Neighbourhood   *string   `gorm:"size:128" json:"neighbourhood"`
	Area            *string   `gorm:"size:128" json:"area"`
	AddressLine1    *string   `gorm:"column:address_line1;size:255" json:"addressLine1"`
	AddressLine2    *string   `gorm:"column:address_line2;size:255" json:"addressLine2"`
	AddressLine3    *string   `gorm:"column:address_line3;size:255" json:"addressLine3"`
	Postcode        *string   `gorm:"size:16;index" json:"postcode"`
	Telephone       *string   `gorm:"size:64" json:"telephone"`
	Email           *string   `gorm:"size:255" json:"email"`
	Region          *string   `gorm:"size:128" json:"region"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// 与导入脚本共用的旧表名
func (Practice) TableName() string { return "gps" }

// PracticeFields 新增/编辑时提交的原始字段（未归一化）
type PracticeFields struct {
	PracticeCode    string
	PracticeName    string
	PartnershipName string
	Neighbourhood   string
	Area            string
	AddressLine1    string
	AddressLine2    string
	AddressLine3    string
	Postcode        string
	Telephone       string
	Email           string
	Region          string
}

// 可参与检索的列
const (
	ColPracticeName  = "practice_name"
	ColPostcode      = "postcode"
	ColPracticeCode  = "practice_code"
	ColAddressLine1  = "address_line1"
	ColNeighbourhood = "neighbourhood"
	ColArea          = "area"
)

var (
	// PublicSearchColumns 公开检索匹配的列
	PublicSearchColumns = []string{
		ColPracticeName, ColPostcode, ColPracticeCode,
		ColAddressLine1, ColNeighbourhood, ColArea,
	}
	// AdminSearchColumns 后台检索只匹配这三列（沿用旧系统行为）
	AdminSearchColumns = []string{ColPracticeName, ColPostcode, ColPracticeCode}
)

type PracticeRepository interface {
	Create(ctx context.Context, p *Practice) error
	FindByID(ctx context.Context, id uint) (*Practice, error)
	Update(ctx context.Context, p *Practice) error
	Delete(ctx context.Context, id uint) error
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, offset, limit int) ([]Practice, error)
	Search(ctx context.Context, term string, columns []string, limit int) ([]Practice, error)
}
