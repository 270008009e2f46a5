package domain

import "context"

type Admin struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"uniqueIndex;size:64;not null" json:"username"`
	PasswordHash string `gorm:"size:100;not null" json:"-"`
}

func (Admin) TableName() string { return "admins" }

type AdminRepository interface {
	Create(ctx context.Context, a *Admin) error
	FindByUsername(ctx context.Context, username string) (*Admin, error)
	Count(ctx context.Context) (int64, error)
	UpdatePasswordHash(ctx context.Context, username, hash string) error
}
