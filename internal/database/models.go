package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persisted shape of a storefront account
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                 uuid.UUID  `bun:"id,pk,type:uuid"`
	Name               string     `bun:"name,notnull"`
	Email              string     `bun:"email,notnull"`
	PasswordHash       string     `bun:"password_hash,notnull"`
	IsAdmin            bool       `bun:"is_admin,notnull"`
	IsSeller           bool       `bun:"is_seller,notnull"`
	SellerName         string     `bun:"seller_name,notnull"`
	SellerLogo         string     `bun:"seller_logo,notnull"`
	SellerURL          string     `bun:"seller_url,notnull"`
	SellerDescription  string     `bun:"seller_description,notnull"`
	ResetToken         *string    `bun:"reset_token"`
	ResetTokenIssuedAt *time.Time `bun:"reset_token_issued_at"`
	CreatedAt          time.Time  `bun:"created_at,notnull"`
	UpdatedAt          time.Time  `bun:"updated_at,notnull"`
}
