package user

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Roles is the set of capabilities held by an account
type Roles uint8

const (
	RoleAdmin Roles = 1 << iota
	RoleSeller
)

// Has reports whether every role in r is present
func (rs Roles) Has(r Roles) bool {
	return rs&r == r
}

// Set grants r when on is true and revokes it otherwise
func (rs Roles) Set(r Roles, on bool) Roles {
	if on {
		return rs | r
	}
	return rs &^ r
}

func (rs Roles) String() string {
	var names []string
	if rs.Has(RoleAdmin) {
		names = append(names, "admin")
	}
	if rs.Has(RoleSeller) {
		names = append(names, "seller")
	}
	if len(names) == 0 {
		return "customer"
	}
	return strings.Join(names, ",")
}

// Seller is the storefront profile of a seller account
type Seller struct {
	Name        string `json:"name"`
	Logo        string `json:"logo"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Roles        Roles
	Seller       Seller

	// ResetToken is set while a password reset is pending
	ResetToken         *string
	ResetTokenIssuedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicUser is the only representation of a user sent to clients
type PublicUser struct {
	ID        uuid.UUID `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	IsSeller  bool      `json:"isSeller"`
	Seller    *Seller   `json:"seller,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool  { return u.Roles.Has(RoleAdmin) }
func (u *User) IsSeller() bool { return u.Roles.Has(RoleSeller) }

// Public strips credentials and reset state
func (u *User) Public() PublicUser {
	p := PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin(),
		IsSeller:  u.IsSeller(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.IsSeller() {
		seller := u.Seller
		p.Seller = &seller
	}
	return p
}

// MarshalJSON always encodes the public view so a User can never leak its hash or reset token
func (u *User) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Public())
}

// PublicUsers maps a slice of users to their public view
func PublicUsers(users []*User) []PublicUser {
	out := make([]PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}

// ResetTokenExpired reports whether the pending reset token is older than ttl.
// A zero ttl means tokens never expire.
func (u *User) ResetTokenExpired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 || u.ResetTokenIssuedAt == nil {
		return false
	}
	return now.After(u.ResetTokenIssuedAt.Add(ttl))
}

// SellerUpdate carries storefront fields; nil leaves the field as is
type SellerUpdate struct {
	Name        *string
	Logo        *string
	URL         *string
	Description *string
}

// ProfileUpdate is a self-service change. Empty name or email keep the stored value.
type ProfileUpdate struct {
	Name   *string
	Email  *string
	Seller SellerUpdate
}

// AdminUpdate is an administrative change. Empty name or email keep the
// stored value; a present role flag is applied as given, including false.
type AdminUpdate struct {
	Name     *string
	Email    *string
	IsAdmin  *bool
	IsSeller *bool
}

// ApplyProfile merges p into u. Seller fields apply only to sellers.
func (u *User) ApplyProfile(p ProfileUpdate) {
	setIfNotEmpty(&u.Name, p.Name)
	setIfNotEmpty(&u.Email, p.Email)

	if !u.IsSeller() {
		return
	}
	setIfPresent(&u.Seller.Name, p.Seller.Name)
	setIfPresent(&u.Seller.Logo, p.Seller.Logo)
	setIfPresent(&u.Seller.URL, p.Seller.URL)
	setIfPresent(&u.Seller.Description, p.Seller.Description)
}

// ApplyAdmin merges a into u
func (u *User) ApplyAdmin(a AdminUpdate) {
	setIfNotEmpty(&u.Name, a.Name)
	setIfNotEmpty(&u.Email, a.Email)

	if a.IsAdmin != nil {
		u.Roles = u.Roles.Set(RoleAdmin, *a.IsAdmin)
	}
	if a.IsSeller != nil {
		u.Roles = u.Roles.Set(RoleSeller, *a.IsSeller)
	}
}

func setIfNotEmpty(dst *string, v *string) {
	if v == nil {
		return
	}
	if trimmed := strings.TrimSpace(*v); trimmed != "" {
		*dst = trimmed
	}
}

func setIfPresent(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
