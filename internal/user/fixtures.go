package user

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed fixtures/users.json
var fixturesFS embed.FS

// Fixture is a seed account with its plaintext password
type Fixture struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	IsAdmin  bool    `json:"isAdmin"`
	IsSeller bool    `json:"isSeller"`
	Seller   *Seller `json:"seller,omitempty"`
}

// LoadFixtures decodes the bundled seed accounts
func LoadFixtures() ([]Fixture, error) {
	raw, err := fixturesFS.ReadFile("fixtures/users.json")
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	var fixtures []Fixture
	if err := json.Unmarshal(raw, &fixtures); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	return fixtures, nil
}

func (f Fixture) toUser(passwordHash string) *User {
	var roles Roles
	roles = roles.Set(RoleAdmin, f.IsAdmin)
	roles = roles.Set(RoleSeller, f.IsSeller)

	u := &User{
		Name:         f.Name,
		Email:        f.Email,
		PasswordHash: passwordHash,
		Roles:        roles,
	}
	if f.Seller != nil {
		u.Seller = *f.Seller
	}
	return u
}
