package ui

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/redmonkez12/storefront-users/internal/user"
)

// AdminInput holds the fields needed to create an admin account
type AdminInput struct {
	Name     string
	Email    string
	Password string
}

// Complete reports whether every field is filled in
func (in AdminInput) Complete() bool {
	return in.Name != "" && in.Email != "" && in.Password != ""
}

// RunAdminForm asks for the fields that are still empty.
// Values passed as flags are shown prefilled.
func RunAdminForm(in AdminInput) (AdminInput, error) {
	var confirm string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("Basir").
				Value(&in.Name).
				Validate(required("name")),

			huh.NewInput().
				Title("Email").
				Placeholder("admin@example.com").
				Value(&in.Email).
				Validate(func(s string) error {
					if _, err := mail.ParseAddress(strings.TrimSpace(s)); err != nil {
						return fmt.Errorf("enter a valid email address")
					}
					return nil
				}),

			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&in.Password).
				Validate(required("password")),

			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&confirm).
				Validate(func(s string) error {
					if s != in.Password {
						return fmt.Errorf("passwords do not match")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeCatppuccin())

	if err := form.Run(); err != nil {
		return AdminInput{}, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	return in, nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// PrintTitle prints a section heading
func PrintTitle(title string) {
	fmt.Println(titleStyle.Render(title))
}

// PrintUsers lists accounts with their roles
func PrintUsers(users []*user.User) {
	for _, u := range users {
		fmt.Printf("  %-24s %-32s %s\n", u.Name, u.Email, mutedStyle.Render(u.Roles.String()))
	}
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(msg string) {
	fmt.Println(successStyle.Render(msg))
}

// PrintInfo prints a dimmed informational line
func PrintInfo(msg string) {
	fmt.Println(mutedStyle.Render(msg))
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Println(errorStyle.Render("Error: " + msg))
}
