package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Student represents a registered student account.
type Student struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Address      string    `json:"address"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName joins first and last name the way greetings display it.
func (s *Student) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// SetPassword replaces the stored hash with a salted bcrypt hash of plain.
// A cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func (s *Student) SetPassword(plain string, cost int) error {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return err
	}
	s.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether candidate matches the stored hash.
func (s *Student) CheckPassword(candidate string) bool {
	if s.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(candidate)) == nil
}

// RegisterRequest is the registration form payload.
type RegisterRequest struct {
	Username  string `form:"username" json:"username" binding:"required,min=2,max=64"`
	Email     string `form:"email" json:"email" binding:"required,email,max=120"`
	Password  string `form:"password" json:"password" binding:"required,min=4,max=128"`
	Password2 string `form:"password2" json:"password2" binding:"required,eqfield=Password"`
	FirstName string `form:"firstname" json:"firstname" binding:"max=100"`
	LastName  string `form:"lastname" json:"lastname" binding:"max=100"`
	Address   string `form:"address" json:"address" binding:"max=200"`
}

// LoginRequest is the login form payload.
type LoginRequest struct {
	Username   string `form:"username" json:"username" binding:"required,max=64"`
	Password   string `form:"password" json:"password" binding:"required,max=128"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// ChangePasswordRequest is the payload for replacing a signed-in student's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required,max=128"`
	Password        string `json:"password" binding:"required,min=4,max=128"`
	Password2       string `json:"password2" binding:"required,eqfield=Password"`
}
