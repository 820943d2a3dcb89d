package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/talimhq/talim/core"
)

// Roles
const (
	RoleInstructor = "instructor"
	RoleStudent    = "student"
)

var AllRoles = []string{RoleInstructor, RoleStudent}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	FirstName    string    `json:"first_name"`
	MiddleName   string    `json:"middle_name,omitempty"`
	LastName     string    `json:"last_name"`
	Name         string    `json:"name"`
	Age          int       `json:"age,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsInstructor() bool { return u.Role == RoleInstructor }
func (u *User) IsStudent() bool    { return u.Role == RoleStudent }

// DisplayName returns Name, falling back to "First Last".
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	FirstName       string `json:"first_name" validate:"required"`
	MiddleName      string `json:"middle_name"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Age             int    `json:"age" validate:"omitempty,gte=0"`
	Role            string `json:"role" validate:"required,lmsrole"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.MiddleName = core.CleanString(nu.MiddleName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Email and Role are immutable in this design.
type UpdateUser struct {
	FirstName       string `json:"first_name"`
	MiddleName      string `json:"middle_name"`
	LastName        string `json:"last_name"`
	Age             int    `json:"age" validate:"omitempty,gte=0"`
	Avatar          string `json:"avatar" validate:"omitempty,url"`
	Bio             string `json:"bio"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate, origUsr User) error {
	if name := core.CleanString(uu.FirstName); name != "" {
		uu.FirstName = name
	} else {
		uu.FirstName = origUsr.FirstName
	}
	uu.MiddleName = core.CleanString(uu.MiddleName)
	if name := core.CleanString(uu.LastName); name != "" {
		uu.LastName = name
	} else {
		uu.LastName = origUsr.LastName
	}
	return validate.Struct(uu)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}
