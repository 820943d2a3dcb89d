package user

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/talimhq/talim/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id string) error
	}

	ServiceInterface interface {
		CheckUniqueness(email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		QueryAll(ctx context.Context) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, id string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) ServiceInterface {
	// token_gen derives reset tokens from these
	secretKey = conf.SecretKey
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta

	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) CheckUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Email:      nu.Email,
		Role:       nu.Role,
		FirstName:  nu.FirstName,
		MiddleName: nu.MiddleName,
		LastName:   nu.LastName,
		Age:        nu.Age,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	usr.Name = usr.DisplayName()
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:         id,
		FirstName:  uu.FirstName,
		MiddleName: uu.MiddleName,
		LastName:   uu.LastName,
		Age:        uu.Age,
		Avatar:     uu.Avatar,
		Bio:        uu.Bio,
		UpdatedAt:  time.Now().UTC(),
	}
	usr.Name = usr.DisplayName()
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	return svc.repo.SetLastLogin(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteUser(ctx, id)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) sendPasswordResetMail(usr User) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.DisplayName(), Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			Name  string
			UID   string
			Token string
		}{
			Name:  usr.DisplayName(),
			UID:   EncodeUID(usr),
			Token: makeToken(usr),
		},
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(ctx, uid)
	if err != nil {
		if err == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return err
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr, nil)
	return err
}
