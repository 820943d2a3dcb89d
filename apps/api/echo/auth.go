package echoapi

import (
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/talimhq/talim/core"
	"github.com/talimhq/talim/core/user"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	// initJWTConfig fills in the signing key at server construction.
	appJWTConfig = middleware.JWTConfig{
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}
	contextUserKey = "user"

	appName                   string
	jwtExpirationDelta        time.Duration
	jwtRefreshExpirationDelta time.Duration
)

func initJWTConfig(conf *core.Config) {
	appJWTConfig.SigningKey = conf.SecretKey
	appName = conf.AppName
	jwtExpirationDelta = conf.Server.JWTExpirationDelta
	jwtRefreshExpirationDelta = conf.Server.JWTRefreshExpirationDelta
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	IsStudent    bool   `json:"is_student,omitempty"`    // -> STUDENT PORTAL
	IsInstructor bool   `json:"is_instructor,omitempty"` // -> INSTRUCTOR PORTAL
}

func GetUserClaims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    appName,
			Subject:   usr.ID,
			Audience:  "Talim",
			ExpiresAt: now.Add(jwtExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         usr.DisplayName(),
		Email:        usr.Email,
		Role:         usr.Role,
		IsStudent:    usr.IsStudent(),
		IsInstructor: usr.IsInstructor(),
	}
}

func authenticate(ctx echo.Context, email, pwd string, svc user.ServiceInterface) (*Claims, error) {
	usr, err := svc.GetByEmail(ctx.Request().Context(), email)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if !usr.IsActive {
		return nil, errAccountDeactivated
	}
	usr, err = svc.SetLastLogin(ctx.Request().Context(), usr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return GetUserClaims(usr), nil
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc user.ServiceInterface, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func refreshToken(ctx echo.Context, svc user.ServiceInterface) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := getContextUser(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(jwtRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetUserClaims(usr, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
