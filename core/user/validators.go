package user

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/talimhq/talim/core"
)

var (
	lmsRoleTag  = "lmsrole"
	lmsRoleText = "role must be one of: instructor, student"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// InitValidators registers the user-specific validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(lmsRoleTag, lmsRoleValidation)
	core.RegisterCustomTranslation(validate, translator, lmsRoleTag, lmsRoleText)

	validate.RegisterStructValidation(userStructValidation, NewUser{}, UpdateUser{}, ResetUserPassword{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdComplexityTag, pwdComplexityText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// lmsRoleValidation checks that the provided role is a known role.
func lmsRoleValidation(fl validator.FieldLevel) bool {
	role := fl.Field().String()
	for _, r := range AllRoles {
		if role == r {
			return true
		}
	}
	return false
}

// userStructValidation does struct level validation on the user payload structs.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		validatePassword(usr.Password, usr.FirstName+" "+usr.LastName, usr.Email, sl)
	case UpdateUser:
		if usr.Password != "" {
			validatePassword(usr.Password, usr.FirstName+" "+usr.LastName, "", sl)
		}
	case ResetUserPassword:
		validatePassword(usr.Password, "", "", sl)
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no user attrs similarity
func validatePassword(pwd, name, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	var (
		digitCount         int
		hasUpper, hasLower bool
	)

	pwdLen := len(pwd)
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	if !(hasUpper && hasLower && digitCount > 0 && specialRegex.MatchString(pwd)) {
		reportErr(pwdComplexityTag)
		return
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	if getRatio(pwd, name) >= pwdMaxSim || getRatio(pwd, email) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
	}
}
