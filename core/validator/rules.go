package validator

import (
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	minUsernameLen = 3
	minPasswordLen = 8
	// bcrypt 只接受 72 字节以内的口令，按字节而不是字符计
	maxPasswordBytes = 72
)

type rule struct {
	tag      string
	fn       validator.Func
	messages map[string]string
}

var rules = []rule{
	{
		tag: "username",
		fn:  isUsername,
		messages: map[string]string{
			"en": "{0} must be at least 3 alphanumeric characters",
			"zh": "{0}必须为至少3位字母或数字",
		},
	},
	{
		tag: "password",
		fn:  isStrongPassword,
		messages: map[string]string{
			"en": "{0} must be 8 to 72 bytes long with an uppercase letter, a lowercase letter and a digit",
			"zh": "{0}长度为8到72字节，且包含大写字母、小写字母和数字",
		},
	},
}

func isUsername(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < minUsernameLen {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

func isStrongPassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < minPasswordLen || len(s) > maxPasswordBytes {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
