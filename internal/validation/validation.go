// Package validation содержит функции валидации входных данных.
package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxVersionLen = 32

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail проверяет, что строка похожа на адрес электронной почты.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidVerificationCode проверяет, что код состоит ровно из шести цифр.
func IsValidVerificationCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, ch := range code {
		if !unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}

// IsValidVersion проверяет строку версии пикера: непустая, без пробелов
// по краям, не длиннее 32 символов.
func IsValidVersion(version string) bool {
	if version == "" || strings.TrimSpace(version) != version {
		return false
	}
	return utf8.RuneCountInString(version) <= maxVersionLen
}
