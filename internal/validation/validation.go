// Package validation содержит функции валидации и очистки входных данных.
package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Ограничения длины пользовательского текста в символах.
const (
	MaxNameLength        = 50
	MaxNicknameLength    = 30
	MaxWorryLength       = 2000
	MaxChatMessageLength = 1000
)

var worryCategories = map[string]struct{}{
	"love":   {},
	"career": {},
	"money":  {},
	"health": {},
	"family": {},
	"etc":    {},
}

var phonePattern = regexp.MustCompile(`^01[016789]-?\d{3,4}-?\d{4}$`)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText удаляет HTML-разметку и обрезает пробелы по краям.
func SanitizeText(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// IsValidBirthDate проверяет дату вида YYYY-MM-DD: дата существует, не раньше 1900 года и не в будущем.
func IsValidBirthDate(birthDate string, now time.Time) bool {
	t, err := time.Parse(time.DateOnly, birthDate)
	if err != nil {
		return false
	}
	if t.Year() < 1900 {
		return false
	}
	return !t.After(now)
}

// IsValidName проверяет имя пользователя.
func IsValidName(name string) bool {
	return isValidLength(name, MaxNameLength)
}

// IsValidEmail проверяет адрес электронной почты покупателя.
func IsValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// IsValidPhone проверяет корейский номер мобильного телефона (010-1234-5678 или 01012345678).
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// IsValidWorry проверяет поля записи сообщества.
func IsValidWorry(nickname, category, content string) bool {
	if _, ok := worryCategories[category]; !ok {
		return false
	}
	return isValidLength(nickname, MaxNicknameLength) && isValidLength(content, MaxWorryLength)
}

// IsValidCategory проверяет категорию записи сообщества.
func IsValidCategory(category string) bool {
	_, ok := worryCategories[category]
	return ok
}

// IsValidChatMessage проверяет сообщение чата.
func IsValidChatMessage(message string) bool {
	return isValidLength(message, MaxChatMessageLength)
}

func isValidLength(s string, max int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n > 0 && n <= max
}
