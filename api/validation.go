package api

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	cardPattern  = regexp.MustCompile(`^[0-9]{13,19}$`)
)

// ValidEmail 檢查email格式是否合法
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidPhone 檢查電話格式是否合法
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ValidPassword 檢查密碼是否符合最低長度要求
func ValidPassword(password string) bool {
	return len(password) >= 6
}

// ValidCardNumber 檢查卡號是否合法。
// 只檢查去除空白後的長度與字元，不做發卡行或檢查碼驗證。
func ValidCardNumber(cardNumber string) bool {
	return cardPattern.MatchString(NormalizeCardNumber(cardNumber))
}

// NormalizeCardNumber 去除卡號中的空白字元
func NormalizeCardNumber(cardNumber string) string {
	return strings.ReplaceAll(strings.TrimSpace(cardNumber), " ", "")
}

// CardNumberLast4 取得卡號的末四碼
func CardNumberLast4(cardNumber string) string {
	normalized := NormalizeCardNumber(cardNumber)
	if len(normalized) < 4 {
		return normalized
	}
	return normalized[len(normalized)-4:]
}
