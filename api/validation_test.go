package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCardNumber(t *testing.T) {
	tests := []struct {
		name string
		card string
		want bool
	}{
		{"13碼為合法下限", "4111111111111", true},
		{"16碼的一般卡號", "4111111111111111", true},
		{"19碼為合法上限", "4111111111111111111", true},
		{"帶空白的卡號會先正規化", "4111 1111 1111 1111", true},
		{"12碼太短", "411111111111", false},
		{"20碼太長", "41111111111111111111", false},
		{"含英文字母不合法", "4111abcd11111111", false},
		{"空字串不合法", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidCardNumber(tt.card))
		})
	}
}

func TestCardNumberLast4(t *testing.T) {
	assert.Equal(t, "1111", CardNumberLast4("4111111111111111"))
	assert.Equal(t, "4242", CardNumberLast4("4242 4242 4242 4242"))
	assert.Equal(t, "123", CardNumberLast4("123"))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("user@example.com"))
	assert.True(t, ValidEmail("artista@galeria.ec"))
	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail("user@domain"))
	assert.False(t, ValidEmail(""))
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("0991234567"))
	assert.True(t, ValidPhone("+593991234567"))
	assert.False(t, ValidPhone("12345"))
	assert.False(t, ValidPhone("phone"))
}

func TestValidPassword(t *testing.T) {
	assert.True(t, ValidPassword("secret1"))
	assert.False(t, ValidPassword("12345"))
}
