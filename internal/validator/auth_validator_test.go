package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test: サインアップ入力の検証
func TestValidateRegister(t *testing.T) {
	assert.NoError(t, ValidateRegister("alice", "alice@example.com", "password123"))
	assert.NoError(t, ValidateRegister("a_b.c-d", "a@b.co", "12345678"))

	// 必須
	assert.Error(t, ValidateRegister("", "alice@example.com", "password123"))
	assert.Error(t, ValidateRegister("alice", "", "password123"))
	assert.Error(t, ValidateRegister("alice", "alice@example.com", ""))

	// username形式
	assert.Error(t, ValidateRegister("ab", "alice@example.com", "password123"))
	assert.Error(t, ValidateRegister("has space", "alice@example.com", "password123"))

	// email形式
	assert.Error(t, ValidateRegister("alice", "not-an-email", "password123"))
	assert.Error(t, ValidateRegister("alice", "a@b", "password123"))

	// パスワード最低文字数
	assert.Error(t, ValidateRegister("alice", "alice@example.com", "short"))
}

// Test: ログイン入力の検証
func TestValidateLogin(t *testing.T) {
	assert.NoError(t, ValidateLogin("alice", "password123"))
	assert.Error(t, ValidateLogin("", "password123"))
	assert.Error(t, ValidateLogin("  ", "password123"))
	assert.Error(t, ValidateLogin("alice", ""))
}
