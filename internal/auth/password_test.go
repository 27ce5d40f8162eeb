package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword(hash, "secret124"))
	assert.False(t, CheckPassword("", "secret123"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("abcd1234"))
	assert.NoError(t, ValidatePassword("رمزعبور۱۲۳۴"))
	assert.ErrorIs(t, ValidatePassword("abc123"), ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword("abcdefgh"), ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword("12345678"), ErrWeakPassword)
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"09123456789", "09123456789", true},
		{"+989123456789", "09123456789", true},
		{"00989123456789", "09123456789", true},
		{"989123456789", "09123456789", true},
		{"9123456789", "09123456789", true},
		{"۰۹۱۲۳۴۵۶۷۸۹", "09123456789", true},
		{"0912 345 6789", "09123456789", true},
		{"02112345678", "", false},
		{"0912345678", "", false},
		{"09a23456789", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizePhone(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
