package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@sub.example.co.uk",
		"a@b.co",
	}
	for _, email := range valid {
		assert.True(t, Email(email), email)
	}

	invalid := []string{
		"",
		"plain",
		"@example.com",
		"user@",
		"user@nodot",
		"user@@example.com",
		"user@.example.com",
		"user@example.com.",
	}
	for _, email := range invalid {
		assert.False(t, Email(email), email)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM  "))
}

func TestNameFromEmail(t *testing.T) {
	assert.Equal(t, "john.doe", NameFromEmail("john.doe@example.com"))
	assert.Equal(t, "User", NameFromEmail("not-an-email"))
}

func TestName(t *testing.T) {
	got, err := Name("  Ada Lovelace  ")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got)

	_, err = Name("   ")
	assert.Error(t, err)

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}
	_, err = Name(string(long))
	assert.Error(t, err)
}

func TestPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(415) 555-2671", "+14155552671"},
		{"4155552671", "+14155552671"},
		{"1-415-555-2671", "+14155552671"},
		{"+44 20 7946 0958", "+442079460958"},
	}
	for _, tt := range tests {
		got, err := Phone(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, in := range []string{"", "12", "+1 23", "123456789012345678"} {
		_, err := Phone(in)
		assert.Error(t, err, in)
	}
}
