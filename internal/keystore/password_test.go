package keystore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	record, err := HashPassword([]byte("correct-horse-battery-staple"))
	require.NoError(t, err)
	require.NotEmpty(t, record)

	require.True(t, VerifyPassword([]byte("correct-horse-battery-staple"), record))
	require.False(t, VerifyPassword([]byte("wrong-password"), record))
}

func TestHashPassword_FreshSaltEveryCall(t *testing.T) {
	p := []byte("same-password")

	r1, err := HashPassword(p)
	require.NoError(t, err)
	r2, err := HashPassword(p)
	require.NoError(t, err)

	require.NotEqual(t, r1, r2, "two hashes of one password must differ (distinct salts)")
	require.True(t, VerifyPassword(p, r1))
	require.True(t, VerifyPassword(p, r2))
}

func TestVerifyPassword_MalformedRecord(t *testing.T) {
	tests := []struct {
		name   string
		record string
	}{
		{"empty", ""},
		{"garbage", "not-a-record"},
		{"wrong scheme", "bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"missing fields", "argon2id$v=19$m=65536,t=1,p=4$c2FsdA"},
		{"bad salt b64", "argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA"},
		{"bad hash b64", "argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.False(t, VerifyPassword([]byte("whatever"), tc.record))
		})
	}
}
