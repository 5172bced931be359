package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warmline/warmline/types"
)

func TestCredential_MintAndVerify(t *testing.T) {
	cred, err := MintCredential("key", "secret", "briefing_x", "op-1", "Operator One",
		map[string]string{"transfer_id": "tx-1", "role": "source"}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, cred)

	claims, err := VerifyCredential("secret", cred)
	require.NoError(t, err)
	assert.Equal(t, "key", claims.Issuer)
	assert.Equal(t, "op-1", claims.Subject)
	assert.Equal(t, "briefing_x", claims.Room)
	assert.Equal(t, "Operator One", claims.DisplayName)
	assert.Equal(t, "tx-1", claims.Metadata["transfer_id"])
}

func TestCredential_WrongSecretRejected(t *testing.T) {
	cred, err := MintCredential("key", "secret", "r", "op-1", "", nil, time.Hour)
	require.NoError(t, err)

	_, err = VerifyCredential("other-secret", cred)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestCredential_ExpiryEnforced(t *testing.T) {
	cred, err := MintCredential("key", "secret", "r", "op-1", "", nil, -time.Minute)
	require.NoError(t, err)

	_, err = VerifyCredential("secret", cred)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestCredential_EmptySecretRefused(t *testing.T) {
	_, err := MintCredential("key", "", "r", "op-1", "", nil, time.Hour)
	assert.Error(t, err)
}

func TestCredential_GarbageRejected(t *testing.T) {
	_, err := VerifyCredential("secret", "not-a-token")
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}
