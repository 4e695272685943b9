package secret_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"socialdesk/infrastructure/secret"
)

func TestNewCodec_MasterKeyValidation(t *testing.T) {
	_, err := secret.NewCodec("")
	assert.ErrorIs(t, err, secret.ErrMasterKey)

	_, err = secret.NewCodec("short")
	assert.ErrorIs(t, err, secret.ErrMasterKey)

	codec, err := secret.NewCodec("0123456789abcdef")
	require.NoError(t, err)
	assert.NotNil(t, codec)
}

func TestCodec_RoundTrip(t *testing.T) {
	codec, err := secret.NewCodec("a-sufficiently-long-master-key")
	require.NoError(t, err)

	for _, plaintext := range []string{
		"wx-app-secret-0001",
		"",
		strings.Repeat("x", 4096),
		"характеры 中文 🙂",
	} {
		sealed, err := codec.Encrypt(plaintext)
		require.NoError(t, err)

		got, err := codec.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestCodec_FreshSaltAndNoncePerCall(t *testing.T) {
	codec, err := secret.NewCodec("a-sufficiently-long-master-key")
	require.NoError(t, err)

	first, err := codec.Encrypt("same-plaintext")
	require.NoError(t, err)
	second, err := codec.Encrypt("same-plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	var a, b struct {
		Salt  string `json:"salt"`
		Nonce string `json:"nonce"`
	}
	require.NoError(t, json.Unmarshal([]byte(first), &a))
	require.NoError(t, json.Unmarshal([]byte(second), &b))
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Nonce, b.Nonce)
}

func TestCodec_TamperedCiphertextFailsIntegrity(t *testing.T) {
	codec, err := secret.NewCodec("a-sufficiently-long-master-key")
	require.NoError(t, err)

	sealed, err := codec.Encrypt("app-secret-value")
	require.NoError(t, err)

	var env struct {
		V     int    `json:"v"`
		Salt  string `json:"salt"`
		Nonce string `json:"nonce"`
		CT    string `json:"ct"`
	}
	require.NoError(t, json.Unmarshal([]byte(sealed), &env))

	// Flip one character of the ciphertext.
	ct := []byte(env.CT)
	if ct[0] == 'A' {
		ct[0] = 'B'
	} else {
		ct[0] = 'A'
	}
	env.CT = string(ct)
	tampered, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = codec.Decrypt(string(tampered))
	assert.ErrorIs(t, err, secret.ErrIntegrity)
}

func TestCodec_WrongKeyFailsIntegrity(t *testing.T) {
	encCodec, err := secret.NewCodec("a-sufficiently-long-master-key")
	require.NoError(t, err)
	decCodec, err := secret.NewCodec("a-different-long-master-key!!")
	require.NoError(t, err)

	sealed, err := encCodec.Encrypt("app-secret-value")
	require.NoError(t, err)

	_, err = decCodec.Decrypt(sealed)
	assert.ErrorIs(t, err, secret.ErrIntegrity)
}

func TestCodec_MalformedEnvelope(t *testing.T) {
	codec, err := secret.NewCodec("a-sufficiently-long-master-key")
	require.NoError(t, err)

	for _, sealed := range []string{
		"not-json",
		`{"v":2,"salt":"","nonce":"","ct":""}`,
		`{"v":1,"salt":"AAAA","nonce":"AAAA","ct":"AAAA"}`,
	} {
		_, err := codec.Decrypt(sealed)
		assert.ErrorIs(t, err, secret.ErrInvalidEnvelope, "input: %s", sealed)
	}
}
