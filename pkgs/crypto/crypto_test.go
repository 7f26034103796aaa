package crypto

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRSASignVerify(t *testing.T) {
	sk, pk, err := GenerateKeys()
	require.NoError(t, err)
	sig, err := RSASigner(sk).Sign([]byte("stage data"))
	require.NoError(t, err)
	require.NoError(t, VerifyRSA(pk, []byte("stage data"), sig))
	require.Error(t, VerifyRSA(pk, []byte("other data"), sig))
}

func TestPublicKeyEncoding(t *testing.T) {
	_, pk, err := GenerateKeys()
	require.NoError(t, err)
	encoded, err := EncodeRSAPublicKey(pk)
	require.NoError(t, err)
	parsed, err := ParseRSAPublicKey(encoded)
	require.NoError(t, err)
	require.True(t, pk.Equal(parsed))

	_, err = EncodeRSAPublicKey(nil)
	require.Error(t, err)
}

func TestEncryptedPrivateKey(t *testing.T) {
	sk, _, err := GenerateKeys()
	require.NoError(t, err)
	data, err := EncryptPrivateKey(sk, "12345678")
	require.NoError(t, err)

	decrypted, err := ConvertEncryptedPemToPrivateKey(data, "12345678")
	require.NoError(t, err)
	require.True(t, sk.Equal(decrypted))

	_, err = ConvertEncryptedPemToPrivateKey(data, "wrong password")
	require.Error(t, err)
	_, err = ConvertEncryptedPemToPrivateKey(data, " ")
	require.Error(t, err)
	_, err = EncryptPrivateKey(sk, "")
	require.Error(t, err)
}

func TestExtractPrivateKey(t *testing.T) {
	sk, _, err := GenerateKeys()
	require.NoError(t, err)
	pemBytes, err := base64.StdEncoding.DecodeString(ExtractPrivateKey(sk))
	require.NoError(t, err)
	parsed, err := ConvertPemToPrivateKey(string(pemBytes))
	require.NoError(t, err)
	require.True(t, sk.Equal(parsed))
	_, err = ConvertPemToPrivateKey("not a pem")
	require.Error(t, err)
}

func TestPlaintextPrivateKeyFile(t *testing.T) {
	sk, _, err := GenerateKeys()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "operator.key")
	require.NoError(t, os.WriteFile(path, []byte(ExtractPrivateKey(sk)+"\n"), 0o600))
	parsed, err := PrivateKey(path)
	require.NoError(t, err)
	require.True(t, sk.Equal(parsed))

	_, err = PrivateKey(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestGenerateSecurePassword(t *testing.T) {
	a, err := GenerateSecurePassword()
	require.NoError(t, err)
	b, err := GenerateSecurePassword()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.Len(t, a, 44)
}
