package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/bloxapp/ssv/utils/rsaencryption"
	"github.com/pkg/errors"
	spec_crypto "github.com/ssvlabs/dkg-spec/crypto"
	keystorev4 "github.com/wealdtech/go-eth2-wallet-encryptor-keystorev4"
)

// GenerateKeys creates a new node RSA key pair
func GenerateKeys() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	_, skPem, err := rsaencryption.GenerateKeys()
	if err != nil {
		return nil, nil, err
	}
	sk, err := rsaencryption.ConvertPemToPrivateKey(string(skPem))
	if err != nil {
		return nil, nil, err
	}
	return sk, &sk.PublicKey, nil
}

func SignRSA(sk *rsa.PrivateKey, byts []byte) ([]byte, error) {
	return spec_crypto.SignRSA(sk, byts)
}

func VerifyRSA(pk *rsa.PublicKey, msg, signature []byte) error {
	return spec_crypto.VerifyRSA(pk, msg, signature)
}

// EncodeRSAPublicKey returns the base64 encoded PEM of a public key, the form peers are registered with
func EncodeRSAPublicKey(pk *rsa.PublicKey) ([]byte, error) {
	if pk == nil {
		return nil, errors.New("nil public key")
	}
	pkBytes, err := x509.MarshalPKIXPublicKey(pk)
	if err != nil {
		return nil, err
	}
	pemByte := pem.EncodeToMemory(
		&pem.Block{
			Type:  "RSA PUBLIC KEY",
			Bytes: pkBytes,
		},
	)
	if pemByte == nil {
		return nil, fmt.Errorf("failed to encode pub key to pem")
	}
	return []byte(base64.StdEncoding.EncodeToString(pemByte)), nil
}

func ParseRSAPublicKey(pk []byte) (*rsa.PublicKey, error) {
	return spec_crypto.ParseRSAPublicKey(pk)
}

// EncryptPrivateKey encrypts the PEM of a private key into a keystorev4 JSON document
func EncryptPrivateKey(sk *rsa.PrivateKey, password string) ([]byte, error) {
	if strings.TrimSpace(password) == "" {
		return nil, errors.New("password required to encrypt private key")
	}
	pemByte := pem.EncodeToMemory(
		&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(sk),
		},
	)
	data, err := keystorev4.New().Encrypt(pemByte, password)
	if err != nil {
		return nil, errors.Wrap(err, "encrypt private key")
	}
	return json.Marshal(data)
}

// ConvertEncryptedPemToPrivateKey return rsa private key from secret key
func ConvertEncryptedPemToPrivateKey(pemData []byte, password string) (*rsa.PrivateKey, error) {
	if strings.TrimSpace(password) == "" {
		return nil, errors.New("Password required for encrypted PEM block")
	}

	// Unmarshal the JSON-encoded data
	var data map[string]interface{}
	if err := json.Unmarshal(pemData, &data); err != nil {
		return nil, fmt.Errorf("parse JSON data: %w", err)
	}

	// Decrypt the private key using keystorev4
	decryptedBytes, err := keystorev4.New().Decrypt(data, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt private key: %w", err)
	}
	return ConvertPemToPrivateKey(string(decryptedBytes))
}

// ExtractPrivateKey gets private key and returns base64 encoded private key
func ExtractPrivateKey(sk *rsa.PrivateKey) string {
	pemByte := pem.EncodeToMemory(
		&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(sk),
		},
	)
	return base64.StdEncoding.EncodeToString(pemByte)
}

// ConvertPemToPrivateKey return rsa private key from secret key
func ConvertPemToPrivateKey(skPem string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(skPem))
	if block == nil {
		return nil, errors.New("decode PEM block")
	}
	parsedSk, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse private key")
	}
	return parsedSk, nil
}

// PrivateKey reads a plaintext base64 encoded PEM private key from a file
func PrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	pemBytes, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, errors.Wrap(err, "decode base64 key")
	}
	return ConvertPemToPrivateKey(string(pemBytes))
}

// GenerateSecurePassword returns 32 random bytes as a base64 string
func GenerateSecurePassword() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
