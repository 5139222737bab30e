package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// ErrInvalidPrivateKey is returned when a configured private key does not
// look like a PEM document even after unescaping and base64 decoding.
var ErrInvalidPrivateKey = errors.New("cryptox: private key could not be validated, check that the contents of the .pem file were copied correctly")

// NormalizePrivateKey turns the ways people paste a GitHub App key into an
// environment variable back into PEM text. Accepted forms:
//   - plain PEM
//   - PEM with literal "\n" sequences instead of newlines
//   - the whole PEM document base64 encoded
//
// An empty input returns "" with no error, the key is optional until an app
// token is actually needed.
func NormalizePrivateKey(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", nil
	}

	if !strings.Contains(key, "-----BEGIN") {
		decoded, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			return "", ErrInvalidPrivateKey
		}
		key = strings.TrimSpace(string(decoded))
	}

	if strings.Contains(key, `\n`) {
		key = strings.ReplaceAll(key, `\n`, "\n")
	}

	block, _ := pem.Decode([]byte(key))
	if block == nil || !strings.HasSuffix(block.Type, "PRIVATE KEY") {
		return "", ErrInvalidPrivateKey
	}

	return key + "\n", nil
}

// ParseRSAPrivateKey loads an RSA key from PEM bytes. PKCS1 and PKCS8 are
// handled directly, anything else (OpenSSH format) goes through x/crypto/ssh.
func ParseRSAPrivateKey(pemKey []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("cryptox: invalid PEM for RSA key")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("cryptox: parse PKCS1: %w", err)
		}
		return key, nil
	case "PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("cryptox: parse PKCS8: %w", err)
		}
		return asRSA(priv)
	default:
		priv, err := ssh.ParseRawPrivateKey(pemKey)
		if err != nil {
			return nil, fmt.Errorf("cryptox: unsupported PEM type %q: %w", block.Type, err)
		}
		return asRSA(priv)
	}
}

func asRSA(priv any) (*rsa.PrivateKey, error) {
	switch k := priv.(type) {
	case *rsa.PrivateKey:
		return k, nil
	case rsa.PrivateKey:
		return &k, nil
	default:
		return nil, errors.New("cryptox: not an RSA private key")
	}
}

// GenerateRSAKey generates a new RSA private key in PKCS1 PEM form.
func GenerateRSAKey(bits int) ([]byte, error) {
	if bits < 2048 {
		return nil, fmt.Errorf("cryptox: RSA key size must be at least 2048 bits")
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate RSA key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}), nil
}

// GenerateRSAKeyPKCS8 is GenerateRSAKey in PKCS8 form.
func GenerateRSAKeyPKCS8(bits int) ([]byte, error) {
	if bits < 2048 {
		return nil, fmt.Errorf("cryptox: RSA key size must be at least 2048 bits")
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate RSA key: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
