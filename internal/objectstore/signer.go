package objectstore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"

	domainerrors "github.com/listenupapp/bookshelf-server/internal/errors"
)

const (
	tokenIssuer   = "bookshelf-server"
	tokenAudience = "bookshelf-objects"
	keyClaim      = "key"

	// PASETO v4 requires a 256-bit symmetric key.
	keyLength    = 32
	keyHexLength = 64
)

// Signer issues and checks time-limited object access tokens.
type Signer struct {
	key paseto.V4SymmetricKey
	now func() time.Time
}

// NewSigner creates a Signer from a 32-byte key.
func NewSigner(key []byte) (*Signer, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("signing key must be %d bytes, got %d", keyLength, len(key))
	}
	k, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("create signing key: %w", err)
	}
	return &Signer{key: k, now: time.Now}, nil
}

// Sign returns a token granting read access to objectKey for ttl.
func (s *Signer) Sign(objectKey string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", domainerrors.Validationf("ttl must be positive, got %s", ttl)
	}
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(ttl))
	token.SetJti(uuid.NewString())
	if err := token.Set(keyClaim, objectKey); err != nil {
		return "", fmt.Errorf("set key claim: %w", err)
	}

	return token.V4Encrypt(s.key, nil), nil
}

// Verify checks that token is valid now and was issued for objectKey.
func (s *Signer) Verify(token, objectKey string) error {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(s.now()))

	parsed, err := parser.ParseV4Local(s.key, token, nil)
	if err != nil {
		return domainerrors.Forbidden("invalid or expired object token").WithCause(err)
	}

	granted, err := parsed.GetString(keyClaim)
	if err != nil || granted != objectKey {
		return domainerrors.Forbidden("token does not grant access to this object")
	}
	return nil
}

// LoadOrGenerateKey reads the hex-encoded signing key at path, creating it
// with 0600 permissions when absent.
func LoadOrGenerateKey(path string) ([]byte, error) {
	//#nosec G304 -- key path comes from configuration
	if raw, err := os.ReadFile(path); err == nil {
		keyHex := strings.TrimSpace(string(raw))
		if len(keyHex) != keyHexLength {
			return nil, fmt.Errorf("invalid signing key length: expected %d hex chars, got %d", keyHexLength, len(keyHex))
		}
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid signing key format: not valid hex: %w", err)
		}
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read signing key: %w", err)
	}

	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("save signing key: %w", err)
	}
	return key, nil
}
