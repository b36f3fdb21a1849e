package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/ports"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

var (
	ErrInvalidKey = errors.New("encryption key must be 32 bytes (AES-256)")
	// ErrNotSealed is returned when a stored session was written without encryption.
	ErrNotSealed = errors.New("session is not sealed")
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot open a session.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

// aeads builds one AES-GCM cipher per key, active key first.
func (c EncryptionConfig) aeads() ([]cipher.AEAD, error) {
	keys := append([][]byte{c.ActiveKey}, c.FallbackKeys...)
	out := make([]cipher.AEAD, 0, len(keys))
	for i, key := range keys {
		if len(key) != KeySize {
			if i == 0 {
				return nil, ErrInvalidKey
			}
			return nil, fmt.Errorf("fallback key %d: %w", i-1, ErrInvalidKey)
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
		out = append(out, gcm)
	}
	return out, nil
}

// sealingStore keeps only envelopes in next. aeads[0] seals; all of them may open.
type sealingStore struct {
	next  ports.StateStore
	aeads []cipher.AEAD
}

// NewEncryptionMiddleware seals every saved state with AES-GCM. The store
// underneath only sees the session ID, the update time and the ciphertext.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	aeads, err := config.aeads()
	if err != nil {
		return nil, err
	}
	return func(next ports.StateStore) ports.StateStore {
		return &sealingStore{next: next, aeads: aeads}
	}, nil
}

func (m *sealingStore) Save(ctx context.Context, sessionID string, state *domain.State) error {
	plain, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	sealed, err := m.seal(plain)
	if err != nil {
		return fmt.Errorf("failed to encrypt state: %w", err)
	}
	return m.next.Save(ctx, sessionID, &domain.State{
		SessionID: state.SessionID,
		UpdatedAt: state.UpdatedAt,
		Sealed:    base64.StdEncoding.EncodeToString(sealed),
	})
}

func (m *sealingStore) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	envelope, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if envelope.Sealed == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotSealed, sessionID)
	}

	sealed, err := base64.StdEncoding.DecodeString(envelope.Sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plain, err := m.open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt state: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(plain, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted state: %w", err)
	}
	if state.History == nil {
		state.History = []domain.HistoryEntry{}
	}
	return &state, nil
}

func (m *sealingStore) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *sealingStore) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// seal returns nonce||ciphertext under the active key.
func (m *sealingStore) seal(plain []byte) ([]byte, error) {
	gcm := m.aeads[0]
	nonce := make([]byte, gcm.NonceSize(), gcm.NonceSize()+len(plain)+gcm.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

// open tries the active key, then each fallback in order.
func (m *sealingStore) open(sealed []byte) ([]byte, error) {
	for _, gcm := range m.aeads {
		n := gcm.NonceSize()
		if len(sealed) < n {
			return nil, errors.New("ciphertext too short")
		}
		if plain, err := gcm.Open(nil, sealed[:n], sealed[n:], nil); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}
