package core

import (
	"context"
	"crypto/ecdsa"
	"time"
)

// EncryptedKey is an AES-256-GCM sealed private key, hex encoded.
type EncryptedKey struct {
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
	AuthTag    string `json:"auth_tag"`
}

type SigningKey struct {
	OwnerID      string       `json:"owner_id"`
	Address      string       `json:"address"`
	EncryptedKey EncryptedKey `json:"encrypted_key"`
	CreatedAt    time.Time    `json:"created_at"`
}

type WalletStore interface {
	Create(ctx context.Context, key *SigningKey) error
	Find(ctx context.Context, ownerID string) (*SigningKey, error)
	FindAddress(ctx context.Context, address string) (*SigningKey, error)
	List(ctx context.Context) ([]*SigningKey, error)
}

// Vault owns the only code path that yields a plaintext signing key.
type Vault interface {
	Create(ctx context.Context, ownerID string) (string, error)
	Import(ctx context.Context, ownerID, hexKey string) (string, error)
	Find(ctx context.Context, ownerID string) (*SigningKey, error)
	ResolvePrivateKey(ctx context.Context, address string) (*ecdsa.PrivateKey, error)
	// HasKey reports whether the vault holds the key for address.
	HasKey(ctx context.Context, address string) (bool, error)
}
