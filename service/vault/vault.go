package vault

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pandodao/paybridge/core"
	"github.com/pandodao/paybridge/store"
)

const propertyKeyFingerprint = "vault_key_fingerprint"

func New(wallets core.WalletStore, key []byte, logger *slog.Logger) *Vault {
	if len(key) != KeySize {
		panic(fmt.Sprintf("vault key must be %d bytes", KeySize))
	}

	return &Vault{
		wallets: wallets,
		key:     key,
		logger:  logger.With("service", "vault"),
	}
}

type Vault struct {
	wallets core.WalletStore
	key     []byte
	logger  *slog.Logger
}

// Create provisions a signing key for ownerID. An owner that already has a
// key gets its existing address back.
func (v *Vault) Create(ctx context.Context, ownerID string) (string, error) {
	if w, err := v.wallets.Find(ctx, ownerID); err == nil {
		return common.HexToAddress(w.Address).Hex(), nil
	} else if !store.IsErrNotFound(err) {
		return "", err
	}

	pk, err := crypto.GenerateKey()
	if err != nil {
		return "", err
	}

	return v.save(ctx, ownerID, pk)
}

// Import stores an existing hex private key, used for the dev node's
// pre-funded accounts.
func (v *Vault) Import(ctx context.Context, ownerID, hexKey string) (string, error) {
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}

	addr := crypto.PubkeyToAddress(pk.PublicKey)
	if w, err := v.wallets.FindAddress(ctx, addr.Hex()); err == nil {
		return common.HexToAddress(w.Address).Hex(), nil
	} else if !store.IsErrNotFound(err) {
		return "", err
	}

	return v.save(ctx, ownerID, pk)
}

func (v *Vault) save(ctx context.Context, ownerID string, pk *ecdsa.PrivateKey) (string, error) {
	addr := crypto.PubkeyToAddress(pk.PublicKey)

	enc, err := encrypt(v.key, crypto.FromECDSA(pk))
	if err != nil {
		return "", err
	}

	key := &core.SigningKey{
		OwnerID:      ownerID,
		Address:      addr.Hex(),
		EncryptedKey: enc,
		CreatedAt:    time.Now(),
	}

	if err := v.wallets.Create(ctx, key); err != nil {
		// lost a race against a concurrent create for the same owner
		if w, findErr := v.wallets.Find(ctx, ownerID); findErr == nil {
			return common.HexToAddress(w.Address).Hex(), nil
		}

		v.logger.Error("wallets.Create", "owner", ownerID, "err", err)
		return "", err
	}

	v.logger.Info("signing key created", "owner", ownerID, "address", addr.Hex())
	return addr.Hex(), nil
}

func (v *Vault) Find(ctx context.Context, ownerID string) (*core.SigningKey, error) {
	return v.wallets.Find(ctx, ownerID)
}

func (v *Vault) HasKey(ctx context.Context, address string) (bool, error) {
	if _, err := v.wallets.FindAddress(ctx, address); err != nil {
		if store.IsErrNotFound(err) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func (v *Vault) ResolvePrivateKey(ctx context.Context, address string) (*ecdsa.PrivateKey, error) {
	w, err := v.wallets.FindAddress(ctx, address)
	if store.IsErrNotFound(err) {
		return nil, core.ErrKeyNotFound.WithMsg("no custody key for %s", address)
	} else if err != nil {
		return nil, err
	}

	plain, err := decrypt(v.key, w.EncryptedKey)
	if err != nil {
		v.logger.Error("decrypt", "address", address, "err", err)
		return nil, err
	}

	pk, err := crypto.ToECDSA(plain)
	if err != nil {
		return nil, ErrIntegrity
	}

	if !strings.EqualFold(crypto.PubkeyToAddress(pk.PublicKey).Hex(), w.Address) {
		return nil, ErrIntegrity
	}

	return pk, nil
}

// Fingerprint identifies a process key without revealing it.
func Fingerprint(key []byte) string {
	h := sha256.New()
	h.Write([]byte("paybridge-vault"))
	h.Write(key)
	return hex.EncodeToString(h.Sum(nil))
}

// CheckFingerprint records the key fingerprint on first start and refuses a
// different key afterwards; records sealed under another key would be
// unreadable.
func CheckFingerprint(ctx context.Context, properties core.PropertyStore, key []byte) error {
	var stored string
	if err := properties.Get(ctx, propertyKeyFingerprint, &stored); err != nil {
		return err
	}

	fp := Fingerprint(key)
	if stored == "" {
		return properties.Set(ctx, propertyKeyFingerprint, fp)
	}

	if stored != fp {
		return fmt.Errorf("vault key does not match the key the store was created with")
	}

	return nil
}
