package vault

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pandodao/generic"
	"github.com/pandodao/paybridge/core"
	"github.com/pandodao/paybridge/store/dbtest"
	"github.com/pandodao/paybridge/store/property"
	"github.com/pandodao/paybridge/store/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ core.Vault = (*Vault)(nil)

func randomKey(t *testing.T) []byte {
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEncryptDecrypt(t *testing.T) {
	key := randomKey(t)

	testCases := []struct {
		name      string
		plaintext []byte
	}{
		{"Short text", []byte("Hello, World!")},
		{"Private key", crypto.FromECDSA(generic.Must(crypto.GenerateKey()))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			enc, err := encrypt(key, tc.plaintext)
			require.NoError(t, err)

			decrypted, err := decrypt(key, enc)
			require.NoError(t, err)
			assert.Equal(t, tc.plaintext, decrypted)
		})
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	key := randomKey(t)

	a, err := encrypt(key, []byte("same"))
	require.NoError(t, err)
	b, err := encrypt(key, []byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, a.IV, b.IV)
	assert.NotEqual(t, a.Ciphertext+a.AuthTag, b.Ciphertext+b.AuthTag)
}

func TestDecryptFailsClosed(t *testing.T) {
	key := randomKey(t)
	enc, err := encrypt(key, crypto.FromECDSA(generic.Must(crypto.GenerateKey())))
	require.NoError(t, err)

	flip := func(s string) string {
		b, _ := hex.DecodeString(s)
		b[0] ^= 0xff
		return hex.EncodeToString(b)
	}

	testCases := []struct {
		name string
		key  []byte
		enc  core.EncryptedKey
	}{
		{"Tampered ciphertext", key, core.EncryptedKey{IV: enc.IV, Ciphertext: flip(enc.Ciphertext), AuthTag: enc.AuthTag}},
		{"Tampered tag", key, core.EncryptedKey{IV: enc.IV, Ciphertext: enc.Ciphertext, AuthTag: flip(enc.AuthTag)}},
		{"Tampered iv", key, core.EncryptedKey{IV: flip(enc.IV), Ciphertext: enc.Ciphertext, AuthTag: enc.AuthTag}},
		{"Wrong key", randomKey(t), enc},
		{"Invalid hex", key, core.EncryptedKey{IV: "zz", Ciphertext: enc.Ciphertext, AuthTag: enc.AuthTag}},
		{"Short tag", key, core.EncryptedKey{IV: enc.IV, Ciphertext: enc.Ciphertext, AuthTag: "00"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plain, err := decrypt(tc.key, tc.enc)
			assert.ErrorIs(t, err, ErrIntegrity)
			assert.Nil(t, plain)
		})
	}
}

func TestParseKey(t *testing.T) {
	_, err := ParseKey(strings.Repeat("ab", 32))
	assert.NoError(t, err)

	for _, s := range []string{"", "abcd", strings.Repeat("ab", 31), strings.Repeat("ab", 33), strings.Repeat("zz", 32)} {
		_, err := ParseKey(s)
		assert.Error(t, err, s)
	}
}

func TestNewPanicsOnShortKey(t *testing.T) {
	assert.Panics(t, func() {
		New(nil, make([]byte, 16), discard())
	})
}

func TestVault_CreateAndResolve(t *testing.T) {
	ctx := context.Background()
	v := New(wallet.New(dbtest.New(t)), randomKey(t), discard())

	addr, err := v.Create(ctx, "alice")
	require.NoError(t, err)

	again, err := v.Create(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, addr, again)

	pk, err := v.ResolvePrivateKey(ctx, strings.ToLower(addr))
	require.NoError(t, err)
	assert.Equal(t, addr, crypto.PubkeyToAddress(pk.PublicKey).Hex())

	rec, err := v.Find(ctx, "alice")
	require.NoError(t, err)
	assert.NotContains(t, rec.EncryptedKey.Ciphertext, hex.EncodeToString(crypto.FromECDSA(pk)))
}

func TestVault_ResolveUnknown(t *testing.T) {
	v := New(wallet.New(dbtest.New(t)), randomKey(t), discard())

	_, err := v.ResolvePrivateKey(context.Background(), "0x0000000000000000000000000000000000000001")
	assert.ErrorIs(t, err, core.ErrKeyNotFound)
}

func TestVault_HasKey(t *testing.T) {
	ctx := context.Background()
	v := New(wallet.New(dbtest.New(t)), randomKey(t), discard())

	addr, err := v.Create(ctx, "alice")
	require.NoError(t, err)

	ok, err := v.HasKey(ctx, strings.ToLower(addr))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.HasKey(ctx, "0x0000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVault_WrongKeyFailsClosed(t *testing.T) {
	ctx := context.Background()
	wallets := wallet.New(dbtest.New(t))

	addr, err := New(wallets, randomKey(t), discard()).Create(ctx, "alice")
	require.NoError(t, err)

	pk, err := New(wallets, randomKey(t), discard()).ResolvePrivateKey(ctx, addr)
	assert.True(t, errors.Is(err, ErrIntegrity))
	assert.Nil(t, pk)
}

func TestVault_Import(t *testing.T) {
	ctx := context.Background()
	v := New(wallet.New(dbtest.New(t)), randomKey(t), discard())

	pk := generic.Must(crypto.GenerateKey())
	want := crypto.PubkeyToAddress(pk.PublicKey).Hex()

	addr, err := v.Import(ctx, "custodian-0", "0x"+hex.EncodeToString(crypto.FromECDSA(pk)))
	require.NoError(t, err)
	assert.Equal(t, want, addr)

	// importing again under another owner is a no-op
	addr, err = v.Import(ctx, "custodian-1", hex.EncodeToString(crypto.FromECDSA(pk)))
	require.NoError(t, err)
	assert.Equal(t, want, addr)

	_, err = v.Import(ctx, "bad", "not-a-key")
	assert.Error(t, err)
}

func TestCheckFingerprint(t *testing.T) {
	ctx := context.Background()
	properties := property.New(dbtest.New(t))
	key := randomKey(t)

	require.NoError(t, CheckFingerprint(ctx, properties, key))
	require.NoError(t, CheckFingerprint(ctx, properties, key))
	assert.Error(t, CheckFingerprint(ctx, properties, randomKey(t)))
}
