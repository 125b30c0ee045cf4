package wallet

import (
	"context"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/pandodao/paybridge/core"
	"github.com/pandodao/paybridge/store/db"
)

func New(db *db.DB) core.WalletStore {
	return &walletStore{db: db}
}

type walletStore struct {
	db *db.DB
	// serializes writers, the process is the only one
	mux sync.Mutex
}

var columns = []string{"owner_id", "address", "iv", "ciphertext", "auth_tag", "created_at"}

func (s *walletStore) Create(ctx context.Context, key *core.SigningKey) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	b := s.db.Builder.Insert("wallets").
		Columns(columns...).
		Values(
			key.OwnerID,
			strings.ToLower(key.Address),
			key.EncryptedKey.IV,
			key.EncryptedKey.Ciphertext,
			key.EncryptedKey.AuthTag,
			key.CreatedAt,
		)

	_, err := b.RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *walletStore) Find(ctx context.Context, ownerID string) (*core.SigningKey, error) {
	return s.findBy(ctx, sq.Eq{"owner_id": ownerID})
}

// FindAddress matches addresses case-insensitively; they are stored lower case.
func (s *walletStore) FindAddress(ctx context.Context, address string) (*core.SigningKey, error) {
	return s.findBy(ctx, sq.Eq{"address": strings.ToLower(address)})
}

func (s *walletStore) findBy(ctx context.Context, pred sq.Eq) (*core.SigningKey, error) {
	b := s.db.Builder.Select(columns...).From("wallets").Where(pred)
	row := b.RunWith(s.db).QueryRowContext(ctx)

	var key core.SigningKey
	if err := scanKey(row, &key); err != nil {
		return nil, err
	}

	return &key, nil
}

func (s *walletStore) List(ctx context.Context) ([]*core.SigningKey, error) {
	b := s.db.Builder.Select(columns...).From("wallets").OrderBy("created_at")
	rows, err := b.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var keys []*core.SigningKey
	for rows.Next() {
		var key core.SigningKey
		if err := scanKey(rows, &key); err != nil {
			return nil, err
		}

		keys = append(keys, &key)
	}

	return keys, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanKey(scanner scanner, key *core.SigningKey) error {
	return scanner.Scan(
		&key.OwnerID,
		&key.Address,
		&key.EncryptedKey.IV,
		&key.EncryptedKey.Ciphertext,
		&key.EncryptedKey.AuthTag,
		&key.CreatedAt,
	)
}
