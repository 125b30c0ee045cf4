package property

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/pandodao/paybridge/core"
	"github.com/pandodao/paybridge/store"
	"github.com/pandodao/paybridge/store/db"
)

type propertyStore struct {
	db *db.DB
}

func New(db *db.DB) core.PropertyStore {
	return &propertyStore{db: db}
}

// Get leaves value untouched when the key is absent.
func (s *propertyStore) Get(ctx context.Context, key string, value any) error {
	b := s.db.Builder.Select("value").From("properties").Where(sq.Eq{"name": key})

	var raw string
	if err := b.RunWith(s.db).QueryRowContext(ctx).Scan(&raw); err == nil {
		return json.Unmarshal([]byte(raw), value)
	} else if store.IsErrNotFound(err) {
		return nil
	} else {
		return err
	}
}

func (s *propertyStore) Set(ctx context.Context, key string, value any) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	b := s.db.Builder.Update("properties").
		Set("value", string(jsonValue)).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"name": key})

	r, err := b.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to set property: %w", err)
	}

	n, err := r.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if n > 0 {
		return nil
	}

	_, err = s.db.Builder.Insert("properties").
		Columns("name", "value").
		Values(key, string(jsonValue)).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Join(errors.New("failed to insert property"), err)
	}

	return nil
}
