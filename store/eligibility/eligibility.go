package eligibility

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pandodao/paybridge/core"
	"github.com/pandodao/paybridge/store/db"
)

func New(db *db.DB) core.EligibilityStore {
	return &store{db: db}
}

type store struct {
	db  *db.DB
	mux sync.Mutex
}

func (s *store) Find(ctx context.Context, address string) (*core.Eligibility, error) {
	b := s.db.Builder.Select("address", "funded", "updated_at").
		From("eligibilities").
		Where(sq.Eq{"address": strings.ToLower(address)})
	row := b.RunWith(s.db).QueryRowContext(ctx)

	var e core.Eligibility
	if err := row.Scan(&e.Address, &e.Funded, &e.UpdatedAt); err != nil {
		return nil, err
	}

	return &e, nil
}

func (s *store) Eligible(ctx context.Context, address string) (bool, error) {
	e, err := s.Find(ctx, address)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	} else if err != nil {
		return false, err
	}

	return !e.Funded, nil
}

func (s *store) Claim(ctx context.Context, address string) (bool, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	eligible, err := s.Eligible(ctx, address)
	if err != nil || !eligible {
		return false, err
	}

	if err := s.set(ctx, address, true); err != nil {
		return false, err
	}

	return true, nil
}

func (s *store) Release(ctx context.Context, address string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	return s.set(ctx, address, false)
}

func (s *store) set(ctx context.Context, address string, funded bool) error {
	b := s.db.Builder.Insert("eligibilities").
		Columns("address", "funded", "updated_at").
		Values(strings.ToLower(address), funded, time.Now()).
		Suffix("ON CONFLICT (address) DO UPDATE SET funded = excluded.funded, updated_at = excluded.updated_at")

	_, err := b.RunWith(s.db).ExecContext(ctx)
	return err
}
