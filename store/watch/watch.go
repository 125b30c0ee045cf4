package watch

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pandodao/paybridge/core"
	"github.com/pandodao/paybridge/store/db"
)

func New(db *db.DB) core.WatchStore {
	return &store{db: db}
}

type store struct {
	db *db.DB
}

var columns = []string{"tx_hash", "logical_id", "kind", "created_at", "deadline"}

func (s *store) Save(ctx context.Context, watch *core.Watch) error {
	b := s.db.Builder.Insert("watches").
		Columns(columns...).
		Values(watch.TxHash, watch.LogicalID, watch.Kind, watch.CreatedAt, watch.Deadline).
		Suffix("ON CONFLICT (tx_hash) DO NOTHING")

	_, err := b.RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *store) Delete(ctx context.Context, txHash string) error {
	b := s.db.Builder.Delete("watches").Where(sq.Eq{"tx_hash": txHash})
	_, err := b.RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *store) List(ctx context.Context, limit int) ([]*core.Watch, error) {
	b := s.db.Builder.Select(columns...).
		From("watches").
		OrderBy("deadline").
		Limit(uint64(limit))

	rows, err := b.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var watches []*core.Watch
	for rows.Next() {
		var w core.Watch
		if err := rows.Scan(&w.TxHash, &w.LogicalID, &w.Kind, &w.CreatedAt, &w.Deadline); err != nil {
			return nil, err
		}

		watches = append(watches, &w)
	}

	return watches, rows.Err()
}
