package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Linanok/Linanok/model"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
)

type visitRow struct {
	ID        int64     `db:"id" goqu:"skipinsert,skipupdate"`
	LinkID    int64     `db:"link_id"`
	DomainID  int64     `db:"domain_id"`
	IP        string    `db:"ip"`
	Browser   *string   `db:"browser"`
	Platform  *string   `db:"platform"`
	Country   *string   `db:"country"`
	CreatedAt time.Time `db:"created_at"`
}

func (r visitRow) toModel() model.Visit {
	return model.Visit{
		ID:        r.ID,
		LinkID:    r.LinkID,
		DomainID:  r.DomainID,
		IP:        r.IP,
		Browser:   r.Browser,
		Platform:  r.Platform,
		Country:   r.Country,
		CreatedAt: r.CreatedAt,
	}
}

// VisitStore persists visit records and keeps the per-link visit counter in
// step with them.
type VisitStore struct {
	gq *goqu.Database
}

func NewVisitStore(db *sql.DB) *VisitStore {
	return &VisitStore{gq: goqu.New("sqlite3", db)}
}

// Create records a visit and bumps the link's denormalized visit counter in
// the same transaction. The counter update is a relative increment, not a
// read-modify-write, so concurrent recorders never lose counts.
func (s *VisitStore) Create(ctx context.Context, visit model.Visit) error {
	tx, err := s.gq.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := visitRow{
		LinkID:    visit.LinkID,
		DomainID:  visit.DomainID,
		IP:        visit.IP,
		Browser:   visit.Browser,
		Platform:  visit.Platform,
		Country:   visit.Country,
		CreatedAt: time.Now().UTC(),
	}
	if !visit.CreatedAt.IsZero() {
		row.CreatedAt = visit.CreatedAt
	}

	if _, err := tx.Insert("link_visits").Rows(row).Executor().ExecContext(ctx); err != nil {
		return err
	}

	result, err := tx.Update("links").
		Set(goqu.Record{"visit_count": goqu.L("visit_count + 1")}).
		Where(goqu.Ex{"id": visit.LinkID}).
		Executor().ExecContext(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// ListByLink returns a link's visits, newest first.
func (s *VisitStore) ListByLink(ctx context.Context, linkID int64) ([]model.Visit, error) {
	var rows []visitRow
	err := s.gq.From("link_visits").
		Where(goqu.Ex{"link_id": linkID}).
		Order(goqu.C("id").Desc()).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, err
	}

	visits := make([]model.Visit, len(rows))
	for i, row := range rows {
		visits[i] = row.toModel()
	}
	return visits, nil
}
