package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Linanok/Linanok/model"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/rs/zerolog/log"
)

type domainRow struct {
	ID                    int64     `db:"id" goqu:"skipinsert,skipupdate"`
	Host                  string    `db:"host"`
	Protocol              string    `db:"protocol"`
	IsActive              bool      `db:"is_active"`
	IsAdminPanelAvailable bool      `db:"is_admin_panel_available"`
	CreatedAt             time.Time `db:"created_at" goqu:"skipupdate"`
}

func (r domainRow) toModel() model.Domain {
	return model.Domain{
		ID:                    r.ID,
		Host:                  r.Host,
		Protocol:              model.Protocol(r.Protocol),
		IsActive:              r.IsActive,
		IsAdminPanelAvailable: r.IsAdminPanelAvailable,
		CreatedAt:             r.CreatedAt,
	}
}

// DomainStore persists registered domains and enforces the admin-access
// invariant on every write.
type DomainStore struct {
	gq *goqu.Database
}

func NewDomainStore(db *sql.DB) *DomainStore {
	return &DomainStore{gq: goqu.New("sqlite3", db)}
}

// Create registers a domain. The write is rejected with
// ErrAdminAccessRequired when it would leave no active domain with the admin
// panel available, and with ErrDomainExists on a duplicate (protocol, host)
// pair. The invariant check runs inside the same transaction as the insert.
func (s *DomainStore) Create(ctx context.Context, domain model.Domain) (*model.Domain, error) {
	tx, err := s.gq.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := domainRow{
		Host:                  domain.Host,
		Protocol:              string(domain.Protocol),
		IsActive:              domain.IsActive,
		IsAdminPanelAvailable: domain.IsAdminPanelAvailable,
		CreatedAt:             time.Now().UTC(),
	}

	// The sqlite3 dialect emits no RETURNING clause, so the row is re-read by
	// its rowid inside the same transaction.
	result, err := tx.Insert("domains").
		Rows(row).
		Executor().ExecContext(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDomainExists
		}
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	var inserted domainRow
	found, err := tx.From("domains").
		Where(goqu.Ex{"id": id}).
		ScanStructContext(ctx, &inserted)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, sql.ErrNoRows
	}

	if err := checkAdminAccess(ctx, tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := inserted.toModel()
	log.Info().Int64("id", created.ID).Str("host", created.Host).Str("protocol", string(created.Protocol)).Msg("Domain created")
	return &created, nil
}

// Update saves domain changes under the same invariant as Create.
func (s *DomainStore) Update(ctx context.Context, domain model.Domain) error {
	tx, err := s.gq.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Update("domains").
		Set(goqu.Record{
			"host":                     domain.Host,
			"protocol":                 string(domain.Protocol),
			"is_active":                domain.IsActive,
			"is_admin_panel_available": domain.IsAdminPanelAvailable,
		}).
		Where(goqu.Ex{"id": domain.ID}).
		Executor().ExecContext(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDomainExists
		}
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := checkAdminAccess(ctx, tx); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a domain. Deletion is blocked with ErrDomainInUse while any
// link references it.
func (s *DomainStore) Delete(ctx context.Context, id int64) error {
	tx, err := s.gq.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	references, err := tx.From("link_domain").
		Where(goqu.Ex{"domain_id": id}).
		CountContext(ctx)
	if err != nil {
		return err
	}
	if references > 0 {
		return ErrDomainInUse
	}

	result, err := tx.Delete("domains").Where(goqu.Ex{"id": id}).Executor().ExecContext(ctx)
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

	if err := checkAdminAccess(ctx, tx); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByProtocolHost resolves the domain serving a request by exact
// (protocol, host) match. No wildcard or subdomain matching.
func (s *DomainStore) GetByProtocolHost(ctx context.Context, protocol model.Protocol, host string) (*model.Domain, error) {
	var row domainRow
	found, err := s.gq.From("domains").
		Where(goqu.Ex{"protocol": string(protocol), "host": host}).
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	domain := row.toModel()
	return &domain, nil
}

// GetByID fetches a single domain.
func (s *DomainStore) GetByID(ctx context.Context, id int64) (*model.Domain, error) {
	var row domainRow
	found, err := s.gq.From("domains").
		Where(goqu.Ex{"id": id}).
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	domain := row.toModel()
	return &domain, nil
}

// List returns all domains ordered by identifier.
func (s *DomainStore) List(ctx context.Context) ([]model.Domain, error) {
	var rows []domainRow
	err := s.gq.From("domains").
		Order(goqu.C("id").Asc()).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, err
	}

	domains := make([]model.Domain, len(rows))
	for i, row := range rows {
		domains[i] = row.toModel()
	}
	return domains, nil
}

// Any reports whether any domain is registered at all. Used by the bootstrap
// path: with no domains, the admin gate stays open.
func (s *DomainStore) Any(ctx context.Context) (bool, error) {
	count, err := s.gq.From("domains").CountContext(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// checkAdminAccess enforces the cross-cutting invariant: after every domain
// write there must remain at least one domain that is both active and has the
// admin panel available.
func checkAdminAccess(ctx context.Context, tx *goqu.TxDatabase) error {
	count, err := tx.From("domains").
		Where(goqu.Ex{"is_active": true, "is_admin_panel_available": true}).
		CountContext(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrAdminAccessRequired
	}
	return nil
}
