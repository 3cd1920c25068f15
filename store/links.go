package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Linanok/Linanok/model"
	"github.com/Linanok/Linanok/utils"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/rs/zerolog/log"
)

// Defensive cap on allocate-then-insert rounds. The allocator's availability
// check is advisory; the short_path UNIQUE constraint is the authoritative
// guard, and losing the race just means another round.
const maxCreateRetries = 5

type linkRow struct {
	ID                    int64      `db:"id" goqu:"skipinsert,skipupdate"`
	OriginalURL           string     `db:"original_url"`
	ShortPath             string     `db:"short_path" goqu:"skipupdate"`
	Slug                  *string    `db:"slug"`
	Password              *string    `db:"password"`
	IsActive              bool       `db:"is_active"`
	AvailableAt           *time.Time `db:"available_at"`
	UnavailableAt         *time.Time `db:"unavailable_at"`
	ForwardQueryParams    bool       `db:"forward_query_parameters"`
	SendRefQueryParameter bool       `db:"send_ref_query_parameter"`
	Description           *string    `db:"description"`
	VisitCount            int64      `db:"visit_count" goqu:"skipinsert,skipupdate"`
	CreatedAt             time.Time  `db:"created_at" goqu:"skipupdate"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

func (r linkRow) toModel() model.Link {
	return model.Link{
		ID:                    r.ID,
		OriginalURL:           r.OriginalURL,
		ShortPath:             r.ShortPath,
		Slug:                  fromNullable(r.Slug),
		Password:              fromNullable(r.Password),
		IsActive:              r.IsActive,
		AvailableAt:           r.AvailableAt,
		UnavailableAt:         r.UnavailableAt,
		ForwardQueryParams:    r.ForwardQueryParams,
		SendRefQueryParameter: r.SendRefQueryParameter,
		Description:           fromNullable(r.Description),
		VisitCount:            r.VisitCount,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

func toNullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromNullable(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// LinkStore persists links and their domain associations.
type LinkStore struct {
	gq *goqu.Database
}

func NewLinkStore(db *sql.DB) *LinkStore {
	return &LinkStore{gq: goqu.New("sqlite3", db)}
}

// Create inserts a new link, allocating its short path exactly once. When the
// link carries a slug the allocator tries it first and falls back to suffixed
// candidates. The insert retries on short_path uniqueness conflicts up to a
// defensive cap, so concurrent creations with the same slug both succeed with
// distinct tokens.
func (s *LinkStore) Create(ctx context.Context, link model.Link, domainIDs []int64) (*model.Link, error) {
	if len(domainIDs) == 0 {
		return nil, ErrNoDomains
	}

	for attempt := 0; attempt < maxCreateRetries; attempt++ {
		shortPath, err := utils.GenerateShortPath(link.Slug, func(candidate string) (bool, error) {
			count, err := s.gq.From("links").Where(goqu.Ex{"short_path": candidate}).CountContext(ctx)
			return count > 0, err
		})
		if err != nil {
			return nil, err
		}

		created, err := s.insert(ctx, link, shortPath, domainIDs)
		if err == nil {
			return created, nil
		}
		if !isShortPathViolation(err) {
			return nil, err
		}

		log.Warn().
			Str("short_path", shortPath).
			Int("attempt", attempt+1).
			Msg("Short path collision, retrying allocation")
	}

	return nil, ErrShortPathConflict
}

func (s *LinkStore) insert(ctx context.Context, link model.Link, shortPath string, domainIDs []int64) (*model.Link, error) {
	tx, err := s.gq.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	row := linkRow{
		OriginalURL:           link.OriginalURL,
		ShortPath:             shortPath,
		Slug:                  toNullable(link.Slug),
		Password:              toNullable(link.Password),
		IsActive:              link.IsActive,
		AvailableAt:           link.AvailableAt,
		UnavailableAt:         link.UnavailableAt,
		ForwardQueryParams:    link.ForwardQueryParams,
		SendRefQueryParameter: link.SendRefQueryParameter,
		Description:           toNullable(link.Description),
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	// The sqlite3 dialect emits no RETURNING clause, so the row is re-read by
	// its rowid inside the same transaction.
	result, err := tx.Insert("links").
		Rows(row).
		Executor().ExecContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	var inserted linkRow
	found, err := tx.From("links").
		Where(goqu.Ex{"id": id}).
		ScanStructContext(ctx, &inserted)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, sql.ErrNoRows
	}

	for _, domainID := range domainIDs {
		if _, err := tx.Insert("link_domain").
			Rows(goqu.Record{"link_id": inserted.ID, "domain_id": domainID}).
			Executor().ExecContext(ctx); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := inserted.toModel()
	if err := s.attachDomains(ctx, &created); err != nil {
		return nil, err
	}

	log.Info().
		Int64("id", created.ID).
		Str("short_path", created.ShortPath).
		Str("original_url", created.OriginalURL).
		Msg("Link created")
	return &created, nil
}

// Update saves mutable link fields and replaces the domain associations. The
// short path is never touched.
func (s *LinkStore) Update(ctx context.Context, link model.Link, domainIDs []int64) error {
	if len(domainIDs) == 0 {
		return ErrNoDomains
	}

	tx, err := s.gq.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Update("links").
		Set(goqu.Record{
			"original_url":             link.OriginalURL,
			"slug":                     toNullable(link.Slug),
			"password":                 toNullable(link.Password),
			"is_active":                link.IsActive,
			"available_at":             link.AvailableAt,
			"unavailable_at":           link.UnavailableAt,
			"forward_query_parameters": link.ForwardQueryParams,
			"send_ref_query_parameter": link.SendRefQueryParameter,
			"description":              toNullable(link.Description),
			"updated_at":               time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": link.ID}).
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

	if _, err := tx.Delete("link_domain").Where(goqu.Ex{"link_id": link.ID}).Executor().ExecContext(ctx); err != nil {
		return err
	}
	for _, domainID := range domainIDs {
		if _, err := tx.Insert("link_domain").
			Rows(goqu.Record{"link_id": link.ID, "domain_id": domainID}).
			Executor().ExecContext(ctx); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete removes a link; its visits and domain associations cascade.
func (s *LinkStore) Delete(ctx context.Context, id int64) error {
	result, err := s.gq.Delete("links").Where(goqu.Ex{"id": id}).Executor().ExecContext(ctx)
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
	return nil
}

// GetByID fetches a link with its domains.
func (s *LinkStore) GetByID(ctx context.Context, id int64) (*model.Link, error) {
	return s.getOne(ctx, goqu.Ex{"id": id})
}

// GetByShortPath fetches a link by token without domain scoping. Used in
// bootstrap mode, when no domain is registered yet and lookups are scoped by
// availability only.
func (s *LinkStore) GetByShortPath(ctx context.Context, shortPath string) (*model.Link, error) {
	return s.getOne(ctx, goqu.Ex{"short_path": shortPath})
}

// GetByShortPathForDomain fetches a link by token, scoped to links associated
// with the given serving domain.
func (s *LinkStore) GetByShortPathForDomain(ctx context.Context, shortPath string, domainID int64) (*model.Link, error) {
	var row linkRow
	found, err := s.gq.From(goqu.T("links")).
		Join(
			goqu.T("link_domain"),
			goqu.On(goqu.I("link_domain.link_id").Eq(goqu.I("links.id"))),
		).
		Where(goqu.Ex{
			"links.short_path":      shortPath,
			"link_domain.domain_id": domainID,
		}).
		Select("links.*").
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	link := row.toModel()
	if err := s.attachDomains(ctx, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// List returns all links with their domains, newest first.
func (s *LinkStore) List(ctx context.Context) ([]model.Link, error) {
	var rows []linkRow
	err := s.gq.From("links").
		Order(goqu.C("id").Desc()).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, err
	}

	links := make([]model.Link, len(rows))
	for i, row := range rows {
		links[i] = row.toModel()
		if err := s.attachDomains(ctx, &links[i]); err != nil {
			return nil, err
		}
	}
	return links, nil
}

func (s *LinkStore) getOne(ctx context.Context, where goqu.Ex) (*model.Link, error) {
	var row linkRow
	found, err := s.gq.From("links").Where(where).ScanStructContext(ctx, &row)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	link := row.toModel()
	if err := s.attachDomains(ctx, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *LinkStore) attachDomains(ctx context.Context, link *model.Link) error {
	var rows []domainRow
	err := s.gq.From(goqu.T("domains")).
		Join(
			goqu.T("link_domain"),
			goqu.On(goqu.I("link_domain.domain_id").Eq(goqu.I("domains.id"))),
		).
		Where(goqu.Ex{"link_domain.link_id": link.ID}).
		Select("domains.*").
		Order(goqu.I("domains.id").Asc()).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return err
	}

	link.Domains = make([]model.Domain, len(rows))
	for i, row := range rows {
		link.Domains[i] = row.toModel()
	}
	return nil
}
