package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/analytics-middletier/internal/model"
)

const (
	eppDimView  = "epp_eppdim"
	eppDimTable = "epp_eppdim_data"
)

type EducationOrganizationRepository interface {
	List(ctx context.Context) ([]model.EducationOrganizationDimension, error)
	GetByKey(ctx context.Context, key int) (*model.EducationOrganizationDimension, error)
	ListModifiedSince(ctx context.Context, since time.Time) ([]model.EducationOrganizationDimension, error)
	Stage(ctx context.Context, rows []model.EducationOrganizationDimension) (int64, error)
	Truncate(ctx context.Context) error
	// WithTx returns a copy of the repository bound to tx.
	WithTx(tx pgx.Tx) EducationOrganizationRepository
}

type educationOrganizationRepository struct {
	db     DBTX
	schema string
	view   string
	table  string
}

// NewEducationOrganizationRepository reads the EPP dimension view in schema.
func NewEducationOrganizationRepository(db *pgxpool.Pool, schema string) EducationOrganizationRepository {
	return &educationOrganizationRepository{
		db:     db,
		schema: schema,
		view:   qualify(schema, eppDimView),
		table:  qualify(schema, eppDimTable),
	}
}

func (r *educationOrganizationRepository) columns() string {
	return `educationorganizationkey, nameofinstitution, lastmodifieddate`
}

func (r *educationOrganizationRepository) List(ctx context.Context) ([]model.EducationOrganizationDimension, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY educationorganizationkey`, r.columns(), r.view)
	return r.query(ctx, query)
}

func (r *educationOrganizationRepository) GetByKey(ctx context.Context, key int) (*model.EducationOrganizationDimension, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE educationorganizationkey = $1`, r.columns(), r.view)
	d := &model.EducationOrganizationDimension{}
	err := r.db.QueryRow(ctx, query, key).Scan(&d.EducationOrganizationKey, &d.NameOfInstitution, &d.LastModifiedDate)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return d, nil
}

func (r *educationOrganizationRepository) ListModifiedSince(ctx context.Context, since time.Time) ([]model.EducationOrganizationDimension, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE lastmodifieddate >= $1 ORDER BY educationorganizationkey`, r.columns(), r.view)
	// lastmodifieddate has no time zone; compare in UTC wall clock.
	return r.query(ctx, query, since.UTC())
}

func (r *educationOrganizationRepository) query(ctx context.Context, query string, args ...any) ([]model.EducationOrganizationDimension, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dims := make([]model.EducationOrganizationDimension, 0)
	for rows.Next() {
		var d model.EducationOrganizationDimension
		if err := rows.Scan(&d.EducationOrganizationKey, &d.NameOfInstitution, &d.LastModifiedDate); err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}
	return dims, rows.Err()
}

// Stage bulk-loads rows into the table behind the view.
func (r *educationOrganizationRepository) Stage(ctx context.Context, rows []model.EducationOrganizationDimension) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return r.db.CopyFrom(
		ctx,
		pgx.Identifier{r.schema, eppDimTable},
		[]string{"educationorganizationkey", "nameofinstitution", "lastmodifieddate"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return []any{rows[i].EducationOrganizationKey, rows[i].NameOfInstitution, rows[i].LastModifiedDate.UTC()}, nil
		}),
	)
}

func (r *educationOrganizationRepository) Truncate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, r.table))
	return err
}

func (r *educationOrganizationRepository) WithTx(tx pgx.Tx) EducationOrganizationRepository {
	cp := *r
	cp.db = tx
	return &cp
}
