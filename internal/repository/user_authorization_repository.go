package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/analytics-middletier/internal/model"
)

const (
	userAuthView  = "rls_userauthorization"
	userAuthTable = "rls_userauthorization_data"
)

var userAuthColumns = []string{
	"userkey",
	"userscope",
	"studentpermission",
	"sectionpermission",
	"sectionkeypermission",
	"schoolpermission",
	"districtid",
}

type UserAuthorizationRepository interface {
	List(ctx context.Context) ([]model.UserAuthorization, error)
	ListByUserKey(ctx context.Context, userKey int) ([]model.UserAuthorization, error)
	ListByDistrict(ctx context.Context, districtID int) ([]model.UserAuthorization, error)
	Stage(ctx context.Context, rows []model.UserAuthorization) (int64, error)
	Truncate(ctx context.Context) error
	// WithTx returns a copy of the repository bound to tx.
	WithTx(tx pgx.Tx) UserAuthorizationRepository
}

type userAuthorizationRepository struct {
	db     DBTX
	schema string
	view   string
	table  string
}

// NewUserAuthorizationRepository reads the user authorization view in schema.
func NewUserAuthorizationRepository(db *pgxpool.Pool, schema string) UserAuthorizationRepository {
	return &userAuthorizationRepository{
		db:     db,
		schema: schema,
		view:   qualify(schema, userAuthView),
		table:  qualify(schema, userAuthTable),
	}
}

func (r *userAuthorizationRepository) selectFrom(where string) string {
	query := fmt.Sprintf(`SELECT userkey, userscope, studentpermission, sectionpermission,
		       sectionkeypermission, schoolpermission, districtid
		FROM %s`, r.view)
	if where != "" {
		query += " WHERE " + where
	}
	// Rows for one user are ordered so repeated reads compare stably.
	return query + ` ORDER BY userkey, studentpermission, sectionkeypermission NULLS FIRST, schoolpermission NULLS FIRST`
}

func (r *userAuthorizationRepository) List(ctx context.Context) ([]model.UserAuthorization, error) {
	return r.query(ctx, r.selectFrom(""))
}

func (r *userAuthorizationRepository) ListByUserKey(ctx context.Context, userKey int) ([]model.UserAuthorization, error) {
	return r.query(ctx, r.selectFrom("userkey = $1"), userKey)
}

func (r *userAuthorizationRepository) ListByDistrict(ctx context.Context, districtID int) ([]model.UserAuthorization, error) {
	return r.query(ctx, r.selectFrom("districtid = $1"), districtID)
}

func (r *userAuthorizationRepository) query(ctx context.Context, query string, args ...any) ([]model.UserAuthorization, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	auths := make([]model.UserAuthorization, 0)
	for rows.Next() {
		var a model.UserAuthorization
		if err := rows.Scan(
			&a.UserKey, &a.UserScope, &a.StudentPermission, &a.SectionPermission,
			&a.SectionKeyPermission, &a.SchoolPermission, &a.DistrictID,
		); err != nil {
			return nil, err
		}
		auths = append(auths, a)
	}
	return auths, rows.Err()
}

// Stage bulk-loads rows into the table behind the view.
func (r *userAuthorizationRepository) Stage(ctx context.Context, rows []model.UserAuthorization) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return r.db.CopyFrom(
		ctx,
		pgx.Identifier{r.schema, userAuthTable},
		userAuthColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			a := rows[i]
			return []any{
				a.UserKey, a.UserScope, a.StudentPermission, a.SectionPermission,
				a.SectionKeyPermission, a.SchoolPermission, a.DistrictID,
			}, nil
		}),
	)
}

func (r *userAuthorizationRepository) Truncate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, r.table))
	return err
}

func (r *userAuthorizationRepository) WithTx(tx pgx.Tx) UserAuthorizationRepository {
	cp := *r
	cp.db = tx
	return &cp
}
