package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stemsi/analytics-middletier/internal/model"
	"github.com/stemsi/analytics-middletier/internal/repository"
)

type fakeOrgRepo struct {
	rows      []model.EducationOrganizationDimension
	listCalls int
	err       error
	truncated bool
}

func (f *fakeOrgRepo) List(context.Context) ([]model.EducationOrganizationDimension, error) {
	f.listCalls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.EducationOrganizationDimension{}, f.rows...), nil
}

func (f *fakeOrgRepo) GetByKey(_ context.Context, key int) (*model.EducationOrganizationDimension, error) {
	for _, r := range f.rows {
		if r.EducationOrganizationKey == key {
			r := r
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeOrgRepo) ListModifiedSince(_ context.Context, since time.Time) ([]model.EducationOrganizationDimension, error) {
	out := make([]model.EducationOrganizationDimension, 0)
	for _, r := range f.rows {
		if !r.LastModifiedDate.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Stage stores timestamps by wall clock, as a timestamp-without-time-zone
// column does.
func (f *fakeOrgRepo) Stage(_ context.Context, rows []model.EducationOrganizationDimension) (int64, error) {
	for _, r := range rows {
		t := r.LastModifiedDate
		r.LastModifiedDate = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		f.rows = append(f.rows, r)
	}
	return int64(len(rows)), nil
}

func (f *fakeOrgRepo) Truncate(context.Context) error {
	f.rows = nil
	f.truncated = true
	return nil
}

func (f *fakeOrgRepo) WithTx(pgx.Tx) repository.EducationOrganizationRepository { return f }

func (f *fakeOrgRepo) snapshot() func() {
	rows := append([]model.EducationOrganizationDimension{}, f.rows...)
	truncated := f.truncated
	return func() { f.rows, f.truncated = rows, truncated }
}

type fakeAuthRepo struct {
	rows      []model.UserAuthorization
	listCalls int
	stageErr  error
}

func (f *fakeAuthRepo) List(context.Context) ([]model.UserAuthorization, error) {
	f.listCalls++
	return append([]model.UserAuthorization{}, f.rows...), nil
}

func (f *fakeAuthRepo) ListByUserKey(_ context.Context, userKey int) ([]model.UserAuthorization, error) {
	out := make([]model.UserAuthorization, 0)
	for _, r := range f.rows {
		if r.UserKey == userKey {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAuthRepo) ListByDistrict(_ context.Context, districtID int) ([]model.UserAuthorization, error) {
	out := make([]model.UserAuthorization, 0)
	for _, r := range f.rows {
		if r.DistrictID != nil && *r.DistrictID == districtID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAuthRepo) Stage(_ context.Context, rows []model.UserAuthorization) (int64, error) {
	if f.stageErr != nil {
		return 0, f.stageErr
	}
	f.rows = append(f.rows, rows...)
	return int64(len(rows)), nil
}

func (f *fakeAuthRepo) Truncate(context.Context) error {
	f.rows = nil
	return nil
}

func (f *fakeAuthRepo) WithTx(pgx.Tx) repository.UserAuthorizationRepository { return f }

func (f *fakeAuthRepo) snapshot() func() {
	rows := append([]model.UserAuthorization{}, f.rows...)
	return func() { f.rows = rows }
}

type snapshotter interface {
	snapshot() func()
}

// fakeTransactor restores every repo it tracks when fn fails.
type fakeTransactor struct {
	repos     []snapshotter
	commits   int
	rollbacks int
}

func (f *fakeTransactor) InTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	restores := make([]func(), len(f.repos))
	for i, r := range f.repos {
		restores[i] = r.snapshot()
	}
	if err := fn(nil); err != nil {
		for _, restore := range restores {
			restore()
		}
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

type fakeClientRepo struct {
	clients map[string]*model.APIClient
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{clients: make(map[string]*model.APIClient)}
}

func (f *fakeClientRepo) GetByClientID(_ context.Context, clientID string) (*model.APIClient, error) {
	c, ok := f.clients[clientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeClientRepo) Create(_ context.Context, client *model.APIClient) error {
	client.ID = len(f.clients) + 1
	client.CreatedAt = time.Now()
	f.clients[client.ClientID] = client
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

var jan1 = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

func grandBend() model.EducationOrganizationDimension {
	return model.EducationOrganizationDimension{
		EducationOrganizationKey: 255901,
		NameOfInstitution:        strPtr("Grand Bend ISD"),
		LastModifiedDate:         jan1,
	}
}

func districtUser() model.UserAuthorization {
	return model.UserAuthorization{
		UserKey:           100,
		UserScope:         strPtr("District"),
		StudentPermission: "All",
		DistrictID:        intPtr(255901),
	}
}
