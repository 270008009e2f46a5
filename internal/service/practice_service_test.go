package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gp-directory/internal/core/database"
	"gp-directory/internal/domain"
	"gp-directory/internal/repo"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newPracticeService(t *testing.T, publicLimit, adminLimit int) *PracticeService {
	t.Helper()
	return NewPracticeService(repo.NewPracticeRepo(setupTestDB(t)), publicLimit, adminLimit)
}

func TestNormalize(t *testing.T) {
	t.Run("Trims whitespace and maps empty strings to NULL", func(t *testing.T) {
		p, err := Normalize(domain.PracticeFields{
			PracticeName: "  Ardwick Medical  ",
			Postcode:     " M12 4AA ",
			Email:        "   ",
			Telephone:    "",
		})
		require.NoError(t, err)
		assert.Equal(t, "Ardwick Medical", p.PracticeName)
		require.NotNil(t, p.Postcode)
		assert.Equal(t, "M12 4AA", *p.Postcode)
		assert.Nil(t, p.Email)
		assert.Nil(t, p.Telephone)
		assert.Nil(t, p.Region)
	})

	t.Run("Rejects a blank practice name", func(t *testing.T) {
		_, err := Normalize(domain.PracticeFields{PracticeName: " \t ", Postcode: "M1"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)

		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "practice_name", ve.Field)
	})
}

func TestPracticeService_CRUD(t *testing.T) {
	ctx := context.Background()
	svc := newPracticeService(t, 0, 0)

	t.Run("Default limits apply when none are configured", func(t *testing.T) {
		assert.Equal(t, DefaultPublicLimit, svc.PublicLimit())
		assert.Equal(t, DefaultAdminLimit, svc.AdminLimit())
	})

	p, err := svc.Create(ctx, domain.PracticeFields{PracticeName: "Hulme Medical", Postcode: "M15 5FE", Area: "Central"})
	require.NoError(t, err)
	require.NotZero(t, p.ID)

	t.Run("Get returns the stored record", func(t *testing.T) {
		got, err := svc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hulme Medical", got.PracticeName)
	})

	t.Run("Create with a blank name stores nothing", func(t *testing.T) {
		before, err := svc.Count(ctx)
		require.NoError(t, err)
		_, err = svc.Create(ctx, domain.PracticeFields{PracticeName: "  "})
		assert.ErrorIs(t, err, domain.ErrValidation)
		after, err := svc.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("Update replaces the whole record", func(t *testing.T) {
		_, err := svc.Update(ctx, p.ID, domain.PracticeFields{PracticeName: "Hulme Health Centre", Telephone: "0161 000 0000"})
		require.NoError(t, err)

		got, err := svc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hulme Health Centre", got.PracticeName)
		assert.Nil(t, got.Postcode)
		assert.Nil(t, got.Area)
		require.NotNil(t, got.Telephone)
		assert.Equal(t, "0161 000 0000", *got.Telephone)
	})

	t.Run("Update with a blank name leaves the record unchanged", func(t *testing.T) {
		_, err := svc.Update(ctx, p.ID, domain.PracticeFields{PracticeName: ""})
		assert.ErrorIs(t, err, domain.ErrValidation)

		got, err := svc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hulme Health Centre", got.PracticeName)
	})

	t.Run("Update of a missing record returns ErrNotFound", func(t *testing.T) {
		_, err := svc.Update(ctx, 4242, domain.PracticeFields{PracticeName: "Nobody"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Delete removes the record", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, p.ID))
		_, err := svc.Get(ctx, p.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, svc.Delete(ctx, p.ID), domain.ErrNotFound)
	})
}

func TestPracticeService_Search(t *testing.T) {
	ctx := context.Background()
	svc := newPracticeService(t, 0, 0)
	for _, f := range []domain.PracticeFields{
		{PracticeName: "Ancoats Practice", Postcode: "M1 2AB"},
		{PracticeName: "Didsbury Surgery", Postcode: "M20 6RT", Area: "Manchester South"},
		{PracticeName: "Bolton Road Surgery", Postcode: "BL1 4XX", PracticeCode: "P82001"},
	} {
		_, err := svc.Create(ctx, f)
		require.NoError(t, err)
	}

	t.Run("Public search matches a postcode fragment", func(t *testing.T) {
		got, err := svc.SearchPublic(ctx, "M1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Ancoats Practice", got[0].PracticeName)
	})

	t.Run("Public search matches the area column", func(t *testing.T) {
		got, err := svc.SearchPublic(ctx, "manches")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Didsbury Surgery", got[0].PracticeName)
	})

	t.Run("Admin search does not look at area", func(t *testing.T) {
		got, err := svc.SearchAdmin(ctx, "manches")
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = svc.SearchAdmin(ctx, "p82")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Bolton Road Surgery", got[0].PracticeName)
	})

	t.Run("Blank terms are rejected", func(t *testing.T) {
		_, err := svc.SearchPublic(ctx, "   ")
		assert.ErrorIs(t, err, domain.ErrEmptyQuery)
		_, err = svc.SearchAdmin(ctx, "")
		assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	})

	t.Run("A term matching nothing returns an empty result", func(t *testing.T) {
		got, err := svc.SearchPublic(ctx, "zzzz")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestPracticeService_Limits(t *testing.T) {
	ctx := context.Background()
	svc := newPracticeService(t, 3, 5)
	for i := 0; i < 8; i++ {
		_, err := svc.Create(ctx, domain.PracticeFields{PracticeName: fmt.Sprintf("Surgery %02d", i)})
		require.NoError(t, err)
	}

	t.Run("Public search is capped at the public limit", func(t *testing.T) {
		got, err := svc.SearchPublic(ctx, "surgery")
		require.NoError(t, err)
		assert.Len(t, got, 3)
		assert.Equal(t, "Surgery 00", got[0].PracticeName)
	})

	t.Run("Admin listing is capped while the total counts every row", func(t *testing.T) {
		out, err := svc.AdminListing(ctx, "")
		require.NoError(t, err)
		assert.Len(t, out.Items, 5)
		assert.EqualValues(t, 8, out.Total)
		assert.Empty(t, out.Query)
	})

	t.Run("Admin listing with a term keeps the total of the whole table", func(t *testing.T) {
		out, err := svc.AdminListing(ctx, " Surgery 07 ")
		require.NoError(t, err)
		assert.Equal(t, "Surgery 07", out.Query)
		require.Len(t, out.Items, 1)
		assert.EqualValues(t, 8, out.Total)
	})

	t.Run("List clamps oversized limits", func(t *testing.T) {
		got, err := svc.List(ctx, 1000, 0)
		require.NoError(t, err)
		assert.Len(t, got, 5)
	})
}

func TestPracticeService_SearchScenario(t *testing.T) {
	ctx := context.Background()
	svc := newPracticeService(t, 0, 0)
	for _, f := range []domain.PracticeFields{
		{PracticeName: "Beta Surgery", Postcode: "M2 2BB"},
		{PracticeName: "Alpha Clinic", Postcode: "M1 1AA"},
	} {
		_, err := svc.Create(ctx, f)
		require.NoError(t, err)
	}

	got, err := svc.SearchPublic(ctx, "M1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alpha Clinic", got[0].PracticeName)

	got, err = svc.SearchPublic(ctx, "m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha Clinic", got[0].PracticeName, "ordered by name")
	assert.Equal(t, "Beta Surgery", got[1].PracticeName)
}
