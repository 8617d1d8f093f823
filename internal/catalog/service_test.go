package catalog_test

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coincraft/coincraft/internal/catalog"
	"github.com/coincraft/coincraft/internal/shared"
	"github.com/coincraft/coincraft/internal/testing/memstore"
)

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	f := memstore.NewFixture()
	ctx := context.Background()

	added, err := f.Catalog.SeedDefaults(ctx)
	require.NoError(t, err)
	require.Equal(t, len(catalog.DefaultItems), added)

	added, err = f.Catalog.SeedDefaults(ctx)
	require.NoError(t, err)
	require.Zero(t, added)

	items, err := f.Catalog.ListItems(ctx, true)
	require.NoError(t, err)
	require.Len(t, items, len(catalog.DefaultItems))
}

func TestCreateItem(t *testing.T) {
	f := memstore.NewFixture()
	ctx := context.Background()
	guardian := shared.Actor{ID: uuid.New(), Role: shared.RoleTeacher}

	_, err := f.Catalog.CreateItem(ctx, shared.Actor{ID: uuid.New(), Role: shared.RoleOlderChild}, catalog.ItemInput{Name: "Kite", Price: 40})
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = f.Catalog.CreateItem(ctx, guardian, catalog.ItemInput{Name: "Kite", Price: 0})
	require.ErrorIs(t, err, shared.ErrValidation)

	item, err := f.Catalog.CreateItem(ctx, guardian, catalog.ItemInput{Name: "Kite", Price: 40})
	require.NoError(t, err)
	require.True(t, item.Available)

	_, err = f.Catalog.CreateItem(ctx, guardian, catalog.ItemInput{Name: "Kite", Price: 45})
	require.ErrorIs(t, err, shared.ErrConflict)

	f.Store.SetItemAvailable(item.ID, false)
	visible, err := f.Catalog.ListItems(ctx, true)
	require.NoError(t, err)
	require.Empty(t, visible)
	everything, err := f.Catalog.ListItems(ctx, false)
	require.NoError(t, err)
	require.Len(t, everything, 1)
}

func TestModules(t *testing.T) {
	f := memstore.NewFixture()
	ctx := context.Background()
	teacher := shared.Actor{ID: uuid.New(), Role: shared.RoleTeacher}

	_, err := f.Catalog.CreateModule(ctx, teacher, catalog.ModuleInput{Title: "Saving 101", PointsReward: 20, IsPublished: true})
	require.NoError(t, err)
	_, err = f.Catalog.CreateModule(ctx, teacher, catalog.ModuleInput{Title: "Draft", PointsReward: 10})
	require.NoError(t, err)
	_, err = f.Catalog.CreateModule(ctx, teacher, catalog.ModuleInput{Title: "Bad", PointsReward: -1})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.Catalog.CreateModule(ctx, teacher, catalog.ModuleInput{Title: "Jackpot", PointsReward: math.MaxInt64 / 50, IsPublished: true})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.Catalog.CreateModule(ctx, teacher, catalog.ModuleInput{Title: "Top", PointsReward: 1000})
	require.NoError(t, err)

	for _, role := range []shared.Role{shared.RoleParent, shared.RoleOlderChild, shared.RoleYoungerChild} {
		_, err = f.Catalog.CreateModule(ctx, shared.Actor{ID: uuid.New(), Role: role}, catalog.ModuleInput{Title: "Mine", PointsReward: 10, IsPublished: true})
		require.ErrorIs(t, err, shared.ErrForbidden, "role=%s", role)
	}

	published, err := f.Catalog.ListModules(ctx, true)
	require.NoError(t, err)
	require.Len(t, published, 1)
	all, err := f.Catalog.ListModules(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
}
