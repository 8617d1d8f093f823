package accounts_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coincraft/coincraft/internal/accounts"
	"github.com/coincraft/coincraft/internal/shared"
	"github.com/coincraft/coincraft/internal/testing/memstore"
)

func TestRegister(t *testing.T) {
	f := memstore.NewFixture()
	ctx := context.Background()
	guardian := f.Guardian(t)

	acct, err := f.Accounts.Get(ctx, guardian.ID)
	require.NoError(t, err)
	require.Zero(t, acct.Balance)
	require.Nil(t, acct.ParentID)

	_, err = f.Accounts.Register(ctx, accounts.RegisterInput{ActorID: guardian.ID, Role: shared.RoleParent})
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = f.Accounts.Register(ctx, accounts.RegisterInput{Role: shared.RoleParent})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.Accounts.Register(ctx, accounts.RegisterInput{ActorID: uuid.New(), Role: "admin"})
	require.ErrorIs(t, err, shared.ErrValidation)

	child := f.Child(t, guardian)
	acct, err = f.Accounts.Get(ctx, child.ID)
	require.NoError(t, err)
	require.True(t, acct.IsChildOf(guardian.ID))
}

func TestSelfRegisteredChildIsUnlinked(t *testing.T) {
	f := memstore.NewFixture()
	ctx := context.Background()
	guardian := f.Guardian(t)
	child := shared.Actor{ID: uuid.New(), Role: shared.RoleOlderChild}

	acct, err := f.Accounts.Register(ctx, accounts.RegisterInput{ActorID: child.ID, Role: child.Role})
	require.NoError(t, err)
	require.Nil(t, acct.ParentID)

	kids, err := f.Accounts.Children(ctx, guardian.ID)
	require.NoError(t, err)
	require.Empty(t, kids)
	_, err = f.Accounts.RequireGuardian(ctx, guardian.ID, child.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	linked, err := f.Accounts.LinkChild(ctx, guardian, child.ID)
	require.NoError(t, err)
	require.True(t, linked.IsChildOf(guardian.ID))

	kids, err = f.Accounts.Children(ctx, guardian.ID)
	require.NoError(t, err)
	require.Len(t, kids, 1)
}

func TestLinkChild(t *testing.T) {
	f := memstore.NewFixture()
	ctx := context.Background()
	guardian := f.Guardian(t)
	child := f.Child(t, guardian)

	again, err := f.Accounts.LinkChild(ctx, guardian, child.ID)
	require.NoError(t, err)
	require.True(t, again.IsChildOf(guardian.ID))

	other := f.Guardian(t)
	_, err = f.Accounts.LinkChild(ctx, other, child.ID)
	require.ErrorIs(t, err, shared.ErrConflict)
	g, err := f.Accounts.GuardianOf(ctx, child.ID)
	require.NoError(t, err)
	require.Equal(t, guardian.ID, *g)

	_, err = f.Accounts.LinkChild(ctx, child, f.Child(t, other).ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.Accounts.LinkChild(ctx, guardian, uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.Accounts.LinkChild(ctx, guardian, other.ID)
	require.ErrorIs(t, err, shared.ErrValidation)

	teacher := shared.Actor{ID: uuid.New(), Role: shared.RoleTeacher}
	_, err = f.Accounts.Register(ctx, accounts.RegisterInput{ActorID: teacher.ID, Role: teacher.Role})
	require.NoError(t, err)
	pupil := shared.Actor{ID: uuid.New(), Role: shared.RoleYoungerChild}
	_, err = f.Accounts.Register(ctx, accounts.RegisterInput{ActorID: pupil.ID, Role: pupil.Role})
	require.NoError(t, err)
	_, err = f.Accounts.LinkChild(ctx, teacher, pupil.ID)
	require.NoError(t, err)
}

func TestGuardianLinks(t *testing.T) {
	f := memstore.NewFixture()
	ctx := context.Background()
	guardian := f.Guardian(t)
	a := f.Child(t, guardian)
	f.Child(t, guardian)
	f.Child(t, f.Guardian(t))

	kids, err := f.Accounts.Children(ctx, guardian.ID)
	require.NoError(t, err)
	require.Len(t, kids, 2)

	g, err := f.Accounts.GuardianOf(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, guardian.ID, *g)

	_, err = f.Accounts.RequireGuardian(ctx, guardian.ID, a.ID)
	require.NoError(t, err)
	_, err = f.Accounts.RequireGuardian(ctx, uuid.New(), a.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestSettings(t *testing.T) {
	f := memstore.NewFixture()
	ctx := context.Background()
	guardian := f.Guardian(t)

	st, err := f.Accounts.Settings(ctx, guardian.ID)
	require.NoError(t, err)
	require.True(t, memstore.DefaultRate.Equal(st.ExchangeRate))

	_, err = f.Accounts.UpdateSettings(ctx, guardian, accounts.SettingsInput{ExchangeRate: decimal.Zero})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.Accounts.UpdateSettings(ctx, f.Child(t, guardian), accounts.SettingsInput{ExchangeRate: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.Accounts.UpdateSettings(ctx, guardian, accounts.SettingsInput{ExchangeRate: decimal.RequireFromString("0.05")})
	require.NoError(t, err)
	st, err = f.Accounts.Settings(ctx, guardian.ID)
	require.NoError(t, err)
	require.Equal(t, "0.05", st.ExchangeRate.String())
}
