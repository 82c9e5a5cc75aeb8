package service

import (
	"context"
	"testing"

	"sweetshop/internal/apperror"
	"sweetshop/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryIsScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUp(t, "alice@example.com", "Alice")
	bob := f.signUp(t, "bob@example.com", "Bob")
	admin := f.admin(t)
	sweet := f.sweet(t, "Lollipop", 50, 100)

	for i := 0; i < 3; i++ {
		_, err := f.inventory.Purchase(ctx, alice, sweet.ID, 1)
		require.NoError(t, err)
	}
	bobs, err := f.inventory.Purchase(ctx, bob, sweet.ID, 4)
	require.NoError(t, err)

	q := model.PageQuery{Page: 1, Limit: 10, Sort: model.SortCreatedAt, Dir: model.SortDesc}
	mine, err := f.history.ListMine(ctx, alice, q)
	require.NoError(t, err)
	assert.Equal(t, int64(3), mine.Total)
	for _, p := range mine.Data {
		assert.Equal(t, alice.UserID(), p.UserID)
	}

	// Another customer's purchase looks exactly like a missing one
	_, err = f.history.Get(ctx, alice, bobs.ID)
	assertCode(t, err, apperror.CodeNotFound)
	_, err = f.history.Get(ctx, alice, uuid.New())
	assertCode(t, err, apperror.CodeNotFound)

	got, err := f.history.Get(ctx, admin, bobs.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.UserID(), got.UserID)

	_, err = f.history.ListAll(ctx, alice, q)
	assertCode(t, err, apperror.CodeForbidden)
	_, err = f.history.ListMine(ctx, AnonymousIdentity, q)
	assertCode(t, err, apperror.CodeUnauthorized)

	all, err := f.history.ListAll(ctx, admin, model.PageQuery{Page: 1, Limit: 2, Sort: model.SortTotal, Dir: model.SortDesc})
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Total)
	assert.True(t, all.HasMore)
	require.NotNil(t, all.Data[0].Purchaser)
	assert.Equal(t, "bob@example.com", all.Data[0].Purchaser.Email)
}

func TestProfileGetAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signUp(t, "rose@example.com", "Rose")

	profile, err := f.profiles.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "rose@example.com", profile.Email)
	assert.Empty(t, profile.Phone)
	assert.Empty(t, profile.Address)

	updated, err := f.profiles.Update(ctx, user, ProfileUpdate{Name: "Rose Red", Phone: "555-0142", Address: "3 Cocoa Court"})
	require.NoError(t, err)
	assert.Equal(t, "Rose Red", updated.Name)
	assert.Equal(t, model.RoleUser, updated.Role)
	assert.Equal(t, "555-0142", updated.Phone)
	assert.Equal(t, "3 Cocoa Court", updated.Address)

	_, err = f.profiles.Get(ctx, AnonymousIdentity)
	assertCode(t, err, apperror.CodeUnauthorized)
}
