package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-rewards-api/internal/catalog"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "cards.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testCard(id, name, issuer string, active bool) catalog.CardDocument {
	limit := decimal.NewFromInt(10000)
	fallback := decimal.RequireFromString("0.004")
	return catalog.CardDocument{
		ID:       id,
		Name:     name,
		Issuer:   issuer,
		IsActive: active,
		Fees:     catalog.FeesDocument{AnnualFee: decimal.NewFromInt(1800)},
		Rewards: []catalog.RuleDocument{{
			ID:                 id + "-online",
			RewardRate:         decimal.RequireFromString("0.04"),
			RewardUnit:         "cash",
			Priority:           "specific",
			Categories:         []string{"online"},
			MonthlySpendingCap: &limit,
			FallbackRate:       &fallback,
		}},
	}
}

func TestUpsertAndGetCard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	card := testCard("hsbc-red", "HSBC Red", "HSBC", true)
	require.NoError(t, db.UpsertCard(ctx, card))

	got, err := db.GetCard(ctx, "hsbc-red")
	require.NoError(t, err)
	assert.Equal(t, "HSBC Red", got.Name)
	require.Len(t, got.Rewards, 1)
	assert.True(t, got.Rewards[0].RewardRate.Equal(decimal.RequireFromString("0.04")))
	require.NotNil(t, got.Rewards[0].MonthlySpendingCap)
	assert.True(t, got.Rewards[0].MonthlySpendingCap.Equal(decimal.NewFromInt(10000)))
	assert.True(t, got.Fees.AnnualFee.Equal(decimal.NewFromInt(1800)))
}

func TestUpsertCard_Replaces(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertCard(ctx, testCard("hsbc-red", "HSBC Red", "HSBC", true)))
	require.NoError(t, db.UpsertCard(ctx, testCard("hsbc-red", "HSBC Red 2", "HSBC", false)))

	all, err := db.ListCards(ctx, CardFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "HSBC Red 2", all[0].Name)
	assert.False(t, all[0].IsActive)
}

func TestGetCard_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetCard(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCards_Filters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertCard(ctx, testCard("dbs-black", "DBS Black", "DBS", true)))
	require.NoError(t, db.UpsertCard(ctx, testCard("hsbc-red", "HSBC Red", "HSBC", true)))
	require.NoError(t, db.UpsertCard(ctx, testCard("hsbc-old", "HSBC Classic", "HSBC", false)))

	all, err := db.ListCards(ctx, CardFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"dbs-black", "hsbc-old", "hsbc-red"}, cardIDs(all))

	active := true
	activeOnly, err := db.ListCards(ctx, CardFilter{Active: &active})
	require.NoError(t, err)
	assert.Equal(t, []string{"dbs-black", "hsbc-red"}, cardIDs(activeOnly))

	hsbc, err := db.ListCards(ctx, CardFilter{Issuer: "HSBC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hsbc-old", "hsbc-red"}, cardIDs(hsbc))

	empty, err := db.ListCards(ctx, CardFilter{Issuer: "Citi"})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestDeleteCard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertCard(ctx, testCard("hsbc-red", "HSBC Red", "HSBC", true)))
	require.NoError(t, db.DeleteCard(ctx, "hsbc-red"))

	_, err := db.GetCard(ctx, "hsbc-red")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteCard(ctx, "hsbc-red"), ErrNotFound)
}

func TestLoadCards_ActiveAndNormalized(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertCard(ctx, testCard("hsbc-red", "HSBC Red", "HSBC", true)))
	require.NoError(t, db.UpsertCard(ctx, testCard("hsbc-old", "HSBC Classic", "HSBC", false)))

	cards, err := db.LoadCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "hsbc-red", cards[0].ID)
	assert.Equal(t, []string{"online"}, cards[0].Rewards[0].Target.Categories)
	assert.True(t, cards[0].Rewards[0].HasSpendingCap())

	var _ catalog.CardRepository = db
}

func cardIDs(cards []catalog.CardDocument) []string {
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	return ids
}
