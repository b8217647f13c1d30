package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := Open(context.Background(), Config{DSN: dsn, DialTimeout: time.Second}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.Migrate(context.Background()), "migrate is repeatable")
	return db
}

func TestSideRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	assert.Equal(t, DialectSQLite, db.Dialect())

	a, err := entity.NewTransaction("2", "AWS", 100, "2024-03-02")
	require.NoError(t, err)
	b, err := entity.NewTransaction("1", "SBUX", 5.75, "2024-03-01")
	require.NoError(t, err)
	b.Category = "Meals"
	b.Matched = true

	require.NoError(t, db.SaveSide(ctx, constants.SideLedger, []entity.Transaction{a, b}))
	require.NoError(t, db.SaveSide(ctx, constants.SideDocuments, []entity.Transaction{a}))

	got, err := db.LoadSide(ctx, constants.SideLedger)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID, "saved order is kept")
	assert.Equal(t, "Meals", got[1].Category)
	assert.True(t, got[1].Matched)
	assert.True(t, decimal.RequireFromString("5.75").Equal(got[1].Amount))
	assert.Equal(t, b.Date, got[1].Date)

	// saving again replaces only that side
	require.NoError(t, db.SaveSide(ctx, constants.SideLedger, nil))
	got, err = db.LoadSide(ctx, constants.SideLedger)
	require.NoError(t, err)
	assert.Empty(t, got)
	docs, err := db.LoadSide(ctx, constants.SideDocuments)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDocumentsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	q := 3
	doc := entity.Document{
		ID:        "doc-1",
		Vendor:    "Office Depot",
		Amount:    decimal.RequireFromString("45.99"),
		Date:      time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
		RawText:   "OFFICE DEPOT\nTOTAL 45.99",
		LineItems: []entity.LineItem{{Name: "Paper", Price: decimal.RequireFromString("15.33"), Quantity: &q}},
		Source: entity.SourceFile{
			Path: "/tmp/r.pdf", Name: "r.pdf", Ext: "pdf", Size: 1234,
			ContentHash: []byte{0xde, 0xad, 0xbe, 0xef},
		},
		Strategy:    "heuristic",
		ExtractedAt: time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC),
	}
	require.NoError(t, db.SaveDocuments(ctx, []entity.Document{doc}))

	got, err := db.LoadDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, doc.Vendor, got[0].Vendor)
	assert.Equal(t, doc.Date, got[0].Date)
	assert.Equal(t, doc.Source, got[0].Source)
	assert.Equal(t, doc.ExtractedAt, got[0].ExtractedAt)
	require.Len(t, got[0].LineItems, 1)
	assert.Equal(t, 3, *got[0].LineItems[0].Quantity)
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.HealthCheck(context.Background(), time.Second))
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: DialectPostgres}
	assert.Equal(t, "SELECT $1, $2", pg.rebind("SELECT ?, ?"))
	lite := &DB{dialect: DialectSQLite}
	assert.Equal(t, "SELECT ?", lite.rebind("SELECT ?"))
	assert.True(t, IsPostgres("postgresql://u@h/db"))
	assert.False(t, IsPostgres("file:receipts.db"))
}
