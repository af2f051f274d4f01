package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billingx/billing-extractor/constants"
	"github.com/billingx/billing-extractor/internal/common"
	"github.com/billingx/billing-extractor/internal/domain"
)

func newTestRepo(t *testing.T) InvoiceRepository {
	t.Helper()
	ctx := context.Background()

	client, err := Open(ctx, common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close(nil) })

	require.NoError(t, client.Migrate(ctx, nil))
	return NewInvoiceRepository(client, nil)
}

func usd(t *testing.T, amount string) domain.Money {
	t.Helper()
	d, err := decimal.NewFromString(amount)
	require.NoError(t, err)
	m, err := domain.NewMoney(d, "USD")
	require.NoError(t, err)
	return m
}

func buildInvoice(t *testing.T, number, vendor string, date time.Time, total string) *domain.Invoice {
	t.Helper()
	inv, err := domain.NewInvoice(number, date, vendor, "Acme Customer", usd(t, total))
	require.NoError(t, err)
	return inv
}

func TestAddAndGetByIDRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	date := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	inv := buildInvoice(t, "INV-100", "Fresh Foods Inc.", date, "47.25")

	item, err := domain.NewLineItem(1, "Apples", decimal.NewFromInt(3), "kg", usd(t, "15.75"), inv.ID)
	require.NoError(t, err)
	require.NoError(t, inv.AddLineItem(item))

	due := date.AddDate(0, 1, 0)
	inv.SetDueDate(due)
	inv.SetTaxAmount(usd(t, "4.30"))
	inv.SetFileMetadata("invoice.pdf", "/uploads/abc.pdf", "deadbeef")
	inv.AddValidationWarning(constants.CodeAmountMismatch, "totals differ")
	inv.MarkProcessed()

	require.NoError(t, repo.Add(ctx, inv))

	got, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-100", got.InvoiceNumber)
	assert.Equal(t, "Fresh Foods Inc.", got.VendorName)
	assert.Equal(t, "47.25 USD", got.TotalAmount.String())
	assert.Equal(t, constants.StatusProcessed, got.Status)
	assert.Equal(t, date, got.InvoiceDate)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, due, *got.DueDate)
	require.NotNil(t, got.TaxAmount)
	assert.Equal(t, "4.3 USD", got.TaxAmount.String())
	assert.Equal(t, "deadbeef", got.FileHash)

	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "Apples", got.LineItems[0].Description)
	assert.Equal(t, "3", got.LineItems[0].Quantity.String())
	assert.Equal(t, "47.25 USD", got.LineItems[0].LineTotal.String())

	require.Len(t, got.Warnings, 1)
	assert.Equal(t, constants.CodeAmountMismatch, got.Warnings[0].Code)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := newTestRepo(t)
	inv := buildInvoice(t, "INV-1", "Vendor", time.Now().UTC(), "1")

	_, err := repo.GetByID(context.Background(), inv.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetByNumber(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inv := buildInvoice(t, "INV-200", "Fresh Foods Inc.", time.Now().UTC(), "12.50")
	item, err := domain.NewLineItem(1, "Bananas", decimal.NewFromInt(5), "kg", usd(t, "2.50"), inv.ID)
	require.NoError(t, err)
	require.NoError(t, inv.AddLineItem(item))
	require.NoError(t, repo.Add(ctx, inv))

	got, err := repo.GetByNumber(ctx, "INV-200")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
	assert.Equal(t, "Fresh Foods Inc.", got.VendorName)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "Bananas", got.LineItems[0].Description)

	_, err = repo.GetByNumber(ctx, "INV-999")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFileHashUniqueness(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := buildInvoice(t, "INV-1", "Vendor A", now, "10")
	first.SetFileMetadata("a.pdf", "/uploads/a.pdf", "samehash")
	require.NoError(t, repo.Add(ctx, first))

	second := buildInvoice(t, "INV-2", "Vendor B", now, "20")
	second.SetFileMetadata("b.pdf", "/uploads/b.pdf", "samehash")
	err := repo.Add(ctx, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDuplicateContent)

	got, err := repo.GetByFileHash(ctx, "samehash")
	require.NoError(t, err)
	assert.Equal(t, "INV-1", got.InvoiceNumber)
}

func TestFileHashUniquenessIgnoresEmptyHash(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Add(ctx, buildInvoice(t, "INV-1", "Vendor", now, "10")))
	require.NoError(t, repo.Add(ctx, buildInvoice(t, "INV-2", "Vendor", now, "20")))
}

func TestFindSimilarMatchesSameCalendarDay(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	stored := buildInvoice(t, "INV-7", "Vendor", day, "100.50")
	stored.SetFileMetadata("x.pdf", "/uploads/x.pdf", "hash-1")
	require.NoError(t, repo.Add(ctx, stored))

	// Same day, different time of day.
	similar, err := repo.FindSimilar(ctx, "INV-7", "Vendor", day.Add(8*time.Hour))
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, stored.ID, similar[0].ID)

	// Next day misses.
	similar, err = repo.FindSimilar(ctx, "INV-7", "Vendor", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, similar)

	// Different vendor misses.
	similar, err = repo.FindSimilar(ctx, "INV-7", "Other Vendor", day)
	require.NoError(t, err)
	assert.Empty(t, similar)

	exists, err := repo.ExistsByNumberVendorDate(ctx, "INV-7", "Vendor", day)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByNumberVendorDate(ctx, "INV-7", "Vendor", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetAllPagingAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 12; i++ {
		inv := buildInvoice(t, fmt.Sprintf("INV-%02d", i), "Vendor", base, "10")
		inv.ProcessedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Add(ctx, inv))
	}

	// Newest first: page 2 of size 5 holds ranks 6 through 10.
	page, err := repo.GetAll(ctx, ListQuery{Page: 2, PageSize: 5})
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, "INV-07", page[0].InvoiceNumber)
	assert.Equal(t, "INV-03", page[4].InvoiceNumber)

	// Non-positive paging parameters return everything.
	all, err := repo.GetAll(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 12)
	assert.Equal(t, "INV-12", all[0].InvoiceNumber)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)
}

func TestGetAllVendorAndDateFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Add(ctx, buildInvoice(t, "INV-A", "Fresh Foods Inc.", jan, "10")))
	require.NoError(t, repo.Add(ctx, buildInvoice(t, "INV-B", "Fresh Foods Inc.", mar, "20")))
	require.NoError(t, repo.Add(ctx, buildInvoice(t, "INV-C", "Quality Produce Co.", mar, "30")))

	byVendor, err := repo.GetAll(ctx, ListQuery{Vendor: "Fresh Foods Inc."})
	require.NoError(t, err)
	assert.Len(t, byVendor, 2)

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	inRange, err := repo.GetAll(ctx, ListQuery{From: &from})
	require.NoError(t, err)
	assert.Len(t, inRange, 2)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inv := buildInvoice(t, "INV-1", "Vendor", time.Now().UTC(), "10")
	require.NoError(t, repo.Add(ctx, inv))

	removed, err := repo.Delete(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, inv.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = repo.GetByID(ctx, inv.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
