package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-ecom-chatbot/internal/catalog"
	"github.com/ariefcatur/go-ecom-chatbot/internal/postgres"
	"github.com/ariefcatur/go-ecom-chatbot/internal/postgres/pgtest"
	"github.com/ariefcatur/go-ecom-chatbot/internal/users"
	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

type fixture struct {
	repo     *Repo
	products *catalog.Repo
	user     *users.User
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := pgtest.Provider(t)
	suffix := wire.NewID()[:8]
	u := users.New("buyer-"+suffix+"@example.com", "buyer-"+suffix, "x")
	require.NoError(t, users.NewRepo(db, nil).Save(context.Background(), u))
	return fixture{repo: NewRepo(db, nil), products: catalog.NewRepo(db, nil), user: u}
}

func (f fixture) product(t *testing.T, price int64, stock int) *catalog.Product {
	t.Helper()
	p := catalog.New("product "+wire.NewID()[:6], price)
	p.StockQuantity = stock
	require.NoError(t, f.products.Save(context.Background(), p))
	return p
}

func (f fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.StockQuantity
}

func TestRepoSaveAndFind(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	o := New(f.user.ID)
	o.PaymentMethod = "bank_transfer"
	require.NoError(t, f.repo.Save(ctx, o))

	got, err := f.repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o, got)

	missing, err := f.repo.FindByID(ctx, wire.NewID())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepoSaveUnknownUserIsReferenceFault(t *testing.T) {
	f := setup(t)
	err := f.repo.Save(context.Background(), New(wire.NewID()))
	assert.True(t, postgres.IsKind(err, postgres.KindReference), "got %v", err)
}

func TestRepoPlaceAndCancel(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.product(t, 1000, 5)
	b := f.product(t, 250, 10)

	o := New(f.user.ID)
	items, err := f.repo.Place(ctx, o, []Line{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 4},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(3000), o.TotalCents)
	assert.Equal(t, 3, f.stock(t, a.ID))
	assert.Equal(t, 6, f.stock(t, b.ID))

	stored, err := f.repo.FindItemsByOrderID(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	cancelled, restored, err := f.repo.Cancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Len(t, restored, 2)
	assert.Equal(t, 5, f.stock(t, a.ID))
	assert.Equal(t, 10, f.stock(t, b.ID))

	_, _, err = f.repo.Cancel(ctx, o.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = f.repo.Cancel(ctx, wire.NewID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepoPlaceOutOfStockWritesNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.product(t, 1000, 5)
	b := f.product(t, 1000, 1)

	o := New(f.user.ID)
	_, err := f.repo.Place(ctx, o, []Line{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 3},
	})
	var oos *OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, []StockShortage{{ProductID: b.ID, Required: 3, Available: 1}}, oos.Details)

	assert.Equal(t, 5, f.stock(t, a.ID))
	got, err := f.repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepoPlaceUnknownProduct(t *testing.T) {
	f := setup(t)
	_, err := f.repo.Place(context.Background(), New(f.user.ID), []Line{{ProductID: wire.NewID(), Quantity: 1}})
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestRepoFindByUserIDAndItems(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.product(t, 500, 100)

	first := New(f.user.ID)
	require.NoError(t, f.repo.Save(ctx, first))
	time.Sleep(2 * time.Millisecond)
	second := New(f.user.ID)
	second.Status = StatusConfirmed
	require.NoError(t, f.repo.Save(ctx, second))

	all, err := f.repo.FindByUserID(ctx, f.user.ID, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	confirmed, err := f.repo.FindByUserID(ctx, f.user.ID, StatusConfirmed, 10, 0)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, second.ID, confirmed[0].ID)

	it := NewItem(first.ID, p.ID, 3, 500)
	require.NoError(t, f.repo.SaveItem(ctx, it))
	items, err := f.repo.FindItemsByOrderID(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, it, items[0])

	require.NoError(t, f.repo.UpdateStatus(ctx, first, StatusConfirmed))
	assert.ErrorIs(t, f.repo.UpdateStatus(ctx, first, StatusDelivered), ErrInvalidTransition)
	assert.Equal(t, StatusConfirmed, first.Status)
}

func TestRepoSaveTwiceUpdatesInPlace(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	o := New(f.user.ID)
	require.NoError(t, f.repo.Save(ctx, o))
	created, firstUpdate := o.CreatedAt, o.UpdatedAt

	time.Sleep(2 * time.Millisecond)
	o.PaymentStatus = PaymentPaid
	o.Metadata = wire.Doc{"note": "second save"}
	o.CreatedAt = created.Add(time.Hour)
	require.NoError(t, f.repo.Save(ctx, o))
	assert.True(t, created.Equal(o.CreatedAt), "created_at comes back from the row")
	assert.True(t, o.UpdatedAt.After(firstUpdate))

	list, err := f.repo.FindByUserID(ctx, f.user.ID, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, PaymentPaid, got.PaymentStatus)
	assert.Equal(t, "second save", got.Metadata["note"])
	assert.True(t, created.Equal(got.CreatedAt))
	assert.True(t, o.UpdatedAt.Equal(got.UpdatedAt))
}

func TestRepoSaveItemTwiceUpdatesInPlace(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.product(t, 400, 10)

	o := New(f.user.ID)
	require.NoError(t, f.repo.Save(ctx, o))
	it := NewItem(o.ID, p.ID, 1, 400)
	require.NoError(t, f.repo.SaveItem(ctx, it))
	created := it.CreatedAt

	it.Quantity = 3
	it.TotalCents = 1200
	it.CreatedAt = created.Add(time.Hour)
	require.NoError(t, f.repo.SaveItem(ctx, it))
	assert.True(t, created.Equal(it.CreatedAt))

	items, err := f.repo.FindItemsByOrderID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, int64(1200), items[0].TotalCents)
	assert.True(t, created.Equal(items[0].CreatedAt))
}
