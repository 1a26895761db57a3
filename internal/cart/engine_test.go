package cart

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"storefront-state/internal/domain"
	"storefront-state/internal/remote"
)

type stubRemote struct {
	fetchReply  remote.CartReply
	fetchErr    error
	addReply    remote.CartReply
	addErr      error
	updateReply remote.CartReply
	updateErr   error
	removeReply remote.CartReply
	removeErr   error
	clearReply  remote.CartReply
	clearErr    error

	addCalls      int
	updateCalls   int
	removeCalls   int
	lastAddID     string
	lastAddQty    int
	lastUpdateID  string
	lastUpdateQty int
	lastRemoveID  string
}

func (s *stubRemote) FetchCart(context.Context) (remote.CartReply, error) {
	return s.fetchReply, s.fetchErr
}

func (s *stubRemote) AddCartItem(_ context.Context, productID string, quantity int) (remote.CartReply, error) {
	s.addCalls++
	s.lastAddID = productID
	s.lastAddQty = quantity
	return s.addReply, s.addErr
}

func (s *stubRemote) UpdateCartItem(_ context.Context, productID string, quantity int) (remote.CartReply, error) {
	s.updateCalls++
	s.lastUpdateID = productID
	s.lastUpdateQty = quantity
	return s.updateReply, s.updateErr
}

func (s *stubRemote) RemoveCartItem(_ context.Context, productID string) (remote.CartReply, error) {
	s.removeCalls++
	s.lastRemoveID = productID
	return s.removeReply, s.removeErr
}

func (s *stubRemote) ClearCart(context.Context) (remote.CartReply, error) {
	return s.clearReply, s.clearErr
}

type stubResolver struct {
	products map[string]domain.ProductSnapshot
}

func (s *stubResolver) GetProduct(_ context.Context, productID string) (*domain.ProductSnapshot, error) {
	p, ok := s.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

type stubStore struct {
	cart    domain.CartState
	saves   int
	cleared int
}

func (s *stubStore) LoadCart(context.Context) domain.CartState {
	return s.cart.Clone()
}

func (s *stubStore) SaveCart(_ context.Context, state domain.CartState) {
	s.cart = state.Clone()
	s.saves++
}

func (s *stubStore) ClearCart(context.Context) {
	s.cart = domain.EmptyCart()
	s.cleared++
}

func logDiscard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func p1() domain.ProductSnapshot {
	return domain.ProductSnapshot{ID: "p1", Name: "Cup", Price: 10, Stock: 5}
}

func newTestEngine(rc *stubRemote, st *stubStore) *Engine {
	resolver := &stubResolver{products: map[string]domain.ProductSnapshot{"p1": p1()}}
	return New(context.Background(), rc, resolver, st, logDiscard())
}

func TestAddGuestHappyPath(t *testing.T) {
	rc := &stubRemote{addReply: remote.GuestCart{}}
	st := &stubStore{cart: domain.EmptyCart()}
	e := newTestEngine(rc, st)

	res, err := e.Add(context.Background(), "p1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State.TotalItems != 2 || res.State.TotalPrice != 20 {
		t.Fatalf("unexpected totals: %+v", res.State)
	}
	if res.Message != "added to cart" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if rc.addCalls != 1 || rc.lastAddID != "p1" || rc.lastAddQty != 2 {
		t.Fatalf("remote add not called as expected")
	}
	if st.saves != 1 {
		t.Fatalf("expected one persist, got %d", st.saves)
	}
}

func TestAddIncrementsExistingLine(t *testing.T) {
	rc := &stubRemote{addReply: remote.GuestCart{}}
	e := newTestEngine(rc, &stubStore{cart: domain.EmptyCart()})

	mustAdd(t, e, "p1", 2)
	res := mustAdd(t, e, "p1", 3)
	if len(res.State.Items) != 1 || res.State.TotalItems != 5 || res.State.TotalPrice != 50 {
		t.Fatalf("expected single line with quantity 5, got %+v", res.State)
	}
}

func TestAddGuestUsesEchoedSnapshot(t *testing.T) {
	echoed := domain.ProductSnapshot{ID: "p1", Name: "Cup (server)", Price: 10, Stock: 5}
	rc := &stubRemote{addReply: remote.GuestCart{Product: &echoed, Message: "ok"}}
	e := newTestEngine(rc, &stubStore{cart: domain.EmptyCart()})

	res := mustAdd(t, e, "p1", 1)
	if res.State.Items[0].Product.Name != "Cup (server)" {
		t.Fatalf("expected echoed snapshot, got %+v", res.State.Items[0].Product)
	}
	if res.Message != "ok" {
		t.Fatalf("expected server message, got %q", res.Message)
	}
}

func TestAddValidationBeforeRemote(t *testing.T) {
	rc := &stubRemote{addReply: remote.GuestCart{}}
	e := newTestEngine(rc, &stubStore{cart: domain.EmptyCart()})

	if _, err := e.Add(context.Background(), "  ", 1); !domain.IsValidation(err, domain.CodeInvalidIdentifier) {
		t.Fatalf("expected InvalidIdentifier, got %v", err)
	}
	if _, err := e.Add(context.Background(), "p1", 0); !domain.IsValidation(err, domain.CodeInvalidQuantity) {
		t.Fatalf("expected InvalidQuantity, got %v", err)
	}
	if _, err := e.Add(context.Background(), "ghost", 1); !domain.IsValidation(err, domain.CodeInvalidProduct) {
		t.Fatalf("expected InvalidProduct, got %v", err)
	}
	if rc.addCalls != 0 {
		t.Fatalf("remote must not be called on validation failure")
	}
}

func TestAddOutOfStock(t *testing.T) {
	rc := &stubRemote{addReply: remote.GuestCart{}}
	resolver := &stubResolver{products: map[string]domain.ProductSnapshot{
		"p3": {ID: "p3", Name: "Grinder", Price: 59, Stock: 0},
	}}
	e := New(context.Background(), rc, resolver, &stubStore{cart: domain.EmptyCart()}, logDiscard())

	if _, err := e.Add(context.Background(), "p3", 1); !domain.IsValidation(err, domain.CodeInsufficientStock) {
		t.Fatalf("expected InsufficientStock, got %v", err)
	}
	if rc.addCalls != 0 {
		t.Fatalf("remote must not be called when out of stock")
	}
}

// The worked example: add 2 of a stock-5 product, then fail to add 10 more,
// then update to 0.
func TestStockScenario(t *testing.T) {
	rc := &stubRemote{addReply: remote.GuestCart{}, removeReply: remote.GuestCart{}}
	e := newTestEngine(rc, &stubStore{cart: domain.EmptyCart()})
	ctx := context.Background()

	res := mustAdd(t, e, "p1", 2)
	if res.State.TotalItems != 2 || res.State.TotalPrice != 20 {
		t.Fatalf("unexpected totals after add: %+v", res.State)
	}

	if _, err := e.Add(ctx, "p1", 10); !domain.IsValidation(err, domain.CodeInsufficientStock) {
		t.Fatalf("expected InsufficientStock for 2+10 > 5, got %v", err)
	}
	state := e.State()
	if state.TotalItems != 2 || state.TotalPrice != 20 {
		t.Fatalf("state must be unchanged after rejected add: %+v", state)
	}

	res, err := e.Update(ctx, "p1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.State.IsEmpty() || res.State.TotalItems != 0 || res.State.TotalPrice != 0 {
		t.Fatalf("expected empty cart after update to 0, got %+v", res.State)
	}
}

func TestUpdateZeroDelegatesToRemove(t *testing.T) {
	rc := &stubRemote{addReply: remote.GuestCart{}, removeReply: remote.GuestCart{}}
	e := newTestEngine(rc, &stubStore{cart: domain.EmptyCart()})
	ctx := context.Background()

	mustAdd(t, e, "p1", 2)
	if _, err := e.Update(ctx, "p1", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.updateCalls != 0 || rc.removeCalls != 1 {
		t.Fatalf("expected remove call, got update=%d remove=%d", rc.updateCalls, rc.removeCalls)
	}
}

func TestUpdateReplacesQuantity(t *testing.T) {
	rc := &stubRemote{addReply: remote.GuestCart{}, updateReply: remote.GuestCart{}}
	e := newTestEngine(rc, &stubStore{cart: domain.EmptyCart()})

	mustAdd(t, e, "p1", 2)
	res, err := e.Update(context.Background(), "p1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State.TotalItems != 3 || res.State.TotalPrice != 30 {
		t.Fatalf("expected quantity replaced, got %+v", res.State)
	}
}

func TestUpdateRechecksStock(t *testing.T) {
	rc := &stubRemote{addReply: remote.GuestCart{}, updateReply: remote.GuestCart{}}
	e := newTestEngine(rc, &stubStore{cart: domain.EmptyCart()})

	mustAdd(t, e, "p1", 2)
	if _, err := e.Update(context.Background(), "p1", 6); !domain.IsValidation(err, domain.CodeInsufficientStock) {
		t.Fatalf("expected InsufficientStock for quantity 6 of stock 5, got %v", err)
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	rc := &stubRemote{addReply: remote.GuestCart{}, removeReply: remote.GuestCart{}}
	e := newTestEngine(rc, &stubStore{cart: domain.EmptyCart()})

	mustAdd(t, e, "p1", 2)
	before := e.State()
	res, err := e.Remove(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("removing an absent id must not fail: %v", err)
	}
	if res.State.TotalItems != before.TotalItems || res.State.TotalPrice != before.TotalPrice {
		t.Fatalf("state changed: %+v", res.State)
	}
	if rc.removeCalls != 0 {
		t.Fatalf("no remote call expected for an absent id")
	}
}

func TestAuthoritativeReplyReplacesStateAndTotalsAreRecomputed(t *testing.T) {
	server := domain.CartState{
		Items: []domain.CartLine{
			{Product: domain.ProductSnapshot{ID: "p9", Name: "Kettle", Price: 25, Stock: 4}, Quantity: 2},
		},
		// Server totals are deliberately wrong; the validator must fix them.
		TotalItems: 42,
		TotalPrice: 1,
	}
	rc := &stubRemote{addReply: remote.AuthoritativeCart{Cart: server, Message: "synced"}}
	e := newTestEngine(rc, &stubStore{cart: domain.EmptyCart()})

	res := mustAdd(t, e, "p1", 1)
	if len(res.State.Items) != 1 || res.State.Items[0].Product.ID != "p9" {
		t.Fatalf("expected wholesale replacement with server state, got %+v", res.State)
	}
	if res.State.TotalItems != 2 || res.State.TotalPrice != 50 {
		t.Fatalf("expected recomputed totals 2/50, got %+v", res.State)
	}
}

func TestFetchKeepsNonEmptyLocalWhenServerEmpty(t *testing.T) {
	local := domain.CartState{Items: []domain.CartLine{{Product: p1(), Quantity: 2}}}
	rc := &stubRemote{fetchReply: remote.AuthoritativeCart{Cart: domain.EmptyCart()}}
	e := newTestEngine(rc, &stubStore{cart: local})

	state, err := e.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.TotalItems != 2 {
		t.Fatalf("fetch must not erase a non-empty local cart, got %+v", state)
	}
}

func TestFetchReplacesLocalWithServerState(t *testing.T) {
	server := domain.CartState{Items: []domain.CartLine{{Product: p1(), Quantity: 4}}}
	rc := &stubRemote{fetchReply: remote.AuthoritativeCart{Cart: server}}
	e := newTestEngine(rc, &stubStore{cart: domain.EmptyCart()})

	state, err := e.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.TotalItems != 4 || state.TotalPrice != 40 {
		t.Fatalf("expected server state, got %+v", state)
	}
}

func TestFetchGuestKeepsLocal(t *testing.T) {
	local := domain.CartState{Items: []domain.CartLine{{Product: p1(), Quantity: 1}}}
	rc := &stubRemote{fetchReply: remote.GuestCart{}}
	e := newTestEngine(rc, &stubStore{cart: local})

	state, err := e.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.TotalItems != 1 {
		t.Fatalf("guest fetch must keep local state, got %+v", state)
	}
}

func TestFetchRemoteErrorFallsBackAndRethrows(t *testing.T) {
	local := domain.CartState{Items: []domain.CartLine{{Product: p1(), Quantity: 2}}}
	remoteErr := &domain.RemoteError{Status: 503, Message: "down"}
	rc := &stubRemote{fetchErr: remoteErr}
	e := newTestEngine(rc, &stubStore{cart: local})

	var changes []Change
	e.Subscribe(func(ch Change) { changes = append(changes, ch) })

	_, err := e.Fetch(context.Background())
	if !errors.Is(err, remoteErr) {
		t.Fatalf("expected the remote error re-raised, got %v", err)
	}
	if state := e.State(); state.TotalItems != 2 {
		t.Fatalf("expected fallback to persisted state, got %+v", state)
	}
	if len(changes) != 2 {
		t.Fatalf("expected pending + failure notifications, got %d", len(changes))
	}
	if !changes[0].Loading || changes[0].Err != nil {
		t.Fatalf("first notification should be pending: %+v", changes[0])
	}
	if changes[1].Loading || !errors.Is(changes[1].Err, remoteErr) {
		t.Fatalf("second notification should carry the error: %+v", changes[1])
	}
}

func TestAddRemoteErrorRecordedAndRethrown(t *testing.T) {
	remoteErr := &domain.RemoteError{Status: 500, Message: "boom"}
	rc := &stubRemote{addErr: remoteErr}
	st := &stubStore{cart: domain.EmptyCart()}
	e := newTestEngine(rc, st)

	var last Change
	e.Subscribe(func(ch Change) { last = ch })

	_, err := e.Add(context.Background(), "p1", 1)
	if !errors.Is(err, remoteErr) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if !errors.Is(last.Err, remoteErr) || last.Loading {
		t.Fatalf("expected failure notification, got %+v", last)
	}
	if st.saves != 0 {
		t.Fatalf("failed mutation must not persist")
	}
}

func TestNotificationSequenceOnMutation(t *testing.T) {
	rc := &stubRemote{addReply: remote.GuestCart{}}
	e := newTestEngine(rc, &stubStore{cart: domain.EmptyCart()})

	var changes []Change
	e.Subscribe(func(ch Change) { changes = append(changes, ch) })

	mustAdd(t, e, "p1", 1)
	if len(changes) != 2 {
		t.Fatalf("expected pending + success notifications, got %d", len(changes))
	}
	if !changes[0].Loading {
		t.Fatalf("first notification must have Loading set")
	}
	if changes[1].Loading || changes[1].Err != nil {
		t.Fatalf("second notification must clear Loading and Err: %+v", changes[1])
	}
	if changes[1].State.TotalItems != 1 {
		t.Fatalf("success notification carries the new state, got %+v", changes[1].State)
	}
}

func TestClear(t *testing.T) {
	rc := &stubRemote{addReply: remote.GuestCart{}, clearReply: remote.GuestCart{}}
	st := &stubStore{cart: domain.EmptyCart()}
	e := newTestEngine(rc, st)

	mustAdd(t, e, "p1", 2)
	res, err := e.Clear(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.State.IsEmpty() {
		t.Fatalf("expected empty cart, got %+v", res.State)
	}
	if res.Message != "cart cleared" {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestResetIsLocalOnly(t *testing.T) {
	rc := &stubRemote{addReply: remote.GuestCart{}}
	st := &stubStore{cart: domain.EmptyCart()}
	e := newTestEngine(rc, st)

	mustAdd(t, e, "p1", 2)
	var last Change
	e.Subscribe(func(ch Change) { last = ch })

	e.Reset(context.Background())
	if state := e.State(); !state.IsEmpty() {
		t.Fatalf("expected empty state after reset, got %+v", state)
	}
	if st.cleared != 1 {
		t.Fatalf("expected persisted blob erased")
	}
	if !last.State.IsEmpty() || last.Err != nil || last.Loading {
		t.Fatalf("expected reset notification, got %+v", last)
	}
}

func TestHydrationValidatesPersistedState(t *testing.T) {
	dirty := domain.CartState{
		Items: []domain.CartLine{
			{Product: p1(), Quantity: 2},
			{Product: domain.ProductSnapshot{ID: "", Price: 3}, Quantity: 1},
		},
		TotalItems: 77,
		TotalPrice: 999,
	}
	e := newTestEngine(&stubRemote{}, &stubStore{cart: dirty})

	state := e.State()
	if len(state.Items) != 1 || state.TotalItems != 2 || state.TotalPrice != 20 {
		t.Fatalf("expected self-healed state on hydration, got %+v", state)
	}
}

// Totals stay correct across an arbitrary mix of mutations.
func TestTotalsInvariantAcrossSequence(t *testing.T) {
	rc := &stubRemote{
		addReply:    remote.GuestCart{},
		updateReply: remote.GuestCart{},
		removeReply: remote.GuestCart{},
	}
	resolver := &stubResolver{products: map[string]domain.ProductSnapshot{
		"p1": {ID: "p1", Price: 9.99, Stock: 100},
		"p2": {ID: "p2", Price: 0.10, Stock: 100},
	}}
	e := New(context.Background(), rc, resolver, &stubStore{cart: domain.EmptyCart()}, logDiscard())
	ctx := context.Background()

	checkTotals := func() {
		t.Helper()
		state := e.State()
		items := 0
		cents := 0
		for _, line := range state.Items {
			items += line.Quantity
			cents += int(line.Product.Price*100+0.5) * line.Quantity
		}
		if state.TotalItems != items {
			t.Fatalf("totalItems %d != %d", state.TotalItems, items)
		}
		if int(state.TotalPrice*100+0.5) != cents {
			t.Fatalf("totalPrice %v != %d cents", state.TotalPrice, cents)
		}
	}

	mustAdd(t, e, "p1", 3)
	checkTotals()
	mustAdd(t, e, "p2", 7)
	checkTotals()
	if _, err := e.Update(ctx, "p1", 5); err != nil {
		t.Fatalf("update: %v", err)
	}
	checkTotals()
	if _, err := e.Remove(ctx, "p2"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	checkTotals()
	if _, err := e.Update(ctx, "p1", 0); err != nil {
		t.Fatalf("update to zero: %v", err)
	}
	checkTotals()
}

func mustAdd(t *testing.T, e *Engine, id string, qty int) Result {
	t.Helper()
	res, err := e.Add(context.Background(), id, qty)
	if err != nil {
		t.Fatalf("add %s x%d: %v", id, qty, err)
	}
	return res
}
