package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gokhantonkal0/payda-sub000/internal/api"
)

type stubBackend struct {
	mu sync.Mutex

	pools    []api.PoolPayload
	poolsErr error

	needs    []api.NeedPayload
	needsErr error

	account    *api.Account
	accountErr error

	donations []api.DonationPayload

	stats *api.StatsPayload

	poolCalls int
}

func (b *stubBackend) CouponPools(ctx context.Context) ([]api.PoolPayload, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.poolCalls++
	return b.pools, b.poolsErr
}

func (b *stubBackend) ActiveNeeds(ctx context.Context) ([]api.NeedPayload, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.needs, b.needsErr
}

func (b *stubBackend) User(ctx context.Context, id int64) (*api.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.account, b.accountErr
}

func (b *stubBackend) Donations(ctx context.Context, userID int64) ([]api.DonationPayload, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.donations, nil
}

func (b *stubBackend) PlatformStats(ctx context.Context) (*api.StatsPayload, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stats == nil {
		return &api.StatsPayload{}, nil
	}
	return b.stats, nil
}

func (b *stubBackend) countPoolCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.poolCalls
}

func TestRefreshPools_WholesaleReplaceSortedByScarcity(t *testing.T) {
	backend := &stubBackend{
		pools: []api.PoolPayload{
			{ID: 1, AvailableCoupons: 5, TargetAmount: 100},
			{ID: 2, AvailableCoupons: 0, TargetAmount: 200},
			{ID: 3, AvailableCoupons: 5, TargetAmount: 300},
			{ID: 4, AvailableCoupons: 2, TargetAmount: 400},
		},
	}
	s := NewSynchronizer(backend, zap.NewNop(), 7, 0)

	s.RefreshPools(context.Background())

	pools := s.Pools()
	if len(pools) != 4 {
		t.Fatalf("pools = %d, want 4", len(pools))
	}

	gotOrder := []int64{pools[0].PoolID, pools[1].PoolID, pools[2].PoolID, pools[3].PoolID}
	wantOrder := []int64{2, 4, 1, 3} // дефицитные впереди, равные — в порядке сервера
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("pool order = %v, want %v", gotOrder, wantOrder)
		}
	}

	if pools[0].TargetCents != 20000 {
		t.Fatalf("TargetCents = %d, want 20000", pools[0].TargetCents)
	}
}

func TestRefreshPools_ErrorKeepsLocalState(t *testing.T) {
	backend := &stubBackend{
		pools: []api.PoolPayload{{ID: 1, AvailableCoupons: 3}},
	}
	s := NewSynchronizer(backend, zap.NewNop(), 7, 0)

	s.RefreshPools(context.Background())

	backend.mu.Lock()
	backend.poolsErr = context.DeadlineExceeded
	backend.mu.Unlock()

	s.RefreshPools(context.Background())

	if got := len(s.Pools()); got != 1 {
		t.Fatalf("pools = %d after failed refresh, want previous snapshot kept", got)
	}
}

func TestApplyDonation_PrefersServerEcho(t *testing.T) {
	s := NewSynchronizer(&stubBackend{}, zap.NewNop(), 7, 12050)

	echoed := 70.5
	s.ApplyDonation(&echoed, 5000)

	if got := s.BalanceCents(); got != 7050 {
		t.Fatalf("balance = %d, want 7050 from server echo", got)
	}
}

func TestApplyDonation_FallsBackToLocalDecrement(t *testing.T) {
	s := NewSynchronizer(&stubBackend{}, zap.NewNop(), 7, 12050)

	s.ApplyDonation(nil, 5000)

	if got := s.BalanceCents(); got != 7050 {
		t.Fatalf("balance = %d, want 7050 after local decrement", got)
	}
}

func TestRefreshBalance_ReadsAuthoritativeValue(t *testing.T) {
	backend := &stubBackend{account: &api.Account{ID: 7, Balance: 99.99}}
	s := NewSynchronizer(backend, zap.NewNop(), 7, 0)

	s.RefreshBalance(context.Background())

	if got := s.BalanceCents(); got != 9999 {
		t.Fatalf("balance = %d, want 9999", got)
	}
}

func TestRefreshNeeds_CompletedNeedDroppedFromActiveList(t *testing.T) {
	backend := &stubBackend{
		needs: []api.NeedPayload{
			{ID: 1, Title: "okul çantası", TargetAmount: 200, CurrentAmount: 160, Status: "active"},
		},
	}
	s := NewSynchronizer(backend, zap.NewNop(), 7, 0)

	s.RefreshNeeds(context.Background())
	if got := len(s.Needs()); got != 1 {
		t.Fatalf("needs = %d, want 1", got)
	}

	// Сервер перестаёт отдавать закрытую потребность в активном списке.
	backend.mu.Lock()
	backend.needs = nil
	backend.mu.Unlock()

	s.RefreshNeeds(context.Background())
	if got := len(s.Needs()); got != 0 {
		t.Fatalf("needs = %d, want 0 after completion", got)
	}
}

func TestStart_PollsUntilContextCancelled(t *testing.T) {
	backend := &stubBackend{}
	s := NewSynchronizer(backend, zap.NewNop(), 7, 0,
		WithPoolInterval(20*time.Millisecond),
		WithStatsInterval(time.Hour),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	time.Sleep(90 * time.Millisecond)
	cancel()

	// Даём завершиться возможному тику, начавшемуся до отмены.
	time.Sleep(30 * time.Millisecond)
	polled := backend.countPoolCalls()
	if polled < 2 {
		t.Fatalf("pool calls = %d, want at least initial + ticks", polled)
	}

	time.Sleep(80 * time.Millisecond)
	if after := backend.countPoolCalls(); after != polled {
		t.Fatalf("polling continued after cancellation: %d -> %d", polled, after)
	}
}

func TestAfterDonation_RefreshesTwice(t *testing.T) {
	backend := &stubBackend{}
	s := NewSynchronizer(backend, zap.NewNop(), 7, 0, WithReconcileDelay(20*time.Millisecond))

	s.AfterDonation(context.Background())

	if got := backend.countPoolCalls(); got != 1 {
		t.Fatalf("pool calls = %d immediately, want 1", got)
	}

	time.Sleep(80 * time.Millisecond)

	if got := backend.countPoolCalls(); got != 2 {
		t.Fatalf("pool calls = %d after delay, want 2", got)
	}
}

func TestPoolCompletionReflectedOnNextRefresh(t *testing.T) {
	backend := &stubBackend{
		pools: []api.PoolPayload{
			{ID: 1, TargetAmount: 200, CollectedAmount: 160, AvailableCoupons: 0},
		},
	}
	s := NewSynchronizer(backend, zap.NewNop(), 7, 0)

	s.RefreshPools(context.Background())
	if pool := s.Pools()[0]; pool.Completed || pool.AvailableCoupons != 0 {
		t.Fatalf("pool must stay incomplete below target: %+v", pool)
	}

	// Сервер закрыл пул и материализовал купоны.
	backend.mu.Lock()
	backend.pools = []api.PoolPayload{
		{ID: 1, TargetAmount: 200, CollectedAmount: 200, IsCompleted: true, AvailableCoupons: 2},
	}
	backend.mu.Unlock()

	s.RefreshPools(context.Background())
	pool := s.Pools()[0]
	if !pool.Completed || pool.AvailableCoupons != 2 {
		t.Fatalf("completion must be reflected on next refresh: %+v", pool)
	}
}

var _ Backend = (*api.Client)(nil)

func TestRefreshHistory(t *testing.T) {
	backend := &stubBackend{donations: []api.DonationPayload{
		{ID: 1, Amount: 50, TargetID: 3, Kind: "need"},
		{ID: 2, Amount: 12.75, TargetID: 1, Kind: "pool"},
	}}
	s := NewSynchronizer(backend, zap.NewNop(), 7, 0)

	s.RefreshHistory(context.Background())

	history := s.History()
	if len(history) != 2 {
		t.Fatalf("history = %d, want 2", len(history))
	}
	if history[1].AmountCents != 1275 || history[1].Kind != "pool" {
		t.Fatalf("unexpected history entry: %+v", history[1])
	}
}

func TestStats(t *testing.T) {
	backend := &stubBackend{stats: &api.StatsPayload{TotalDonated: 1000.5, TotalCoupons: 12, ActiveNeeds: 3}}
	s := NewSynchronizer(backend, zap.NewNop(), 7, 0)

	s.RefreshStats(context.Background())

	stats := s.Stats()
	if stats.TotalDonatedCents != 100050 || stats.TotalCoupons != 12 || stats.ActiveNeeds != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
