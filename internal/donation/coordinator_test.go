package donation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gokhantonkal0/payda-sub000/internal/api"
	"github.com/gokhantonkal0/payda-sub000/internal/model"
	"github.com/gokhantonkal0/payda-sub000/internal/notify"
)

type stubSubmitter struct {
	mu      sync.Mutex
	calls   int
	result  *api.DonationResult
	err     error
	release chan struct{} // если не nil, запрос блокируется до закрытия
}

func (s *stubSubmitter) donate() (*api.DonationResult, error) {
	s.mu.Lock()
	s.calls++
	release := s.release
	s.mu.Unlock()

	if release != nil {
		<-release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

func (s *stubSubmitter) DonateToNeed(ctx context.Context, needID, userID int64, amount float64) (*api.DonationResult, error) {
	return s.donate()
}

func (s *stubSubmitter) DonateToPool(ctx context.Context, poolID, userID int64, amount float64) (*api.DonationResult, error) {
	return s.donate()
}

func (s *stubSubmitter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeBalances struct {
	mu           sync.Mutex
	balanceCents int64
	applied      []int64
	echoed       []*float64
	refreshes    int
}

func (f *fakeBalances) BalanceCents() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balanceCents
}

func (f *fakeBalances) ApplyDonation(echoedBalance *float64, amountCents int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, amountCents)
	f.echoed = append(f.echoed, echoedBalance)
	if echoedBalance != nil {
		f.balanceCents = model.ToCents(*echoedBalance)
	} else {
		f.balanceCents -= amountCents
	}
}

func (f *fakeBalances) AfterDonation(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
}

func newCoordinator(submitter *stubSubmitter, balances *fakeBalances) (*Coordinator, *notify.Center) {
	notes := notify.NewCenter(notify.WithSuppressWindow(10 * time.Millisecond))
	return NewCoordinator(submitter, balances, notes, zap.NewNop(), 7), notes
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"50", 5000, false},
		{"12.75", 1275, false},
		{"12,75", 1275, false},
		{" 1 ", 100, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"Inf", 0, true},
		{"NaN", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("ParseAmount(%q) err = %v, want ErrInvalidAmount", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseAmount(%q) = (%d, %v), want %d", tt.raw, got, err, tt.want)
		}
	}
}

func TestDonate_InvalidAmountNeverReachesNetwork(t *testing.T) {
	submitter := &stubSubmitter{}
	balances := &fakeBalances{balanceCents: 10000}
	c, _ := newCoordinator(submitter, balances)

	for _, raw := range []string{"abc", "-1", "0", ""} {
		err := c.Donate(context.Background(), TargetPool, 1, raw)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("Donate(%q) err = %v, want ErrInvalidAmount", raw, err)
		}
	}

	if submitter.callCount() != 0 {
		t.Fatalf("network calls = %d, validation errors must resolve locally", submitter.callCount())
	}
	if balances.BalanceCents() != 10000 {
		t.Fatalf("balance changed by invalid donation")
	}
}

func TestDonate_InsufficientBalanceNeverReachesNetwork(t *testing.T) {
	submitter := &stubSubmitter{}
	balances := &fakeBalances{balanceCents: 4000}
	c, _ := newCoordinator(submitter, balances)

	err := c.Donate(context.Background(), TargetNeed, 2, "50")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if submitter.callCount() != 0 {
		t.Fatalf("network calls = %d, want 0", submitter.callCount())
	}
	if balances.BalanceCents() != 4000 {
		t.Fatalf("balance must stay unchanged")
	}
}

func TestDonate_SuccessAppliesEchoAndNotifiesOnce(t *testing.T) {
	echoed := 70.5
	submitter := &stubSubmitter{result: &api.DonationResult{Status: "success", DonorBalance: &echoed}}
	balances := &fakeBalances{balanceCents: 12050}
	c, notes := newCoordinator(submitter, balances)

	c.SetInput(TargetPool, 1, "50")

	if err := c.Donate(context.Background(), TargetPool, 1, "50"); err != nil {
		t.Fatalf("Donate error: %v", err)
	}

	if balances.BalanceCents() != 7050 {
		t.Fatalf("balance = %d, want 7050 from server echo", balances.BalanceCents())
	}
	if balances.refreshes != 1 {
		t.Fatalf("AfterDonation calls = %d, want 1", balances.refreshes)
	}
	if c.Input(TargetPool, 1) != "" {
		t.Fatalf("input must be cleared on success")
	}

	records := notes.Records()
	if len(records) != 1 {
		t.Fatalf("notifications = %d, want exactly 1", len(records))
	}
	if records[0].Kind != model.KindSuccess || records[0].Title != "Bağış alındı" {
		t.Fatalf("unexpected notification: %+v", records[0])
	}
}

func TestDonate_CompletionNotificationIsExclusive(t *testing.T) {
	echoed := 70.0
	submitter := &stubSubmitter{result: &api.DonationResult{
		Status:              "success",
		DonorBalance:        &echoed,
		NeedCompleted:       true,
		CouponCreated:       true,
		CreatedCouponsCount: 1,
	}}
	balances := &fakeBalances{balanceCents: 12000}
	c, notes := newCoordinator(submitter, balances)

	if err := c.Donate(context.Background(), TargetNeed, 3, "50"); err != nil {
		t.Fatalf("Donate error: %v", err)
	}

	records := notes.Records()
	if len(records) != 1 {
		t.Fatalf("notifications = %d, want 1 (completion replaces the generic one)", len(records))
	}
	if records[0].Title != "İhtiyaç tamamlandı" {
		t.Fatalf("title = %q, want completion notification", records[0].Title)
	}
}

func TestDonate_FailureKeepsBalanceAndRaisesErrorNotification(t *testing.T) {
	submitter := &stubSubmitter{err: &api.ServerError{StatusCode: 402, Detail: "Yetersiz bakiye"}}
	balances := &fakeBalances{balanceCents: 12050}
	c, notes := newCoordinator(submitter, balances)

	err := c.Donate(context.Background(), TargetPool, 1, "50")
	if err == nil {
		t.Fatalf("expected error from server rejection")
	}

	if len(balances.applied) != 0 {
		t.Fatalf("balance must not be touched before success confirmation")
	}

	records := notes.Records()
	if len(records) != 1 || records[0].Kind != model.KindError {
		t.Fatalf("expected one error notification, got %+v", records)
	}
	if !strings.Contains(records[0].Message, "Yetersiz bakiye") {
		t.Fatalf("error notification must carry server detail, got %q", records[0].Message)
	}
}

func TestDonate_SameTargetBlockedOtherTargetIndependent(t *testing.T) {
	release := make(chan struct{})
	echoed := 100.0
	slow := &stubSubmitter{result: &api.DonationResult{DonorBalance: &echoed}, release: release}
	balances := &fakeBalances{balanceCents: 100000}
	c, _ := newCoordinator(slow, balances)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- c.Donate(context.Background(), TargetPool, 1, "50")
	}()

	// Ждём, пока первый запрос займёт адресат.
	deadline := time.After(time.Second)
	for !c.InFlight(TargetPool, 1) {
		select {
		case <-deadline:
			t.Fatalf("first donation never became in flight")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := c.Donate(context.Background(), TargetPool, 1, "30"); !errors.Is(err, ErrDonationInFlight) {
		t.Fatalf("second donation to same target: err = %v, want ErrDonationInFlight", err)
	}

	// Другой адресат принимается независимо.
	done2 := make(chan error, 1)
	go func() {
		done2 <- c.Donate(context.Background(), TargetPool, 2, "30")
	}()

	close(release)

	if err := <-firstDone; err != nil {
		t.Fatalf("first donation error: %v", err)
	}
	if err := <-done2; err != nil {
		t.Fatalf("donation to different target error: %v", err)
	}

	// Замок снят: адресат снова принимает пожертвования.
	if c.InFlight(TargetPool, 1) {
		t.Fatalf("in-flight flag must be cleared after completion")
	}
}
