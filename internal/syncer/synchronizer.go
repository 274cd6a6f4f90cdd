// Package syncer поддерживает локальные баланс и снимки пулов в согласии с сервером.
package syncer

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gokhantonkal0/payda-sub000/internal/api"
	"github.com/gokhantonkal0/payda-sub000/internal/model"
)

// Backend описывает контракт чтения авторитетного состояния, используемый синхронизатором.
type Backend interface {
	CouponPools(ctx context.Context) ([]api.PoolPayload, error)
	ActiveNeeds(ctx context.Context) ([]api.NeedPayload, error)
	User(ctx context.Context, id int64) (*api.Account, error)
	Donations(ctx context.Context, userID int64) ([]api.DonationPayload, error)
	PlatformStats(ctx context.Context) (*api.StatsPayload, error)
}

const (
	defaultPoolInterval   = 3 * time.Second
	defaultStatsInterval  = 30 * time.Second
	defaultReconcileDelay = 300 * time.Millisecond
)

// Synchronizer ведёт локальную копию баланса, пулов и потребностей одного
// дашборда. Авторитетный источник — всегда сервер; локальное состояние лишь
// кеш с ограниченным устареванием в один интервал опроса.
type Synchronizer struct {
	backend Backend
	logger  *zap.Logger
	userID  int64

	mu           sync.RWMutex
	balanceCents int64
	pools        []model.CouponPool
	needs        []model.Need
	history      []model.Donation
	stats        model.PlatformStats

	poolInterval   time.Duration
	statsInterval  time.Duration
	reconcileDelay time.Duration
}

// Option настраивает синхронизатор.
type Option func(*Synchronizer)

// WithPoolInterval задаёт интервал опроса пулов.
func WithPoolInterval(d time.Duration) Option {
	return func(s *Synchronizer) { s.poolInterval = d }
}

// WithStatsInterval задаёт интервал опроса статистики платформы.
func WithStatsInterval(d time.Duration) Option {
	return func(s *Synchronizer) { s.statsInterval = d }
}

// WithReconcileDelay задаёт задержку повторного чтения после пожертвования.
func WithReconcileDelay(d time.Duration) Option {
	return func(s *Synchronizer) { s.reconcileDelay = d }
}

// NewSynchronizer создаёт синхронизатор для пользователя с начальным балансом.
func NewSynchronizer(backend Backend, logger *zap.Logger, userID, balanceCents int64, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		backend:        backend,
		logger:         logger,
		userID:         userID,
		balanceCents:   balanceCents,
		poolInterval:   defaultPoolInterval,
		statsInterval:  defaultStatsInterval,
		reconcileDelay: defaultReconcileDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start запускает фоновый опрос авторитетного состояния. Опрос полностью
// останавливается при отмене контекста владеющего экрана.
func (s *Synchronizer) Start(ctx context.Context) {
	go func() {
		s.RefreshPools(ctx)
		s.RefreshNeeds(ctx)
		s.RefreshStats(ctx)
		s.RefreshHistory(ctx)

		poolTicker := time.NewTicker(s.poolInterval)
		defer poolTicker.Stop()
		statsTicker := time.NewTicker(s.statsInterval)
		defer statsTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-poolTicker.C:
				s.RefreshPools(ctx)
				s.RefreshNeeds(ctx)
			case <-statsTicker.C:
				s.RefreshStats(ctx)
			}
		}
	}()
}

// RefreshPools заменяет локальный список пулов целиком свежим ответом сервера,
// отсортированным по возрастанию доступных купонов (стабильная сортировка:
// самые дефицитные пулы впереди, при равенстве сохраняется порядок сервера).
func (s *Synchronizer) RefreshPools(ctx context.Context) {
	payloads, err := s.backend.CouponPools(ctx)
	if err != nil {
		s.logger.Warn("refresh pools error", zap.Error(err))
		return
	}

	pools := make([]model.CouponPool, 0, len(payloads))
	for _, p := range payloads {
		pools = append(pools, model.CouponPool{
			PoolID:           p.ID,
			CouponTypeID:     p.CouponTypeID,
			TargetCents:      model.ToCents(p.TargetAmount),
			CollectedCents:   model.ToCents(p.CollectedAmount),
			Completed:        p.IsCompleted,
			AvailableCoupons: p.AvailableCoupons,
			PotentialCoupons: p.PotentialCoupons,
		})
	}

	sort.SliceStable(pools, func(i, j int) bool {
		return pools[i].AvailableCoupons < pools[j].AvailableCoupons
	})

	s.mu.Lock()
	s.pools = pools
	s.mu.Unlock()
}

// RefreshNeeds заменяет локальный список активных потребностей целиком.
func (s *Synchronizer) RefreshNeeds(ctx context.Context) {
	payloads, err := s.backend.ActiveNeeds(ctx)
	if err != nil {
		s.logger.Warn("refresh needs error", zap.Error(err))
		return
	}

	needs := make([]model.Need, 0, len(payloads))
	for _, n := range payloads {
		needs = append(needs, model.Need{
			ID:             n.ID,
			Title:          n.Title,
			TargetCents:    model.ToCents(n.TargetAmount),
			CollectedCents: model.ToCents(n.CurrentAmount),
			Completed:      n.Status == "completed",
		})
	}

	s.mu.Lock()
	s.needs = needs
	s.mu.Unlock()
}

// RefreshBalance читает авторитетный баланс пользователя.
func (s *Synchronizer) RefreshBalance(ctx context.Context) {
	account, err := s.backend.User(ctx, s.userID)
	if err != nil {
		s.logger.Warn("refresh balance error", zap.Error(err), zap.Int64("userID", s.userID))
		return
	}

	s.mu.Lock()
	s.balanceCents = model.ToCents(account.Balance)
	s.mu.Unlock()
}

// RefreshStats читает сводную статистику платформы.
func (s *Synchronizer) RefreshStats(ctx context.Context) {
	stats, err := s.backend.PlatformStats(ctx)
	if err != nil {
		s.logger.Warn("refresh stats error", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.stats = model.PlatformStats{
		TotalDonatedCents: model.ToCents(stats.TotalDonated),
		TotalCoupons:      stats.TotalCoupons,
		ActiveNeeds:       stats.ActiveNeeds,
	}
	s.mu.Unlock()
}

// RefreshHistory читает историю пожертвований пользователя.
func (s *Synchronizer) RefreshHistory(ctx context.Context) {
	payloads, err := s.backend.Donations(ctx, s.userID)
	if err != nil {
		s.logger.Warn("refresh history error", zap.Error(err), zap.Int64("userID", s.userID))
		return
	}

	history := make([]model.Donation, 0, len(payloads))
	for _, d := range payloads {
		history = append(history, model.Donation{
			ID:          d.ID,
			AmountCents: model.ToCents(d.Amount),
			TargetID:    d.TargetID,
			Kind:        d.Kind,
			CreatedAt:   d.CreatedAt,
		})
	}

	s.mu.Lock()
	s.history = history
	s.mu.Unlock()
}

// ApplyDonation согласует баланс после подтверждённого пожертвования.
// Предпочитается баланс, возвращённый сервером в ответе: он уже учитывает
// списание, и локальный декремент поверх него задвоил бы сумму. Локальное
// вычитание — только запасной путь при отсутствии эха.
func (s *Synchronizer) ApplyDonation(echoedBalance *float64, amountCents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if echoedBalance != nil {
		s.balanceCents = model.ToCents(*echoedBalance)
		return
	}
	s.balanceCents -= amountCents
}

// AfterDonation перечитывает пулы и потребности сразу и ещё раз с небольшой
// задержкой, чтобы подтянуть материализацию купонов на стороне сервера.
func (s *Synchronizer) AfterDonation(ctx context.Context) {
	s.RefreshPools(ctx)
	s.RefreshNeeds(ctx)

	go func() {
		timer := time.NewTimer(s.reconcileDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.RefreshPools(ctx)
		s.RefreshNeeds(ctx)
	}()
}

// BalanceCents возвращает локально закешированный баланс в курушах.
func (s *Synchronizer) BalanceCents() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balanceCents
}

// Pools возвращает копию локального списка пулов.
func (s *Synchronizer) Pools() []model.CouponPool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.CouponPool, len(s.pools))
	copy(out, s.pools)
	return out
}

// Needs возвращает копию локального списка активных потребностей.
func (s *Synchronizer) Needs() []model.Need {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Need, len(s.needs))
	copy(out, s.needs)
	return out
}

// History возвращает копию истории пожертвований пользователя.
func (s *Synchronizer) History() []model.Donation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Donation, len(s.history))
	copy(out, s.history)
	return out
}

// Stats возвращает последнюю считанную статистику платформы.
func (s *Synchronizer) Stats() model.PlatformStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
