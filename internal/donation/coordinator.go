// Package donation реализует проведение пожертвования с оптимистичным согласованием.
package donation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/gokhantonkal0/payda-sub000/internal/api"
	"github.com/gokhantonkal0/payda-sub000/internal/model"
	"github.com/gokhantonkal0/payda-sub000/internal/notify"
)

// TargetKind различает адресата пожертвования: потребность или пул купонов.
type TargetKind string

const (
	TargetNeed TargetKind = "need"
	TargetPool TargetKind = "pool"
)

// ErrInvalidAmount возвращается для суммы, не являющейся конечным числом больше нуля.
var (
	ErrInvalidAmount = errors.New("amount must be a finite number greater than zero")
	// ErrInsufficientBalance возвращается, когда сумма превышает локальный баланс.
	// Это только подсказка интерфейса, авторитетная проверка — на сервере.
	ErrInsufficientBalance = errors.New("amount exceeds cached balance")
	// ErrDonationInFlight возвращается при повторной отправке на тот же адресат
	// до завершения предыдущей.
	ErrDonationInFlight = errors.New("donation to this target already in flight")
)

// Submitter описывает контракт отправки пожертвований на сервер.
type Submitter interface {
	DonateToNeed(ctx context.Context, needID, userID int64, amount float64) (*api.DonationResult, error)
	DonateToPool(ctx context.Context, poolID, userID int64, amount float64) (*api.DonationResult, error)
}

// Balances описывает часть синхронизатора, нужную координатору.
type Balances interface {
	BalanceCents() int64
	ApplyDonation(echoedBalance *float64, amountCents int64)
	AfterDonation(ctx context.Context)
}

// Coordinator проверяет, отправляет и согласует пожертвования одного дашборда.
type Coordinator struct {
	backend Submitter
	sync    Balances
	notes   *notify.Center
	logger  *zap.Logger
	userID  int64

	mu       sync.Mutex
	inflight map[string]bool
	inputs   map[string]string
}

// NewCoordinator создаёт координатор пожертвований для пользователя.
func NewCoordinator(backend Submitter, sync Balances, notes *notify.Center, logger *zap.Logger, userID int64) *Coordinator {
	return &Coordinator{
		backend:  backend,
		sync:     sync,
		notes:    notes,
		logger:   logger,
		userID:   userID,
		inflight: make(map[string]bool),
		inputs:   make(map[string]string),
	}
}

func targetKey(kind TargetKind, targetID int64) string {
	return fmt.Sprintf("%s:%d", kind, targetID)
}

// SetInput сохраняет введённую сумму для адресата. Очищается при успехе.
func (c *Coordinator) SetInput(kind TargetKind, targetID int64, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs[targetKey(kind, targetID)] = value
}

// Input возвращает сохранённую введённую сумму для адресата.
func (c *Coordinator) Input(kind TargetKind, targetID int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputs[targetKey(kind, targetID)]
}

// InFlight сообщает, выполняется ли сейчас пожертвование на адресат.
// Интерфейс отключает действие адресата, пока запрос не завершится.
func (c *Coordinator) InFlight(kind TargetKind, targetID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[targetKey(kind, targetID)]
}

// ParseAmount разбирает введённую сумму в куруши. Принимает и запятую
// в роли десятичного разделителя.
func ParseAmount(raw string) (int64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, ErrInvalidAmount
	}

	cents := model.ToCents(value)
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// Donate проверяет и отправляет пожертвование на указанный адресат.
// Ошибки валидации разрешаются локально и не доходят до сети; баланс
// изменяется только после подтверждения сервера. Уведомление об исходе
// поднимается ровно из одного места.
func (c *Coordinator) Donate(ctx context.Context, kind TargetKind, targetID int64, amount string) error {
	amountCents, err := ParseAmount(amount)
	if err != nil {
		return err
	}

	if amountCents > c.sync.BalanceCents() {
		return ErrInsufficientBalance
	}

	key := targetKey(kind, targetID)

	c.mu.Lock()
	if c.inflight[key] {
		c.mu.Unlock()
		return ErrDonationInFlight
	}
	c.inflight[key] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}()

	amountLira := float64(amountCents) / 100

	var result *api.DonationResult
	switch kind {
	case TargetPool:
		result, err = c.backend.DonateToPool(ctx, targetID, c.userID, amountLira)
	default:
		result, err = c.backend.DonateToNeed(ctx, targetID, c.userID, amountLira)
	}

	if err != nil {
		c.logger.Error("donation failed", zap.Error(err),
			zap.String("target", key), zap.Int64("userID", c.userID))
		c.notes.Notify("Bağış başarısız", api.UserMessage(err), model.KindError, "alert-circle")
		return err
	}

	c.mu.Lock()
	delete(c.inputs, key)
	c.mu.Unlock()

	c.sync.ApplyDonation(result.EchoedBalance(), amountCents)
	c.sync.AfterDonation(ctx)

	if result.NeedCompleted && result.CouponCreated {
		c.notes.Notify(
			"İhtiyaç tamamlandı",
			fmt.Sprintf("Bağışınızla hedefe ulaşıldı, %d kupon oluşturuldu", result.CreatedCouponsCount),
			model.KindSuccess, "gift",
		)
		return nil
	}

	c.notes.Notify(
		"Bağış alındı",
		fmt.Sprintf("%s bağışınız için teşekkürler", model.FormatAmount(amountCents)),
		model.KindSuccess, "heart",
	)
	return nil
}
