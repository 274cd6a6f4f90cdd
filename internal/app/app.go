// Package app собирает ядро клиента: сессию, навигацию, синхронизацию и пожертвования.
package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gokhantonkal0/payda-sub000/internal/api"
	"github.com/gokhantonkal0/payda-sub000/internal/donation"
	"github.com/gokhantonkal0/payda-sub000/internal/model"
	"github.com/gokhantonkal0/payda-sub000/internal/nav"
	"github.com/gokhantonkal0/payda-sub000/internal/notify"
	"github.com/gokhantonkal0/payda-sub000/internal/session"
	"github.com/gokhantonkal0/payda-sub000/internal/syncer"
)

// Dashboard объединяет службы одного открытого дашборда.
type Dashboard struct {
	Sync      *syncer.Synchronizer
	Donations *donation.Coordinator
	cancel    context.CancelFunc
}

// App управляет жизненным циклом клиентского ядра.
type App struct {
	logger  *zap.Logger
	client  *api.Client
	store   *session.Store
	machine *nav.Machine
	notes   *notify.Center

	poolInterval  time.Duration
	statsInterval time.Duration

	mu        sync.Mutex
	dashboard *Dashboard
}

// New создаёт приложение с автоматом на экране выбора роли.
func New(logger *zap.Logger, client *api.Client, store *session.Store, notes *notify.Center, poolInterval, statsInterval time.Duration) *App {
	return &App{
		logger:        logger,
		client:        client,
		store:         store,
		machine:       nav.NewMachine(),
		notes:         notes,
		poolInterval:  poolInterval,
		statsInterval: statsInterval,
	}
}

// Machine возвращает навигационный автомат приложения.
func (a *App) Machine() *nav.Machine { return a.machine }

// Notes возвращает центр уведомлений приложения.
func (a *App) Notes() *notify.Center { return a.notes }

// Dashboard возвращает службы открытого дашборда либо nil.
func (a *App) Dashboard() *Dashboard {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dashboard
}

// Bootstrap выполняет тихое восстановление сессии при старте. Валидная запись
// сразу открывает дашборд; битая деградирует к выбору роли без паники.
func (a *App) Bootstrap(ctx context.Context) *model.Identity {
	identity := a.machine.Bootstrap(a.store)
	if identity == nil {
		return nil
	}

	a.openDashboard(identity)
	a.notes.Notify("Tekrar hoş geldiniz", "Oturumunuz geri yüklendi", model.KindInfo, "user-check")

	// Баланс из слота мог устареть, подтягиваем авторитетный.
	if d := a.Dashboard(); d != nil {
		d.Sync.RefreshBalance(ctx)
	}

	return identity
}

func (a *App) identityFromAccount(account *api.Account) *model.Identity {
	return &model.Identity{
		ID:               account.ID,
		DisplayName:      account.DisplayName(),
		Role:             session.TranslateRole(account.Role),
		BalanceCents:     model.ToCents(account.Balance),
		IsAdminVolunteer: account.IsAdminVolunteer,
	}
}

// Login выполняет вход. Неудавшийся запрос оставляет автомат на текущем
// экране, ошибка показывается на месте.
func (a *App) Login(ctx context.Context, username, password string) error {
	account, err := a.client.Login(ctx, username, password)
	if err != nil {
		a.logger.Warn("login failed", zap.Error(err))
		return err
	}

	identity := a.identityFromAccount(account)
	if err := a.machine.Apply(nav.LoginSucceeded{Identity: identity}); err != nil {
		return err
	}

	if err := a.store.Save(identity); err != nil {
		a.logger.Warn("persist session failed", zap.Error(err))
	}

	a.openDashboard(identity)
	return nil
}

// AdminVolunteerLogin выполняет вход администратора-волонтёра.
func (a *App) AdminVolunteerLogin(ctx context.Context, username, password string) error {
	account, err := a.client.AdminVolunteerLogin(ctx, username, password)
	if err != nil {
		a.logger.Warn("admin volunteer login failed", zap.Error(err))
		return err
	}

	identity := a.identityFromAccount(account)
	if err := a.machine.Apply(nav.LoginSucceeded{Identity: identity}); err != nil {
		return err
	}

	if err := a.store.Save(identity); err != nil {
		a.logger.Warn("persist session failed", zap.Error(err))
	}
	return nil
}

// Register регистрирует учётную запись и входит в дашборд.
func (a *App) Register(ctx context.Context, form api.RegistrationForm) error {
	account, err := a.client.RegisterUser(ctx, form)
	if err != nil {
		a.logger.Warn("registration failed", zap.Error(err))
		return err
	}

	identity := a.identityFromAccount(account)
	if err := a.machine.Apply(nav.RegisterSucceeded{Identity: identity}); err != nil {
		return err
	}

	if err := a.store.Save(identity); err != nil {
		a.logger.Warn("persist session failed", zap.Error(err))
	}

	a.openDashboard(identity)
	return nil
}

// RegisterBeneficiary отправляет заявку получателя помощи на одобрение.
// Дашборд не открывается: заявка проходит через проверку администратора,
// автомат возвращается на экран входа.
func (a *App) RegisterBeneficiary(ctx context.Context, form api.RegistrationForm) error {
	if err := a.client.RegisterBeneficiary(ctx, form); err != nil {
		a.logger.Warn("beneficiary registration failed", zap.Error(err))
		return err
	}

	if err := a.machine.Apply(nav.RegisterPending{}); err != nil {
		return err
	}

	a.notes.Notify("Başvuru alındı", "Kaydınız onay bekliyor", model.KindInfo, "clock")
	return nil
}

// SubmitVolunteerApplication отправляет заявку волонтёра на одобрение.
func (a *App) SubmitVolunteerApplication(ctx context.Context, form api.RegistrationForm) error {
	if err := a.client.SubmitVolunteerApplication(ctx, form); err != nil {
		a.logger.Warn("volunteer application failed", zap.Error(err))
		return err
	}

	if err := a.machine.Apply(nav.RegisterPending{}); err != nil {
		return err
	}

	a.notes.Notify("Başvuru alındı", "Gönüllü başvurunuz onay bekliyor", model.KindInfo, "clock")
	return nil
}

// SubmitDonorApplication отправляет заявку донора.
func (a *App) SubmitDonorApplication(ctx context.Context, form api.RegistrationForm) error {
	if err := a.client.SubmitDonorApplication(ctx, form); err != nil {
		a.logger.Warn("donor application failed", zap.Error(err))
		return err
	}

	a.notes.Notify("Başvuru alındı", "Bağışçı başvurunuz onay bekliyor", model.KindInfo, "clock")
	return nil
}

// Logout закрывает дашборд, чистит слот сессии и возвращает выбор роли.
func (a *App) Logout() {
	a.closeDashboard()
	a.store.Clear()

	if err := a.machine.Apply(nav.Logout{}); err != nil {
		a.logger.Warn("logout transition failed", zap.Error(err))
	}
}

// Close останавливает фоновые службы, не очищая слот сессии:
// при следующем старте она восстановится тихо.
func (a *App) Close() {
	a.closeDashboard()
}

func (a *App) openDashboard(identity *model.Identity) {
	a.closeDashboard()

	viewCtx, cancel := context.WithCancel(context.Background())

	syn := syncer.NewSynchronizer(a.client, a.logger, identity.ID, identity.BalanceCents,
		syncer.WithPoolInterval(a.poolInterval),
		syncer.WithStatsInterval(a.statsInterval),
	)
	syn.Start(viewCtx)

	coordinator := donation.NewCoordinator(a.client, syn, a.notes, a.logger, identity.ID)

	a.mu.Lock()
	a.dashboard = &Dashboard{Sync: syn, Donations: coordinator, cancel: cancel}
	a.mu.Unlock()
}

func (a *App) closeDashboard() {
	a.mu.Lock()
	d := a.dashboard
	a.dashboard = nil
	a.mu.Unlock()

	if d != nil {
		d.cancel()
	}
}

// Guard выполняет отрисовку экрана под защитой от паники. Сломанный экран
// деградирует к заглушке, приложение продолжает работать.
func (a *App) Guard(view string, render func()) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("view render panic", zap.String("view", view), zap.Any("panic", r))
		}
	}()
	render()
}
