// Package nav реализует конечный автомат переходов между экранами клиента.
package nav

import (
	"errors"
	"sync"

	"github.com/gokhantonkal0/payda-sub000/internal/model"
	"github.com/gokhantonkal0/payda-sub000/internal/session"
)

// Screen описывает экран клиентского приложения.
type Screen string

const (
	ScreenRoleSelection       Screen = "roleSelection"
	ScreenLogin               Screen = "login"
	ScreenRegister            Screen = "register"
	ScreenDashboard           Screen = "dashboard"
	ScreenAdminVolunteerLogin Screen = "adminVolunteerLogin"
	ScreenAdminPanel          Screen = "adminPanel"
	ScreenDonorApplication    Screen = "donorApplication"
)

// ErrInvalidTransition возвращается для события, не допустимого на текущем экране.
var (
	ErrInvalidTransition = errors.New("event not allowed on current screen")
	// ErrMissingIdentity возвращается при попытке входа в дашборд без валидной личности.
	ErrMissingIdentity = errors.New("identity with id required for dashboard")
	// ErrNotAdminVolunteer возвращается, если вход администратора выполнен обычной личностью.
	ErrNotAdminVolunteer = errors.New("identity is not an admin volunteer")
)

// Event представляет событие, переводящее автомат между экранами.
type Event interface{ isEvent() }

// SelectRole выбирает роль на стартовом экране.
type SelectRole struct{ Role model.Role }

// AdminVolunteerLoginRequested запрашивает экран входа администратора-волонтёра.
type AdminVolunteerLoginRequested struct{}

// RegisterRequested запрашивает переход с экрана входа на регистрацию.
type RegisterRequested struct{}

// LoginSucceeded сообщает об успешном входе с полученной личностью.
type LoginSucceeded struct{ Identity *model.Identity }

// RegisterSucceeded сообщает об успешной регистрации с полученной личностью.
type RegisterSucceeded struct{ Identity *model.Identity }

// RegisterPending сообщает, что регистрация принята, но ждёт одобрения.
// Автомат возвращается на экран входа, не входя в дашборд.
type RegisterPending struct{}

// DonorApplicationRequested запрашивает экран заявки донора.
type DonorApplicationRequested struct{}

// Back возвращает на предыдущий экран потока.
type Back struct{}

// Logout завершает сессию и возвращает на выбор роли.
type Logout struct{}

func (SelectRole) isEvent()                   {}
func (AdminVolunteerLoginRequested) isEvent() {}
func (RegisterRequested) isEvent()            {}
func (LoginSucceeded) isEvent()               {}
func (RegisterSucceeded) isEvent()            {}
func (RegisterPending) isEvent()              {}
func (DonorApplicationRequested) isEvent()    {}
func (Back) isEvent()                         {}
func (Logout) isEvent()                       {}

// Machine хранит текущий экран, выбранную роль и личность пользователя.
// Начальный экран — выбор роли.
type Machine struct {
	mu           sync.Mutex
	screen       Screen
	selectedRole *model.Role
	identity     *model.Identity
}

// NewMachine создаёт автомат на экране выбора роли.
func NewMachine() *Machine {
	return &Machine{screen: ScreenRoleSelection}
}

// Bootstrap выполняет тихое восстановление сессии из хранилища.
// Валидная запись сразу переводит автомат в дашборд, минуя выбор роли;
// битая или отсутствующая запись оставляет автомат на выборе роли.
func (m *Machine) Bootstrap(store *session.Store) *model.Identity {
	identity := store.Load()
	if !identity.Valid() {
		return nil
	}

	m.mu.Lock()
	m.screen = ScreenDashboard
	m.identity = identity
	m.mu.Unlock()

	return identity
}

// Apply применяет событие к автомату. Недопустимое событие или непройденный
// guard оставляют автомат на текущем экране и возвращают ошибку.
func (m *Machine) Apply(event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e := event.(type) {
	case SelectRole:
		if m.screen != ScreenRoleSelection {
			return ErrInvalidTransition
		}
		role := e.Role
		m.selectedRole = &role
		if role == model.RoleVolunteer {
			m.screen = ScreenRegister
		} else {
			m.screen = ScreenLogin
		}
		return nil

	case AdminVolunteerLoginRequested:
		if m.screen != ScreenRoleSelection {
			return ErrInvalidTransition
		}
		m.screen = ScreenAdminVolunteerLogin
		return nil

	case RegisterRequested:
		if m.screen != ScreenLogin {
			return ErrInvalidTransition
		}
		m.screen = ScreenRegister
		return nil

	case LoginSucceeded:
		switch m.screen {
		case ScreenLogin:
			if !e.Identity.Valid() {
				return ErrMissingIdentity
			}
			m.identity = e.Identity
			m.screen = ScreenDashboard
			return nil
		case ScreenAdminVolunteerLogin:
			if !e.Identity.Valid() {
				return ErrMissingIdentity
			}
			if !e.Identity.IsAdminVolunteer {
				return ErrNotAdminVolunteer
			}
			m.identity = e.Identity
			m.screen = ScreenAdminPanel
			return nil
		default:
			return ErrInvalidTransition
		}

	case RegisterSucceeded:
		if m.screen != ScreenRegister {
			return ErrInvalidTransition
		}
		if !e.Identity.Valid() {
			return ErrMissingIdentity
		}
		m.identity = e.Identity
		m.screen = ScreenDashboard
		return nil

	case RegisterPending:
		if m.screen != ScreenRegister {
			return ErrInvalidTransition
		}
		m.screen = ScreenLogin
		return nil

	case DonorApplicationRequested:
		if m.screen != ScreenDashboard && m.screen != ScreenLogin {
			return ErrInvalidTransition
		}
		m.screen = ScreenDonorApplication
		return nil

	case Back:
		switch m.screen {
		case ScreenRegister:
			m.screen = ScreenLogin
			return nil
		case ScreenLogin, ScreenAdminVolunteerLogin:
			m.selectedRole = nil
			m.screen = ScreenRoleSelection
			return nil
		case ScreenDashboard, ScreenAdminPanel, ScreenDonorApplication:
			m.reset()
			return nil
		default:
			return ErrInvalidTransition
		}

	case Logout:
		switch m.screen {
		case ScreenDashboard, ScreenAdminPanel, ScreenDonorApplication:
			m.reset()
			return nil
		default:
			return ErrInvalidTransition
		}
	}

	return ErrInvalidTransition
}

func (m *Machine) reset() {
	m.screen = ScreenRoleSelection
	m.selectedRole = nil
	m.identity = nil
}

// Screen возвращает текущий экран.
func (m *Machine) Screen() Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.screen
}

// SelectedRole возвращает выбранную роль либо nil.
func (m *Machine) SelectedRole() *model.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedRole
}

// Identity возвращает личность текущей сессии либо nil.
func (m *Machine) Identity() *model.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// DashboardReady сообщает, готов ли дашборд к показу. Дашборд без личности —
// это временная заглушка загрузки, а не терминальное состояние.
func (m *Machine) DashboardReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.screen == ScreenDashboard && m.identity.Valid()
}
