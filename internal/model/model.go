// Package model содержит доменные сущности клиента платформы пожертвований.
package model

import (
	"fmt"
	"time"
)

// Role описывает клиентскую роль пользователя.
type Role string

const (
	RoleSeller    Role = "seller"
	RoleDonor     Role = "donor"
	RoleVolunteer Role = "volunteer"
	RoleUser      Role = "user"
)

// Identity представляет авторизованного пользователя платформы.
// BalanceCents хранит баланс в курушах, чтобы избежать ошибок округления.
type Identity struct {
	ID               int64  `json:"id"`
	DisplayName      string `json:"displayName"`
	Role             Role   `json:"role"`
	BalanceCents     int64  `json:"balanceCents"`
	IsAdminVolunteer bool   `json:"isAdminVolunteer"`
}

// Valid сообщает, пригодна ли запись личности для входа в дашборд.
func (i *Identity) Valid() bool {
	return i != nil && i.ID > 0
}

// CouponPool описывает общий пул пожертвований на купон одного типа.
type CouponPool struct {
	PoolID           int64
	CouponTypeID     int64
	TargetCents      int64
	CollectedCents   int64
	Completed        bool
	AvailableCoupons int
	PotentialCoupons int
}

// Need описывает активную потребность, на которую принимаются пожертвования.
type Need struct {
	ID             int64
	Title          string
	TargetCents    int64
	CollectedCents int64
	Completed      bool
}

// NotificationKind описывает вид уведомления.
type NotificationKind string

const (
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
	KindInfo    NotificationKind = "info"
)

// Notification представляет запись в постоянном списке уведомлений.
type Notification struct {
	ID        string
	Title     string
	Message   string
	Kind      NotificationKind
	Icon      string
	Read      bool
	CreatedAt time.Time
}

// Toast представляет временное всплывающее уведомление.
type Toast struct {
	ID      string
	Title   string
	Message string
	Kind    NotificationKind
	Icon    string
}

// Donation описывает одно пожертвование в истории пользователя.
type Donation struct {
	ID          int64
	AmountCents int64
	TargetID    int64
	Kind        string
	CreatedAt   string
}

// PlatformStats содержит сводную статистику платформы.
type PlatformStats struct {
	TotalDonatedCents int64
	TotalCoupons      int
	ActiveNeeds       int
}

// FormatAmount форматирует сумму в курушах как строку в лирах, например "₺120.50".
func FormatAmount(cents int64) string {
	return fmt.Sprintf("₺%.2f", float64(cents)/100)
}

// ToCents переводит сумму в лирах в куруши с округлением до ближайшего куруша.
func ToCents(amount float64) int64 {
	if amount >= 0 {
		return int64(amount*100 + 0.5)
	}
	return int64(amount*100 - 0.5)
}
