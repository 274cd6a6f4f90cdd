// Package api предоставляет HTTP-клиент бэкенда платформы пожертвований.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Client инкапсулирует HTTP-взаимодействие с бэкендом платформы.
// Читающие запросы выполняются с повторами на временных сетевых сбоях,
// изменяющие — строго один раз, чтобы не задвоить пожертвование.
type Client struct {
	baseURL     string
	readClient  *http.Client
	writeClient *http.Client
}

// NewClient создаёт клиент бэкенда по указанному адресу.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	retrying := retryablehttp.NewClient()
	retrying.RetryMax = 2
	retrying.RetryWaitMin = 200 * time.Millisecond
	retrying.RetryWaitMax = time.Second
	retrying.Logger = nil
	retrying.HTTPClient.Timeout = timeout

	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL:     base,
		readClient:  retrying.StandardClient(),
		writeClient: &http.Client{Timeout: timeout},
	}
}

// Account описывает учётную запись в серверном словаре ролей.
type Account struct {
	ID               int64   `json:"id"`
	Username         string  `json:"username"`
	Name             string  `json:"name"`
	Role             string  `json:"role"`
	Balance          float64 `json:"balance"`
	IsAdminVolunteer bool    `json:"is_admin_volunteer"`
}

// DisplayName возвращает отображаемое имя учётной записи.
func (a *Account) DisplayName() string {
	if a.Username != "" {
		return a.Username
	}
	return a.Name
}

// NeedPayload описывает активную потребность в ответе сервера.
type NeedPayload struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	TargetAmount  float64 `json:"target_amount"`
	CurrentAmount float64 `json:"current_amount"`
	Status        string  `json:"status"`
}

// PoolPayload описывает снимок пула купонов в ответе сервера.
type PoolPayload struct {
	ID               int64   `json:"id"`
	CouponTypeID     int64   `json:"coupon_type_id"`
	TargetAmount     float64 `json:"target_amount"`
	CollectedAmount  float64 `json:"collected_amount"`
	IsCompleted      bool    `json:"is_completed"`
	AvailableCoupons int     `json:"available_coupons"`
	PotentialCoupons int     `json:"potential_coupons"`
}

// DonationResult описывает ответ сервера на пожертвование.
type DonationResult struct {
	Status              string   `json:"status"`
	DonorBalance        *float64 `json:"donor_balance,omitempty"`
	UserBalance         *float64 `json:"user_balance,omitempty"`
	NeedCompleted       bool     `json:"need_completed,omitempty"`
	CouponCreated       bool     `json:"coupon_created,omitempty"`
	CreatedCouponsCount int      `json:"created_coupons_count,omitempty"`
}

// EchoedBalance возвращает подтверждённый сервером баланс после пожертвования,
// если сервер его вернул.
func (r *DonationResult) EchoedBalance() *float64 {
	if r.DonorBalance != nil {
		return r.DonorBalance
	}
	return r.UserBalance
}

// DonationPayload описывает одно пожертвование в истории пользователя.
type DonationPayload struct {
	ID        int64   `json:"id"`
	Amount    float64 `json:"amount"`
	TargetID  int64   `json:"target_id"`
	Kind      string  `json:"kind"`
	CreatedAt string  `json:"created_at"`
}

// StatsPayload описывает сводную статистику платформы.
type StatsPayload struct {
	TotalDonated float64 `json:"total_donated"`
	TotalCoupons int     `json:"total_coupons"`
	ActiveNeeds  int     `json:"active_needs"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegistrationForm содержит поля форм регистрации и заявок.
type RegistrationForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	Contact  string `json:"contact,omitempty"`
	Motive   string `json:"motive,omitempty"`
}

// Login выполняет вход пользователя.
func (c *Client) Login(ctx context.Context, username, password string) (*Account, error) {
	var account Account
	err := c.postJSON(ctx, "/login", credentials{Username: username, Password: password}, &account)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// AdminVolunteerLogin выполняет вход администратора-волонтёра.
func (c *Client) AdminVolunteerLogin(ctx context.Context, username, password string) (*Account, error) {
	var account Account
	err := c.postJSON(ctx, "/admin-volunteer-login", credentials{Username: username, Password: password}, &account)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// RegisterUser регистрирует новую учётную запись.
func (c *Client) RegisterUser(ctx context.Context, form RegistrationForm) (*Account, error) {
	var account Account
	if err := c.postJSON(ctx, "/users", form, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// RegisterBeneficiary отправляет заявку получателя помощи на одобрение.
func (c *Client) RegisterBeneficiary(ctx context.Context, form RegistrationForm) error {
	return c.postJSON(ctx, "/beneficiary-registrations", form, nil)
}

// SubmitVolunteerApplication отправляет заявку волонтёра.
func (c *Client) SubmitVolunteerApplication(ctx context.Context, form RegistrationForm) error {
	return c.postJSON(ctx, "/volunteer-applications", form, nil)
}

// SubmitDonorApplication отправляет заявку донора.
func (c *Client) SubmitDonorApplication(ctx context.Context, form RegistrationForm) error {
	return c.postJSON(ctx, "/donor-applications", form, nil)
}

// ActiveNeeds возвращает список активных потребностей.
func (c *Client) ActiveNeeds(ctx context.Context) ([]NeedPayload, error) {
	var needs []NeedPayload
	if err := c.getJSON(ctx, "/needs?status=active", &needs); err != nil {
		return nil, err
	}
	return needs, nil
}

// CouponPools возвращает снимки пулов купонов.
func (c *Client) CouponPools(ctx context.Context) ([]PoolPayload, error) {
	var pools []PoolPayload
	if err := c.getJSON(ctx, "/items", &pools); err != nil {
		return nil, err
	}
	return pools, nil
}

// User возвращает учётную запись по идентификатору. Используется для
// актуализации баланса.
func (c *Client) User(ctx context.Context, id int64) (*Account, error) {
	var account Account
	if err := c.getJSON(ctx, fmt.Sprintf("/users/%d", id), &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Donations возвращает историю пожертвований пользователя.
func (c *Client) Donations(ctx context.Context, userID int64) ([]DonationPayload, error) {
	var donations []DonationPayload
	if err := c.getJSON(ctx, fmt.Sprintf("/donations?user_id=%d", userID), &donations); err != nil {
		return nil, err
	}
	return donations, nil
}

// PlatformStats возвращает сводную статистику платформы.
func (c *Client) PlatformStats(ctx context.Context) (*StatsPayload, error) {
	var stats StatsPayload
	if err := c.getJSON(ctx, "/platform-stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

type donateRequest struct {
	UserID int64   `json:"user_id"`
	ItemID int64   `json:"item_id,omitempty"`
	Amount float64 `json:"amount"`
}

// DonateToNeed отправляет пожертвование на конкретную потребность.
func (c *Client) DonateToNeed(ctx context.Context, needID, userID int64, amount float64) (*DonationResult, error) {
	var result DonationResult
	req := donateRequest{UserID: userID, Amount: amount}
	if err := c.postJSON(ctx, fmt.Sprintf("/needs/%d/donate", needID), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DonateToPool отправляет пожертвование в общий пул купонов.
func (c *Client) DonateToPool(ctx context.Context, poolID, userID int64, amount float64) (*DonationResult, error) {
	var result DonationResult
	req := donateRequest{UserID: userID, ItemID: poolID, Amount: amount}
	if err := c.postJSON(ctx, "/donate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping проверяет доступность бэкенда.
func (c *Client) Ping(ctx context.Context) error {
	var pools []PoolPayload
	return c.getJSON(ctx, "/items", &pools)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(c.readClient, req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(c.writeClient, req, out)
}

func (c *Client) do(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeServerError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func decodeServerError(resp *http.Response) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	// Тело отказа может быть и не JSON, тогда остаёмся без detail.
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &payload)

	return &ServerError{
		StatusCode: resp.StatusCode,
		Detail:     payload.Detail,
	}
}
