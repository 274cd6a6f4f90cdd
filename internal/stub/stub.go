// Package stub реализует локальный заглушечный бэкенд платформы для разработки
// и тестов. Состояние хранится в памяти и не претендует на авторитетность.
package stub

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gokhantonkal0/payda-sub000/internal/model"
)

// User описывает учётную запись заглушки.
type User struct {
	ID               int64
	Username         string
	Password         string
	Name             string
	Role             string
	BalanceCents     int64
	IsAdminVolunteer bool
}

// Need описывает потребность заглушки.
type Need struct {
	ID             int64
	Title          string
	TargetCents    int64
	CollectedCents int64
	Completed      bool
}

// Pool описывает пул купонов заглушки.
type Pool struct {
	ID               int64
	CouponTypeID     int64
	TargetCents      int64
	CollectedCents   int64
	Completed        bool
	AvailableCoupons int
	PotentialCoupons int
}

type donationRecord struct {
	ID       int64   `json:"id"`
	UserID   int64   `json:"-"`
	Amount   float64 `json:"amount"`
	TargetID int64   `json:"target_id"`
	Kind     string  `json:"kind"`
}

// Server хранит состояние заглушечного бэкенда.
type Server struct {
	logger *zap.Logger

	mu        sync.Mutex
	nextID    int64
	users     map[int64]*User
	byLogin   map[string]*User
	needs     map[int64]*Need
	pools     map[int64]*Pool
	donations []donationRecord
}

// NewServer создаёт пустой заглушечный бэкенд.
func NewServer(logger *zap.Logger) *Server {
	return &Server{
		logger:  logger,
		nextID:  1,
		users:   make(map[int64]*User),
		byLogin: make(map[string]*User),
		needs:   make(map[int64]*Need),
		pools:   make(map[int64]*Pool),
	}
}

// SeedUser добавляет учётную запись и возвращает её идентификатор.
func (s *Server) SeedUser(u User) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.ID = s.nextID
	s.nextID++
	stored := u
	s.users[stored.ID] = &stored
	s.byLogin[stored.Username] = &stored
	return stored.ID
}

// SeedNeed добавляет потребность и возвращает её идентификатор.
func (s *Server) SeedNeed(n Need) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	n.ID = s.nextID
	s.nextID++
	stored := n
	s.needs[stored.ID] = &stored
	return stored.ID
}

// SeedPool добавляет пул купонов и возвращает его идентификатор.
func (s *Server) SeedPool(p Pool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID
	s.nextID++
	stored := p
	s.pools[stored.ID] = &stored
	return stored.ID
}

// Router настраивает маршруты заглушечного бэкенда.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Post("/login", s.login)
	r.Post("/admin-volunteer-login", s.adminVolunteerLogin)
	r.Post("/users", s.registerUser)
	r.Post("/beneficiary-registrations", s.acceptApplication)
	r.Post("/volunteer-applications", s.acceptApplication)
	r.Post("/donor-applications", s.acceptApplication)

	r.Get("/needs", s.activeNeeds)
	r.Get("/items", s.couponPools)
	r.Get("/users/{id}", s.user)
	r.Get("/donations", s.userDonations)
	r.Get("/platform-stats", s.platformStats)

	r.Post("/needs/{id}/donate", s.donateToNeed)
	r.Post("/donate", s.donateToPool)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	return r
}

type accountResponse struct {
	ID               int64   `json:"id"`
	Username         string  `json:"username"`
	Name             string  `json:"name"`
	Role             string  `json:"role"`
	Balance          float64 `json:"balance"`
	IsAdminVolunteer bool    `json:"is_admin_volunteer"`
}

func accountFromUser(u *User) accountResponse {
	return accountResponse{
		ID:               u.ID,
		Username:         u.Username,
		Name:             u.Name,
		Role:             u.Role,
		Balance:          float64(u.BalanceCents) / 100,
		IsAdminVolunteer: u.IsAdminVolunteer,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Geçersiz istek")
		return
	}

	s.mu.Lock()
	u, ok := s.byLogin[req.Username]
	s.mu.Unlock()

	if !ok || u.Password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "Hatalı kullanıcı adı veya şifre")
		return
	}

	writeJSON(w, http.StatusOK, accountFromUser(u))
}

func (s *Server) adminVolunteerLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Geçersiz istek")
		return
	}

	s.mu.Lock()
	u, ok := s.byLogin[req.Username]
	s.mu.Unlock()

	if !ok || u.Password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "Hatalı kullanıcı adı veya şifre")
		return
	}
	if !u.IsAdminVolunteer {
		writeDetail(w, http.StatusForbidden, "Bu hesap yönetici gönüllüsü değil")
		return
	}

	writeJSON(w, http.StatusOK, accountFromUser(u))
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Geçersiz istek")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "Kullanıcı adı ve şifre zorunludur")
		return
	}

	s.mu.Lock()
	if _, exists := s.byLogin[req.Username]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusConflict, "Bu kullanıcı adı zaten kayıtlı")
		return
	}

	u := &User{
		ID:       s.nextID,
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	}
	s.nextID++
	s.users[u.ID] = u
	s.byLogin[u.Username] = u
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, accountFromUser(u))
}

func (s *Server) acceptApplication(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
}

type needResponse struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	TargetAmount  float64 `json:"target_amount"`
	CurrentAmount float64 `json:"current_amount"`
	Status        string  `json:"status"`
}

func (s *Server) activeNeeds(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := make([]needResponse, 0, len(s.needs))
	for _, n := range s.needs {
		if n.Completed {
			continue
		}
		resp = append(resp, needResponse{
			ID:            n.ID,
			Title:         n.Title,
			TargetAmount:  float64(n.TargetCents) / 100,
			CurrentAmount: float64(n.CollectedCents) / 100,
			Status:        "active",
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

type poolResponse struct {
	ID               int64   `json:"id"`
	CouponTypeID     int64   `json:"coupon_type_id"`
	TargetAmount     float64 `json:"target_amount"`
	CollectedAmount  float64 `json:"collected_amount"`
	IsCompleted      bool    `json:"is_completed"`
	AvailableCoupons int     `json:"available_coupons"`
	PotentialCoupons int     `json:"potential_coupons"`
}

func (s *Server) couponPools(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := make([]poolResponse, 0, len(s.pools))
	for _, p := range s.pools {
		resp = append(resp, poolResponse{
			ID:               p.ID,
			CouponTypeID:     p.CouponTypeID,
			TargetAmount:     float64(p.TargetCents) / 100,
			CollectedAmount:  float64(p.CollectedCents) / 100,
			IsCompleted:      p.Completed,
			AvailableCoupons: p.AvailableCoupons,
			PotentialCoupons: p.PotentialCoupons,
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) user(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Geçersiz kullanıcı numarası")
		return
	}

	s.mu.Lock()
	u, ok := s.users[id]
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Kullanıcı bulunamadı")
		return
	}

	writeJSON(w, http.StatusOK, accountFromUser(u))
}

func (s *Server) userDonations(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Geçersiz kullanıcı numarası")
		return
	}

	s.mu.Lock()
	resp := make([]donationRecord, 0)
	for _, d := range s.donations {
		if d.UserID == userID {
			resp = append(resp, d)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) platformStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var totalCents int64
	for _, d := range s.donations {
		totalCents += model.ToCents(d.Amount)
	}
	totalCoupons := 0
	for _, p := range s.pools {
		totalCoupons += p.AvailableCoupons
	}
	active := 0
	for _, n := range s.needs {
		if !n.Completed {
			active++
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"total_donated": float64(totalCents) / 100,
		"total_coupons": totalCoupons,
		"active_needs":  active,
	})
}

type donateRequest struct {
	UserID int64   `json:"user_id"`
	ItemID int64   `json:"item_id"`
	Amount float64 `json:"amount"`
}

func (s *Server) donateToNeed(w http.ResponseWriter, r *http.Request) {
	needID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Geçersiz ihtiyaç numarası")
		return
	}

	var req donateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Geçersiz istek")
		return
	}

	amountCents := model.ToCents(req.Amount)
	if amountCents <= 0 {
		writeDetail(w, http.StatusBadRequest, "Bağış tutarı sıfırdan büyük olmalı")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[req.UserID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Kullanıcı bulunamadı")
		return
	}
	n, ok := s.needs[needID]
	if !ok || n.Completed {
		writeDetail(w, http.StatusNotFound, "İhtiyaç bulunamadı")
		return
	}
	if amountCents > u.BalanceCents {
		writeDetail(w, http.StatusPaymentRequired, "Yetersiz bakiye")
		return
	}

	u.BalanceCents -= amountCents
	n.CollectedCents += amountCents
	s.donations = append(s.donations, donationRecord{
		ID: s.nextID, UserID: u.ID, Amount: req.Amount, TargetID: needID, Kind: "need",
	})
	s.nextID++

	completed := n.CollectedCents >= n.TargetCents
	createdCoupons := 0
	if completed {
		n.Completed = true
		createdCoupons = 1
	}

	s.logger.Info("need donation accepted",
		zap.Int64("needID", needID), zap.Int64("userID", u.ID), zap.Bool("completed", completed))

	writeJSON(w, http.StatusOK, map[string]any{
		"status":                "success",
		"donor_balance":         float64(u.BalanceCents) / 100,
		"need_completed":        completed,
		"coupon_created":        completed,
		"created_coupons_count": createdCoupons,
	})
}

func (s *Server) donateToPool(w http.ResponseWriter, r *http.Request) {
	var req donateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Geçersiz istek")
		return
	}

	amountCents := model.ToCents(req.Amount)
	if amountCents <= 0 {
		writeDetail(w, http.StatusBadRequest, "Bağış tutarı sıfırdan büyük olmalı")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[req.UserID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Kullanıcı bulunamadı")
		return
	}
	p, ok := s.pools[req.ItemID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Kupon havuzu bulunamadı")
		return
	}
	if amountCents > u.BalanceCents {
		writeDetail(w, http.StatusPaymentRequired, "Yetersiz bakiye")
		return
	}

	u.BalanceCents -= amountCents
	p.CollectedCents += amountCents
	s.donations = append(s.donations, donationRecord{
		ID: s.nextID, UserID: u.ID, Amount: req.Amount, TargetID: p.ID, Kind: "pool",
	})
	s.nextID++

	created := 0
	if !p.Completed && p.CollectedCents >= p.TargetCents {
		p.Completed = true
		created = p.PotentialCoupons
		if created == 0 {
			created = 1
		}
		p.AvailableCoupons += created
	}

	s.logger.Info("pool donation accepted",
		zap.Int64("poolID", p.ID), zap.Int64("userID", u.ID), zap.Int("createdCoupons", created))

	writeJSON(w, http.StatusOK, map[string]any{
		"status":                "success",
		"user_balance":          float64(u.BalanceCents) / 100,
		"coupon_created":        created > 0,
		"created_coupons_count": created,
	})
}
