package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stayserve/hotel-orders/internal/domain"
	"github.com/stayserve/hotel-orders/internal/http/handlers"
	mw "github.com/stayserve/hotel-orders/internal/http/middleware"
	"github.com/stayserve/hotel-orders/internal/service"
	"github.com/stayserve/hotel-orders/pkg/config"
	"github.com/stayserve/hotel-orders/pkg/token"
)

// ---------- Mocks ----------

type mockAdminRepo struct {
	admins map[int64]*domain.Admin
}

func (m *mockAdminRepo) FindByEmail(_ context.Context, email string) (*domain.Admin, error) {
	for _, a := range m.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockAdminRepo) FindByID(_ context.Context, id int64) (*domain.Admin, error) {
	return m.admins[id], nil
}

func (m *mockAdminRepo) BelongsToHotel(_ context.Context, adminID, hotelID int64) (bool, error) {
	a := m.admins[adminID]
	return a != nil && a.HotelID == hotelID, nil
}

type mockVerifyRepo struct {
	mu      sync.Mutex
	nextID  int64
	records []*domain.AdminVerification
}

func (m *mockVerifyRepo) Create(_ context.Context, adminID int64, passcode string, expiresAt time.Time) (*domain.AdminVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	v := &domain.AdminVerification{
		ID:        m.nextID,
		AdminID:   adminID,
		Passcode:  passcode,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	m.records = append(m.records, v)
	return v, nil
}

func (m *mockVerifyRepo) ConsumeLatestValid(_ context.Context, adminID int64, passcode string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var newest *domain.AdminVerification
	for _, v := range m.records {
		if v.AdminID != adminID || v.Passcode != passcode || v.Used || !v.ExpiresAt.After(time.Now()) {
			continue
		}
		if newest == nil || v.ID > newest.ID {
			newest = v
		}
	}
	if newest == nil {
		return false, nil
	}
	newest.Used = true
	return true, nil
}

func (m *mockVerifyRepo) DeleteStaleUsed(_ context.Context, adminID int64, olderThan time.Duration) (int64, error) {
	return 0, nil
}

type mockGuestRepo struct {
	nextID  int64
	byEmail map[string]*domain.Guest
}

func (m *mockGuestRepo) FindOrCreateByEmail(_ context.Context, email, name string) (*domain.Guest, bool, error) {
	if g, ok := m.byEmail[email]; ok {
		g.Name = name
		return g, false, nil
	}
	m.nextID++
	g := &domain.Guest{ID: m.nextID, Name: name, Email: email}
	m.byEmail[email] = g
	return g, true, nil
}

func (m *mockGuestRepo) FindByID(_ context.Context, id int64) (*domain.Guest, error) {
	for _, g := range m.byEmail {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, nil
}

func (m *mockGuestRepo) HasOrderedAtHotel(_ context.Context, guestID, hotelID int64) (bool, error) {
	return false, nil
}

type mockMailer struct {
	sent []string
}

func (m *mockMailer) SendAdminPasscode(toEmail, toName, passcode string, expiryMinutes int) error {
	m.sent = append(m.sent, passcode)
	return nil
}

type mockPublisher struct{}

func (m *mockPublisher) Publish(_ context.Context, subject string, payload interface{}) error {
	return nil
}

func (m *mockPublisher) Close() error { return nil }

// ---------- Fixture ----------

type fixture struct {
	router *chi.Mux
	tokens *token.Service
	mailer *mockMailer
}

func newFixture() *fixture {
	cfg := &config.Config{
		App: config.AppConfig{Environment: "development"},
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret",
			TokenTTL:       time.Hour,
			PasscodeExpiry: 10 * time.Minute,
			ExposePasscode: true,
		},
	}

	admins := &mockAdminRepo{admins: map[int64]*domain.Admin{
		1: {ID: 1, Name: "Ana", Email: "a@hotel.com", Phone: "+100", HotelID: 7},
	}}
	verifications := &mockVerifyRepo{}
	guests := &mockGuestRepo{byEmail: make(map[string]*domain.Guest)}
	sent := &mockMailer{}

	tokens := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	mfa := service.NewMFAService(admins, verifications, tokens, sent, &mockPublisher{}, cfg)
	guestSvc := service.NewGuestService(guests, tokens, &mockPublisher{})

	h := handlers.New(mfa, guestSvc, cfg)
	guard := mw.NewGuard(tokens, admins, guests)

	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		r.Post("/admin/request-verification", h.RequestVerification)
		r.Post("/admin/verify", h.Verify)
		r.With(guard.RequireAdmin).Get("/admin/me", h.AdminMe)
		r.Post("/guest/login", h.GuestLogin)
		r.With(guard.RequireGuest).Get("/guest/me", h.GuestMe)
	})

	return &fixture{router: r, tokens: tokens, mailer: sent}
}

func (f *fixture) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

// ---------- Tests ----------

func TestAdminLoginFlow(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/auth/admin/request-verification", map[string]string{"email": "a@hotel.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("request-verification = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	passcode, _ := body["passcode"].(string)
	if len(passcode) != domain.PasscodeLength {
		t.Fatalf("passcode = %q, want %d digits in dev mode", passcode, domain.PasscodeLength)
	}
	if body["expiresAt"] == nil {
		t.Error("response is missing expiresAt")
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0] != passcode {
		t.Errorf("mailed passcodes = %v, want the issued one", f.mailer.sent)
	}

	rec = f.post(t, "/auth/admin/verify", map[string]string{"email": "a@hotel.com", "passcode": passcode})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify = %d, body %s", rec.Code, rec.Body.String())
	}
	body = decodeBody(t, rec)
	if body["adminId"] != float64(1) || body["hotelId"] != float64(7) {
		t.Errorf("identity in response = %v/%v, want 1/7", body["adminId"], body["hotelId"])
	}

	signed, _ := body["token"].(string)
	claims := f.tokens.Verify(signed)
	if claims == nil {
		t.Fatal("issued token does not verify")
	}
	if claims.Type != token.PrincipalAdmin || claims.AdminID != 1 || claims.HotelID != 7 {
		t.Errorf("unexpected claims: %+v", claims)
	}

	// The token works against a guarded endpoint
	req := httptest.NewRequest("GET", "/auth/admin/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	me := httptest.NewRecorder()
	f.router.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("GET /auth/admin/me = %d", me.Code)
	}
	profile := decodeBody(t, me)
	admin, _ := profile["admin"].(map[string]interface{})
	if admin == nil || admin["email"] != "a@hotel.com" || admin["hotelId"] != float64(7) {
		t.Errorf("unexpected profile: %v", profile)
	}

	// Single use: replaying the same passcode fails
	rec = f.post(t, "/auth/admin/verify", map[string]string{"email": "a@hotel.com", "passcode": passcode})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("replayed verify = %d, want 401", rec.Code)
	}
}

func TestRequestVerificationUnknownEmail(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/auth/admin/request-verification", map[string]string{"email": "nobody@hotel.com"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRequestVerificationValidation(t *testing.T) {
	f := newFixture()

	for _, body := range []map[string]string{
		{},
		{"email": "not-an-email"},
	} {
		rec := f.post(t, "/auth/admin/request-verification", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("request-verification(%v) = %d, want 400", body, rec.Code)
		}
	}
}

func TestVerifyRejectionsAreUniform(t *testing.T) {
	f := newFixture()

	// Wrong passcode for a real admin, and any passcode for an unknown
	// email, must be indistinguishable.
	known := f.post(t, "/auth/admin/verify", map[string]string{"email": "a@hotel.com", "passcode": "123456"})
	unknown := f.post(t, "/auth/admin/verify", map[string]string{"email": "nobody@hotel.com", "passcode": "123456"})

	for _, rec := range []*httptest.ResponseRecorder{known, unknown} {
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	}
	if known.Body.String() != unknown.Body.String() {
		t.Errorf("rejection bodies differ: %q vs %q", known.Body.String(), unknown.Body.String())
	}
}

func TestVerifyValidation(t *testing.T) {
	f := newFixture()

	// Missing fields, short codes, and non-numeric codes never reach the
	// verification store.
	for _, body := range []map[string]string{
		{"email": "a@hotel.com"},
		{"passcode": "123456"},
		{"email": "a@hotel.com", "passcode": "12345"},
		{"email": "a@hotel.com", "passcode": "12345a"},
	} {
		rec := f.post(t, "/auth/admin/verify", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("verify(%v) = %d, want 400", body, rec.Code)
		}
	}
}

func TestGuestLoginFlow(t *testing.T) {
	f := newFixture()

	rec := f.post(t, "/auth/guest/login", map[string]string{"email": "g@x.com", "name": "Alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("guest login = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	guestID := body["guestId"]
	signed, _ := body["token"].(string)

	claims := f.tokens.Verify(signed)
	if claims == nil || claims.Type != token.PrincipalGuest {
		t.Fatalf("unexpected guest claims: %+v", claims)
	}

	// Same email again: same id, refreshed name
	rec = f.post(t, "/auth/guest/login", map[string]string{"email": "g@x.com", "name": "Alicia"})
	if rec.Code != http.StatusOK {
		t.Fatalf("second guest login = %d", rec.Code)
	}
	if again := decodeBody(t, rec); again["guestId"] != guestID {
		t.Errorf("guest id changed across logins: %v != %v", again["guestId"], guestID)
	}

	req := httptest.NewRequest("GET", "/auth/guest/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	me := httptest.NewRecorder()
	f.router.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("GET /auth/guest/me = %d", me.Code)
	}
	profile := decodeBody(t, me)
	guest, _ := profile["guest"].(map[string]interface{})
	if guest == nil || guest["name"] != "Alicia" {
		t.Errorf("profile shows %v, want refreshed name Alicia", profile)
	}
}

func TestGuestLoginValidation(t *testing.T) {
	f := newFixture()

	for _, body := range []map[string]string{
		{"name": "Alice"},
		{"email": "g@x.com"},
		{"email": "bad", "name": "Alice"},
	} {
		rec := f.post(t, "/auth/guest/login", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("guest login(%v) = %d, want 400", body, rec.Code)
		}
	}
}

func TestMalformedJSONRejected(t *testing.T) {
	f := newFixture()

	for _, path := range []string{
		"/auth/admin/request-verification",
		"/auth/admin/verify",
		"/auth/guest/login",
	} {
		req := httptest.NewRequest("POST", path, bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("POST %s with bad JSON = %d, want 400", path, rec.Code)
		}
	}
}

func TestPasscodeHiddenWhenNotExposed(t *testing.T) {
	f := newFixture()

	// Rebuild with the production posture
	cfg := &config.Config{
		App: config.AppConfig{Environment: "production"},
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret",
			TokenTTL:       time.Hour,
			PasscodeExpiry: 10 * time.Minute,
		},
	}
	admins := &mockAdminRepo{admins: map[int64]*domain.Admin{
		1: {ID: 1, Name: "Ana", Email: "a@hotel.com", HotelID: 7},
	}}
	tokens := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	mfa := service.NewMFAService(admins, &mockVerifyRepo{}, tokens, f.mailer, &mockPublisher{}, cfg)
	h := handlers.New(mfa, nil, cfg)

	raw, _ := json.Marshal(map[string]string{"email": "a@hotel.com"})
	req := httptest.NewRequest("POST", "/auth/admin/request-verification", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	http.HandlerFunc(h.RequestVerification).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, present := decodeBody(t, rec)["passcode"]; present {
		t.Error("passcode leaked in response with exposure disabled")
	}
}
