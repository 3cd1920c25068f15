package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Linanok/Linanok/model"
	"github.com/Linanok/Linanok/store"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminAuthProtect(t *testing.T) {
	tests := []struct {
		name       string
		apiKey     string
		superKey   string
		enabled    bool
		headers    map[string]string
		wantStatus int
	}{
		{
			name:       "disabled passes through",
			apiKey:     "secret",
			enabled:    false,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing key",
			apiKey:     "secret",
			enabled:    true,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong key",
			apiKey:     "secret",
			enabled:    true,
			headers:    map[string]string{"X-Admin-Key": "nope"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "valid header key",
			apiKey:     "secret",
			enabled:    true,
			headers:    map[string]string{"X-Admin-Key": "secret"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid bearer key",
			apiKey:     "secret",
			enabled:    true,
			headers:    map[string]string{"Authorization": "Bearer secret"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "super admin key accepted",
			apiKey:     "secret",
			superKey:   "root-secret",
			enabled:    true,
			headers:    map[string]string{"X-Admin-Key": "root-secret"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "no keys configured",
			enabled:    true,
			headers:    map[string]string{"X-Admin-Key": "anything"},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewAdminAuth(tt.apiKey, tt.superKey, tt.enabled)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/api/links", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			auth.Protect(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestAdminAuthMarksSuperAdmin(t *testing.T) {
	auth := NewAdminAuth("secret", "root-secret", true)

	var sawSuperAdmin bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSuperAdmin = IsSuperAdmin(r.Context())
	})

	req := httptest.NewRequest("GET", "/api/links", nil)
	req.Header.Set("X-Admin-Key", "root-secret")
	auth.Protect(inner).ServeHTTP(httptest.NewRecorder(), req)
	if !sawSuperAdmin {
		t.Error("expected super admin flag in context")
	}

	req = httptest.NewRequest("GET", "/api/links", nil)
	req.Header.Set("X-Admin-Key", "secret")
	auth.Protect(inner).ServeHTTP(httptest.NewRecorder(), req)
	if sawSuperAdmin {
		t.Error("regular admin must not carry the super admin flag")
	}
}

type fakeResolver struct {
	domains map[string]*model.Domain
}

func (f *fakeResolver) GetByProtocolHost(_ context.Context, protocol model.Protocol, host string) (*model.Domain, error) {
	d, ok := f.domains[string(protocol)+"://"+host]
	if !ok {
		return nil, store.ErrNotFound
	}
	return d, nil
}

func (f *fakeResolver) Any(_ context.Context) (bool, error) {
	return len(f.domains) > 0, nil
}

func TestAdminAccessGate(t *testing.T) {
	adminDomain := &model.Domain{ID: 1, Host: "admin.example.com", Protocol: model.ProtocolHTTPS, IsActive: true, IsAdminPanelAvailable: true}
	plainDomain := &model.Domain{ID: 2, Host: "short.example.com", Protocol: model.ProtocolHTTPS, IsActive: true}

	tests := []struct {
		name       string
		domains    map[string]*model.Domain
		host       string
		superAdmin bool
		wantStatus int
	}{
		{
			name:       "admin domain allowed",
			domains:    map[string]*model.Domain{"https://admin.example.com": adminDomain},
			host:       "admin.example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "plain domain hidden",
			domains:    map[string]*model.Domain{"https://short.example.com": plainDomain},
			host:       "short.example.com",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown host hidden when domains exist",
			domains:    map[string]*model.Domain{"https://admin.example.com": adminDomain},
			host:       "other.example.com",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "bootstrap with no domains allowed",
			domains:    map[string]*model.Domain{},
			host:       "anything.example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "super admin bypasses gate",
			domains:    map[string]*model.Domain{"https://short.example.com": plainDomain},
			host:       "short.example.com",
			superAdmin: true,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewAdminAccess(&fakeResolver{domains: tt.domains}, false)

			req := httptest.NewRequest("GET", "https://"+tt.host+"/api/links", nil)
			req.Host = tt.host
			if tt.superAdmin {
				req = req.WithContext(context.WithValue(req.Context(), superAdminKey, true))
			}

			rec := httptest.NewRecorder()
			gate.Gate(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, false)

	handler := rl.Limit(okHandler())
	req := httptest.NewRequest("GET", "/abc123", nil)
	req.RemoteAddr = "203.0.113.7:1234"

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 after burst", rec.Code)
	}

	// A different client has its own budget.
	other := httptest.NewRequest("GET", "/abc123", nil)
	other.RemoteAddr = "198.51.100.1:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for a fresh client", rec.Code)
	}
}
