package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Linanok/Linanok/model"

	"github.com/gorilla/mux"
)

func newAdminRouter(env *testEnv) *mux.Router {
	r := mux.NewRouter()
	h := env.handler
	r.HandleFunc("/api/domains", h.CreateDomain).Methods("POST")
	r.HandleFunc("/api/domains", h.ListDomains).Methods("GET")
	r.HandleFunc("/api/domains/current", h.CreateCurrentDomain).Methods("POST")
	r.HandleFunc("/api/domains/{id:[0-9]+}", h.GetDomain).Methods("GET")
	r.HandleFunc("/api/domains/{id:[0-9]+}", h.UpdateDomain).Methods("PUT")
	r.HandleFunc("/api/domains/{id:[0-9]+}", h.DeleteDomain).Methods("DELETE")
	r.HandleFunc("/api/links", h.CreateLink).Methods("POST")
	r.HandleFunc("/api/links", h.ListLinks).Methods("GET")
	r.HandleFunc("/api/links/{id:[0-9]+}", h.GetLink).Methods("GET")
	r.HandleFunc("/api/links/{id:[0-9]+}", h.UpdateLink).Methods("PUT")
	r.HandleFunc("/api/links/{id:[0-9]+}", h.DeleteLink).Methods("DELETE")
	r.HandleFunc("/api/links/{id:[0-9]+}/visits", h.ListLinkVisits).Methods("GET")
	return r
}

func doJSON(router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "https://admin.example.com"+path, strings.NewReader(body))
	req.Host = "admin.example.com"
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDomainAPI(t *testing.T) {
	env := newTestEnv(t)
	router := newAdminRouter(env)

	rec := doJSON(router, "POST", "/api/domains", `{"host":"example.com","protocol":"https","isAdminPanelAvailable":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created model.Domain
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}

	// Duplicate (protocol, host) pair.
	rec = doJSON(router, "POST", "/api/domains", `{"host":"example.com","protocol":"https","isAdminPanelAvailable":true}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}

	// Invalid protocol.
	rec = doJSON(router, "POST", "/api/domains", `{"host":"x.com","protocol":"ftp"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid protocol status = %d, want 400", rec.Code)
	}

	// Stripping admin availability from the only admin domain is rejected.
	rec = doJSON(router, "PUT", fmt.Sprintf("/api/domains/%d", created.ID),
		`{"host":"example.com","protocol":"https","isAdminPanelAvailable":false}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invariant violation status = %d, want 422", rec.Code)
	}

	// The rejected write left the domain untouched.
	rec = doJSON(router, "GET", fmt.Sprintf("/api/domains/%d", created.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got model.Domain
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if !got.IsAdminPanelAvailable {
		t.Error("rejected update must not persist")
	}
}

func TestCreateCurrentDomain(t *testing.T) {
	env := newTestEnv(t)
	router := newAdminRouter(env)

	rec := doJSON(router, "POST", "/api/domains/current", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created model.Domain
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if created.Host != "admin.example.com" || created.Protocol != model.ProtocolHTTPS {
		t.Errorf("created = %+v, want the request's protocol and host", created)
	}
	if !created.IsActive || !created.IsAdminPanelAvailable {
		t.Error("current domain must come up active with the admin panel available")
	}
}

func TestLinkAPI(t *testing.T) {
	env := newTestEnv(t)
	router := newAdminRouter(env)
	domain := env.createDomain(t, "example.com")

	body := fmt.Sprintf(`{"originalURL":"https://target.com/page","slug":"promo","domainIds":[%d]}`, domain.ID)
	rec := doJSON(router, "POST", "/api/links", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created linkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if created.ShortPath != "promo" {
		t.Errorf("ShortPath = %q, want promo", created.ShortPath)
	}
	if created.ShortURL != "https://example.com/promo" {
		t.Errorf("ShortURL = %q, want https://example.com/promo", created.ShortURL)
	}

	// Missing domains.
	rec = doJSON(router, "POST", "/api/links", `{"originalURL":"https://target.com"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no domains status = %d, want 400", rec.Code)
	}

	// Reserved slug.
	rec = doJSON(router, "POST", "/api/links",
		fmt.Sprintf(`{"originalURL":"https://target.com","slug":"api","domainIds":[%d]}`, domain.ID))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("reserved slug status = %d, want 400", rec.Code)
	}

	// Invalid destination.
	rec = doJSON(router, "POST", "/api/links",
		fmt.Sprintf(`{"originalURL":"ftp://target.com","domainIds":[%d]}`, domain.ID))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid URL status = %d, want 400", rec.Code)
	}

	// Update keeps the short path.
	rec = doJSON(router, "PUT", fmt.Sprintf("/api/links/%d", created.ID),
		fmt.Sprintf(`{"originalURL":"https://target.com/moved","domainIds":[%d]}`, domain.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated linkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if updated.ShortPath != created.ShortPath {
		t.Errorf("ShortPath changed to %q", updated.ShortPath)
	}
	if updated.OriginalURL != "https://target.com/moved" {
		t.Errorf("OriginalURL = %q", updated.OriginalURL)
	}

	// Visits listing starts empty.
	rec = doJSON(router, "GET", fmt.Sprintf("/api/links/%d/visits", created.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("visits status = %d", rec.Code)
	}

	// Delete, then the link is gone.
	rec = doJSON(router, "DELETE", fmt.Sprintf("/api/links/%d", created.ID), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(router, "GET", fmt.Sprintf("/api/links/%d", created.ID), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}
