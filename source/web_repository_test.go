package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestWebRepository(t *testing.T) {
	testData := "primary_color: \"#111111\"\nshow_beta_features: true\n"
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "secret" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(testData))
	}))
	defer testServer.Close()

	u, err := url.Parse(testServer.URL)
	if err != nil {
		t.Fatal(err)
	}

	repo := &WebRepository{URL: u}
	if err := repo.Refresh(context.Background()); err == nil {
		t.Fatal("expected error without api key")
	}

	repo.APIKey = "secret"
	if err := repo.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if string(repo.GetRawData()) != testData {
		t.Errorf("expected %q, got %q", testData, string(repo.GetRawData()))
	}
	if v, ok := repo.GetData("show_beta_features"); !ok || v != true {
		t.Errorf("expected show_beta_features true, got %v", v)
	}
}

func TestWebRepositoryCanceledContext(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("a: b\n"))
	}))
	defer testServer.Close()

	u, _ := url.Parse(testServer.URL)
	repo := &WebRepository{URL: u}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := repo.Refresh(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
