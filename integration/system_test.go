//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")

// Run against a card service backed by sqlite, redis or postgres. With
// E2E_RESTART_CARD=1 the container is restarted mid-test and the cart must
// come back from storage.
func TestSystem_E2E_CartSurvivesRestart(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	var session struct {
		Token string `json:"token"`
	}
	doJSON(t, http.MethodPost, baseURL+"/session", "", nil, &session, http.StatusCreated)
	if session.Token == "" {
		t.Fatalf("empty token")
	}
	tok := session.Token

	var products []map[string]any
	doJSON(t, http.MethodGet, baseURL+"/products", "", nil, &products, http.StatusOK)
	if len(products) == 0 {
		t.Fatalf("expected non-empty products")
	}
	pid, _ := products[0]["id"].(string)
	name, _ := products[0]["name"].(string)
	if pid == "" || name == "" {
		t.Fatalf("product missing fields: %#v", products[0])
	}

	for i := 0; i < 2; i++ {
		doJSON(t, http.MethodPost, baseURL+"/cart/items", tok, map[string]any{"product_id": pid}, nil, http.StatusOK)
	}
	doJSON(t, http.MethodPost, baseURL+"/prefs/theme/toggle", tok, nil, nil, http.StatusOK)

	if os.Getenv("E2E_RESTART_CARD") == "1" {
		restartCardContainer(t, ctx)
		waitReady(t, ctx, baseURL+"/readyz")
	}

	var card struct {
		Cart struct {
			TotalItems int `json:"total_items"`
		} `json:"cart"`
		Prefs struct {
			DarkMode bool `json:"dark_mode"`
		} `json:"prefs"`
	}
	doJSON(t, http.MethodGet, baseURL+"/card?product_id="+url.QueryEscape(pid), tok, nil, &card, http.StatusOK)
	if card.Cart.TotalItems != 2 || !card.Prefs.DarkMode {
		t.Fatalf("card after restart: %+v", card)
	}

	doJSON(t, http.MethodDelete, baseURL+"/cart/items/"+url.PathEscape(name), tok, nil, nil, http.StatusOK)
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == http.StatusOK {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, target, token string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, target, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, target, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
