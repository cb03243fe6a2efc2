package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
)

func TestSignupCreatesFundedAccount(t *testing.T) {
	srv := newTestServer(t)

	result := signupAccount(t, srv, "alice")
	if result.Address == "" {
		t.Error("signup returned empty address")
	}
	if result.SecretCode == "" {
		t.Error("signup returned empty secret code")
	}
	if result.Balance != startingBalance {
		t.Errorf("starting balance expected %d, got %d", startingBalance, result.Balance)
	}

	account, err := getAccountByAddress(result.Address)
	if err != nil {
		t.Fatalf("account lookup failed: %v", err)
	}
	if account.Balance != startingBalance {
		t.Errorf("stored balance expected %d, got %d", startingBalance, account.Balance)
	}
}

func TestSignupRejectsDuplicateName(t *testing.T) {
	srv := newTestServer(t)

	signupAccount(t, srv, "alice")

	resp, err := http.PostForm(srv.URL+"/signup", url.Values{"name": {"alice"}})
	if err != nil {
		t.Fatalf("signup request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate signup expected 409, got %d", resp.StatusCode)
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	result := signupAccount(t, srv, "alice")

	resp, err := http.PostForm(srv.URL+"/login", url.Values{
		"name":        {"alice"},
		"secret_code": {result.SecretCode},
	})
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("login decode failed: %v", err)
	}
	if body.Address != result.Address {
		t.Errorf("login address expected %s, got %s", result.Address, body.Address)
	}

	bad, err := http.PostForm(srv.URL+"/login", url.Values{
		"name":        {"alice"},
		"secret_code": {"wrong"},
	})
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login expected 401, got %d", bad.StatusCode)
	}
}

func TestGameEndpointsRequireSession(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/game?id=x", "/events?id=x"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s anonymous expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func authedGet(t *testing.T, srv, path string, cookie *http.Cookie) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv+path, nil)
	if err != nil {
		t.Fatalf("request build failed: %v", err)
	}
	req.AddCookie(cookie)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestGameSnapshotEndpoint(t *testing.T) {
	srv := newTestServer(t)
	alice := signupAccount(t, srv, "alice")

	gameID, err := createGame(alice.Address, 4, 0)
	if err != nil {
		t.Fatalf("createGame failed: %v", err)
	}

	resp := authedGet(t, srv.URL, "/game?id="+gameID, alice.Cookie)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("snapshot expected 200, got %d", resp.StatusCode)
	}

	var snapshot GameSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatalf("snapshot decode failed: %v", err)
	}
	if snapshot.Game.GameID != gameID {
		t.Errorf("snapshot game id expected %s, got %s", gameID, snapshot.Game.GameID)
	}

	missing := authedGet(t, srv.URL, "/game?id=no-such-game", alice.Cookie)
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("unknown game expected 404, got %d", missing.StatusCode)
	}
}

func TestGameQREndpoint(t *testing.T) {
	srv := newTestServer(t)
	alice := signupAccount(t, srv, "alice")

	gameID, err := createGame(alice.Address, 4, 0)
	if err != nil {
		t.Fatalf("createGame failed: %v", err)
	}

	resp, err := http.Get(srv.URL + "/game/qr?id=" + gameID)
	if err != nil {
		t.Fatalf("qr request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("qr expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("qr content type expected image/png, got %s", ct)
	}

	missing, err := http.Get(srv.URL + "/game/qr?id=no-such-game")
	if err != nil {
		t.Fatalf("qr request failed: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("unknown game qr expected 404, got %d", missing.StatusCode)
	}
}
