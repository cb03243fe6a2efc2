package main

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"log"
	"math/big"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

const sessionCookieName = "mafia_session"

// startingBalance is credited to every new account so it can pay entry fees.
// Set from config at startup.
var startingBalance int64 = 1000

func generateSecretCode() (string, error) {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func setSessionCookie(w http.ResponseWriter, address string) {
	tokenBig, _ := rand.Int(rand.Reader, big.NewInt(1<<62))
	token := tokenBig.Int64()

	db.Exec("INSERT INTO session (token, address) VALUES (?, ?)", token, address)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    strconv.FormatInt(token, 10),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// getAddressFromSession resolves the signer identity for a request.
func getAddressFromSession(r *http.Request) (string, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", err
	}

	token, err := strconv.ParseInt(cookie.Value, 10, 64)
	if err != nil {
		return "", err
	}

	var address string
	err = db.Get(&address, "SELECT address FROM session WHERE token = ?", token)
	if err != nil {
		return "", err
	}

	return address, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.FormValue("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	var existing Account
	err := db.Get(&existing, "SELECT rowid as id, address, name, secret_code, balance FROM account WHERE name = ?", name)
	if err == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "name already taken, log in with your secret code"})
		return
	}
	if err != sql.ErrNoRows {
		logError("handleSignup: db.Get account", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "something went wrong"})
		return
	}

	secretCode, err := generateSecretCode()
	if err != nil {
		logError("handleSignup: generateSecretCode", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "something went wrong"})
		return
	}

	address := uuid.NewString()
	_, err = db.Exec("INSERT INTO account (address, name, secret_code, balance) VALUES (?, ?, ?, ?)",
		address, name, secretCode, startingBalance)
	if err != nil {
		logError("handleSignup: db.Exec insert account", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "something went wrong"})
		return
	}

	log.Printf("New account created: name='%s', address=%s", name, address)
	DebugLog("handleSignup", "Account '%s' signed up with address %s", name, address)
	LogDBState("after signup: " + name)

	setSessionCookie(w, address)
	writeJSON(w, http.StatusOK, map[string]any{
		"address":     address,
		"secret_code": secretCode,
		"balance":     startingBalance,
	})
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.FormValue("name")
	secretCode := r.FormValue("secret_code")

	if name == "" || secretCode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and secret code are required"})
		return
	}

	var account Account
	err := db.Get(&account, "SELECT rowid as id, address, name, secret_code, balance FROM account WHERE name = ? AND secret_code = ?", name, secretCode)
	if err == sql.ErrNoRows {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid name or secret code"})
		return
	}
	if err != nil {
		logError("handleLogin: db.Get account", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "something went wrong"})
		return
	}

	log.Printf("Account logged in: name='%s', address=%s", name, account.Address)
	DebugLog("handleLogin", "Account '%s' logged in with address %s", name, account.Address)
	setSessionCookie(w, account.Address)
	writeJSON(w, http.StatusOK, map[string]any{
		"address": account.Address,
		"balance": account.Balance,
	})
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	address, _ := getAddressFromSession(r)

	cookie, err := r.Cookie(sessionCookieName)
	if err == nil {
		token, _ := strconv.ParseInt(cookie.Value, 10, 64)
		db.Exec("DELETE FROM session WHERE token = ?", token)
	}

	log.Printf("Account logged out: address=%s", address)
	DebugLog("handleLogout", "Account %s logged out", address)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
