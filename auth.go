package main

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

func checkAuth(r *http.Request, token string) bool {
	if token == "" {
		return true // No auth configured
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if tokenEqual(strings.TrimPrefix(auth, "Bearer "), token) {
			return true
		}
	}

	// Browsers opening /preview or a WebSocket cannot set headers.
	return tokenEqual(r.URL.Query().Get("token"), token)
}

func tokenEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
