package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
)

func TestGlobalAddress_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("203.0.113.7\n"))
	}))
	defer srv.Close()

	p := newProber(logr.Discard(), srv.URL, time.Second)
	assert.Equal(t, "203.0.113.7", p.globalAddress(context.Background()))
}

func TestGlobalAddress_ServerErrorIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newProber(logr.Discard(), srv.URL, time.Second)
	assert.Empty(t, p.globalAddress(context.Background()))
}

func TestGlobalAddress_TimeoutIsAbsent(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := newProber(logr.Discard(), srv.URL, 50*time.Millisecond)
	start := time.Now()
	assert.Empty(t, p.globalAddress(context.Background()))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGlobalAddress_UnreachableIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := newProber(logr.Discard(), url, time.Second)
	assert.Empty(t, p.globalAddress(context.Background()))
}
