package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mouralws/internal/domain"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/scanner"
)

func TestAPIClient_PostRead(t *testing.T) {
	var gotPath, gotAuth, gotCode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		gotCode = body["code"]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL+"/", "tok")
	require.NoError(t, c.PostRead(context.Background(), Target{CountID: "c-1"}, "LWS-1"))

	assert.Equal(t, "/v1/counts/c-1/reads", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "LWS-1", gotCode)
}

func TestAPIClient_PostRead_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(domain.ErrorResponse{Code: 409, Category: "CONFLICT", Message: "Etiqueta já utilizada."})
	}))
	defer srv.Close()

	err := NewAPIClient(srv.URL, "").PostRead(context.Background(), Target{ReceivingID: "r-1"}, "LWS-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "CONFLICT", apiErr.Category)
}

func TestAPIClient_PostRead_NoTarget(t *testing.T) {
	c := NewAPIClient("http://127.0.0.1:1", "")
	assert.NoError(t, c.PostRead(context.Background(), Target{}, "x"))
	assert.Error(t, c.PostRead(context.Background(), Target{CountID: "a", ReceivingID: "b"}, "x"))
}

func TestAPIClient_ResolveLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/labels/resolve", r.URL.Path)
		assert.Equal(t, "LWS-9", r.URL.Query().Get("code"))
		json.NewEncoder(w).Encode(domain.ResolvedLabel{Variant: domain.VariantSummary{ProductName: "Bateria 60Ah", Attribute: "Cor", Value: "Preta"}})
	}))
	defer srv.Close()

	label, err := NewAPIClient(srv.URL, "").ResolveLabel(context.Background(), "LWS-9")
	require.NoError(t, err)
	assert.Equal(t, "Bateria 60Ah - Cor: Preta", label)
}

func TestParseFlags(t *testing.T) {
	t.Setenv("LWS_MODE", "single")

	o, err := parseFlags(flag.NewFlagSet("scanner", flag.ContinueOnError), []string{"-source", "./capturas", "-count", "c-1", "-api", "http://api"})
	require.NoError(t, err)
	assert.Equal(t, "single", o.mode)
	assert.Equal(t, scanner.DefaultCooldown, o.cooldown)
	assert.Equal(t, "c-1", o.target.CountID)
	assert.IsType(t, scanner.ImageSequenceSource{}, newSource(o))

	o.source = "http://camera/snapshot.jpg"
	assert.IsType(t, scanner.HTTPSnapshotSource{}, newSource(o))
}

func TestParseFlags_Invalid(t *testing.T) {
	newFS := func() *flag.FlagSet {
		fs := flag.NewFlagSet("scanner", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		return fs
	}

	_, err := parseFlags(newFS(), nil)
	assert.Error(t, err)

	_, err = parseFlags(newFS(), []string{"-source", "x", "-mode", "burst"})
	assert.Error(t, err)

	_, err = parseFlags(newFS(), []string{"-source", "x", "-count", "c-1"})
	assert.Error(t, err)
}

func TestStation_ForwardsReads(t *testing.T) {
	var mu sync.Mutex
	var codes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		codes = append(codes, body["code"])
		mu.Unlock()
	}))
	defer srv.Close()

	s := newStation(NewAPIClient(srv.URL, ""), Target{CountID: "c-1"}, logger.Nop())
	s.start()

	s.onRead("7891234567890")
	s.onRead("LWS-2")
	s.shutdown(time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"7891234567890", "LWS-2"}, codes)
}

func TestStation_ShutdownDeliversInFlightReads(t *testing.T) {
	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	var mu sync.Mutex
	var codes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		entered <- struct{}{}
		<-release
		mu.Lock()
		codes = append(codes, body["code"])
		mu.Unlock()
	}))
	defer srv.Close()

	s := newStation(NewAPIClient(srv.URL, ""), Target{ReceivingID: "r-1"}, logger.Nop())
	s.start()
	s.onRead("LWS-1")
	s.onRead("LWS-2")
	<-entered

	// Encerramento com LWS-1 em voo e LWS-2 na fila.
	done := make(chan struct{})
	go func() {
		s.shutdown(5 * time.Second)
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("shutdown retornou com envios pendentes")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown não retornou após os envios")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"LWS-1", "LWS-2"}, codes)
}

func TestStation_ShutdownGivesUpAfterTimeout(t *testing.T) {
	aborted := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		close(aborted)
	}))
	defer srv.Close()

	s := newStation(NewAPIClient(srv.URL, ""), Target{CountID: "c-1"}, logger.Nop())
	s.start()
	s.onRead("LWS-1")

	start := time.Now()
	s.shutdown(30 * time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)

	select {
	case <-aborted:
	case <-time.After(2 * time.Second):
		t.Fatal("envio em voo não foi cancelado após o prazo")
	}
}

func TestStation_NoTargetOnlyLogs(t *testing.T) {
	s := newStation(nil, Target{}, logger.Nop())
	s.start()
	s.onRead("x")

	done := make(chan struct{})
	go func() { s.shutdown(time.Second); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown não deveria bloquear sem envios")
	}
}
