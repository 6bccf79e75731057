package stagelinesdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientSendsAuthAndDecodes(t *testing.T) {
	var gotPath, gotKey, gotDirection string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotDirection = body["direction"]
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Stage{ID: 7, ProjectID: 1, Name: "Build", OrdinalNumber: 3})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.APIKey = "sl_test"
	st, err := c.MoveStage(context.Background(), 7, "up")
	if err != nil {
		t.Fatalf("move stage: %v", err)
	}
	if gotPath != "/v0/stages/7/move" || gotKey != "sl_test" || gotDirection != "up" {
		t.Fatalf("unexpected request path=%q key=%q direction=%q", gotPath, gotKey, gotDirection)
	}
	if st.OrdinalNumber != 3 {
		t.Fatalf("unexpected stage %+v", st)
	}
}

func TestClientDecodesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"not_found","message":"no stage found with the new ordinal number 0"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.BearerToken = "token"
	_, err := c.MoveStage(context.Background(), 1, "down")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "not_found" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestClientDeleteAcceptsNoContent(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := New(srv.URL).DeleteStage(context.Background(), 4); err != nil {
		t.Fatalf("delete stage: %v", err)
	}
	if method != http.MethodDelete {
		t.Fatalf("expected DELETE, got %s", method)
	}
}

func TestEventsEndpointSelection(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RequestURI())
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.Events(context.Background(), 0, 0); err != nil {
		t.Fatalf("events: %v", err)
	}
	if _, err := c.Events(context.Background(), 5, 10); err != nil {
		t.Fatalf("project events: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/v0/events" || paths[1] != "/v0/projects/5/events?limit=10" {
		t.Fatalf("unexpected paths %v", paths)
	}
}
