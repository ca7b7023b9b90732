package fhir

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const identifierSystem = "http://example.com/v2-to-fhir-converter/Identifier/CS"

func TestResolveByIdentifier(t *testing.T) {
	var gotAuth, gotIdentifier string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Patient" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotIdentifier = r.URL.Query().Get("identifier")
		w.Header().Set("Content-Type", "application/fhir+json")
		w.Write([]byte(`{"entry":[{"resource":{"id":"patient-uuid-1","resourceType":"Patient"}}]}`))
	}))
	defer srv.Close()

	records, err := NewClient(srv.URL, identifierSystem).
		ResolveByIdentifier(context.Background(), "MRN-12345", "lookup-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer lookup-token" {
		t.Fatalf("authorization header %q", gotAuth)
	}
	if gotIdentifier != identifierSystem+"|MRN-12345" {
		t.Fatalf("identifier query %q", gotIdentifier)
	}
	if len(records) != 1 || records[0].ID != "patient-uuid-1" {
		t.Fatalf("unexpected records %v", records)
	}
}

func TestResolveByIdentifier_NoMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resourceType":"Bundle","total":0}`))
	}))
	defer srv.Close()

	records, err := NewClient(srv.URL, identifierSystem).
		ResolveByIdentifier(context.Background(), "MRN-00000", "lookup-token")
	if err != nil {
		t.Fatalf("zero matches is not an error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty result, got %v", records)
	}
}

func TestResolveByIdentifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, identifierSystem).
		ResolveByIdentifier(context.Background(), "MRN-12345", "lookup-token")
	if err == nil {
		t.Fatalf("expected error on 502")
	}
}
