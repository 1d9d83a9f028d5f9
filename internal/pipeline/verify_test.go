package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func verifierFor(t *testing.T, handler http.HandlerFunc) (*Verifier, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewVerifier(srv.URL, "pdflatex"), srv
}

func TestVerifier_Compiled(t *testing.T) {
	var gotReq compileRequest
	v, _ := verifierFor(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(compileResponse{Status: "ok"})
	})
	verdict, err := v.Run(context.Background(), Artifact{SourceCode: "doc\nbody"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !verdict.Compiled {
		t.Fatal("expected Compiled verdict")
	}
	if gotReq.SourceCode != "doc\nbody" || gotReq.CompilerName != "pdflatex" {
		t.Fatalf("unexpected request: %+v", gotReq)
	}
}

func TestVerifier_FailedCarriesLog(t *testing.T) {
	v, _ := verifierFor(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(compileResponse{Status: "error", Log: `! Undefined control sequence \tikz`})
	})
	verdict, err := v.Run(context.Background(), Artifact{SourceCode: "doc\nbody"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if verdict.Compiled {
		t.Fatal("expected Failed verdict")
	}
	if verdict.DiagnosticLog == "" {
		t.Fatal("Failed verdict must carry the diagnostic log")
	}
}

func TestVerifier_HTMLBodyIsTransportFailure(t *testing.T) {
	v, _ := verifierFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>502 Bad Gateway</body></html>"))
	})
	_, err := v.Run(context.Background(), Artifact{SourceCode: "doc\nbody"})
	var tErr *VerificationTransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected VerificationTransportError, got %v", err)
	}
}

func TestVerifier_Non2xxIsTransportFailure(t *testing.T) {
	v, _ := verifierFor(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	_, err := v.Run(context.Background(), Artifact{SourceCode: "doc\nbody"})
	var tErr *VerificationTransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected VerificationTransportError, got %v", err)
	}
}

func TestVerifier_UnreachableServiceIsTransportFailure(t *testing.T) {
	v, srv := verifierFor(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()
	_, err := v.Run(context.Background(), Artifact{SourceCode: "doc\nbody"})
	var tErr *VerificationTransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected VerificationTransportError, got %v", err)
	}
}

func TestVerifier_UnknownStatusIsTransportFailure(t *testing.T) {
	v, _ := verifierFor(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "maybe"})
	})
	_, err := v.Run(context.Background(), Artifact{SourceCode: "doc\nbody"})
	var tErr *VerificationTransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected VerificationTransportError, got %v", err)
	}
}
