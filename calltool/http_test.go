package calltool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPToolName(t *testing.T) {
	if got := NewHTTPTool().Name(); got != "http_request" {
		t.Fatalf("Name() = %q, want %q", got, "http_request")
	}
}

func TestHTTPToolGetSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "success"})
	}))
	defer server.Close()

	tool := NewHTTPTool()
	result, err := tool.Invoke(context.Background(), map[string]interface{}{
		"method": "GET",
		"url":    server.URL,
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result["status_code"].(int) != 200 {
		t.Fatalf("status_code = %v, want 200", result["status_code"])
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(result["body"].(string)), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["message"] != "success" {
		t.Fatalf("body message = %q", body["message"])
	}
}

func TestHTTPToolPostSendsBodyAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer token" {
			t.Errorf("Authorization = %q, want %q", auth, "Bearer token")
		}
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["name"] != "test" {
			t.Errorf("request body name = %v, want %q", req["name"], "test")
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	bodyJSON, _ := json.Marshal(map[string]interface{}{"name": "test"})
	tool := NewHTTPTool()
	result, err := tool.Invoke(context.Background(), map[string]interface{}{
		"method":  "POST",
		"url":     server.URL,
		"body":    string(bodyJSON),
		"headers": map[string]interface{}{"Authorization": "Bearer token"},
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result["status_code"].(int) != 201 {
		t.Fatalf("status_code = %v, want 201", result["status_code"])
	}
}

func TestHTTPToolRejectsMissingURL(t *testing.T) {
	tool := NewHTTPTool()
	if _, err := tool.Invoke(context.Background(), map[string]interface{}{"method": "GET"}); err == nil {
		t.Fatal("expected an error for a missing url parameter")
	}
}

func TestHTTPToolRejectsUnsupportedMethod(t *testing.T) {
	tool := NewHTTPTool()
	_, err := tool.Invoke(context.Background(), map[string]interface{}{
		"method": "DELETE",
		"url":    "http://example.com",
	})
	if err == nil {
		t.Fatal("expected an error for an unsupported method")
	}
}

func TestHTTPToolContextTimeoutSurfacesAsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	tool := NewHTTPTool()
	if _, err := tool.Invoke(ctx, map[string]interface{}{"url": server.URL}); err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestHTTPToolServerErrorIsNotInvokeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	tool := NewHTTPTool()
	result, err := tool.Invoke(context.Background(), map[string]interface{}{"url": server.URL})
	if err != nil {
		t.Fatalf("Invoke: %v (a non-2xx response should not be an error)", err)
	}
	if result["status_code"].(int) != 500 {
		t.Fatalf("status_code = %v, want 500", result["status_code"])
	}
}
