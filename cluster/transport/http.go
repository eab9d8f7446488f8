package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPTransport sends Messages as small JSON envelopes over HTTP POST and
// serves them via net/http, instrumented with otelhttp so every cross-node
// RPC produces a trace span. Grounded on the teacher's HTTPTool
// (graph/tool/http.go): same http.Client-with-context-timeout request
// construction and body-read pattern, narrowed from a general-purpose tool
// to the fixed Message envelope this runtime's RPCs use.
type HTTPTransport struct {
	client *http.Client
	server *http.Server
}

type wireMessage struct {
	Kind    string `json:"kind"`
	Payload []byte `json:"payload"`
}

// NewHTTPTransport returns an HTTPTransport using client (or a default
// otelhttp-wrapped client if nil).
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &HTTPTransport{client: client}
}

// Send POSTs msg to address/rpc and decodes the response envelope.
func (t *HTTPTransport) Send(ctx context.Context, address string, msg Message) (Message, error) {
	body, err := json.Marshal(wireMessage{Kind: msg.Kind, Payload: msg.Payload})
	if err != nil {
		return Message{}, fmt.Errorf("transport: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+address+"/rpc", bytes.NewReader(body))
	if err != nil {
		return Message{}, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return Message{}, fmt.Errorf("transport: send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Message{}, fmt.Errorf("transport: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Message{}, fmt.Errorf("transport: remote returned %d: %s", resp.StatusCode, respBody)
	}

	var wire wireMessage
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return Message{}, fmt.Errorf("transport: decode response: %w", err)
	}
	return Message{Kind: wire.Kind, Payload: wire.Payload}, nil
}

// Serve starts an HTTP server on address dispatching every POST /rpc to
// handler. It blocks until the server stops; run it in a goroutine.
func (t *HTTPTransport) Serve(address string, handler Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/rpc", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var wire wireMessage
		if err := json.Unmarshal(body, &wire); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp, err := handler(r.Context(), Message{Kind: wire.Kind, Payload: wire.Payload})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		respBody, err := json.Marshal(wireMessage{Kind: resp.Kind, Payload: resp.Payload})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(respBody)
	}), "rpc"))

	t.server = &http.Server{Addr: address, Handler: mux}
	err := t.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts down the HTTP server started by Serve, if any.
func (t *HTTPTransport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.server.Close()
}
