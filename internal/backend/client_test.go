// ABOUTME: Tests for base URL resolution, request construction and error normalization
// ABOUTME: Uses httptest servers standing in for the REST backend

package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL})
}

func TestResolveBaseURL(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		origin     string
		want       string
	}{
		{"configured wins", "https://api.botfy.io", "https://app.botfy.io", "https://api.botfy.io/api"},
		{"origin fallback", "", "https://app.botfy.io", "https://app.botfy.io/api"},
		{"default", "", "", "http://127.0.0.1:8000/api"},
		{"strips trailing slashes", "https://api.botfy.io///", "", "https://api.botfy.io/api"},
		{"keeps existing api suffix", "https://api.botfy.io/api/", "", "https://api.botfy.io/api"},
		{"api only at the end counts", "https://api.example.com/apis", "", "https://api.example.com/apis/api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveBaseURL(tt.configured, tt.origin))
		})
	}
}

func TestDo_RequestConstruction(t *testing.T) {
	var got *http.Request
	var body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		_, _ = w.Write([]byte(`{"id":"a1","name":"Vendas","active":true}`))
	})

	var out Agent
	err := c.Do(context.Background(), Credentials{Token: "tok", TenantID: "ten-1"},
		http.MethodPost, "agents", map[string]string{"name": "Vendas"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "/api/agents", got.URL.Path)
	assert.Equal(t, "/api/agents", got.URL.Query().Get("_path"))
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.Equal(t, "ten-1", got.Header.Get("x-tenant-id"))
	assert.Equal(t, "/api/agents", got.Header.Get("X-Request-Path"))
	assert.NotEmpty(t, got.Header.Get("X-Request-ID"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"name":"Vendas"}`, body)
	assert.Equal(t, "Vendas", out.Name)
}

func TestDo_NoCredentialsNoAuthHeaders(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, c.Do(context.Background(), Credentials{}, http.MethodGet, "/auth/me", nil, &Me{}))
	assert.Empty(t, got.Header.Get("Authorization"))
	assert.Empty(t, got.Header.Get("x-tenant-id"))
	assert.Empty(t, got.Header.Get("Content-Type"))
}

func TestDo_ReusesRequestIDFromContext(t *testing.T) {
	var id string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		id = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{}`))
	})

	ctx := ContextWithRequestID(context.Background(), "req-42")
	require.NoError(t, c.Do(ctx, Credentials{}, http.MethodGet, "/metrics", nil, &Metrics{}))
	assert.Equal(t, "req-42", id)
}

func TestDo_ErrorDetailExtraction(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", 400, `{"detail":"Email já cadastrado"}`, "Email já cadastrado"},
		{"message fallback", 400, `{"message":"bad input"}`, "bad input"},
		{"error fallback", 500, `{"error":"boom"}`, "boom"},
		{"validation list msg", 422, `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email"}]}`, "value is not a valid email"},
		{"validation list message", 422, `{"detail":[{"message":"too short"}]}`, "too short"},
		{"validation list raw", 422, `{"detail":[{"code":7}]}`, `{"code":7}`},
		{"empty list", 422, `{"detail":[]}`, "Erro do servidor (422)"},
		{"blank detail", 500, `{"detail":"   "}`, "Erro do servidor (500)"},
		{"no known key", 502, `{"foo":"bar"}`, "502"},
		{"not json uses status text", 503, `<html>down</html>`, "Service Unavailable"},
		{"numeric detail", 400, `{"detail":42}`, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := c.Do(context.Background(), Credentials{}, http.MethodGet, "/x", nil, &struct{}{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStatus)
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestDo_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Token inválido ou expirado"}`))
	})

	err := c.Do(context.Background(), Credentials{Token: "old"}, http.MethodGet, "/agents", nil, &[]Agent{})
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, errors.Is(err, ErrStatus))
	assert.Equal(t, "Token inválido ou expirado", Message(err))
}

func TestDo_UnauthorizedWithoutDetail(t *testing.T) {
	for name, body := range map[string]string{
		"empty body":   "",
		"empty object": `{}`,
		"blank detail": `{"detail":""}`,
		"html":         `<html>401</html>`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(body))
			})

			err := c.Do(context.Background(), Credentials{Token: "old"}, http.MethodGet, "/auth/me", nil, &Me{})
			require.Error(t, err)
			assert.True(t, IsUnauthorized(err))
			assert.Equal(t, "Sessão expirada", Message(err))
		})
	}
}

func TestDo_EmptyAndInvalidBodies(t *testing.T) {
	empty := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("  \n"))
	})
	err := empty.Do(context.Background(), Credentials{}, http.MethodGet, "/metrics", nil, &Metrics{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, "Resposta vazia do servidor.", Message(err))

	// nil out tolerates empty bodies
	assert.NoError(t, empty.Do(context.Background(), Credentials{}, http.MethodDelete, "/agents/1", nil, nil))

	invalid := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<!doctype html>"))
	})
	err = invalid.Do(context.Background(), Credentials{}, http.MethodGet, "/metrics", nil, &Metrics{})
	assert.ErrorIs(t, err, ErrInvalidJSON)
	assert.Equal(t, "Resposta inválida do servidor (não é JSON).", Message(err))
}

func TestDo_NoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, c.DeleteTeam(context.Background(), Credentials{Token: "t"}, "team-1"))
}

func TestDo_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	err := c.Do(context.Background(), Credentials{}, http.MethodGet, "/metrics", nil, &Metrics{}, WithTimeout(50*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "A requisição demorou muito. Tente novamente.", err.Error())
}

func TestDo_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url})
	err := c.Do(context.Background(), Credentials{}, http.MethodGet, "/metrics", nil, &Metrics{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.True(t, strings.HasPrefix(err.Error(), "Não foi possível conectar à API."))
	assert.Contains(t, err.Error(), "/health")
}

func TestDo_CanceledParentIsNotATimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := c.Do(ctx, Credentials{}, http.MethodGet, "/metrics", nil, &Metrics{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestUpload_Multipart(t *testing.T) {
	var field, filename, content, ns, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		ns = r.URL.Query().Get("embedding_namespace")
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		for name, files := range r.MultipartForm.File {
			field = name
			filename = files[0].Filename
			f, _ := files[0].Open()
			data, _ := io.ReadAll(f)
			content = string(data)
		}
		_, _ = w.Write([]byte(`{"id":"d1","file_path":"uploads/faq.pdf","embedding_namespace":"agent_a1"}`))
	})

	doc, err := c.UploadDocument(context.Background(), Credentials{Token: "t"}, "faq.pdf", strings.NewReader("%PDF"), "agent_a1")
	require.NoError(t, err)

	assert.Equal(t, "/api/documents/upload", path)
	assert.Equal(t, "agent_a1", ns)
	assert.Equal(t, "file", field)
	assert.Equal(t, "faq.pdf", filename)
	assert.Equal(t, "%PDF", content)
	assert.Equal(t, "faq.pdf", doc.DisplayName())
}

func TestNew_Defaults(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, "http://127.0.0.1:8000/api", c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.timeout)
	assert.Equal(t, DefaultUploadTimeout, c.uploadTimeout)
}

func TestUnreachableHint(t *testing.T) {
	assert.Equal(t, hintLocal, unreachableHint("http://localhost:8000/api"))
	assert.Equal(t, hintRemote, unreachableHint("https://api.botfy.io/api"))
}
