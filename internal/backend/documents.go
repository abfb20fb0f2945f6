// ABOUTME: Document endpoints: list, multipart upload into a namespace, rename, delete
// ABOUTME: Uploads use the long timeout and the "file" form field

package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrNoFile is returned when an upload has no file attached.
var ErrNoFile = fmt.Errorf("no file selected")

// ErrDocumentNameRequired is returned before any call when a rename is blank.
var ErrDocumentNameRequired = fmt.Errorf("document name is required")

func documentPath(id string) string {
	return "/documents/" + url.PathEscape(id)
}

// ListDocuments returns all documents of the tenant.
func (c *Client) ListDocuments(ctx context.Context, creds Credentials) ([]Document, error) {
	var out []Document
	if err := c.Do(ctx, creds, http.MethodGet, "/documents", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DocumentsInNamespace filters docs down to one namespace.
func DocumentsInNamespace(docs []Document, namespace string) []Document {
	var out []Document
	for _, d := range docs {
		if d.EmbeddingNamespace == namespace {
			out = append(out, d)
		}
	}
	return out
}

// UploadDocument uploads a file. An empty namespace lets the backend pick the tenant default.
func (c *Client) UploadDocument(ctx context.Context, creds Credentials, filename string, content io.Reader, namespace string) (*Document, error) {
	if content == nil || strings.TrimSpace(filename) == "" {
		return nil, ErrNoFile
	}
	var out Document
	err := c.Upload(ctx, creds, "/documents/upload", "file", filename, content, &out,
		WithQuery("embedding_namespace", namespace))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameDocument changes a document's display name.
func (c *Client) RenameDocument(ctx context.Context, creds Credentials, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrDocumentNameRequired
	}
	body := map[string]string{"file_name": name}
	return c.Do(ctx, creds, http.MethodPatch, documentPath(id), body, nil)
}

// DeleteDocument removes a document and its embeddings.
func (c *Client) DeleteDocument(ctx context.Context, creds Credentials, id string) error {
	return c.Do(ctx, creds, http.MethodDelete, documentPath(id), nil, nil)
}
