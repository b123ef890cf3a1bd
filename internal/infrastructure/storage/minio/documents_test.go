package minio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notFoundXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`

func writeObjectHeaders(w http.ResponseWriter) {
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.Header().Set("ETag", `"deadbeef"`)
}

func newTestStore(t *testing.T, handler http.HandlerFunc) (DocumentStore, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	mc, err := minio.New(strings.TrimPrefix(server.URL, "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4("test", "test", ""),
		Secure: false,
	})
	require.NoError(t, err)

	client := &Client{mc: mc, bucket: "cases", presignExpiry: 15 * time.Minute}
	return NewDocumentStore(client, nil), server
}

func TestFetchTextReadsObject(t *testing.T) {
	body := "一、醫療費用：43,795元\n二、看護費用：54,000元"
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cases/doc-1.txt", r.URL.Path)
		writeObjectHeaders(w)
		w.Write([]byte(body))
	})

	text, err := store.FetchText(context.Background(), "", "doc-1.txt")
	require.NoError(t, err)
	assert.Equal(t, body, text)
}

func TestFetchTextExplicitBucket(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/archive/doc-2.txt", r.URL.Path)
		writeObjectHeaders(w)
		w.Write([]byte("text"))
	})

	_, err := store.FetchText(context.Background(), "archive", "doc-2.txt")
	assert.NoError(t, err)
}

func TestFetchTextNotFound(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(notFoundXML))
	})

	_, err := store.FetchText(context.Background(), "", "missing.txt")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestExists(t *testing.T) {
	present := true
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if present {
			writeObjectHeaders(w)
			w.Header().Set("Content-Length", "4")
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	ok, err := store.Exists(context.Background(), "", "doc-1.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	present = false
	ok, err = store.Exists(context.Background(), "", "doc-1.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreText(t *testing.T) {
	var path string
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("ETag", `"deadbeef"`)
	})

	err := store.StoreText(context.Background(), "uploads/doc-3.txt", "原告支出醫療費用100元")
	require.NoError(t, err)
	assert.Equal(t, "/cases/uploads/doc-3.txt", path)
}

func TestPresignedGetURL(t *testing.T) {
	store, server := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("presigning must not call the server")
	})

	u, err := store.PresignedGetURL(context.Background(), "doc-1.txt")
	require.NoError(t, err)
	assert.Contains(t, u, server.Listener.Addr().String())
	assert.Contains(t, u, "/cases/doc-1.txt")
	assert.Contains(t, u, "X-Amz-Signature")
}
