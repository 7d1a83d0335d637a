package ocr

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

func TestClient_ExtractText(t *testing.T) {
	var gotKey, gotLang, gotOverlay, gotName, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("apikey")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotLang = r.FormValue("language")
		gotOverlay = r.FormValue("isOverlayRequired")
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		gotName = hdr.Filename
		gotType = hdr.Header.Get("Content-Type")
		b, _ := io.ReadAll(f)
		gotBody = string(b)
		_, _ = io.WriteString(w, `{"ParsedResults":[{"ParsedText":"  TOTAL 12.50 \r\n"},{"ParsedText":"   "},{"ParsedText":"Thanks"}]}`)
	}))
	defer srv.Close()

	c := New("secret", srv.URL, time.Second)
	text, err := c.ExtractText(context.Background(), "receipt.png", "image/png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)

	assert.Equal(t, "TOTAL 12.50\n\nThanks", text)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "eng", gotLang)
	assert.Equal(t, "false", gotOverlay)
	assert.Equal(t, "receipt.png", gotName)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, "PNGDATA", gotBody)
}

func TestClient_NoResultsIsEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ParsedResults":null}`)
	}))
	defer srv.Close()

	text, err := New("k", srv.URL, time.Second).ExtractText(context.Background(), "a.jpg", "", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestClient_Errors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := New("", "", 0).ExtractText(context.Background(), "a.jpg", "", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrNoAPIKey)
	})

	t.Run("upstream status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()
		_, err := New("k", srv.URL, time.Second).ExtractText(context.Background(), "a.jpg", "", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrUpstream)
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("processing error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"IsErroredOnProcessing":true,"ErrorMessage":["File failed validation","Bad type"]}`)
		}))
		defer srv.Close()
		_, err := New("k", srv.URL, time.Second).ExtractText(context.Background(), "a.jpg", "", strings.NewReader("x"))
		assert.True(t, errors.Is(err, ErrUpstream))
		assert.Contains(t, err.Error(), "File failed validation; Bad type")
	})

	t.Run("garbage body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<html>`)
		}))
		defer srv.Close()
		_, err := New("k", srv.URL, time.Second).ExtractText(context.Background(), "a.jpg", "", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrUpstream)
	})
}
