package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(Config{Headless: true, NavTimeoutSecs: 30, StabilizeDelayMS: 1})
	if err := m.Start(); err != nil {
		t.Skipf("no local chrome: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestWithPage_DisposesIncognitoContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	m := newTestManager(t)

	for i := 0; i < 3; i++ {
		err := m.WithPage(context.Background(), srv.URL, func(page *rod.Page) error {
			_, err := page.HTML()
			return err
		})
		require.NoError(t, err)
	}

	// Only non-default contexts are reported; a leak would show one per call.
	res, err := proto.TargetGetBrowserContexts{}.Call(m.browser)
	require.NoError(t, err)
	assert.Empty(t, res.BrowserContextIDs)
}

func TestWithPage_DisposesContextOnNavigateError(t *testing.T) {
	m := newTestManager(t)

	err := m.WithPage(context.Background(), "http://127.0.0.1:1/unreachable", func(*rod.Page) error {
		return nil
	})
	require.Error(t, err)

	res, err := proto.TargetGetBrowserContexts{}.Call(m.browser)
	require.NoError(t, err)
	assert.Empty(t, res.BrowserContextIDs)
}
