package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSitemap(t *testing.T) {
	t.Parallel()
	body := `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>https://acme.com/</loc></url>
	<url><loc>https://acme.com/about</loc></url>
	<url><loc> https://acme.com/team </loc></url>
</urlset>`
	urls := ParseSitemap(body)
	assert.Equal(t, []string{"https://acme.com/", "https://acme.com/about", "https://acme.com/team"}, urls)
}

func TestParseSitemap_IgnoresSitemapIndex(t *testing.T) {
	t.Parallel()
	body := `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<sitemap><loc>https://acme.com/sitemap-1.xml</loc></sitemap>
</sitemapindex>`
	assert.Nil(t, ParseSitemap(body))
}

func TestParseSitemap_CapsAt100(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	b.WriteString(`<urlset>`)
	for i := 0; i < 250; i++ {
		fmt.Fprintf(&b, "<url><loc>https://acme.com/p%d</loc></url>", i)
	}
	b.WriteString(`</urlset>`)
	assert.Len(t, ParseSitemap(b.String()), 100)
}

func TestParseSitemap_NotXML(t *testing.T) {
	t.Parallel()
	assert.Nil(t, ParseSitemap("<html><body>404</body></html>"))
	assert.Nil(t, ParseSitemap(""))
}

func TestDiscoverSitemap_RobotsPriority(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "User-agent: *\nSitemap: %s/custom-map.xml\n", srv.URL)
	})
	mux.HandleFunc("/custom-map.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<urlset><url><loc>https://acme.com/from-robots</loc></url></urlset>`)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<urlset><url><loc>https://acme.com/from-convention</loc></url></urlset>`)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	urls := DiscoverSitemap(context.Background(), srv.Client(), srv.URL)
	require.Len(t, urls, 1)
	assert.Equal(t, "https://acme.com/from-robots", urls[0])
}

func TestDiscoverSitemap_FallsBackToConvention(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<urlset><url><loc>https://acme.com/a</loc></url></urlset>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	urls := DiscoverSitemap(context.Background(), srv.Client(), srv.URL)
	require.Len(t, urls, 1)
	assert.Equal(t, "https://acme.com/a", urls[0])
}

func TestDiscoverSitemap_NoneFound(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	assert.Nil(t, DiscoverSitemap(context.Background(), srv.Client(), srv.URL))
}
