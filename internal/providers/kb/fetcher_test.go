package kb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/faq":
			_, _ = w.Write([]byte("Q: reset password? A: use the portal."))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("a", maxDocumentBytes+100)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, AllowPrivateNetworks())
	ctx := context.Background()

	body, err := f.Fetch(ctx, srv.URL+"/faq")
	require.NoError(t, err)
	assert.Contains(t, body, "use the portal")

	body, err = f.Fetch(ctx, srv.URL+"/big")
	require.NoError(t, err)
	assert.Len(t, body, maxDocumentBytes)

	_, err = f.Fetch(ctx, srv.URL+"/missing")
	assert.ErrorContains(t, err, "status 404")
}

func TestHTTPFetcherRefusesLoopback(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		_, _ = w.Write([]byte("internal only"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second)
	body, err := f.Fetch(context.Background(), srv.URL+"/admin")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlockedAddress)
	assert.Empty(t, body)
	assert.False(t, hit)
}

func TestCheckDialAddress(t *testing.T) {
	assert.NoError(t, checkDialAddress("93.184.216.34:443"))
	assert.ErrorIs(t, checkDialAddress("127.0.0.1:80"), ErrBlockedAddress)
	assert.ErrorIs(t, checkDialAddress("[::1]:80"), ErrBlockedAddress)
	assert.ErrorIs(t, checkDialAddress("169.254.169.254:80"), ErrBlockedAddress)
	assert.ErrorIs(t, checkDialAddress("not-an-address"), ErrBlockedAddress)
}

func TestValidateURL(t *testing.T) {
	cases := []struct {
		url string
		ok  bool
	}{
		{"https://kb.example/faq", true},
		{"http://93.184.216.34/docs", true},
		{"ftp://kb.example/faq", false},
		{"https://", false},
		{"http://localhost:8080/admin", false},
		{"http://api.localhost/", false},
		{"http://127.0.0.1/admin", false},
		{"http://10.1.2.3/", false},
		{"http://192.168.0.10/", false},
		{"http://169.254.169.254/latest/meta-data", false},
		{"http://100.64.0.1/", false},
		{"http://0.0.0.0/", false},
		{"http://[::1]/", false},
		{"http://[fd00::1]/", false},
		{"http://[::ffff:127.0.0.1]/", false},
	}
	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			err := ValidateURL(tc.url)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestIsPublic(t *testing.T) {
	assert.True(t, isPublic(netip.MustParseAddr("8.8.8.8")))
	assert.True(t, isPublic(netip.MustParseAddr("2606:4700::1111")))
	assert.False(t, isPublic(netip.MustParseAddr("172.16.5.4")))
	assert.False(t, isPublic(netip.MustParseAddr("fe80::1")))
}
