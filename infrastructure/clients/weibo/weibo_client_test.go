package weibo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"socialdesk/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(srv *httptest.Server) *Client {
	return NewWeiboClient(Options{
		RedirectURI: "https://app.example.com/callback/weibo",
		APIBaseURL:  srv.URL,
		AuthBaseURL: srv.URL,
	}).(*Client)
}

func weiboConfig() *model.PlatformConfig {
	return &model.PlatformConfig{
		ID:          7,
		UserID:      "user-1",
		Platform:    model.PlatformWeibo,
		AppID:       "10001",
		AccountName: "newsroom",
		CanPublish:  true,
		Active:      true,
	}
}

func TestGetAuthURL(t *testing.T) {
	client := NewWeiboClient(Options{RedirectURI: "https://app.example.com/callback/weibo"})

	u, err := client.GetAuthURL(weiboConfig(), "state-xyz")

	require.NoError(t, err)
	assert.Contains(t, u, "client_id=10001")
	assert.Contains(t, u, "state=state-xyz")
	assert.Contains(t, u, "redirect_uri=")
}

func TestGetAuthURLMissingAppID(t *testing.T) {
	client := NewWeiboClient(Options{})
	cfg := weiboConfig()
	cfg.AppID = ""

	_, err := client.GetAuthURL(cfg, "s")

	assert.Error(t, err)
}

func TestPublishSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/statuses/share.json", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "token-abc", r.PostFormValue("access_token"))
		assert.Equal(t, "hello world", r.PostFormValue("status"))
		fmt.Fprint(w, `{"id": 4512345678901234, "idstr": "4512345678901234", "user": {"idstr": "5871234567"}}`)
	}))
	defer srv.Close()

	res, err := testClient(srv).Publish(context.Background(), weiboConfig(), "token-abc",
		&model.PublishContent{Text: "hello world"})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "4512345678901234", res.PostID)
	assert.Equal(t, "https://weibo.com/5871234567/statuses/4512345678901234", res.PostURL)
	assert.Equal(t, model.PlatformWeibo, res.Platform)
	assert.Equal(t, int64(7), res.ConfigID)
}

func TestPublishWithThumbnailUsesMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "hello", r.FormValue("status"))
		file, _, err := r.FormFile("pic")
		require.NoError(t, err)
		file.Close()
		fmt.Fprint(w, `{"id": 42, "user": {"idstr": "99"}}`)
	}))
	defer srv.Close()

	res, err := testClient(srv).Publish(context.Background(), weiboConfig(), "token-abc",
		&model.PublishContent{Text: "hello", Thumbnail: []byte{0xff, 0xd8, 0xff}})

	require.NoError(t, err)
	assert.Equal(t, "42", res.PostID)
}

func TestPublishAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error_code": 21332, "error": "invalid access token", "request": "/2/statuses/share.json"}`)
	}))
	defer srv.Close()

	_, err := testClient(srv).Publish(context.Background(), weiboConfig(), "stale", &model.PublishContent{Text: "x"})

	var apiErr *model.PlatformAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 21332, apiErr.Code)
	assert.Equal(t, model.PlatformWeibo, apiErr.Platform)
	assert.Empty(t, apiErr.Step)
}

func TestValidateContent(t *testing.T) {
	client := NewWeiboClient(Options{})

	ok := client.ValidateContent(&model.PublishContent{Text: "fine"})
	assert.True(t, ok.Valid)

	empty := client.ValidateContent(&model.PublishContent{Text: "   "})
	assert.False(t, empty.Valid)

	long := client.ValidateContent(&model.PublishContent{Text: strings.Repeat("字", maxTextRunes+1)})
	require.False(t, long.Valid)
	assert.Contains(t, long.Errors[0], "2000")

	tooMany := client.ValidateContent(&model.PublishContent{
		Text:      "x",
		ImageURLs: make([]string, maxImages+1),
	})
	assert.False(t, tooMany.Valid)
}

func TestFetchAccessTokenValidatesStoredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/get_token_info", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "stored-token", r.PostFormValue("access_token"))
		fmt.Fprint(w, `{"uid": "5871234567", "scope": "statuses_to_me_read", "expire_in": 86400}`)
	}))
	defer srv.Close()

	tok, err := testClient(srv).FetchAccessToken(context.Background(), weiboConfig(),
		model.DecryptedCredentials{AppSecret: "sec", StoredToken: "stored-token"})

	require.NoError(t, err)
	assert.Equal(t, "stored-token", tok.AccessToken)
	assert.Equal(t, int64(86400), tok.ExpiresIn)
	assert.Equal(t, "5871234567", tok.UID)
}

func TestFetchAccessTokenFallsBackToRefreshGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/access_token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostFormValue("grant_type"))
		assert.Equal(t, "refresh-1", r.PostFormValue("refresh_token"))
		fmt.Fprint(w, `{"access_token": "fresh", "expires_in": 7200, "uid": "5871234567"}`)
	}))
	defer srv.Close()

	tok, err := testClient(srv).FetchAccessToken(context.Background(), weiboConfig(),
		model.DecryptedCredentials{AppSecret: "sec", RefreshToken: "refresh-1"})

	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken)
}

func TestFetchAccessTokenWithoutCredential(t *testing.T) {
	client := NewWeiboClient(Options{})

	_, err := client.FetchAccessToken(context.Background(), weiboConfig(), model.DecryptedCredentials{AppSecret: "sec"})

	assert.Error(t, err)
}

func TestFetchAccessTokenExpiredStoredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error_code": 21327, "error": "expired token"}`)
	}))
	defer srv.Close()

	_, err := testClient(srv).FetchAccessToken(context.Background(), weiboConfig(),
		model.DecryptedCredentials{AppSecret: "sec", StoredToken: "dead"})

	var apiErr *model.PlatformAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 21327, apiErr.Code)
}

func TestGetUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/show.json", r.URL.Path)
		assert.Equal(t, "token-abc", r.URL.Query().Get("access_token"))
		assert.Equal(t, "5871234567", r.URL.Query().Get("uid"))
		fmt.Fprint(w, `{"idstr": "5871234567", "screen_name": "Daily News", "avatar_hd": "https://img.example.com/a.jpg", "profile_url": "u/5871234567"}`)
	}))
	defer srv.Close()

	profile, err := testClient(srv).GetUserInfo(context.Background(), "token-abc", "5871234567")

	require.NoError(t, err)
	assert.Equal(t, "Daily News", profile.Name)
	assert.Equal(t, "https://weibo.com/u/5871234567", profile.ProfileURL)
}
