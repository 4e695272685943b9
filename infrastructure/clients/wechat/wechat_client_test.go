package wechat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"socialdesk/domain/model"
	"socialdesk/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(srv *httptest.Server) *Client {
	return NewWechatClient(Options{BaseURL: srv.URL}).(*Client)
}

func wechatConfig() *model.PlatformConfig {
	return &model.PlatformConfig{
		ID:          11,
		UserID:      "user-1",
		Platform:    model.PlatformWechat,
		AppID:       "wx1234567890abcdef",
		AccountName: "city-gazette",
		SubjectType: model.SubjectTypeEnterprise,
		CanPublish:  true,
		Active:      true,
	}
}

func articleContent() *model.PublishContent {
	return &model.PublishContent{
		ID:        "content-1",
		UserID:    "user-1",
		Title:     "Morning Briefing",
		Author:    "editors",
		Digest:    "What happened overnight",
		Text:      "<p>Full article body</p>",
		SourceURL: "https://news.example.com/briefing",
		Thumbnail: []byte{0xff, 0xd8, 0xff, 0xe0},
	}
}

func TestFetchAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cgi-bin/token", r.URL.Path)
		assert.Equal(t, "client_credential", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "wx1234567890abcdef", r.URL.Query().Get("appid"))
		assert.Equal(t, "plain-secret", r.URL.Query().Get("secret"))
		fmt.Fprint(w, `{"access_token": "ACCESS", "expires_in": 7200}`)
	}))
	defer srv.Close()

	tok, err := testClient(srv).FetchAccessToken(context.Background(), wechatConfig(),
		model.DecryptedCredentials{AppSecret: "plain-secret"})

	require.NoError(t, err)
	assert.Equal(t, "ACCESS", tok.AccessToken)
	assert.Equal(t, int64(7200), tok.ExpiresIn)
	assert.False(t, tok.ExpiresAt.IsZero())
}

func TestFetchAccessTokenInvalidSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errcode": 40001, "errmsg": "invalid credential"}`)
	}))
	defer srv.Close()

	_, err := testClient(srv).FetchAccessToken(context.Background(), wechatConfig(),
		model.DecryptedCredentials{AppSecret: "wrong"})

	var apiErr *model.PlatformAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 40001, apiErr.Code)
}

func TestRefreshTokenUnsupported(t *testing.T) {
	client := NewWechatClient(Options{})

	_, err := client.RefreshToken(context.Background(), "any", wechatConfig(), "sec")

	assert.ErrorIs(t, err, repository.ErrRefreshUnsupported)
}

func TestAuthFlowUnsupported(t *testing.T) {
	client := NewWechatClient(Options{})

	_, err := client.GetAuthURL(wechatConfig(), "state")
	assert.ErrorIs(t, err, repository.ErrAuthFlowUnsupported)

	_, err = client.ExchangeToken(context.Background(), "code", wechatConfig(), "sec")
	assert.ErrorIs(t, err, repository.ErrAuthFlowUnsupported)
}

func TestValidateContent(t *testing.T) {
	client := NewWechatClient(Options{})

	ok := client.ValidateContent(articleContent())
	assert.True(t, ok.Valid)

	missingTitle := articleContent()
	missingTitle.Title = ""
	assert.False(t, client.ValidateContent(missingTitle).Valid)

	longTitle := articleContent()
	longTitle.Title = strings.Repeat("字", maxTitleRunes+1)
	assert.False(t, client.ValidateContent(longTitle).Valid)

	missingThumb := articleContent()
	missingThumb.Thumbnail = nil
	res := client.ValidateContent(missingThumb)
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], "thumbnail")

	longDigest := articleContent()
	longDigest.Digest = strings.Repeat("d", maxDigestRunes+1)
	assert.False(t, client.ValidateContent(longDigest).Valid)
}

func TestPublishPipeline(t *testing.T) {
	var thumbCalls, draftCalls, submitCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cgi-bin/material/add_material":
			thumbCalls.Add(1)
			assert.Equal(t, "thumb", r.URL.Query().Get("type"))
			assert.Equal(t, "ACCESS", r.URL.Query().Get("access_token"))
			file, _, err := r.FormFile("media")
			require.NoError(t, err)
			file.Close()
			fmt.Fprint(w, `{"media_id": "THUMB_MEDIA"}`)
		case "/cgi-bin/draft/add":
			draftCalls.Add(1)
			var payload struct {
				Articles []draftArticle `json:"articles"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			require.Len(t, payload.Articles, 1)
			assert.Equal(t, "Morning Briefing", payload.Articles[0].Title)
			assert.Equal(t, "THUMB_MEDIA", payload.Articles[0].ThumbMediaID)
			fmt.Fprint(w, `{"media_id": "DRAFT_MEDIA"}`)
		case "/cgi-bin/freepublish/submit":
			submitCalls.Add(1)
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "DRAFT_MEDIA", payload["media_id"])
			fmt.Fprint(w, `{"errcode": 0, "errmsg": "ok", "publish_id": 2247503051}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	res, err := testClient(srv).Publish(context.Background(), wechatConfig(), "ACCESS", articleContent())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "2247503051", res.PostID)
	assert.Equal(t, int32(1), thumbCalls.Load())
	assert.Equal(t, int32(1), draftCalls.Load())
	assert.Equal(t, int32(1), submitCalls.Load())
}

func TestPublishThumbnailFailureStopsPipeline(t *testing.T) {
	var draftCalls, submitCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cgi-bin/material/add_material":
			fmt.Fprint(w, `{"errcode": 40004, "errmsg": "invalid media type"}`)
		case "/cgi-bin/draft/add":
			draftCalls.Add(1)
		case "/cgi-bin/freepublish/submit":
			submitCalls.Add(1)
		}
	}))
	defer srv.Close()

	_, err := testClient(srv).Publish(context.Background(), wechatConfig(), "ACCESS", articleContent())

	var apiErr *model.PlatformAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.StepThumbnail, apiErr.Step)
	assert.Equal(t, 40004, apiErr.Code)
	assert.Equal(t, int32(0), draftCalls.Load())
	assert.Equal(t, int32(0), submitCalls.Load())
}

func TestPublishDraftFailureReportsStep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cgi-bin/material/add_material":
			fmt.Fprint(w, `{"media_id": "THUMB_MEDIA"}`)
		case "/cgi-bin/draft/add":
			fmt.Fprint(w, `{"errcode": 87014, "errmsg": "risky content"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	_, err := testClient(srv).Publish(context.Background(), wechatConfig(), "ACCESS", articleContent())

	var apiErr *model.PlatformAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.StepDraft, apiErr.Step)
	assert.Equal(t, 87014, apiErr.Code)
}

func TestPublishCapabilityGateSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	cfg := wechatConfig()
	cfg.SubjectType = model.SubjectTypePersonal
	cfg.CanPublish = false

	_, err := testClient(srv).Publish(context.Background(), cfg, "ACCESS", articleContent())

	var pubErr *model.PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, model.ErrKindCapability, pubErr.Kind)
	assert.Equal(t, model.CodeCapabilityDenied, pubErr.Code)
	assert.Equal(t, int32(0), calls.Load())
}
