package weibo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"socialdesk/domain/model"
	"socialdesk/domain/repository"
	"socialdesk/infrastructure/logger"

	"github.com/google/go-querystring/query"
	"golang.org/x/oauth2"
)

const (
	defaultAPIBaseURL  = "https://api.weibo.com/2"
	defaultAuthBaseURL = "https://api.weibo.com"

	maxTextRunes = 2000
	maxImages    = 9
)

// Client publishes microblog posts through the Weibo open API. A post is a
// single statuses/share call; there is no draft or review stage.
type Client struct {
	apiBaseURL  string
	authBaseURL string
	redirectURI string
	httpClient  *http.Client
}

// Options configures a Weibo client. Base URLs are only overridden in tests.
type Options struct {
	RedirectURI string
	Timeout     time.Duration
	APIBaseURL  string
	AuthBaseURL string
}

func NewWeiboClient(opts Options) repository.ISocialPlatform {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = defaultAPIBaseURL
	}
	if opts.AuthBaseURL == "" {
		opts.AuthBaseURL = defaultAuthBaseURL
	}
	return &Client{
		apiBaseURL:  strings.TrimRight(opts.APIBaseURL, "/"),
		authBaseURL: strings.TrimRight(opts.AuthBaseURL, "/"),
		redirectURI: opts.RedirectURI,
		httpClient:  &http.Client{Timeout: opts.Timeout},
	}
}

func (c *Client) Platform() model.Platform { return model.PlatformWeibo }

func (c *Client) oauthConfig(cfg *model.PlatformConfig, appSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.AppID,
		ClientSecret: appSecret,
		RedirectURL:  c.redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.authBaseURL + "/oauth2/authorize",
			TokenURL: c.authBaseURL + "/oauth2/access_token",
		},
	}
}

func (c *Client) GetAuthURL(cfg *model.PlatformConfig, state string) (string, error) {
	if cfg.AppID == "" {
		return "", fmt.Errorf("weibo config %d has no app id", cfg.ID)
	}
	return c.oauthConfig(cfg, "").AuthCodeURL(state), nil
}

func (c *Client) ExchangeToken(ctx context.Context, code string, cfg *model.PlatformConfig, appSecret string) (*model.PlatformToken, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauthConfig(cfg, appSecret).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("weibo token exchange: %w", err)
	}
	pt := &model.PlatformToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if !tok.Expiry.IsZero() {
		pt.ExpiresIn = int64(time.Until(tok.Expiry) / time.Second)
	}
	if uid, ok := tok.Extra("uid").(string); ok {
		pt.UID = uid
	}
	return pt, nil
}

// RefreshToken runs the refresh_token grant. Weibo only issues refresh
// tokens to approved applications; configs without one never reach here.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string, cfg *model.PlatformConfig, appSecret string) (*model.PlatformToken, error) {
	form := url.Values{
		"client_id":     {cfg.AppID},
		"client_secret": {appSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		UID         string `json:"uid"`
	}
	if err := c.postForm(ctx, c.authBaseURL+"/oauth2/access_token", form, &out); err != nil {
		return nil, err
	}
	return &model.PlatformToken{
		AccessToken:  out.AccessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    out.ExpiresIn,
		ExpiresAt:    time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
		UID:          out.UID,
	}, nil
}

// FetchAccessToken validates the stored long-lived token against
// get_token_info and returns it with its remaining lifetime. When the token
// is gone but a refresh token survives, the refresh grant is attempted.
func (c *Client) FetchAccessToken(ctx context.Context, cfg *model.PlatformConfig, creds model.DecryptedCredentials) (*model.PlatformToken, error) {
	if creds.StoredToken == "" {
		if creds.RefreshToken != "" {
			return c.RefreshToken(ctx, creds.RefreshToken, cfg, creds.AppSecret)
		}
		return nil, fmt.Errorf("weibo config %d has no linked token", cfg.ID)
	}
	var out struct {
		UID      string `json:"uid"`
		Scope    string `json:"scope"`
		ExpireIn int64  `json:"expire_in"`
	}
	form := url.Values{"access_token": {creds.StoredToken}}
	if err := c.postForm(ctx, c.authBaseURL+"/oauth2/get_token_info", form, &out); err != nil {
		return nil, err
	}
	return &model.PlatformToken{
		AccessToken: creds.StoredToken,
		ExpiresIn:   out.ExpireIn,
		ExpiresAt:   time.Now().Add(time.Duration(out.ExpireIn) * time.Second),
		UID:         out.UID,
		Scope:       out.Scope,
	}, nil
}

func (c *Client) ValidateContent(content *model.PublishContent) *model.ValidationResult {
	var errs []string
	if strings.TrimSpace(content.Text) == "" {
		errs = append(errs, "text must not be empty")
	}
	if n := utf8.RuneCountInString(content.Text); n > maxTextRunes {
		errs = append(errs, fmt.Sprintf("text length %d exceeds the %d character limit", n, maxTextRunes))
	}
	if len(content.ImageURLs) > maxImages {
		errs = append(errs, fmt.Sprintf("%d images exceed the limit of %d", len(content.ImageURLs), maxImages))
	}
	return &model.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Publish posts the text as a single statuses/share call. When the content
// carries a thumbnail the call switches to multipart and attaches it as the
// picture; Weibo accepts at most one binary image on this endpoint.
func (c *Client) Publish(ctx context.Context, cfg *model.PlatformConfig, accessToken string, content *model.PublishContent) (*model.PublishResult, error) {
	var out struct {
		ID   int64  `json:"id"`
		User struct {
			IDStr string `json:"idstr"`
		} `json:"user"`
	}
	endpoint := c.apiBaseURL + "/statuses/share.json"
	var err error
	if len(content.Thumbnail) > 0 {
		err = c.postMultipart(ctx, endpoint, map[string]string{
			"access_token": accessToken,
			"status":       content.Text,
		}, "pic", "pic.jpg", content.Thumbnail, &out)
	} else {
		err = c.postForm(ctx, endpoint, url.Values{
			"access_token": {accessToken},
			"status":       {content.Text},
		}, &out)
	}
	if err != nil {
		return nil, err
	}
	postID := fmt.Sprintf("%d", out.ID)
	logger.GetLogger().WithField("post_id", postID).Info("weibo status published")
	return &model.PublishResult{
		ConfigID: cfg.ID,
		Platform: model.PlatformWeibo,
		Success:  true,
		PostID:   postID,
		PostURL:  postURL(out.User.IDStr, postID),
	}, nil
}

func postURL(uid, postID string) string {
	if uid == "" {
		return ""
	}
	return fmt.Sprintf("https://weibo.com/%s/statuses/%s", uid, postID)
}

type userInfoParams struct {
	AccessToken string `url:"access_token"`
	UID         string `url:"uid"`
}

func (c *Client) GetUserInfo(ctx context.Context, accessToken, uid string) (*model.PlatformProfile, error) {
	values, err := query.Values(userInfoParams{AccessToken: accessToken, UID: uid})
	if err != nil {
		return nil, err
	}
	var out struct {
		IDStr      string `json:"idstr"`
		ScreenName string `json:"screen_name"`
		AvatarHD   string `json:"avatar_hd"`
		ProfileURL string `json:"profile_url"`
	}
	if err := c.getJSON(ctx, c.apiBaseURL+"/users/show.json?"+values.Encode(), &out); err != nil {
		return nil, err
	}
	return &model.PlatformProfile{
		UID:        out.IDStr,
		Name:       out.ScreenName,
		AvatarURL:  out.AvatarHD,
		ProfileURL: "https://weibo.com/" + strings.TrimPrefix(out.ProfileURL, "/"),
	}, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) postMultipart(ctx context.Context, endpoint string, fields map[string]string, fileField, fileName string, file []byte, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	fw, err := w.CreateFormFile(fileField, fileName)
	if err != nil {
		return err
	}
	if _, err := fw.Write(file); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// do executes the request and decodes either the expected payload or the
// Weibo error envelope. Error envelopes arrive on 2xx and 4xx alike, so the
// body is inspected before the status code.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weibo request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("weibo response %s: %w", req.URL.Path, err)
	}

	var apiErr struct {
		ErrorCode int    `json:"error_code"`
		Error     string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.ErrorCode != 0 {
		return &model.PlatformAPIError{
			Platform: model.PlatformWeibo,
			Code:     apiErr.ErrorCode,
			Message:  apiErr.Error,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("weibo request %s: unexpected status %d", req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("weibo response %s: decode: %w", req.URL.Path, err)
	}
	return nil
}
