package wechat

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
)

const (
	defaultBaseURL = "https://api.weixin.qq.com"

	maxTitleRunes  = 64
	maxDigestRunes = 120
)

// Client publishes articles through the WeChat official-account API.
// Publishing is a three step pipeline: upload the thumbnail as permanent
// material, create a draft from it, then submit the draft for free publish.
// Access tokens come from the client-credential grant; there is no browser
// authorization flow and no refresh token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Options configures a WeChat client. BaseURL is only overridden in tests.
type Options struct {
	Timeout time.Duration
	BaseURL string
}

func NewWechatClient(opts Options) repository.ISocialPlatform {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

func (c *Client) Platform() model.Platform { return model.PlatformWechat }

// Official accounts are linked by entering the app id and secret directly,
// so the authorization-code surface is a closed door here.
func (c *Client) GetAuthURL(cfg *model.PlatformConfig, state string) (string, error) {
	return "", repository.ErrAuthFlowUnsupported
}

func (c *Client) ExchangeToken(ctx context.Context, code string, cfg *model.PlatformConfig, appSecret string) (*model.PlatformToken, error) {
	return nil, repository.ErrAuthFlowUnsupported
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string, cfg *model.PlatformConfig, appSecret string) (*model.PlatformToken, error) {
	return nil, repository.ErrRefreshUnsupported
}

// FetchAccessToken runs the client-credential grant with the decrypted app
// secret. Every call mints a fresh token; deduplication is the credential
// cache's job, not the adapter's.
func (c *Client) FetchAccessToken(ctx context.Context, cfg *model.PlatformConfig, creds model.DecryptedCredentials) (*model.PlatformToken, error) {
	q := url.Values{
		"grant_type": {"client_credential"},
		"appid":      {cfg.AppID},
		"secret":     {creds.AppSecret},
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := c.getJSON(ctx, "/cgi-bin/token?"+q.Encode(), "", &out); err != nil {
		return nil, err
	}
	return &model.PlatformToken{
		AccessToken: out.AccessToken,
		ExpiresIn:   out.ExpiresIn,
		ExpiresAt:   time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

func (c *Client) ValidateContent(content *model.PublishContent) *model.ValidationResult {
	var errs []string
	if strings.TrimSpace(content.Title) == "" {
		errs = append(errs, "title is required")
	}
	if n := utf8.RuneCountInString(content.Title); n > maxTitleRunes {
		errs = append(errs, fmt.Sprintf("title length %d exceeds the %d character limit", n, maxTitleRunes))
	}
	if strings.TrimSpace(content.Text) == "" {
		errs = append(errs, "article body must not be empty")
	}
	if n := utf8.RuneCountInString(content.Digest); n > maxDigestRunes {
		errs = append(errs, fmt.Sprintf("digest length %d exceeds the %d character limit", n, maxDigestRunes))
	}
	if len(content.Thumbnail) == 0 {
		errs = append(errs, "a thumbnail image is required")
	}
	return &model.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Publish walks the thumbnail, draft, submit pipeline. The first failing
// step aborts the pipeline and is reported with its step tag so the caller
// can tell a rejected thumbnail from a rejected submission.
func (c *Client) Publish(ctx context.Context, cfg *model.PlatformConfig, accessToken string, content *model.PublishContent) (*model.PublishResult, error) {
	if !cfg.CanPublish {
		return nil, model.NewCapabilityError(
			fmt.Sprintf("wechat %s-subject account %q cannot publish through the API", cfg.SubjectType, cfg.AccountName))
	}

	thumbMediaID, err := c.uploadThumbnail(ctx, accessToken, content.Thumbnail)
	if err != nil {
		return nil, err
	}
	draftMediaID, err := c.createDraft(ctx, accessToken, thumbMediaID, content)
	if err != nil {
		return nil, err
	}
	publishID, err := c.submitDraft(ctx, accessToken, draftMediaID)
	if err != nil {
		return nil, err
	}

	logger.GetLogger().
		WithField("publish_id", publishID).
		WithField("draft_media_id", draftMediaID).
		Info("wechat article submitted for publish")
	return &model.PublishResult{
		ConfigID: cfg.ID,
		Platform: model.PlatformWechat,
		Success:  true,
		PostID:   publishID,
	}, nil
}

func (c *Client) uploadThumbnail(ctx context.Context, accessToken string, thumbnail []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("media", "thumb.jpg")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(thumbnail); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("/cgi-bin/material/add_material?access_token=%s&type=thumb", url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out struct {
		MediaID string `json:"media_id"`
	}
	if err := c.do(req, model.StepThumbnail, &out); err != nil {
		return "", err
	}
	return out.MediaID, nil
}

type draftArticle struct {
	Title              string `json:"title"`
	Author             string `json:"author,omitempty"`
	Digest             string `json:"digest,omitempty"`
	Content            string `json:"content"`
	ContentSourceURL   string `json:"content_source_url,omitempty"`
	ThumbMediaID       string `json:"thumb_media_id"`
	NeedOpenComment    int    `json:"need_open_comment"`
	OnlyFansCanComment int    `json:"only_fans_can_comment"`
}

func (c *Client) createDraft(ctx context.Context, accessToken, thumbMediaID string, content *model.PublishContent) (string, error) {
	payload := struct {
		Articles []draftArticle `json:"articles"`
	}{Articles: []draftArticle{{
		Title:            content.Title,
		Author:           content.Author,
		Digest:           content.Digest,
		Content:          content.Text,
		ContentSourceURL: content.SourceURL,
		ThumbMediaID:     thumbMediaID,
	}}}
	var out struct {
		MediaID string `json:"media_id"`
	}
	if err := c.postJSON(ctx, "/cgi-bin/draft/add", accessToken, model.StepDraft, payload, &out); err != nil {
		return "", err
	}
	return out.MediaID, nil
}

func (c *Client) submitDraft(ctx context.Context, accessToken, draftMediaID string) (string, error) {
	payload := map[string]string{"media_id": draftMediaID}
	var out struct {
		PublishID json.Number `json:"publish_id"`
	}
	if err := c.postJSON(ctx, "/cgi-bin/freepublish/submit", accessToken, model.StepSubmit, payload, &out); err != nil {
		return "", err
	}
	return out.PublishID.String(), nil
}

func (c *Client) GetUserInfo(ctx context.Context, accessToken, uid string) (*model.PlatformProfile, error) {
	var out struct {
		AppID        string `json:"appid"`
		NicknameInfo struct {
			Nickname string `json:"nickname"`
		} `json:"nickname_info"`
		PrincipalName string `json:"principal_name"`
	}
	endpoint := "/cgi-bin/account/getaccountbasicinfo?access_token=" + url.QueryEscape(accessToken)
	if err := c.getJSON(ctx, endpoint, "", &out); err != nil {
		return nil, err
	}
	name := out.NicknameInfo.Nickname
	if name == "" {
		name = out.PrincipalName
	}
	return &model.PlatformProfile{UID: out.AppID, Name: name}, nil
}

func (c *Client) postJSON(ctx context.Context, path, accessToken, step string, payload, out any) error {
	// WeChat rejects HTML-escaped unicode in article bodies.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return err
	}
	endpoint := c.baseURL + path + "?access_token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, step, out)
}

func (c *Client) getJSON(ctx context.Context, path, step string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, step, out)
}

// do executes the request and decodes the payload. WeChat signals failure
// with a non-zero errcode inside a 200 response, so the body decides.
func (c *Client) do(req *http.Request, step string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wechat request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("wechat response %s: %w", req.URL.Path, err)
	}

	var apiErr struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.ErrCode != 0 {
		return &model.PlatformAPIError{
			Platform: model.PlatformWechat,
			Step:     step,
			Code:     apiErr.ErrCode,
			Message:  apiErr.ErrMsg,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("wechat request %s: unexpected status %d", req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("wechat response %s: decode: %w", req.URL.Path, err)
	}
	return nil
}
