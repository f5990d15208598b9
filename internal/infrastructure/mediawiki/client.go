// Package mediawiki talks to a MediaWiki site: raw page reads, bot edits and API queries.
package mediawiki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"CitationWatch/internal/ports"
)

var (
	// ErrPageMissing is returned when a page does not exist on the wiki.
	ErrPageMissing = errors.New("page does not exist")
	// ErrNoCredentials is returned when an edit is attempted without bot credentials.
	ErrNoCredentials = errors.New("wiki credentials are not configured")
)

// APIError is an error object returned by api.php.
type APIError struct {
	Code string
	Info string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mediawiki api error %s: %s", e.Code, e.Info)
}

// Options configure a Client.
type Options struct {
	BaseURL   string
	UserAgent string
	Username  string
	Password  string
	Timeout   time.Duration
}

// Client is a MediaWiki API client holding one login session.
type Client struct {
	base      string
	userAgent string
	username  string
	password  string
	http      *http.Client
	logger    *slog.Logger
	loggedIn  bool
}

var (
	_ ports.PageStore  = (*Client)(nil)
	_ ports.LinkSource = (*Client)(nil)
)

// NewClient builds a client with its own cookie jar for the login session.
func NewClient(opts Options, logger *slog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	jar, _ := cookiejar.New(nil)

	return &Client{
		base:      strings.TrimSuffix(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		username:  opts.Username,
		password:  opts.Password,
		http:      &http.Client{Timeout: timeout, Jar: jar},
		logger:    logger,
	}
}

// FetchPage returns the current wikitext of title.
func (c *Client) FetchPage(ctx context.Context, title string) (string, error) {
	body, err := c.index(ctx, title, "raw")
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", title, err)
	}
	return body, nil
}

// RenderPage returns the parsed HTML of title without the skin.
func (c *Client) RenderPage(ctx context.Context, title string) (string, error) {
	body, err := c.index(ctx, title, "render")
	if err != nil {
		return "", fmt.Errorf("render %s: %w", title, err)
	}
	return body, nil
}

// SavePage replaces the text of an existing page. The page is never created.
func (c *Client) SavePage(ctx context.Context, title, text, summary string) error {
	if err := c.login(ctx); err != nil {
		return err
	}

	token, err := c.token(ctx, "csrf")
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("action", "edit")
	form.Set("title", title)
	form.Set("text", text)
	form.Set("summary", summary)
	form.Set("bot", "1")
	form.Set("nocreate", "1")
	form.Set("token", token)

	res, err := c.post(ctx, form)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == "missingtitle" {
			return fmt.Errorf("save %s: %w", title, ErrPageMissing)
		}
		return fmt.Errorf("save %s: %w", title, err)
	}
	if result := res.Get("edit.result").String(); result != "Success" {
		return fmt.Errorf("save %s: edit result %q", title, result)
	}

	c.debug("page saved", "title", title, "revision", res.Get("edit.newrevid").Int())
	return nil
}

// ExternalLinks lists every external link on title, following API continuation.
func (c *Client) ExternalLinks(ctx context.Context, title string) ([]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extlinks")
	params.Set("titles", title)
	params.Set("ellimit", "max")

	var links []string
	err := c.paginate(ctx, params, func(res gjson.Result) {
		res.Get("query.pages").ForEach(func(_, page gjson.Result) bool {
			page.Get("extlinks").ForEach(func(_, link gjson.Result) bool {
				links = append(links, link.Get("url").String())
				return true
			})
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("external links of %s: %w", title, err)
	}
	return links, nil
}

// CategoryMembers lists article-namespace titles in category.
func (c *Client) CategoryMembers(ctx context.Context, category string) ([]string, error) {
	if !strings.HasPrefix(category, "Category:") {
		category = "Category:" + category
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "categorymembers")
	params.Set("cmtitle", category)
	params.Set("cmnamespace", "0")
	params.Set("cmlimit", "max")

	var titles []string
	err := c.paginate(ctx, params, func(res gjson.Result) {
		res.Get("query.categorymembers.#.title").ForEach(func(_, title gjson.Result) bool {
			titles = append(titles, title.String())
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("members of %s: %w", category, err)
	}
	return titles, nil
}

func (c *Client) paginate(ctx context.Context, params url.Values, page func(gjson.Result)) error {
	for {
		res, err := c.get(ctx, params)
		if err != nil {
			return err
		}
		page(res)

		cont := res.Get("continue")
		if !cont.Exists() {
			return nil
		}
		cont.ForEach(func(key, value gjson.Result) bool {
			params.Set(key.String(), value.String())
			return true
		})
	}
}

func (c *Client) login(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}
	if c.username == "" || c.password == "" {
		return ErrNoCredentials
	}

	token, err := c.token(ctx, "login")
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("action", "login")
	form.Set("lgname", c.username)
	form.Set("lgpassword", c.password)
	form.Set("lgtoken", token)

	res, err := c.post(ctx, form)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if result := res.Get("login.result").String(); result != "Success" {
		return fmt.Errorf("login: result %q: %s", result, res.Get("login.reason").String())
	}

	c.loggedIn = true
	c.debug("logged in", "user", c.username)
	return nil
}

func (c *Client) token(ctx context.Context, kind string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "tokens")
	params.Set("type", kind)

	res, err := c.get(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s token: %w", kind, err)
	}
	token := res.Get("query.tokens." + kind + "token").String()
	if token == "" {
		return "", fmt.Errorf("%s token missing from response", kind)
	}
	return token, nil
}

func (c *Client) index(ctx context.Context, title, action string) (string, error) {
	params := url.Values{}
	params.Set("title", title)
	params.Set("action", action)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/w/index.php?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrPageMissing
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wiki returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

func (c *Client) get(ctx context.Context, params url.Values) (gjson.Result, error) {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/w/api.php?"+params.Encode(), nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build request: %w", err)
	}
	return c.api(req)
}

func (c *Client) post(ctx context.Context, form url.Values) (gjson.Result, error) {
	form.Set("format", "json")
	form.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/w/api.php", strings.NewReader(form.Encode()))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.api(req)
}

func (c *Client) api(req *http.Request) (gjson.Result, error) {
	resp, err := c.do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return gjson.Result{}, fmt.Errorf("api returned %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("api returned invalid json")
	}

	res := gjson.ParseBytes(body)
	if apiErr := res.Get("error"); apiErr.Exists() {
		return gjson.Result{}, &APIError{Code: apiErr.Get("code").String(), Info: apiErr.Get("info").String()}
	}
	return res, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	return resp, nil
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
