package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PorunC/telegram-sticker-maker/internal/config"
	"github.com/PorunC/telegram-sticker-maker/internal/logging"
	"github.com/PorunC/telegram-sticker-maker/internal/services"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client calls the Bot API. Every method issues exactly one request and never
// retries.
type Client struct {
	baseURL string
	token   string
	http    HTTPDoer
	logger  *slog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	HTTP    HTTPDoer
	Logger  *slog.Logger
}

// New constructs a Client. A nil HTTP doer gets a client with a 30 second
// timeout.
func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	doer := opts.HTTP
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(opts.Token),
		http:    doer,
		logger:  logging.NewComponentLogger(opts.Logger, "telegram"),
	}
}

// NewFromConfig builds a Client with the configured timeout and proxy.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "telegram", "configure client", "", err)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy := cfg.ProxyURL(); proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}
	return New(Options{
		BaseURL: cfg.Telegram.APIBaseURL,
		Token:   cfg.Telegram.BotToken,
		HTTP:    &http.Client{Timeout: cfg.RequestTimeout(), Transport: transport},
		Logger:  logger,
	}), nil
}

// ResponseParameters carries the optional hints attached to failed calls.
type ResponseParameters struct {
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
	RetryAfter      int   `json:"retry_after,omitempty"`
}

type envelope struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// APIError is an ok:false response from the Bot API.
type APIError struct {
	Method      string
	Code        int
	Description string
	Parameters  *ResponseParameters
}

func (e *APIError) Error() string {
	desc := e.Description
	if desc == "" {
		desc = "unknown error"
	}
	if e.Code != 0 {
		return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, desc)
	}
	return fmt.Sprintf("telegram %s: %s", e.Method, desc)
}

func (e *APIError) Unwrap() error { return services.ErrRemote }

// Attachment is a local file sent as a multipart part under Field.
type Attachment struct {
	Field string
	Path  string
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) callJSON(ctx context.Context, method string, payload any, out any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", method, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, method, req, out)
}

func (c *Client) callForm(ctx context.Context, method string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(ctx, method, req, out)
}

// callMultipart streams form fields and attachments. Attachment files are
// opened one at a time while the body is written and are closed before the
// call returns.
func (c *Client) callMultipart(ctx context.Context, method string, form url.Values, files []Attachment, out any) error {
	for _, f := range files {
		if _, err := os.Stat(f.Path); err != nil {
			return services.Wrap(services.ErrNotFound, "telegram", method, "attachment "+filepath.Base(f.Path), err)
		}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		pw.CloseWithError(writeMultipart(mw, form, files))
	}()
	defer func() {
		pr.Close()
		<-done
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), pr)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(ctx, method, req, out)
}

func writeMultipart(mw *multipart.Writer, form url.Values, files []Attachment) error {
	for key, values := range form {
		for _, v := range values {
			if err := mw.WriteField(key, v); err != nil {
				return err
			}
		}
	}
	for _, f := range files {
		if err := writeFilePart(mw, f); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFilePart(mw *multipart.Writer, f Attachment) error {
	file, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, filepath.Base(f.Path)))
	header.Set("Content-Type", MIMEType(filepath.Ext(f.Path)))
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}

func (c *Client) do(ctx context.Context, method string, req *http.Request, out any) error {
	logger := logging.WithContext(ctx, c.logger).With(logging.Method(method))

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error("request failed", logging.Error(c.redact(err)))
		marker := services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		} else if errors.Is(err, context.Canceled) {
			marker = services.ErrCancelled
		}
		return services.Wrap(marker, "telegram", method, "request failed", c.redact(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return services.Wrap(services.ErrTransient, "telegram", method, "read response", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		logger.Error("malformed response",
			logging.Int("status", resp.StatusCode),
			logging.String("body", snippet),
		)
		return services.Wrap(services.ErrTransient, "telegram", method,
			fmt.Sprintf("HTTP %d: malformed response", resp.StatusCode), err)
	}

	if !env.OK {
		apiErr := &APIError{Method: method, Code: env.ErrorCode, Description: env.Description, Parameters: env.Parameters}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		attrs := []logging.Attr{
			logging.Int("error_code", apiErr.Code),
			logging.String("description", apiErr.Description),
		}
		if env.Parameters != nil {
			attrs = append(attrs,
				logging.Int("retry_after", env.Parameters.RetryAfter),
				logging.Int64("migrate_to_chat_id", env.Parameters.MigrateToChatID),
			)
		}
		logger.Error("api call rejected", logging.Args(attrs...)...)
		return apiErr
	}

	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return services.Wrap(services.ErrTransient, "telegram", method, "decode result", err)
	}
	logger.Debug("api call ok")
	return nil
}

// redact strips the bot token from transport errors, which embed the URL.
func (c *Client) redact(err error) error {
	if err == nil || c.token == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, c.token) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, c.token, "<token>"))
}
