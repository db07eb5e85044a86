// Package apiclient talks to the library server's JSON API. Every response
// body is decoded into one canonical struct and validated once here, so
// callers never see a partially populated value.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

const (
	defaultTimeout = 30 * time.Second
	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	validate   *validator.Validate
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		httpClient: httpClient,
		validate:   validator.New(),
	}
}

// SetToken replaces the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

type errorPayload struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		StatusCode int    `json:"status_code"`
	} `json:"error"`
}

// do sends one request and returns the response body for a 2xx status. A
// transport failure is a NetworkError; any other status is ServerRejected.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body interface{}) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log := logger.FromContext(ctx)
	log.Debug("api request", logger.Data{"op": op, "method": method, "url": reqURL})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WithStack(&NetworkError{Op: op, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rejected := &ServerRejected{Op: op, StatusCode: resp.StatusCode}
		var payload errorPayload
		if json.Unmarshal(raw, &payload) == nil {
			rejected.Code = payload.Error.Code
			rejected.Message = payload.Error.Message
		}
		return nil, errors.WithStack(rejected)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithStack(&NetworkError{Op: op, Err: err})
	}
	return raw, nil
}

// decode unmarshals raw into dest and validates it.
func (c *Client) decode(op string, raw []byte, dest interface{}) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return errors.WithStack(&ServerRejected{Op: op, StatusCode: http.StatusOK, Code: "malformed_response", Message: err.Error()})
	}
	if err := c.validate.Struct(dest); err != nil {
		return errors.WithStack(&ServerRejected{Op: op, StatusCode: http.StatusOK, Code: "invalid_response", Message: err.Error()})
	}
	return nil
}

func bookPath(id int, suffix string) string {
	return "/api/books/" + strconv.Itoa(id) + suffix
}

type ListBooksQuery struct {
	Limit    int
	Offset   int
	FileType string
}

type BookList struct {
	Books []*models.Book `json:"books" validate:"dive"`
	Total int            `json:"total" validate:"min=0"`
}

func (c *Client) ListBooks(ctx context.Context, q ListBooksQuery) (*BookList, error) {
	query := url.Values{}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		query.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.FileType != "" {
		query.Set("file_type", q.FileType)
	}

	raw, err := c.do(ctx, "list books", http.MethodGet, "/api/books", query, nil)
	if err != nil {
		return nil, err
	}
	list := &BookList{}
	if err := c.decode("list books", raw, list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListAllBooks pages through the whole catalog.
func (c *Client) ListAllBooks(ctx context.Context) ([]*models.Book, error) {
	const pageSize = 100
	books := []*models.Book{}
	for {
		page, err := c.ListBooks(ctx, ListBooksQuery{Limit: pageSize, Offset: len(books)})
		if err != nil {
			return nil, err
		}
		books = append(books, page.Books...)
		if len(page.Books) == 0 || len(books) >= page.Total {
			return books, nil
		}
	}
}

func (c *Client) GetBook(ctx context.Context, id int) (*models.Book, error) {
	raw, err := c.do(ctx, "get book", http.MethodGet, bookPath(id, ""), nil, nil)
	if err != nil {
		return nil, err
	}
	book := &models.Book{}
	if err := c.decode("get book", raw, book); err != nil {
		return nil, err
	}
	return book, nil
}

// GetBookFile returns the raw container bytes of a book.
func (c *Client) GetBookFile(ctx context.Context, id int) ([]byte, error) {
	return c.do(ctx, "get book file", http.MethodGet, bookPath(id, "/file"), nil, nil)
}

// GetProgress returns the server's progress for a book, or nil when the
// server has none.
func (c *Client) GetProgress(ctx context.Context, bookID int) (*models.ReadingProgress, error) {
	raw, err := c.do(ctx, "get progress", http.MethodGet, bookPath(bookID, "/progress"), nil, nil)
	if StatusCode(err) == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	progress := &models.ReadingProgress{}
	if err := c.decode("get progress", raw, progress); err != nil {
		return nil, err
	}
	return progress, nil
}

type progressPayload struct {
	ProgressPercent int       `json:"progress_percent"`
	CurrentPage     *int      `json:"current_page,omitempty"`
	TotalPages      *int      `json:"total_pages,omitempty"`
	Location        *string   `json:"location,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PutProgress sends progress and returns the record the server kept, which is
// the server's own value when it holds a newer one.
func (c *Client) PutProgress(ctx context.Context, progress models.ReadingProgress) (*models.ReadingProgress, error) {
	payload := progressPayload{
		ProgressPercent: progress.ProgressPercent,
		CurrentPage:     progress.CurrentPage,
		TotalPages:      progress.TotalPages,
		Location:        progress.Location,
		UpdatedAt:       progress.UpdatedAt.UTC(),
	}
	raw, err := c.do(ctx, "put progress", http.MethodPut, bookPath(progress.BookID, "/progress"), nil, payload)
	if err != nil {
		return nil, err
	}
	stored := &models.ReadingProgress{}
	if err := c.decode("put progress", raw, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Session struct {
	Token string       `json:"token" validate:"required"`
	User  *models.User `json:"user" validate:"required"`
}

// Login exchanges credentials for a bearer token and starts using it.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	raw, err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", nil, loginPayload{username, password})
	if err != nil {
		return nil, err
	}
	session := &Session{}
	if err := c.decode("login", raw, session); err != nil {
		return nil, err
	}
	c.token = session.Token
	return session, nil
}

func (c *Client) String() string {
	return fmt.Sprintf("apiclient(%s)", c.baseURL)
}
