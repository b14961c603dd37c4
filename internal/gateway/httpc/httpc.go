// Package httpc is the gateway implementation backed by a hosted sync
// server: JSON over HTTP for CRUD, a websocket for the change feed.
package httpc

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

	"tend-cli/internal/gateway"
	"tend-cli/internal/model"
)

type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

func New(baseURL, token string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url scheme %q", u.Scheme)
	}
	return &Client{
		base:  u,
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// do sends one request and decodes the response into out (when non-nil).
// Error statuses come back as the typed gateway errors the server encoded.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return gateway.NotFoundError{Kind: "resource", ID: msg}
	case http.StatusForbidden:
		return gateway.AccessDeniedError{Kind: "resource", ID: msg}
	case http.StatusBadRequest:
		return gateway.ValidationError{Msg: msg}
	case http.StatusConflict:
		return gateway.ConflictError{Msg: msg}
	default:
		return fmt.Errorf("server error: %s", msg)
	}
}

func (c *Client) ListLists(ctx context.Context) ([]model.List, error) {
	var out []model.List
	err := c.do(ctx, http.MethodGet, "/v1/lists", nil, &out)
	return out, err
}

func (c *Client) CreateList(ctx context.Context, l model.List) (model.List, error) {
	var out model.List
	err := c.do(ctx, http.MethodPost, "/v1/lists", l, &out)
	return out, err
}

func (c *Client) UpdateList(ctx context.Context, id string, patch model.ListPatch) (model.List, error) {
	var out model.List
	err := c.do(ctx, http.MethodPatch, "/v1/lists/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (c *Client) DeleteList(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/lists/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListItems(ctx context.Context) ([]model.Item, error) {
	var out []model.Item
	err := c.do(ctx, http.MethodGet, "/v1/items", nil, &out)
	return out, err
}

func (c *Client) CreateItem(ctx context.Context, it model.Item) (model.Item, error) {
	var out model.Item
	err := c.do(ctx, http.MethodPost, "/v1/items", it, &out)
	return out, err
}

func (c *Client) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) (model.Item, error) {
	var out model.Item
	err := c.do(ctx, http.MethodPatch, "/v1/items/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/items/"+url.PathEscape(id), nil, nil)
}

type noteBody struct {
	Content string `json:"content"`
}

func (c *Client) AddNote(ctx context.Context, itemID, content string) (model.Note, error) {
	var out model.Note
	err := c.do(ctx, http.MethodPost, "/v1/items/"+url.PathEscape(itemID)+"/notes", noteBody{Content: content}, &out)
	return out, err
}

func (c *Client) UpdateNote(ctx context.Context, noteID, content string) (model.Note, error) {
	var out model.Note
	err := c.do(ctx, http.MethodPatch, "/v1/notes/"+url.PathEscape(noteID), noteBody{Content: content}, &out)
	return out, err
}

func (c *Client) DeleteNote(ctx context.Context, noteID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/notes/"+url.PathEscape(noteID), nil, nil)
}

func (c *Client) AddAttachment(ctx context.Context, itemID, name string, r io.Reader, size int64) (model.Attachment, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return model.Attachment{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return model.Attachment{}, err
	}
	if err := mw.Close(); err != nil {
		return model.Attachment{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base.String()+"/v1/items/"+url.PathEscape(itemID)+"/attachments", &buf)
	if err != nil {
		return model.Attachment{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Attachment{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return model.Attachment{}, decodeError(resp)
	}
	var out model.Attachment
	return out, json.NewDecoder(resp.Body).Decode(&out)
}

func (c *Client) DeleteAttachment(ctx context.Context, attachmentID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/attachments/"+url.PathEscape(attachmentID), nil, nil)
}

type checkBody struct {
	Emails []string `json:"emails"`
}

func (c *Client) CheckUsersExist(ctx context.Context, emails []string) ([]gateway.UserCheck, error) {
	var out []gateway.UserCheck
	err := c.do(ctx, http.MethodPost, "/v1/users/check", checkBody{Emails: emails}, &out)
	return out, err
}
