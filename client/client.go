// Package client provides a Go consumer for the task board API: a thin JSON
// HTTP wrapper and a TaskProvider state container mirroring the browser data
// layer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"taskboard-api/domain"
)

// apiEnvelope mirrors the uniform response shape of every endpoint.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   int             `json:"count"`
}

// Client wraps http.Client with helpers for the task endpoints.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a new Client.
func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{}}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (apiEnvelope, error) {
	buf := new(bytes.Buffer)
	if body != nil {
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return apiEnvelope{}, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, buf)
	if err != nil {
		return apiEnvelope{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return apiEnvelope{}, err
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apiEnvelope{}, err
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return env, errors.New(msg)
	}
	return env, nil
}

// ListTasks fetches tasks matching the search text and status filter, along
// with the server-side count.
func (c *Client) ListTasks(ctx context.Context, search, status string) ([]domain.Task, int, error) {
	path := "/api/task/getAllTask?" + listQueryParams(search, status)
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, 0, err
	}
	var tasks []domain.Task
	if err := json.Unmarshal(env.Data, &tasks); err != nil {
		return nil, 0, err
	}
	return tasks, env.Count, nil
}

// CreateTask creates a task and returns the stored record.
func (c *Client) CreateTask(ctx context.Context, title, description string) (domain.Task, error) {
	body := map[string]string{"title": title, "description": description}
	env, err := c.do(ctx, http.MethodPost, "/api/task/createTask", body)
	if err != nil {
		return domain.Task{}, err
	}
	return decodeTask(env.Data)
}

// UpdateTask applies a partial update and returns the updated record. Nil
// fields are omitted from the request entirely.
func (c *Client) UpdateTask(ctx context.Context, id string, upd domain.TaskUpdate) (domain.Task, error) {
	body := map[string]any{}
	if upd.Title != nil {
		body["title"] = *upd.Title
	}
	if upd.Description != nil {
		body["description"] = *upd.Description
	}
	if upd.Status != nil {
		body["status"] = string(*upd.Status)
	}
	env, err := c.do(ctx, http.MethodPut, "/api/task/updateTask/"+id, body)
	if err != nil {
		return domain.Task{}, err
	}
	return decodeTask(env.Data)
}

// DeleteTask permanently removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/task/deleteTask/"+id, nil)
	return err
}

// GetTask fetches a single task by id.
func (c *Client) GetTask(ctx context.Context, id string) (domain.Task, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/task/task/"+id, nil)
	if err != nil {
		return domain.Task{}, err
	}
	return decodeTask(env.Data)
}

func listQueryParams(search, status string) string {
	q := url.Values{}
	q.Set("search", search)
	q.Set("status", status)
	return q.Encode()
}

func decodeTask(data json.RawMessage) (domain.Task, error) {
	var t domain.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}
