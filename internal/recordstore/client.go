// Package recordstore is a thin HTTP client for the hosted record store's
// REST interface. Every call is scoped to an authenticated user session;
// anonymous runs never touch this package.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rbright/greenroom/internal/identity"
)

// ErrNotFound indicates the requested row does not exist or is not visible
// to the current user.
var ErrNotFound = errors.New("record not found")

// Client issues REST calls against the record store.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New builds a client for the given store endpoint.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// InterviewByID fetches one interview row.
func (c *Client) InterviewByID(ctx context.Context, auth *identity.Session, id string) (InterviewRecord, error) {
	var rows []InterviewRecord
	err := c.get(ctx, auth, "interviews", url.Values{
		"id":     {"eq." + id},
		"select": {"*"},
	}, &rows)
	if err != nil {
		return InterviewRecord{}, err
	}
	if len(rows) == 0 {
		return InterviewRecord{}, fmt.Errorf("interview %s: %w", id, ErrNotFound)
	}
	return rows[0], nil
}

// InterviewsByUser lists the user's interviews, newest first.
func (c *Client) InterviewsByUser(ctx context.Context, auth *identity.Session) ([]InterviewRecord, error) {
	var rows []InterviewRecord
	err := c.get(ctx, auth, "interviews", url.Values{
		"user_id": {"eq." + auth.UserID},
		"select":  {"*"},
		"order":   {"date.desc"},
	}, &rows)
	return rows, err
}

// TemplateByID fetches one template row.
func (c *Client) TemplateByID(ctx context.Context, auth *identity.Session, id string) (TemplateRecord, error) {
	var rows []TemplateRecord
	err := c.get(ctx, auth, "interview_templates", url.Values{
		"id":     {"eq." + id},
		"select": {"*"},
	}, &rows)
	if err != nil {
		return TemplateRecord{}, err
	}
	if len(rows) == 0 {
		return TemplateRecord{}, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return rows[0], nil
}

// QuestionsByTemplate lists a template's stored questions in position order.
func (c *Client) QuestionsByTemplate(ctx context.Context, auth *identity.Session, templateID string) ([]TemplateQuestion, error) {
	var rows []TemplateQuestion
	err := c.get(ctx, auth, "template_questions", url.Values{
		"template_id": {"eq." + templateID},
		"select":      {"*"},
		"order":       {"position.asc"},
	}, &rows)
	return rows, err
}

// AnswersByInterview lists a finished interview's stored answers in order.
func (c *Client) AnswersByInterview(ctx context.Context, auth *identity.Session, interviewID string) ([]AnswerRecord, error) {
	var rows []AnswerRecord
	err := c.get(ctx, auth, "interview_answers", url.Values{
		"interview_id": {"eq." + interviewID},
		"select":       {"*"},
		"order":        {"position.asc"},
	}, &rows)
	return rows, err
}

// InsertInterview creates an interview row and returns the stored copy.
func (c *Client) InsertInterview(ctx context.Context, auth *identity.Session, record InterviewRecord) (InterviewRecord, error) {
	var rows []InterviewRecord
	if err := c.post(ctx, auth, "interviews", record, &rows); err != nil {
		return InterviewRecord{}, err
	}
	if len(rows) == 0 {
		return InterviewRecord{}, fmt.Errorf("insert interview: empty representation")
	}
	return rows[0], nil
}

// InsertAnswers bulk-inserts a finished interview's answer rows.
func (c *Client) InsertAnswers(ctx context.Context, auth *identity.Session, records []AnswerRecord) error {
	if len(records) == 0 {
		return nil
	}
	return c.post(ctx, auth, "interview_answers", records, nil)
}

// UpdateInterviewScore marks an interview completed with its final score.
func (c *Client) UpdateInterviewScore(ctx context.Context, auth *identity.Session, id string, score int) error {
	body := map[string]any{"score": score, "status": StatusCompleted}
	return c.patch(ctx, auth, "interviews", url.Values{"id": {"eq." + id}}, body)
}

func (c *Client) get(ctx context.Context, auth *identity.Session, table string, query url.Values, out any) error {
	return c.do(ctx, auth, http.MethodGet, table, query, nil, out)
}

func (c *Client) post(ctx context.Context, auth *identity.Session, table string, body, out any) error {
	return c.do(ctx, auth, http.MethodPost, table, nil, body, out)
}

func (c *Client) patch(ctx context.Context, auth *identity.Session, table string, query url.Values, body any) error {
	return c.do(ctx, auth, http.MethodPatch, table, query, body, nil)
}

func (c *Client) do(ctx context.Context, auth *identity.Session, method, table string, query url.Values, body, out any) error {
	if auth == nil {
		return fmt.Errorf("record store requires an authenticated session")
	}

	endpoint := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", table, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", table, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if out != nil && method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, table, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s reply: %w", table, err)
	}
	return nil
}
