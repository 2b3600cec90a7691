// ABOUTME: Reddit API adapter: candidate fetching and comment publishing
// ABOUTME: Implements the core CandidateSource and Publisher interfaces
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harper/engage-standalone/internal/models"
)

const DefaultBaseURL = "https://oauth.reddit.com"

// Client talks to the Reddit API with an OAuth bearer token.
type Client struct {
	BaseURL    string
	Token      string
	UserAgent  string
	HTTPClient *http.Client
}

func NewClient(baseURL, token, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		UserAgent:  userAgent,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchCandidates pulls rising posts from each subreddit plus unread inbox
// replies. Inbox replies come first so they keep the lowest fetch indexes.
func (c *Client) FetchCandidates(ctx context.Context, subreddits []string) ([]models.Candidate, error) {
	var out []models.Candidate

	inbox, err := c.fetchInbox(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching inbox: %w", err)
	}
	out = append(out, inbox...)

	for _, sub := range subreddits {
		rising, err := c.fetchRising(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("fetching r/%s: %w", sub, err)
		}
		out = append(out, rising...)
	}

	for i := range out {
		out[i].FetchIndex = i
	}
	return out, nil
}

func (c *Client) fetchRising(ctx context.Context, subreddit string) ([]models.Candidate, error) {
	var listing listingResponse
	path := fmt.Sprintf("/r/%s/rising.json?limit=25", url.PathEscape(subreddit))
	if err := c.getJSON(ctx, path, &listing); err != nil {
		return nil, err
	}

	var out []models.Candidate
	for _, child := range listing.Data.Children {
		p := child.Data
		out = append(out, models.Candidate{
			ID:           p.Name,
			PostID:       p.Name,
			Subreddit:    p.Subreddit,
			Title:        p.Title,
			Body:         p.SelfText,
			Author:       p.Author,
			UpvoteRatio:  p.UpvoteRatio,
			CommentCount: p.NumComments,
			Depth:        p.NumComments,
			HasQuestion:  strings.Contains(p.Title, "?"),
			Priority:     models.PriorityRising,
			ContextURL:   "https://reddit.com" + p.Permalink,
			CreatedAt:    time.Unix(int64(p.CreatedUTC), 0).UTC(),
		})
	}
	return out, nil
}

func (c *Client) fetchInbox(ctx context.Context) ([]models.Candidate, error) {
	var listing listingResponse
	if err := c.getJSON(ctx, "/message/unread.json?limit=25", &listing); err != nil {
		return nil, err
	}

	var out []models.Candidate
	for _, child := range listing.Data.Children {
		m := child.Data
		if child.Kind != "t1" {
			// Private messages are not engagement candidates.
			continue
		}
		out = append(out, models.Candidate{
			ID:           m.Name,
			PostID:       m.ParentID,
			Subreddit:    m.Subreddit,
			Title:        m.LinkTitle,
			Body:         m.Body,
			Author:       m.Author,
			HasQuestion:  strings.Contains(m.Body, "?"),
			Priority:     models.PriorityInboxReply,
			ContextURL:   "https://reddit.com" + m.Permalink,
			CreatedAt:    time.Unix(int64(m.CreatedUTC), 0).UTC(),
		})
	}
	return out, nil
}

// PublishReply posts a comment under the decision's candidate and returns
// the created comment's fullname.
func (c *Client) PublishReply(ctx context.Context, d *models.Decision) (string, error) {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", d.CandidateID)
	form.Set("text", d.Draft)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/comment", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("comment failed with status: %d", resp.StatusCode)
	}

	var result commentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding comment response: %w", err)
	}
	if len(result.JSON.Errors) > 0 {
		return "", fmt.Errorf("comment rejected: %v", result.JSON.Errors[0])
	}
	if len(result.JSON.Data.Things) == 0 {
		return "", fmt.Errorf("comment response carried no created thing")
	}
	return result.JSON.Data.Things[0].Data.Name, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s failed with status: %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) setHeaders(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
}
