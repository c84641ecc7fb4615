// Package hn fetches discussion threads from the Algolia items API and
// converts them into the RawNode forest the enrichment engine consumes.
package hn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"threadlens/internal/thread"
)

const defaultBaseURL = "https://hn.algolia.com/api/v1"

var ErrThreadNotFound = errors.New("hn: thread not found")

// Client is a read-only HTTP client for thread trees.
type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// item mirrors the API response shape. IDs arrive as JSON numbers and
// are normalized to strings to match listing-side identifiers.
type item struct {
	ID       json.Number `json:"id"`
	Author   string      `json:"author"`
	Children []item      `json:"children"`
}

// Thread fetches one story with its full comment tree. The story node
// itself becomes the synthetic root.
func (c *Client) Thread(ctx context.Context, postID string) (*thread.RawNode, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, fmt.Errorf("hn: post id is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/items/"+postID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrThreadNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		const max = 1024
		if len(raw) > max {
			raw = raw[:max]
		}
		return nil, fmt.Errorf("hn: unexpected status %s: %s", resp.Status, string(raw))
	}
	var root item
	if err := json.NewDecoder(resp.Body).Decode(&root); err != nil {
		return nil, fmt.Errorf("hn: decode thread: %w", err)
	}
	return toRawNode(root), nil
}

func toRawNode(it item) *thread.RawNode {
	n := &thread.RawNode{
		ID:     it.ID.String(),
		Author: it.Author,
	}
	if len(it.Children) > 0 {
		n.Children = make([]*thread.RawNode, 0, len(it.Children))
		for _, child := range it.Children {
			n.Children = append(n.Children, toRawNode(child))
		}
	}
	return n
}
