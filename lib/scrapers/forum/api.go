package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Listing fetches one page of the newest posts in a source. A nil page
// with a nil error means the source persistently refused the request.
func (c *Client) Listing(ctx context.Context, source, after string, limit int) (*Page, error) {
	query := map[string]string{
		"limit": strconv.Itoa(limit),
	}
	if after != "" {
		query["after"] = after
	}

	body := c.fetch(ctx, fmt.Sprintf("/r/%s/new.json", source), query)
	if body == nil {
		return nil, nil
	}

	var envelope listingEnvelope
	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("malformed listing response: %w", err)
	}

	page := &Page{After: envelope.Data.After}
	for _, child := range envelope.Data.Children {
		page.Posts = append(page.Posts, child.Data)
	}
	return page, nil
}

// Comments fetches the flattened comment bodies of a thread. The
// endpoint returns a two-element array, the comment tree lives in the
// second element.
func (c *Client) Comments(ctx context.Context, source, postId string) ([]string, error) {
	body := c.fetch(ctx, fmt.Sprintf("/r/%s/comments/%s.json", source, postId), map[string]string{
		"limit": "100",
	})
	if body == nil {
		return nil, nil
	}

	var envelopes []commentEnvelope
	err := json.Unmarshal(body, &envelopes)
	if err != nil {
		return nil, fmt.Errorf("malformed comments response: %w", err)
	}
	if len(envelopes) < 2 {
		return nil, nil
	}

	var comments []string
	collectComments(envelopes[1], &comments)
	return comments, nil
}

// Search runs a keyword search over recent posts. `window` is the
// source's recency window parameter, ex. "week" or "month".
func (c *Client) Search(ctx context.Context, keyword string, limit int, window string) ([]Post, error) {
	body := c.fetch(ctx, "/search.json", map[string]string{
		"q":     keyword,
		"limit": strconv.Itoa(limit),
		"t":     window,
		"sort":  "new",
	})
	if body == nil {
		return nil, nil
	}

	var envelope listingEnvelope
	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("malformed search response: %w", err)
	}

	var posts []Post
	for _, child := range envelope.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}
