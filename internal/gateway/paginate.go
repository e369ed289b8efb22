package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	apperrors "github.com/naka-gawa/github-fork-stats/internal/errors"
)

// ErrPageLimitExceeded is returned when a listing has more pages than the client allows.
var ErrPageLimitExceeded = errors.New("pagination limit exceeded")

// CollectAll fetches endpoint and every page reachable through rel="next" links.
// List pages are concatenated; a page holding a single object contributes one item.
func (c *Client) CollectAll(ctx context.Context, endpoint, token string) ([]json.RawMessage, error) {
	items, _, err := c.collect(ctx, endpoint, token)
	return items, err
}

// collect is CollectAll that also reports whether the very first page was a 404,
// which tells a missing resource apart from an empty listing.
func (c *Client) collect(ctx context.Context, endpoint, token string) ([]json.RawMessage, bool, error) {
	var items []json.RawMessage
	visited := make(map[string]bool)

	next := endpoint
	for pages := 0; next != ""; pages++ {
		if pages >= c.maxPages {
			c.logger.WithFields(logrus.Fields{"endpoint": endpoint, "pages": c.maxPages}).Error("Pagination limit exceeded")
			return nil, false, &apperrors.AppError{
				Code:    apperrors.ErrCodeUpstream,
				Message: fmt.Sprintf("pagination limit exceeded: %s has more than %d pages", endpoint, c.maxPages),
				Err:     ErrPageLimitExceeded,
			}
		}
		visited[next] = true

		page, err := c.Get(ctx, next, token)
		if err != nil {
			return nil, false, err
		}
		if page.NotFound() {
			return items, pages == 0, nil
		}

		pageItems, err := splitItems(page.Body)
		if err != nil {
			return nil, false, fmt.Errorf("failed to decode page of %s: %w", endpoint, err)
		}
		items = append(items, pageItems...)

		next = page.Links["next"]
		if next != "" && visited[next] {
			c.logger.WithFields(logrus.Fields{"endpoint": endpoint, "next": next}).Warn("Link header points back to a visited page, stopping")
			break
		}
	}
	return items, false, nil
}

func splitItems(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] != '[' {
		return []json.RawMessage{json.RawMessage(trimmed)}, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// isList reports whether a response body is a JSON array.
func isList(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func decodeItems[T any](items []json.RawMessage) ([]*T, error) {
	out := make([]*T, 0, len(items))
	for _, raw := range items {
		v := new(T)
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
