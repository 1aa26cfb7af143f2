// Package kibana talks to Elasticsearch through the Kibana internal search
// proxy, the only path exposed in locked-down clusters.
package kibana

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/auth"
	"github.com/bascanada/loggate/pkg/errs"
	myhttp "github.com/bascanada/loggate/pkg/http"
	"github.com/bascanada/loggate/pkg/log/client"
	"github.com/bascanada/loggate/pkg/retry"
	"github.com/bascanada/loggate/pkg/sanitize"
	"github.com/bascanada/loggate/pkg/ty"
)

const (
	searchPath       = "/internal/search/es"
	savedObjectsPath = "/api/saved_objects/_find"
	catIndicesPath   = "/_cat/indices"

	// DefaultVersion is sent as kbn-version when none is configured.
	DefaultVersion = "7.10.2"
)

// Client executes searches through the Kibana API. It keeps the currently
// selected index pattern so callers can omit one per search.
type Client struct {
	http    myhttp.HttpClient
	tokens  *auth.Store
	policy  retry.Policy
	version string
	logger  *zap.Logger

	mu           sync.Mutex
	currentIndex string
}

func NewClient(httpClient myhttp.HttpClient, tokens *auth.Store, policy retry.Policy, version string, logger *zap.Logger) *Client {
	if version == "" {
		version = DefaultVersion
	}
	return &Client{
		http:    httpClient,
		tokens:  tokens,
		policy:  policy,
		version: version,
		logger:  logger.Named("kibana"),
	}
}

// CurrentIndex returns the selected index pattern, empty when none is set.
func (c *Client) CurrentIndex() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentIndex
}

// SetCurrentIndex selects the index pattern used when a search names none.
func (c *Client) SetCurrentIndex(pattern string) {
	c.mu.Lock()
	c.currentIndex = pattern
	c.mu.Unlock()
	c.logger.Info("current index set", zap.String("index", pattern))
}

func (c *Client) resolveIndex(index string) (string, error) {
	if index != "" {
		return sanitize.IndexPattern(index)
	}
	if current := c.CurrentIndex(); current != "" {
		return current, nil
	}
	return "", &errs.BackendError{
		Backend: "kibana",
		Message: "no index pattern specified and no current index set, select one first",
	}
}

func (c *Client) cookie() (myhttp.CookieAuth, error) {
	token, ok := c.tokens.Get(auth.ContextKibana)
	if !ok {
		return myhttp.CookieAuth{}, errs.NewAuthentication(auth.ContextKibana)
	}
	return myhttp.CookieAuth{Name: "_pomerium", Value: token}, nil
}

// Search runs one query and returns the normalized result. The index
// pattern is validated and the auth token checked before any network call;
// transient failures are retried under the client policy.
func (c *Client) Search(ctx context.Context, in SearchInput) (*client.SearchResult, error) {
	index, err := c.resolveIndex(in.Index)
	if err != nil {
		return nil, err
	}
	in.Index = index

	cookie, err := c.cookie()
	if err != nil {
		return nil, err
	}

	request := in.request()
	headers := ty.MS{"kbn-version": c.version}

	c.logger.Debug("search",
		zap.String("index", index),
		zap.Int("size", in.Size))

	raw, err := retry.Do(ctx, c.policy, c.logger, func(ctx context.Context) (ty.MI, error) {
		var response ty.MI
		if err := c.http.PostJson(ctx, searchPath, headers, request, &response, cookie); err != nil {
			return nil, err
		}
		return response, nil
	})
	if err != nil {
		return nil, err
	}

	result := normalize(raw)
	c.logger.Debug("search done",
		zap.String("index", index),
		zap.Int64("total", result.Total),
		zap.Int("records", len(result.Records)))
	return result, nil
}

// DiscoverIndexes lists index patterns, preferring Kibana saved objects and
// falling back to deriving patterns from the raw indices listing.
func (c *Client) DiscoverIndexes(ctx context.Context) ([]string, error) {
	cookie, err := c.cookie()
	if err != nil {
		return nil, err
	}
	headers := ty.MS{"kbn-version": c.version}

	var saved struct {
		SavedObjects []struct {
			Attributes struct {
				Title string `json:"title"`
			} `json:"attributes"`
		} `json:"saved_objects"`
	}
	err = c.http.Get(ctx, savedObjectsPath+"?type=index-pattern", nil, &saved, headerCookie{headers, cookie})
	if err == nil {
		patterns := make([]string, 0, len(saved.SavedObjects))
		for _, obj := range saved.SavedObjects {
			if obj.Attributes.Title != "" {
				patterns = append(patterns, obj.Attributes.Title)
			}
		}
		if len(patterns) > 0 {
			c.logger.Info("discovered index patterns", zap.Int("count", len(patterns)))
			return patterns, nil
		}
	} else {
		c.logger.Warn("saved objects lookup failed", zap.Error(err))
	}

	var indices []struct {
		Index string `json:"index"`
	}
	err = c.http.Get(ctx, catIndicesPath, ty.MS{"format": "json"}, &indices, headerCookie{headers, cookie})
	if err != nil {
		c.logger.Warn("indices listing failed", zap.Error(err))
		return nil, &errs.BackendError{
			Backend: "kibana",
			Message: fmt.Sprintf("failed to discover indexes: %v", err),
		}
	}

	seen := map[string]bool{}
	for _, idx := range indices {
		if idx.Index == "" {
			continue
		}
		parts := strings.Split(idx.Index, "-")
		if len(parts) >= 2 {
			seen[strings.Join(parts[:2], "-")+"*"] = true
		} else {
			seen[idx.Index] = true
		}
	}
	patterns := make([]string, 0, len(seen))
	for p := range seen {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	c.logger.Info("derived index patterns", zap.Int("count", len(patterns)))
	return patterns, nil
}

// headerCookie applies fixed headers plus a session cookie in one Auth.
type headerCookie struct {
	headers ty.MS
	cookie  myhttp.CookieAuth
}

func (h headerCookie) Login(req *http.Request) error {
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	return h.cookie.Login(req)
}
