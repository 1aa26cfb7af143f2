// Package periscope talks to the Periscope SQL log analytics API. Queries
// are shipped base64-encoded with epoch-microsecond time bounds, the format
// the legacy server expects.
package periscope

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/auth"
	"github.com/bascanada/loggate/pkg/cache"
	"github.com/bascanada/loggate/pkg/errs"
	myhttp "github.com/bascanada/loggate/pkg/http"
	"github.com/bascanada/loggate/pkg/retry"
	"github.com/bascanada/loggate/pkg/sanitize"
	"github.com/bascanada/loggate/pkg/ty"
)

const (
	// DefaultOrg is the organization used when a call names none.
	DefaultOrg = "default"

	// DefaultStream is the stream error searches target by default.
	DefaultStream = "ziox"
)

// SearchOptions describes one SQL search.
type SearchOptions struct {
	SQL        string
	StartTime  string
	EndTime    string
	Timezone   string
	MaxResults int
	Org        string
}

type queryBody struct {
	SQL       string `json:"sql"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	From      int    `json:"from"`
	Size      int    `json:"size"`
	QuickMode bool   `json:"quick_mode"`
	SQLMode   string `json:"sql_mode"`
}

type searchPayload struct {
	Query    queryBody `json:"query"`
	Encoding string    `json:"encoding"`
}

// Client executes SQL queries and stream inspection against Periscope.
type Client struct {
	http        myhttp.HttpClient
	tokens      *auth.Store
	policy      retry.Policy
	org         string
	stream      string
	logger      *zap.Logger
	searchCache *cache.Cache
	schemaCache *cache.Cache
	now         func() time.Time
}

func NewClient(httpClient myhttp.HttpClient, tokens *auth.Store, policy retry.Policy, org, stream string, logger *zap.Logger) *Client {
	if org == "" {
		org = DefaultOrg
	}
	if stream == "" {
		stream = DefaultStream
	}
	return &Client{
		http:        httpClient,
		tokens:      tokens,
		policy:      policy,
		org:         org,
		stream:      stream,
		logger:      logger.Named("periscope"),
		searchCache: cache.New(cache.SearchMaxSize, cache.SearchTTL),
		schemaCache: cache.New(cache.SchemaMaxSize, cache.SchemaTTL),
		now:         time.Now,
	}
}

func (c *Client) cookie() (myhttp.CookieAuth, error) {
	token, ok := c.tokens.Get(auth.ContextPeriscope)
	if !ok {
		return myhttp.CookieAuth{}, errs.NewAuthentication(auth.ContextPeriscope)
	}
	return myhttp.CookieAuth{Name: "auth_tokens", Value: token}, nil
}

func (c *Client) resolveOrg(org string) string {
	if org == "" {
		return c.org
	}
	return org
}

// Search runs one SQL query. The query text is validated before any token
// lookup or network traffic, and identical queries are served from cache
// within the search TTL.
func (c *Client) Search(ctx context.Context, opts SearchOptions) (ty.MI, error) {
	if _, err := sanitize.Query(opts.SQL); err != nil {
		return nil, err
	}
	if opts.StartTime == "" {
		opts.StartTime = "24h"
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 50
	}
	org := c.resolveOrg(opts.Org)

	cacheKey := fmt.Sprintf("%s|%s|%s|%s|%d|%s",
		opts.SQL, opts.StartTime, opts.EndTime, opts.Timezone, opts.MaxResults, org)
	if cached, ok := c.searchCache.Get(cacheKey); ok {
		c.logger.Debug("search cache hit")
		return cached.(ty.MI), nil
	}

	cookie, err := c.cookie()
	if err != nil {
		return nil, err
	}

	now := c.now()
	start, err := ty.ParseTimeInput(opts.StartTime, opts.Timezone, now)
	if err != nil {
		return nil, errs.NewValidation("time_range", "invalid start time %q: %v", opts.StartTime, err)
	}
	endMicros := ty.EpochMicros(now)
	if opts.EndTime != "" {
		end, err := ty.ParseTimeInput(opts.EndTime, opts.Timezone, now)
		if err != nil {
			return nil, errs.NewValidation("time_range", "invalid end time %q: %v", opts.EndTime, err)
		}
		endMicros = ty.EpochMicros(end)
	}

	payload := searchPayload{
		Query: queryBody{
			SQL:       base64.StdEncoding.EncodeToString([]byte(opts.SQL)),
			StartTime: ty.EpochMicros(start),
			EndTime:   endMicros,
			From:      0,
			Size:      opts.MaxResults,
			QuickMode: false,
			SQLMode:   "full",
		},
		Encoding: "base64",
	}

	path := fmt.Sprintf("/api/%s/_search?type=logs&search_type=ui&use_cache=true", org)

	c.logger.Debug("search",
		zap.String("sql", sanitize.ForLogging(opts.SQL, 100)),
		zap.String("org", org),
		zap.Int("size", opts.MaxResults))

	result, err := retry.Do(ctx, c.policy, c.logger, func(ctx context.Context) (ty.MI, error) {
		var response ty.MI
		if err := c.http.PostJson(ctx, path, nil, payload, &response, cookie); err != nil {
			return nil, err
		}
		return response, nil
	})
	if err != nil {
		return nil, err
	}

	c.searchCache.Set(cacheKey, result)
	return result, nil
}

// SearchErrors searches a stream for 4xx/5xx entries over the last hours.
// The SQL is assembled only from sanitized parts.
func (c *Client) SearchErrors(ctx context.Context, hours int, stream, errorCodes, org, timezone string) (ty.MI, error) {
	if hours <= 0 {
		hours = 24
	}
	if stream == "" {
		stream = c.stream
	}
	cleanStream, err := sanitize.StreamName(stream)
	if err != nil {
		return nil, err
	}

	where := "WHERE status_code >= '400'"
	if errorCodes != "" {
		cleanCodes, err := sanitize.ErrorCodePattern(errorCodes)
		if err != nil {
			return nil, err
		}
		where = fmt.Sprintf("WHERE status_code LIKE '%s'", cleanCodes)
	}

	sql := fmt.Sprintf(`SELECT * FROM "%s" %s`, cleanStream, where)
	return c.Search(ctx, SearchOptions{
		SQL:       sql,
		StartTime: fmt.Sprintf("%dh", hours),
		Timezone:  timezone,
		Org:       org,
	})
}

// Streams lists the log streams available to the organization.
func (c *Client) Streams(ctx context.Context, org string) ([]ty.MI, error) {
	cookie, err := c.cookie()
	if err != nil {
		return nil, err
	}
	org = c.resolveOrg(org)

	var response struct {
		List  []ty.MI `json:"list"`
		Total int     `json:"total"`
	}
	path := fmt.Sprintf("/api/%s/streams", org)
	if err := c.http.Get(ctx, path, ty.MS{"type": "logs"}, &response, cookie); err != nil {
		return nil, err
	}
	return response.List, nil
}

// StreamSchema fetches the field schema of one stream, cached for an hour.
func (c *Client) StreamSchema(ctx context.Context, stream, org string) (ty.MI, error) {
	cleanStream, err := sanitize.StreamName(stream)
	if err != nil {
		return nil, err
	}
	org = c.resolveOrg(org)

	cacheKey := org + "|" + cleanStream
	if cached, ok := c.schemaCache.Get(cacheKey); ok {
		return cached.(ty.MI), nil
	}

	cookie, err := c.cookie()
	if err != nil {
		return nil, err
	}

	var schema ty.MI
	path := fmt.Sprintf("/api/%s/streams/%s/schema", org, cleanStream)
	if err := c.http.Get(ctx, path, ty.MS{"type": "logs"}, &schema, cookie); err != nil {
		return nil, err
	}

	c.schemaCache.Set(cacheKey, schema)
	return schema, nil
}
