package kibana

import (
	"context"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bascanada/loggate/pkg/auth"
	"github.com/bascanada/loggate/pkg/errs"
	myhttp "github.com/bascanada/loggate/pkg/http"
	"github.com/bascanada/loggate/pkg/retry"
	"github.com/bascanada/loggate/pkg/ty"
)

func fastPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.InitialBackoff = time.Millisecond
	p.MaxBackoff = 5 * time.Millisecond
	p.JitterFactor = 0
	return p
}

func newTestClient(t *testing.T, withToken bool) *Client {
	return newTestClientWithPolicy(t, withToken, fastPolicy())
}

func newTestClientWithPolicy(t *testing.T, withToken bool, policy retry.Policy) *Client {
	logger := zaptest.NewLogger(t)
	tokens := auth.NewStore(logger)
	if withToken {
		require.NoError(t, tokens.Set(auth.ContextKibana, "pomerium-token", 0))
	}
	manager := myhttp.NewConnectionManager(true, 5*time.Second)
	hc := myhttp.NewClient("kibana", "https://kibana.example.com", manager, myhttp.ClientOptions{}, logger)
	gock.InterceptClient(hc.Underlying())
	return NewClient(hc, tokens, policy, "8.9.0", logger)
}

func rawResponseBody(messages ...string) ty.MI {
	hits := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		hits = append(hits, ty.MI{"_source": ty.MI{
			"message":    m,
			"level":      "ERROR",
			"@timestamp": "2024-03-01T10:00:00.000Z",
		}})
	}
	return ty.MI{"rawResponse": ty.MI{
		"took": 12,
		"hits": ty.MI{
			"total": ty.MI{"value": len(messages)},
			"hits":  hits,
		},
	}}
}

func TestSearchNormalizesRawResponse(t *testing.T) {
	defer gock.Off()

	gock.New("https://kibana.example.com").
		Post("/internal/search/es").
		MatchHeader("kbn-version", "8.9.0").
		MatchHeader("Cookie", "_pomerium=pomerium-token").
		Reply(200).
		JSON(rawResponseBody("payment failed", "payment retried"))

	c := newTestClient(t, true)
	result, err := c.Search(context.Background(), SearchInput{
		Index: "breeze-v2*",
		Query: ty.MI{"match_all": ty.MI{}},
		Size:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "payment failed", result.Records[0].Message)
	assert.Equal(t, "ERROR", result.Records[0].Level)
	assert.Equal(t, 2024, result.Records[0].Timestamp.Year())
}

func TestSearchRetriesTransientFailures(t *testing.T) {
	defer gock.Off()

	gock.New("https://kibana.example.com").
		Post("/internal/search/es").
		Times(2).
		Reply(503).
		BodyString("unavailable")
	gock.New("https://kibana.example.com").
		Post("/internal/search/es").
		Reply(200).
		JSON(rawResponseBody("recovered"))

	c := newTestClient(t, true)
	result, err := c.Search(context.Background(), SearchInput{
		Index: "logs-*",
		Query: ty.MI{"match_all": ty.MI{}},
		Size:  1,
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "recovered", result.Records[0].Message)
	assert.True(t, gock.IsDone())
}

func TestSearchWithoutTokenMakesNoRequest(t *testing.T) {
	defer gock.Off()

	c := newTestClient(t, false)
	_, err := c.Search(context.Background(), SearchInput{
		Index: "logs-*",
		Query: ty.MI{"match_all": ty.MI{}},
	})
	require.Error(t, err)
	var authErr *errs.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, auth.ContextKibana, authErr.Context)
	assert.False(t, gock.HasUnmatchedRequest())
}

func TestSearchRejectsInvalidIndexPattern(t *testing.T) {
	defer gock.Off()

	c := newTestClient(t, true)
	_, err := c.Search(context.Background(), SearchInput{
		Index: "logs'; weird",
		Query: ty.MI{"match_all": ty.MI{}},
	})
	require.Error(t, err)
	var valErr *errs.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "index pattern", valErr.Rule)
	assert.False(t, gock.HasUnmatchedRequest())
}

func TestSearchRetryDelaysIncrease(t *testing.T) {
	defer gock.Off()
	defer gock.Observe(nil)

	var attempts []time.Time
	gock.Observe(func(_ *nethttp.Request, _ gock.Mock) {
		attempts = append(attempts, time.Now())
	})

	gock.New("https://kibana.example.com").
		Post("/internal/search/es").
		Times(2).
		Reply(503).
		BodyString("unavailable")
	gock.New("https://kibana.example.com").
		Post("/internal/search/es").
		Reply(200).
		JSON(rawResponseBody("recovered"))

	policy := retry.DefaultPolicy()
	policy.InitialBackoff = 20 * time.Millisecond
	policy.MaxBackoff = 200 * time.Millisecond
	policy.JitterFactor = 0

	c := newTestClientWithPolicy(t, true, policy)
	_, err := c.Search(context.Background(), SearchInput{
		Index: "logs-*",
		Query: ty.MI{"match_all": ty.MI{}},
		Size:  1,
	})
	require.NoError(t, err)
	require.Len(t, attempts, 3)

	first := attempts[1].Sub(attempts[0])
	second := attempts[2].Sub(attempts[1])
	assert.GreaterOrEqual(t, first, 20*time.Millisecond)
	assert.GreaterOrEqual(t, second, 40*time.Millisecond)
	assert.Greater(t, second, first)
}

func TestSearchRequiresIndex(t *testing.T) {
	c := newTestClient(t, true)
	_, err := c.Search(context.Background(), SearchInput{Query: ty.MI{"match_all": ty.MI{}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no index pattern")

	c.SetCurrentIndex("istio-logs-v2*")
	assert.Equal(t, "istio-logs-v2*", c.CurrentIndex())
}

func TestDiscoverIndexesFromSavedObjects(t *testing.T) {
	defer gock.Off()

	gock.New("https://kibana.example.com").
		Get("/api/saved_objects/_find").
		Reply(200).
		JSON(ty.MI{"saved_objects": []ty.MI{
			{"attributes": ty.MI{"title": "breeze-v2*"}},
			{"attributes": ty.MI{"title": "envoy-edge*"}},
		}})

	c := newTestClient(t, true)
	patterns, err := c.DiscoverIndexes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"breeze-v2*", "envoy-edge*"}, patterns)
}

func TestDiscoverIndexesFallsBackToIndices(t *testing.T) {
	defer gock.Off()

	gock.New("https://kibana.example.com").
		Get("/api/saved_objects/_find").
		Reply(500).
		BodyString("oops")
	gock.New("https://kibana.example.com").
		Get("/_cat/indices").
		Reply(200).
		JSON([]ty.MI{
			{"index": "breeze-v2-2024.03.01"},
			{"index": "breeze-v2-2024.03.02"},
			{"index": "envoy-edge-2024.03.01"},
		})

	c := newTestClient(t, true)
	patterns, err := c.DiscoverIndexes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"breeze-v2*", "envoy-edge*"}, patterns)
}
