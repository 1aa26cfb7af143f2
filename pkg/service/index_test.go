package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bascanada/loggate/pkg/errs"
	"github.com/bascanada/loggate/pkg/log/client"
)

func TestDiscover(t *testing.T) {
	fake := &fakeSearcher{
		indexes:      []string{"breeze-v2*", "envoy-edge*"},
		currentIndex: "breeze-v2*",
	}
	svc := NewIndexService(fake, zaptest.NewLogger(t))

	result, err := svc.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, "breeze-v2*", result.CurrentIndex)
}

func TestSetCurrentValidates(t *testing.T) {
	fake := &fakeSearcher{}
	svc := NewIndexService(fake, zaptest.NewLogger(t))

	pattern, err := svc.SetCurrent("istio-logs-v2*")
	require.NoError(t, err)
	assert.Equal(t, "istio-logs-v2*", pattern)
	assert.Equal(t, "istio-logs-v2*", svc.Current())

	_, err = svc.SetCurrent("bad pattern!")
	var valErr *errs.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "istio-logs-v2*", svc.Current())
}

func TestIndexInfo(t *testing.T) {
	fake := &fakeSearcher{result: &client.SearchResult{Total: 1234}}
	svc := NewIndexService(fake, zaptest.NewLogger(t))

	info, err := svc.Info(context.Background(), "breeze-v2*")
	require.NoError(t, err)
	assert.EqualValues(t, 1234, info.DocCount)
	assert.Equal(t, 0, fake.lastInput.Size)
	assert.Equal(t, "breeze-v2*", fake.lastInput.Index)
}
