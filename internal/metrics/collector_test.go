package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHTTPRequest(t *testing.T) {
	c := NewCollector()

	c.RecordHTTPRequest("POST", "/api/classify-images", 200, 100*time.Millisecond)
	c.RecordHTTPRequest("POST", "/api/classify-images", 200, 50*time.Millisecond)
	c.RecordHTTPRequest("POST", "/api/classify-images", 429, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("POST", "/api/classify-images", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("POST", "/api/classify-images", "429")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.httpRequestDuration))
}

func TestRecordUpstreamAndTools(t *testing.T) {
	c := NewCollector()

	c.RecordUpstream("classify", "gateway", "ok", time.Second)
	c.RecordUpstream("image_tool", "gateway", "rate_limited", time.Second)
	c.RecordToolRun("remove_bg", "ok")

	assert.Equal(t, 2, testutil.CollectAndCount(c.upstreamRequestsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.toolRunsTotal.WithLabelValues("remove_bg", "ok")))
}

func TestRecordCacheAndRepairs(t *testing.T) {
	c := NewCollector()

	c.RecordCacheLookup(true)
	c.RecordCacheLookup(false)
	c.RecordCacheLookup(false)
	c.RecordRepair("padded", 2)
	c.RecordRepair("trimmed", 0)
	c.RecordCategory("main")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.categoriesRepaired.WithLabelValues("padded")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.categoriesRepaired))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.categoriesAssigned.WithLabelValues("main")))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
		c.RecordUpstream("classify", "gateway", "ok", time.Millisecond)
		c.RecordCacheLookup(true)
		c.RecordRepair("unknown", 1)
		c.RecordCategory("main")
		c.RecordToolRun("upscale", "ok")
	})
}

func TestHandler(t *testing.T) {
	c := NewCollector()
	c.RecordToolRun("upscale", "ok")

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `snapstudio_image_tool_runs_total{outcome="ok",tool="upscale"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
