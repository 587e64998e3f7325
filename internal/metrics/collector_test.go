package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.invocationsTotal)
	assert.NotNil(t, collector.invocationDuration)
	assert.NotNil(t, collector.streamChunksTotal)
	assert.NotNil(t, collector.socketOutcomes)
}

func TestCollector_RecordInvocation(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordInvocation("DeepSeek", "ds", "http", "", 100*time.Millisecond)
	collector.RecordInvocation("DeepSeek", "ds", "http", "", 50*time.Millisecond)
	collector.RecordInvocation("DeepSeek", "ds", "http", "NETWORK", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.invocationsTotal.WithLabelValues("DeepSeek", "ds", "http", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.invocationsTotal.WithLabelValues("DeepSeek", "ds", "http", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.invocationErrors.WithLabelValues("DeepSeek", "NETWORK")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.invocationDuration))
}

func TestCollector_StreamAndSocket(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	for i := 0; i < 3; i++ {
		collector.RecordStreamChunk("中海油-DS", "cnooc")
	}
	collector.RecordSocketOutcome("中海油", "completed")
	collector.RecordSocketOutcome("中海油", "timed_out")
	collector.SetModelsConfigured(4)

	assert.Equal(t, 3.0, testutil.ToFloat64(collector.streamChunksTotal.WithLabelValues("中海油-DS", "cnooc")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.socketOutcomes.WithLabelValues("中海油", "timed_out")))
	assert.Equal(t, 4.0, testutil.ToFloat64(collector.modelsConfigured))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	ns := nextTestNamespace()
	collector := NewCollector(ns, zap.NewNop())
	collector.RecordInvocation("DeepSeek", "ds", "sse", "", time.Second)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), ns+"_invocations_total"))
}
