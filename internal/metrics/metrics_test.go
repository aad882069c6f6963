package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/libman/internal/borrow"
	"github.com/hitoshi/libman/internal/model"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordBorrowSuccess_IncrementsCounter は貸出成功カウンタが増加することを検証する。
func TestRecordBorrowSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBorrowSuccess()
	c.RecordBorrowSuccess()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "libman_borrow_success_total" {
			found = true
			if len(mf.GetMetric()) != 1 {
				t.Fatalf("expected 1 metric, got %d", len(mf.GetMetric()))
			}
			val := mf.GetMetric()[0].GetCounter().GetValue()
			if val != 2 {
				t.Errorf("borrow_success_total = %v, want 2", val)
			}
		}
	}
	if !found {
		t.Error("libman_borrow_success_total metric not found")
	}
}

// TestRecordBorrowFailure_IncrementsCounterWithCode は貸出失敗カウンタが
// エラーコードのラベル付きで増加することを検証する。
func TestRecordBorrowFailure_IncrementsCounterWithCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBorrowFailure(model.ErrCodeAlreadyBorrowed)
	c.RecordBorrowFailure(model.ErrCodeAlreadyBorrowed)
	c.RecordBorrowFailure(model.ErrCodeBorrowLimitReached)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "libman_borrow_fail_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case model.ErrCodeAlreadyBorrowed:
					if val != 2 {
						t.Errorf("borrow_fail_total{code=%s} = %v, want 2", label, val)
					}
				case model.ErrCodeBorrowLimitReached:
					if val != 1 {
						t.Errorf("borrow_fail_total{code=%s} = %v, want 1", label, val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("libman_borrow_fail_total metric not found")
	}
}

// TestRecordReturnSuccess_IncrementsCounter は返却成功カウンタが増加することを検証する。
func TestRecordReturnSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordReturnSuccess()
	c.RecordReturnSuccess()
	c.RecordReturnSuccess()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "libman_return_success_total" {
			found = true
			val := mf.GetMetric()[0].GetCounter().GetValue()
			if val != 3 {
				t.Errorf("return_success_total = %v, want 3", val)
			}
		}
	}
	if !found {
		t.Error("libman_return_success_total metric not found")
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(400)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "libman_http_status_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "200":
					if val != 2 {
						t.Errorf("http_status_total{status_code=200} = %v, want 2", val)
					}
				case "400":
					if val != 1 {
						t.Errorf("http_status_total{status_code=400} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("libman_http_status_total metric not found")
	}
}

// TestRecordBorrowTxLatency_ObservesHistogram は貸出トランザクションのレイテンシが
// ヒストグラムに記録されることを検証する。
func TestRecordBorrowTxLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBorrowTxLatency(100 * time.Millisecond)
	c.RecordBorrowTxLatency(2 * time.Second)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "libman_borrow_tx_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 2 {
				t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
			}
			// 合計は0.1 + 2.0 = 2.1秒
			if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
				t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
			}
		}
	}
	if !found {
		t.Error("libman_borrow_tx_seconds metric not found")
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	// いくつかのメトリクスを記録
	c.RecordBorrowSuccess()
	c.RecordBorrowFailure(model.ErrCodeBookNotFound)
	c.RecordReturnSuccess()
	c.RecordHTTPStatus(200)
	c.RecordBorrowTxLatency(500 * time.Millisecond)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	// Prometheus形式のメトリクスが含まれていることを確認
	expectedMetrics := []string{
		"libman_borrow_success_total",
		"libman_borrow_fail_total",
		"libman_return_success_total",
		"libman_http_status_total",
		"libman_borrow_tx_seconds",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsRecorderInterface はCollectorが貸出サービスの
// メトリクス記録インターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsRecorderInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ borrow.MetricsRecorder = NewCollector(reg)
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordBorrowSuccess()
	c2.RecordBorrowSuccess()
	c2.RecordBorrowSuccess()

	metrics1, _ := reg1.Gather()
	metrics2, _ := reg2.Gather()

	var val1, val2 float64
	for _, mf := range metrics1 {
		if mf.GetName() == "libman_borrow_success_total" {
			val1 = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	for _, mf := range metrics2 {
		if mf.GetName() == "libman_borrow_success_total" {
			val2 = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}

	if val1 != 1 {
		t.Errorf("reg1 borrow_success = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 borrow_success = %v, want 2", val2)
	}
}
