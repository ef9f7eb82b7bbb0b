package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/attrmap/pkg/attributes"
)

func TestObserveBuild(t *testing.T) {
	r := New("")
	r.ObserveBuild("CBT1157", attributes.Stats{Direct: 3, Reused: 1, Missing: 2}, 20*time.Millisecond)
	r.ObserveBuild("CBT1157", attributes.Stats{Direct: 1, Learned: 2}, 10*time.Millisecond)

	families, err := r.Gather()
	require.NoError(t, err)

	builds := findMetricFamily(families, "attrmap_builds_total")
	require.NotNil(t, builds)
	m := findMetricByLabels(builds, map[string]string{"category_id": "CBT1157"})
	require.NotNil(t, m)
	assert.Equal(t, 2.0, m.GetCounter().GetValue())

	outcomes := findMetricFamily(families, "attrmap_attributes_total")
	require.NotNil(t, outcomes)
	for outcome, want := range map[string]float64{
		OutcomeDirect:  4,
		OutcomeReused:  1,
		OutcomeLearned: 2,
		OutcomeMissing: 2,
	} {
		m := findMetricByLabels(outcomes, map[string]string{"outcome": outcome})
		require.NotNil(t, m, outcome)
		assert.Equal(t, want, m.GetCounter().GetValue(), outcome)
	}

	duration := findMetricFamily(families, "attrmap_build_duration_seconds")
	require.NotNil(t, duration)
	assert.Equal(t, uint64(2), duration.Metric[0].GetHistogram().GetSampleCount())
}

func TestObserveSuggestion(t *testing.T) {
	r := New("test")
	r.ObserveSuggestion("CBT1", 3, nil)
	r.ObserveSuggestion("CBT1", 0, nil)
	r.ObserveSuggestion("CBT1", 0, errors.New("boom"))

	families, err := r.Gather()
	require.NoError(t, err)

	suggestions := findMetricFamily(families, "test_suggestions_total")
	require.NotNil(t, suggestions)
	for _, result := range []string{"ok", "empty", "error"} {
		m := findMetricByLabels(suggestions, map[string]string{"result": result})
		require.NotNil(t, m, result)
		assert.Equal(t, 1.0, m.GetCounter().GetValue(), result)
	}

	learned := findMetricFamily(families, "test_learned_equivalences_total")
	require.NotNil(t, learned)
	assert.Equal(t, 3.0, learned.Metric[0].GetCounter().GetValue())
}

func TestHandlerServesMetrics(t *testing.T) {
	r := New("")
	r.ObserveRequest(http.MethodPost, "/api/v1/build", http.StatusOK, 5*time.Millisecond)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `attrmap_http_requests_total{method="POST",path="/api/v1/build",status="200"} 1`))
}

func findMetricFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func findMetricByLabels(family *dto.MetricFamily, labels map[string]string) *dto.Metric {
	for _, m := range family.Metric {
		match := true
		for wantKey, wantValue := range labels {
			found := false
			for _, l := range m.Label {
				if l.GetName() == wantKey && l.GetValue() == wantValue {
					found = true
					break
				}
			}
			if !found {
				match = false
				break
			}
		}
		if match {
			return m
		}
	}
	return nil
}
