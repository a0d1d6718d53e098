package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(LikeToggles.WithLabelValues("liked"))
	LikeToggles.WithLabelValues("liked").Inc()
	if got := testutil.ToFloat64(LikeToggles.WithLabelValues("liked")); got != before+1 {
		t.Errorf("like_toggles_total{result=liked} = %v, want %v", got, before+1)
	}
}

func TestCollectorsLint(t *testing.T) {
	ArtifactEvents.WithLabelValues("created").Inc()
	problems, err := testutil.CollectAndLint(ArtifactEvents)
	if err != nil {
		t.Fatalf("CollectAndLint: %v", err)
	}
	for _, p := range problems {
		t.Errorf("%s: %s", p.Metric, p.Text)
	}
}
