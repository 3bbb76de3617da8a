package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCountsLookups(t *testing.T) {
	before := testutil.ToFloat64(lookups.WithLabelValues("usda", "search", "hit"))
	Recorder{}.ObserveLookup("usda", "search", "hit", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(lookups.WithLabelValues("usda", "search", "hit")))
}

func TestRecordNormalizationLabelsErrors(t *testing.T) {
	before := testutil.ToFloat64(normalizations.WithLabelValues("barcode", "error"))
	RecordNormalization("barcode", errors.New("bad payload"))
	assert.Equal(t, before+1, testutil.ToFloat64(normalizations.WithLabelValues("barcode", "error")))
}

func TestRecorderCountsCoachReplies(t *testing.T) {
	before := testutil.ToFloat64(coachReplies.WithLabelValues("false"))
	Recorder{}.ObserveCoachReply(false)
	assert.Equal(t, before+1, testutil.ToFloat64(coachReplies.WithLabelValues("false")))
}
