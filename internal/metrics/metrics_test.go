package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"icstable/internal/transcode"
)

func TestObserve(t *testing.T) {
	okBefore := testutil.ToFloat64(documentsTotal.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(documentsTotal.WithLabelValues("error"))
	callsBefore := testutil.ToFloat64(transcodesTotal.WithLabelValues("cli"))

	Observe("cli", transcode.Summary{Documents: 5, Failed: 2}, 3*time.Millisecond)

	assert.Equal(t, okBefore+3, testutil.ToFloat64(documentsTotal.WithLabelValues("ok")))
	assert.Equal(t, errBefore+2, testutil.ToFloat64(documentsTotal.WithLabelValues("error")))
	assert.Equal(t, callsBefore+1, testutil.ToFloat64(transcodesTotal.WithLabelValues("cli")))
}
