package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"AMS-backend/internal/platform/apperr"
)

func TestObserve_LabelsByKind(t *testing.T) {
	okBefore := testutil.ToFloat64(operations.WithLabelValues("test_op", "ok"))
	conflictBefore := testutil.ToFloat64(operations.WithLabelValues("test_op", string(apperr.KindConflict)))
	internalBefore := testutil.ToFloat64(operations.WithLabelValues("test_op", string(apperr.KindInternal)))

	var err error
	Observe("test_op", time.Now(), &err)

	err = apperr.Conflict("asset is not available")
	Observe("test_op", time.Now(), &err)

	err = errors.New("unclassified")
	Observe("test_op", time.Now(), &err)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(operations.WithLabelValues("test_op", "ok")))
	assert.Equal(t, conflictBefore+1, testutil.ToFloat64(operations.WithLabelValues("test_op", string(apperr.KindConflict))))
	assert.Equal(t, internalBefore+1, testutil.ToFloat64(operations.WithLabelValues("test_op", string(apperr.KindInternal))))
}
