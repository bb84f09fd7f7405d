package forwarder

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"postback-platform/internal/config"
	"postback-platform/internal/model"
	"postback-platform/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type captured struct {
	method string
	query  string
	body   string
	ctype  string
}

type recorder struct {
	mu   sync.Mutex
	hits []captured
}

func (r *recorder) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.hits = append(r.hits, captured{method: req.Method, query: req.URL.RawQuery, body: string(body), ctype: req.Header.Get("Content-Type")})
		r.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte("ack"))
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hits)
}

func testConfig() config.Forwarding {
	return config.Forwarding{
		Eligibility:    config.EligibilityBroadcast,
		Timeout:        2 * time.Second,
		MaxAttempts:    3,
		BackoffInitial: time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
		Concurrency:    4,
	}
}

func newDispatcher(t *testing.T, db *gorm.DB, cfg config.Forwarding) *Dispatcher {
	t.Helper()
	d, err := New(db, cfg, zap.NewNop())
	require.NoError(t, err)
	return d
}

func sampleConversion() model.Conversion {
	return model.Conversion{
		ConversionID:       "cv_1",
		ClickID:            "CLK-001",
		TransactionID:      "TX-9",
		OfferID:            "ML-100",
		UserID:             "alice",
		Username:           "Alice Smith",
		PlacementID:        "P1",
		Total:              12,
		Status:             model.ConversionApproved,
		FraudStatus:        "clean",
		ReceivedPostbackID: 7,
		CreatedAt:          time.Unix(1700000000, 0),
	}
}

func TestDispatch_OneRecordPerEligiblePlacement(t *testing.T) {
	db := testutil.NewDB(t)

	ok, rejected, broken := &recorder{}, &recorder{}, &recorder{}
	okSrv := httptest.NewServer(ok.handler(http.StatusOK))
	defer okSrv.Close()
	rejSrv := httptest.NewServer(rejected.handler(http.StatusBadRequest))
	defer rejSrv.Close()
	brokenSrv := httptest.NewServer(broken.handler(http.StatusBadGateway))
	defer brokenSrv.Close()

	testutil.SeedPlacement(t, db, "P3", brokenSrv.URL+"/pb?u={user_id}", "GET")
	testutil.SeedPlacement(t, db, "P1", okSrv.URL+"/pb?u={user_id}", "GET")
	testutil.SeedPlacement(t, db, "P2", rejSrv.URL+"/pb?u={user_id}", "GET")
	testutil.SeedPlacement(t, db, "P4", "", "GET")
	testutil.SeedPlacement(t, db, "P5", "   ", "GET")

	records := newDispatcher(t, db, testConfig()).Dispatch(context.Background(), sampleConversion())

	require.Len(t, records, 3)
	assert.Equal(t, "P1", records[0].PlacementID)
	assert.Equal(t, "P2", records[1].PlacementID)
	assert.Equal(t, "P3", records[2].PlacementID)

	assert.Equal(t, model.ForwardSuccess, records[0].Outcome)
	assert.Equal(t, 1, records[0].Attempts)
	assert.Equal(t, "ack", records[0].ResponseBody)

	assert.Equal(t, model.ForwardFailed, records[1].Outcome)
	assert.Equal(t, http.StatusBadRequest, records[1].StatusCode)
	assert.Equal(t, 1, records[1].Attempts, "4xx is not retried")

	assert.Equal(t, model.ForwardFailed, records[2].Outcome)
	assert.Equal(t, 3, records[2].Attempts)
	assert.Equal(t, 3, broken.count())

	var stored []model.ForwardedPostback
	require.NoError(t, db.Order("placement_id").Find(&stored).Error)
	require.Len(t, stored, 3)
	for _, s := range stored {
		assert.Equal(t, "cv_1", s.ConversionID)
		assert.Equal(t, uint(7), s.ReceivedPostbackID)
	}
}

func TestDispatch_RendersEscapedMacros(t *testing.T) {
	db := testutil.NewDB(t)
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	testutil.SeedPlacement(t, db, "P1", srv.URL+"/cb?uid={user_id}&name={username}&pts={points}&p={payout}&tx={transaction_id}&s={status}&ts={timestamp}&x={unknown}", "GET")

	records := newDispatcher(t, db, testConfig()).Dispatch(context.Background(), sampleConversion())

	require.Len(t, records, 1)
	require.Equal(t, 1, rec.count())
	assert.Equal(t, "uid=alice&name=Alice+Smith&pts=12&p=12&tx=TX-9&s=approved&ts=1700000000&x={unknown}", rec.hits[0].query)
	assert.Contains(t, records[0].URL, "name=Alice+Smith")
}

func TestDispatch_PostSendsFormBody(t *testing.T) {
	db := testutil.NewDB(t)
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	testutil.SeedPlacement(t, db, "P1", srv.URL+"/cb?uid={user_id}&pts={points}", "post")

	records := newDispatcher(t, db, testConfig()).Dispatch(context.Background(), sampleConversion())

	require.Len(t, records, 1)
	assert.Equal(t, http.MethodPost, records[0].Method)
	require.Equal(t, 1, rec.count())
	assert.Equal(t, http.MethodPost, rec.hits[0].method)
	assert.Empty(t, rec.hits[0].query)
	assert.Equal(t, "uid=alice&pts=12", rec.hits[0].body)
	assert.Equal(t, "application/x-www-form-urlencoded", rec.hits[0].ctype)
}

func TestDispatch_TransportErrorIsRecorded(t *testing.T) {
	db := testutil.NewDB(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	deadURL := srv.URL
	srv.Close()

	testutil.SeedPlacement(t, db, "P1", deadURL+"/cb?uid={user_id}", "GET")

	records := newDispatcher(t, db, testConfig()).Dispatch(context.Background(), sampleConversion())

	require.Len(t, records, 1)
	assert.Equal(t, model.ForwardError, records[0].Outcome)
	assert.Zero(t, records[0].StatusCode)
	assert.Equal(t, 3, records[0].Attempts)
	assert.NotEmpty(t, records[0].Error)
}

func TestDispatch_PlacementEligibility(t *testing.T) {
	db := testutil.NewDB(t)
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	testutil.SeedPlacement(t, db, "P1", srv.URL+"/a", "GET")
	testutil.SeedPlacement(t, db, "P2", srv.URL+"/b", "GET")

	cfg := testConfig()
	cfg.Eligibility = config.EligibilityPlacement
	records := newDispatcher(t, db, cfg).Dispatch(context.Background(), sampleConversion())

	require.Len(t, records, 1)
	assert.Equal(t, "P1", records[0].PlacementID)
	assert.Equal(t, 1, rec.count())
}

func TestDispatch_ForwardRules(t *testing.T) {
	db := testutil.NewDB(t)
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	pass := testutil.SeedPlacement(t, db, "P1", srv.URL+"/a", "GET")
	skip := testutil.SeedPlacement(t, db, "P2", srv.URL+"/b", "GET")
	broken := testutil.SeedPlacement(t, db, "P3", srv.URL+"/c", "GET")
	require.NoError(t, db.Model(&pass).Update("forward_rule", `status == "approved" && points >= 10`).Error)
	require.NoError(t, db.Model(&skip).Update("forward_rule", `fraud_status == "high"`).Error)
	require.NoError(t, db.Model(&broken).Update("forward_rule", `points >`).Error)

	records := newDispatcher(t, db, testConfig()).Dispatch(context.Background(), sampleConversion())

	require.Len(t, records, 2)
	assert.Equal(t, "P1", records[0].PlacementID)
	assert.Equal(t, "P3", records[1].PlacementID, "a broken rule does not block forwarding")
}

func TestDispatch_NoPlacements(t *testing.T) {
	db := testutil.NewDB(t)

	records := newDispatcher(t, db, testConfig()).Dispatch(context.Background(), sampleConversion())

	assert.Empty(t, records)
}
