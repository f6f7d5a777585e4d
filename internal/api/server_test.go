package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qwli7/meetbridge/internal/bridge"
	"github.com/qwli7/meetbridge/internal/operator"
	"github.com/qwli7/meetbridge/internal/tencent"
)

type fakeSubmitter struct {
	resp *bridge.WebhookResponse
	err  error
	last *bridge.FormSubmission
}

func (f *fakeSubmitter) Process(_ context.Context, sub *bridge.FormSubmission) (*bridge.WebhookResponse, error) {
	f.last = sub
	return f.resp, f.err
}

type fakeGateway struct {
	rooms    *tencent.MeetingRoomsResponse
	roomsErr error

	lastPage     int
	lastPageSize int
	lastOperator string

	cancelledID string
}

func (f *fakeGateway) CreateMeeting(_ context.Context, req *tencent.CreateMeetingRequest) (*tencent.CreateMeetingResponse, error) {
	return &tencent.CreateMeetingResponse{
		MeetingNumber:   1,
		MeetingInfoList: []tencent.MeetingInfo{{MeetingID: "mtg-1", Subject: req.Subject}},
	}, nil
}

func (f *fakeGateway) CancelMeeting(_ context.Context, meetingID string, _ *tencent.CancelMeetingRequest) error {
	f.cancelledID = meetingID
	return nil
}

func (f *fakeGateway) BookRooms(_ context.Context, _ string, _ *tencent.BookRoomsRequest) error {
	return nil
}

func (f *fakeGateway) ReleaseRooms(_ context.Context, _ string, _ *tencent.ReleaseRoomsRequest) error {
	return nil
}

func (f *fakeGateway) ListRooms(_ context.Context, page, pageSize int, operatorID string) (*tencent.MeetingRoomsResponse, error) {
	f.lastPage = page
	f.lastPageSize = pageSize
	f.lastOperator = operatorID
	return f.rooms, f.roomsErr
}

func newTestServer(t *testing.T, sub *fakeSubmitter, gw *fakeGateway, cfg Config) *Server {
	t.Helper()
	if sub == nil {
		sub = &fakeSubmitter{resp: &bridge.WebhookResponse{Success: true}}
	}
	if gw == nil {
		gw = &fakeGateway{rooms: &tencent.MeetingRoomsResponse{}}
	}
	return NewServer(sub, gw, operator.NewRegistry("admin:admin-id"), cfg)
}

func submissionBody(status string) string {
	return fmt.Sprintf(`{"form":"f1","form_name":"西安会议室预约","entry":{"token":"tok","reservation_status_fsf_field":%q}}`, status)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil, Config{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestWebhookAuthRequired(t *testing.T) {
	srv := newTestServer(t, nil, nil, Config{WebhookAuthToken: "secret"})

	// Missing token.
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/form-submission",
		strings.NewReader(submissionBody("已预约"))))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong token.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/form-submission?auth=wrong",
		strings.NewReader(submissionBody("已预约"))))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Correct token.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/form-submission?auth=secret",
		strings.NewReader(submissionBody("已预约"))))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookAuthDisabledWhenNoToken(t *testing.T) {
	srv := newTestServer(t, nil, nil, Config{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/form-submission",
		strings.NewReader(submissionBody("已预约"))))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookMalformedPayload(t *testing.T) {
	srv := newTestServer(t, nil, nil, Config{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/form-submission",
		strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookBadSubmissionMapsTo400(t *testing.T) {
	sub := &fakeSubmitter{err: fmt.Errorf("%w: no slots", bridge.ErrBadSubmission)}
	srv := newTestServer(t, sub, nil, Config{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/form-submission",
		strings.NewReader(submissionBody("已预约"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookInternalErrorMapsTo500(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("ledger unavailable")}
	srv := newTestServer(t, sub, nil, Config{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/form-submission",
		strings.NewReader(submissionBody("已预约"))))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookPartialFailureStill200(t *testing.T) {
	sub := &fakeSubmitter{resp: &bridge.WebhookResponse{
		Success: false,
		Message: "No active meetings found with token: tok",
	}}
	srv := newTestServer(t, sub, nil, Config{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/form-submission",
		strings.NewReader(submissionBody("已取消"))))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp bridge.WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}

func TestListRoomsPassthrough(t *testing.T) {
	gw := &fakeGateway{rooms: &tencent.MeetingRoomsResponse{
		TotalCount:      1,
		MeetingRoomList: []tencent.MeetingRoomItem{{MeetingRoomID: "room-1", MeetingRoomName: "Big Room"}},
	}}
	srv := newTestServer(t, nil, gw, Config{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meeting-rooms?page=2&page_size=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2, gw.lastPage)
	assert.Equal(t, 5, gw.lastPageSize)
	assert.Equal(t, "admin-id", gw.lastOperator)

	var resp tencent.MeetingRoomsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalCount)
}

func TestListRoomsDefaultsAndError(t *testing.T) {
	gw := &fakeGateway{roomsErr: errors.New("upstream down")}
	srv := newTestServer(t, nil, gw, Config{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meeting-rooms?page=bogus", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, gw.lastPage)
	assert.Equal(t, 20, gw.lastPageSize)
}

func TestManagementEndpointsHiddenInProduction(t *testing.T) {
	srv := newTestServer(t, nil, nil, Config{Production: true})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/meeting-rooms", nil),
		httptest.NewRequest(http.MethodPost, "/meetings", strings.NewReader("{}")),
		httptest.NewRequest(http.MethodPost, "/meetings/m1/cancel", strings.NewReader("{}")),
	} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, req.URL.Path)
	}

	// The webhook face stays up.
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCancelMeetingPassthrough(t *testing.T) {
	gw := &fakeGateway{}
	srv := newTestServer(t, nil, gw, Config{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/meetings/mtg-9/cancel",
		strings.NewReader(`{"userid":"admin-id","instanceid":32,"reason_code":1}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mtg-9", gw.cancelledID)
}

func TestListRoomsRecordsUpstreamMetric(t *testing.T) {
	gw := &fakeGateway{rooms: &tencent.MeetingRoomsResponse{}}
	srv := newTestServer(t, nil, gw, Config{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meeting-rooms", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(),
		`meetbridge_upstream_requests_total{operation="list",outcome="success"}`)
}

func TestRequestIDHeaderEchoed(t *testing.T) {
	srv := newTestServer(t, nil, nil, Config{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// A caller-supplied ID is preserved.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "trace-42", rec.Header().Get("X-Request-ID"))
}
