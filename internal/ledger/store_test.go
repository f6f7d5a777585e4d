package ledger_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qwli7/meetbridge/internal/ledger"
)

func newStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.NewStore(filepath.Join(t.TempDir(), "meetings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(token, label, meetingID string) ledger.MeetingRecord {
	return ledger.MeetingRecord{
		Token:          token,
		FormID:         "form-1",
		FormName:       "西安会议室预约",
		Subject:        "weekly sync",
		RoomLabel:      "Conference Room A",
		ScheduledAt:    "2035-04-01T01:00:00Z",
		ScheduledLabel: label,
		Status:         ledger.StatusReserved,
		MeetingID:      meetingID,
		RoomID:         "room-xa",
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
		OperatorName:   "Alice",
		OperatorID:     "u-1",
	}
}

func TestStoreIsIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := record("tok-1", "2035-04-01 09:00-10:00", "m-1")
	require.NoError(t, store.Store(ctx, rec))
	require.NoError(t, store.Store(ctx, rec))

	all, err := store.FindAll(ctx, "tok-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStoreDistinctLabelsAppend(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, record("tok-1", "2035-04-01 09:00-10:00", "m-1")))
	require.NoError(t, store.Store(ctx, record("tok-1", "2035-04-01 13:00-14:00", "m-2")))

	all, err := store.FindAll(ctx, "tok-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStoreDistinctRoomsSameRangeAppend(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	// One submission can reserve several rooms for the same time range; each
	// room keeps its own row so cancellation can release every meeting.
	recA := record("tok-1", "2035-04-01 09:00-10:00", "m-1")
	recA.RoomLabel = "Room A"
	recB := record("tok-1", "2035-04-01 09:00-10:00", "m-2")
	recB.RoomLabel = "Room B"
	require.NoError(t, store.Store(ctx, recA))
	require.NoError(t, store.Store(ctx, recB))

	all, err := store.FindAll(ctx, "tok-1")
	require.NoError(t, err)
	require.Len(t, all, 2)

	cancelled, err := store.Cancel(ctx, "tok-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []ledger.CancelledMeeting{
		{MeetingID: "m-1", RoomID: "room-xa"},
		{MeetingID: "m-2", RoomID: "room-xa"},
	}, cancelled)
}

func TestStoreNormalizesLocaleStatus(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := record("tok-1", "2035-04-01 09:00-10:00", "m-1")
	rec.Status = "已预约"
	require.NoError(t, store.Store(ctx, rec))

	active, err := store.FindActive(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, ledger.StatusReserved, active.Status)
}

func TestFindActive(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	active, err := store.FindActive(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, active)

	require.NoError(t, store.Store(ctx, record("tok-1", "2035-04-01 09:00-10:00", "m-1")))

	active, err = store.FindActive(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "m-1", active.MeetingID)
}

func TestCancelFanOut(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, record("tok-1", "2035-04-01 09:00-11:00", "m-1")))
	require.NoError(t, store.Store(ctx, record("tok-1", "2035-04-01 13:00-14:00", "m-2")))
	require.NoError(t, store.Store(ctx, record("tok-other", "2035-04-01 09:00-10:00", "m-3")))

	cancelled, err := store.Cancel(ctx, "tok-1")
	require.NoError(t, err)
	require.Len(t, cancelled, 2)
	assert.Equal(t, "m-1", cancelled[0].MeetingID)
	assert.Equal(t, "room-xa", cancelled[0].RoomID)
	assert.Equal(t, "m-2", cancelled[1].MeetingID)

	// The token's rows transitioned; the other token is untouched.
	active, err := store.FindActive(ctx, "tok-1")
	require.NoError(t, err)
	assert.Nil(t, active)

	other, err := store.FindActive(ctx, "tok-other")
	require.NoError(t, err)
	assert.NotNil(t, other)

	// Second cancellation finds nothing to do.
	again, err := store.Cancel(ctx, "tok-1")
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestCancelSetsCancelledAtAndKeepsRows(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, record("tok-1", "2035-04-01 09:00-10:00", "m-1")))
	_, err := store.Cancel(ctx, "tok-1")
	require.NoError(t, err)

	all, err := store.FindAll(ctx, "tok-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, ledger.StatusCancelled, all[0].Status)
	assert.NotEmpty(t, all[0].CancelledAt)
	assert.Equal(t, "m-1", all[0].MeetingID)
	assert.Equal(t, "room-xa", all[0].RoomID)
}

func TestReReserveAfterCancel(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := record("tok-1", "2035-04-01 09:00-10:00", "m-1")
	require.NoError(t, store.Store(ctx, rec))
	_, err := store.Cancel(ctx, "tok-1")
	require.NoError(t, err)

	// Same key can be reserved again; the cancelled row stays behind.
	rec.MeetingID = "m-2"
	require.NoError(t, store.Store(ctx, rec))

	all, err := store.FindAll(ctx, "tok-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cancelled, err := store.Cancel(ctx, "tok-1")
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "m-2", cancelled[0].MeetingID)
}

func TestStatusVocabularyInvariant(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := record("tok-1", "2035-04-01 09:00-10:00", "m-1")
	rec.Status = "PENDING"
	assert.Error(t, store.Store(ctx, rec), "unknown status must be rejected by the schema")
}
