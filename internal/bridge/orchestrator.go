package bridge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qwli7/meetbridge/internal/ledger"
	"github.com/qwli7/meetbridge/internal/log"
	"github.com/qwli7/meetbridge/internal/metrics"
	"github.com/qwli7/meetbridge/internal/operator"
	"github.com/qwli7/meetbridge/internal/slots"
	"github.com/qwli7/meetbridge/internal/tencent"
)

// ErrBadSubmission marks submissions the bridge refuses to process: unknown
// status, no slots, unparseable or entirely-past slots. Handlers map it to
// HTTP 400.
var ErrBadSubmission = errors.New("bridge: bad submission")

// SimulationPrefix marks meeting ids written in simulation mode. The
// cancellation path treats any ledger row carrying it as local-only; this is
// the only signal crossing the reservation/cancellation boundary.
const SimulationPrefix = "simulation-"

const (
	instanceID      = 32
	meetingTimeZone = "Asia/Shanghai"
)

// UpstreamClient is the slice of the meeting API the orchestrator needs.
type UpstreamClient interface {
	CreateMeeting(ctx context.Context, req *tencent.CreateMeetingRequest) (*tencent.CreateMeetingResponse, error)
	CancelMeeting(ctx context.Context, meetingID string, req *tencent.CancelMeetingRequest) error
	BookRooms(ctx context.Context, meetingID string, req *tencent.BookRoomsRequest) error
	ReleaseRooms(ctx context.Context, meetingID string, req *tencent.ReleaseRoomsRequest) error
}

// Ledger is the persistence contract the orchestrator depends on.
type Ledger interface {
	Store(ctx context.Context, rec ledger.MeetingRecord) error
	Cancel(ctx context.Context, token string) ([]ledger.CancelledMeeting, error)
}

// Config carries the orchestration knobs read once at startup.
type Config struct {
	UserFieldName string
	// DeptFieldName is read from the environment but not yet used in any
	// upstream call; kept on the config surface pending future use.
	DeptFieldName string

	XARoomID string
	CDRoomID string

	SkipMeetingCreation bool
	SkipRoomBooking     bool
}

// Processor executes the submission pipeline: parse, plan, create-and-book
// (or cancel), record.
type Processor struct {
	client   UpstreamClient
	store    Ledger
	registry *operator.Registry
	cfg      Config
	now      func() time.Time
}

// NewProcessor wires the orchestrator with its collaborators.
func NewProcessor(client UpstreamClient, store Ledger, registry *operator.Registry, cfg Config) *Processor {
	return &Processor{
		client:   client,
		store:    store,
		registry: registry,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Process handles one webhook submission and aggregates a structured
// response. It returns ErrBadSubmission for rejected input; other errors are
// internal failures.
func (p *Processor) Process(ctx context.Context, sub *FormSubmission) (*WebhookResponse, error) {
	switch ledger.NormalizeStatus(strings.TrimSpace(sub.Entry.Status)) {
	case ledger.StatusCancelled:
		return p.processCancellation(ctx, sub)
	case ledger.StatusReserved:
		return p.processReservation(ctx, sub)
	default:
		metrics.IncSubmission("unknown", "rejected")
		return nil, fmt.Errorf("%w: unknown status %q", ErrBadSubmission, sub.Entry.Status)
	}
}

// operatorInfo resolves the submission's operator name and upstream id.
// A missing field falls back to the name "default", which resolves to the
// registry default.
func (p *Processor) operatorInfo(sub *FormSubmission) (string, string) {
	name, ok := sub.Entry.Extra[p.cfg.UserFieldName]
	if !ok || name == "" {
		logger := log.WithComponent("bridge")
		logger.Warn().
			Str("field", p.cfg.UserFieldName).
			Msg("user field not found in form submission, using default")
		name = "default"
	}
	return name, p.registry.Resolve(name)
}

func (p *Processor) processReservation(ctx context.Context, sub *FormSubmission) (*WebhookResponse, error) {
	logger := log.WithComponentFromContext(ctx, "bridge")

	if len(sub.Entry.Slots) == 0 {
		metrics.IncSubmission("reservation", "rejected")
		return nil, fmt.Errorf("%w: submission has no time slots", ErrBadSubmission)
	}

	now := p.now()
	parsed := make([]slots.TimeSlot, 0, len(sub.Entry.Slots))
	for _, raw := range sub.Entry.Slots {
		slot, err := slots.Parse(now, slots.Entry{
			RoomLabel:      raw.ItemName,
			ScheduledLabel: raw.ScheduledLabel,
			Number:         raw.Number,
			ScheduledAt:    raw.ScheduledAt,
			APICode:        raw.APICode,
		})
		if err != nil {
			metrics.IncSubmission("reservation", "rejected")
			return nil, fmt.Errorf("%w: %v", ErrBadSubmission, err)
		}
		parsed = append(parsed, slot)
	}

	runs := slots.Plan(parsed)
	operatorName, operatorID := p.operatorInfo(sub)
	roomID := roomIDForForm(sub.FormName, p.cfg.XARoomID, p.cfg.CDRoomID)

	logger.Info().
		Str(log.FieldToken, sub.Entry.Token).
		Int("slots", len(parsed)).
		Int("runs", len(runs)).
		Str(log.FieldOperator, operatorID).
		Msg("processing reservation")

	outcomes := make([]MeetingOutcome, 0, len(runs))
	allSuccessful := true
	stored := 0

	for i, run := range runs {
		outcome, storedRow := p.reserveRun(ctx, sub, run, i, roomID, operatorName, operatorID)
		if !outcome.Success {
			allSuccessful = false
		}
		if storedRow {
			stored++
		}
		outcomes = append(outcomes, outcome)
	}

	success := allSuccessful && stored > 0
	created := 0
	merged := 0
	for _, o := range outcomes {
		if o.MeetingID != "" {
			created++
		}
		if o.Merged {
			merged++
		}
	}

	message := fmt.Sprintf("Created %d meetings from %d time slots", created, len(parsed))
	if merged > 0 {
		message = fmt.Sprintf("Created %d meetings (%d merged) from %d time slots", created, merged, len(parsed))
	}

	outcome := "success"
	if !success {
		outcome = "partial"
		if created == 0 {
			outcome = "failure"
		}
	}
	metrics.IncSubmission("reservation", outcome)

	return &WebhookResponse{
		Success:       success,
		Message:       message,
		MeetingsCount: len(outcomes),
		Meetings:      outcomes,
	}, nil
}

// reserveRun creates (or simulates) one planned meeting and records it.
// The returned bool reports whether a ledger row was written.
func (p *Processor) reserveRun(ctx context.Context, sub *FormSubmission, run slots.Run, idx int, roomID, operatorName, operatorID string) (MeetingOutcome, bool) {
	logger := log.WithComponentFromContext(ctx, "bridge")

	outcome := MeetingOutcome{
		Merged:    run.Merged(),
		RoomLabel: run.RoomLabel(),
		TimeSlots: run.SlotLabels(),
	}

	var meetingID string
	if p.cfg.SkipMeetingCreation {
		if run.Merged() {
			meetingID = fmt.Sprintf("%smerged-meeting-%d", SimulationPrefix, idx)
		} else {
			meetingID = fmt.Sprintf("%smeeting-id-%d", SimulationPrefix, idx)
		}
		logger.Info().
			Str(log.FieldMeetingID, meetingID).
			Str(log.FieldRoomLabel, run.RoomLabel()).
			Msg("simulation mode: skipping upstream meeting creation")
		metrics.IncMeetingCreated(true, run.Merged())
	} else {
		resp, err := p.client.CreateMeeting(ctx, &tencent.CreateMeetingRequest{
			UserID:      operatorID,
			InstanceID:  instanceID,
			Subject:     sub.Entry.Subject,
			MeetingType: 0,
			StartTime:   strconv.FormatInt(run.Start().Unix(), 10),
			EndTime:     strconv.FormatInt(run.End().Unix(), 10),
			TimeZone:    meetingTimeZone,
			Location:    locationForForm(sub.FormName, run.RoomLabel()),
		})
		if err != nil {
			logger.Error().Err(err).
				Str(log.FieldRoomLabel, run.RoomLabel()).
				Msg("failed to create meeting")
			metrics.IncUpstreamRequest("create", "failure")
			outcome.Success = false
			return outcome, false
		}
		metrics.IncUpstreamRequest("create", "success")
		metrics.IncMeetingCreated(false, run.Merged())

		if len(resp.MeetingInfoList) == 0 {
			// The meeting exists upstream but its id is unobservable; report
			// success without a ledger row. Later cancellation cannot target
			// it.
			logger.Error().Msg("meeting created but no meeting info returned")
			outcome.Success = true
			return outcome, false
		}
		meetingID = resp.MeetingInfoList[0].MeetingID

		if p.cfg.SkipRoomBooking {
			logger.Info().
				Str(log.FieldMeetingID, meetingID).
				Msg("room booking disabled, skipping")
		} else {
			subjectVisible := true
			err := p.client.BookRooms(ctx, meetingID, &tencent.BookRoomsRequest{
				OperatorID:        operatorID,
				OperatorIDType:    1,
				MeetingRoomIDList: []string{roomID},
				SubjectVisible:    &subjectVisible,
			})
			if err != nil {
				// A booking failure leaves a usable meeting; log and move on.
				logger.Error().Err(err).
					Str(log.FieldMeetingID, meetingID).
					Str(log.FieldRoomID, roomID).
					Msg("failed to book room for meeting")
				metrics.IncUpstreamRequest("book", "failure")
			} else {
				metrics.IncUpstreamRequest("book", "success")
				logger.Info().
					Str(log.FieldMeetingID, meetingID).
					Str(log.FieldRoomID, roomID).
					Msg("booked room for meeting")
			}
		}
	}

	storedRow := false
	err := p.store.Store(ctx, ledger.MeetingRecord{
		Token:          sub.Entry.Token,
		FormID:         sub.FormID,
		FormName:       sub.FormName,
		Subject:        sub.Entry.Subject,
		RoomLabel:      run.RoomLabel(),
		ScheduledAt:    run.Start().UTC().Format(time.RFC3339),
		ScheduledLabel: run.Label(),
		Status:         ledger.StatusReserved,
		MeetingID:      meetingID,
		RoomID:         roomID,
		CreatedAt:      p.now().UTC().Format(time.RFC3339),
		OperatorName:   operatorName,
		OperatorID:     operatorID,
	})
	if err != nil {
		// Upstream state is already final; do not unwind it over a local
		// write failure.
		logger.Error().Err(err).
			Str(log.FieldToken, sub.Entry.Token).
			Msg("failed to store meeting record")
		metrics.IncLedgerWriteError()
	} else {
		storedRow = true
	}

	outcome.MeetingID = meetingID
	outcome.Success = true
	return outcome, storedRow
}

func (p *Processor) processCancellation(ctx context.Context, sub *FormSubmission) (*WebhookResponse, error) {
	logger := log.WithComponentFromContext(ctx, "bridge")
	token := sub.Entry.Token

	logger.Info().Str(log.FieldToken, token).Msg("processing cancellation")

	cancelled, err := p.store.Cancel(ctx, token)
	if err != nil {
		metrics.IncSubmission("cancellation", "failure")
		return nil, fmt.Errorf("cancel ledger lookup: %w", err)
	}
	if len(cancelled) == 0 {
		metrics.IncSubmission("cancellation", "rejected")
		return &WebhookResponse{
			Success: false,
			Message: fmt.Sprintf("No active meetings found with token: %s", token),
		}, nil
	}

	simulated := p.cfg.SkipMeetingCreation
	for _, c := range cancelled {
		if strings.HasPrefix(c.MeetingID, SimulationPrefix) {
			simulated = true
			break
		}
	}
	if simulated {
		logger.Info().
			Int("count", len(cancelled)).
			Msg("simulation mode: meetings marked cancelled without upstream calls")
		metrics.IncSubmission("cancellation", "success")
		return &WebhookResponse{
			Success: true,
			Message: fmt.Sprintf("Simulation: %d meetings cancelled successfully", len(cancelled)),
		}, nil
	}

	succeeded, failed := 0, 0
	for _, c := range cancelled {
		// Release before cancel: cancelling first can leave the room
		// permanently booked upstream.
		err := p.client.ReleaseRooms(ctx, c.MeetingID, &tencent.ReleaseRoomsRequest{
			OperatorID:        p.registry.Default(),
			OperatorIDType:    1,
			MeetingRoomIDList: []string{c.RoomID},
		})
		if err != nil {
			logger.Error().Err(err).
				Str(log.FieldMeetingID, c.MeetingID).
				Str(log.FieldRoomID, c.RoomID).
				Msg("failed to release room, skipping meeting cancel")
			metrics.IncUpstreamRequest("release", "failure")
			metrics.IncMeetingCancelled("failure")
			failed++
			continue
		}
		metrics.IncUpstreamRequest("release", "success")

		err = p.client.CancelMeeting(ctx, c.MeetingID, &tencent.CancelMeetingRequest{
			UserID:       p.registry.Default(),
			InstanceID:   instanceID,
			ReasonCode:   1,
			ReasonDetail: "Form submission cancelled",
		})
		if err != nil {
			logger.Error().Err(err).
				Str(log.FieldMeetingID, c.MeetingID).
				Msg("failed to cancel meeting")
			metrics.IncUpstreamRequest("cancel", "failure")
			metrics.IncMeetingCancelled("failure")
			failed++
			continue
		}
		metrics.IncUpstreamRequest("cancel", "success")
		metrics.IncMeetingCancelled("success")
		succeeded++
	}

	if failed == 0 {
		metrics.IncSubmission("cancellation", "success")
		return &WebhookResponse{
			Success: true,
			Message: fmt.Sprintf("Successfully cancelled %d meetings", succeeded),
		}, nil
	}
	metrics.IncSubmission("cancellation", "partial")
	return &WebhookResponse{
		Success: false,
		Message: fmt.Sprintf("Cancelled %d meetings, but %d failed", succeeded, failed),
	}, nil
}
