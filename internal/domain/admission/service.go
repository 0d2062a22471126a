package admission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/domain/hospital"
	"github.com/carehub/carehub/internal/domain/patient"
	"github.com/carehub/carehub/internal/platform/db"
	"github.com/carehub/carehub/internal/platform/notification"
	"github.com/carehub/carehub/internal/platform/websocket"
)

// Event types broadcast on a hospital's live bed board topic.
const (
	EventQueueUpdated = "queue.updated"
	EventBedAllocated = "bed.allocated"
	EventBedReleased  = "bed.released"
)

// PatientDirectory resolves patient contact details for notifications.
type PatientDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// HospitalDirectory resolves hospital display names for notifications.
type HospitalDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*hospital.Hospital, error)
}

type Service struct {
	queue QueueRepository
	beds  BedInventory

	pool      *pgxpool.Pool
	events    websocket.EventPublisher
	notifier  *notification.Manager
	patients  PatientDirectory
	hospitals HospitalDirectory
	logger    zerolog.Logger
}

func NewService(queue QueueRepository, beds BedInventory) *Service {
	return &Service{queue: queue, beds: beds, logger: zerolog.Nop()}
}

// SetPool attaches a connection pool so allocations run inside transactions.
// Without a pool operations run directly against the repositories.
func (s *Service) SetPool(pool *pgxpool.Pool) {
	s.pool = pool
}

// SetEventPublisher attaches the live bed board publisher.
func (s *Service) SetEventPublisher(pub websocket.EventPublisher) {
	s.events = pub
}

// SetNotifier attaches the notification manager together with the lookups
// it needs to address patients.
func (s *Service) SetNotifier(nm *notification.Manager, patients PatientDirectory, hospitals HospitalDirectory) {
	s.notifier = nm
	s.patients = patients
	s.hospitals = hospitals
}

// SetLogger replaces the service's logger, a no-op logger by default.
func (s *Service) SetLogger(l zerolog.Logger) {
	s.logger = l
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.InTx(ctx, s.pool, fn)
}

// Enqueue places a confirmed inpatient booking in the hospital's bed queue.
// The persisted score is the entry's priority base; the live queue view
// recomputes it with waiting time included.
func (s *Service) Enqueue(ctx context.Context, hospitalID uuid.UUID, locationID *uuid.UUID, bookingID, patientID uuid.UUID, bedType, priority string) error {
	if hospitalID == uuid.Nil {
		return fmt.Errorf("hospital_id is required")
	}
	if bookingID == uuid.Nil {
		return fmt.Errorf("booking_id is required")
	}
	if patientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if !hospital.ValidBedTypes[bedType] {
		return fmt.Errorf("invalid bed type: %s", bedType)
	}
	level := PriorityLevel(priority)
	if !ValidPriorityLevels[level] {
		return fmt.Errorf("invalid priority: %s", priority)
	}

	active, err := s.queue.HasActive(ctx, bookingID)
	if err != nil {
		return err
	}
	if active {
		return ErrAlreadyQueued
	}

	entry := &QueueEntry{
		HospitalID: hospitalID,
		LocationID: locationID,
		BookingID:  bookingID,
		PatientID:  patientID,
		BedType:    bedType,
		Priority:   level,
		Score:      Score(level, 0),
		Status:     StatusWaiting,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := s.queue.Create(ctx, entry); err != nil {
		return err
	}

	s.publish(ctx, EventQueueUpdated, "queue", entry.ID.String(), hospitalID, map[string]interface{}{
		"booking_id": bookingID,
		"bed_type":   bedType,
		"priority":   level,
	})
	s.notify(ctx, "queue-joined", entry, nil)
	return nil
}

// BuildQueue returns the hospital's waiting entries ranked by current score,
// highest first. Entries with equal scores keep first-come-first-served
// order. Positions are 1-based. An empty queue is a valid result.
func (s *Service) BuildQueue(ctx context.Context, hospitalID uuid.UUID, locationID *uuid.UUID) ([]*QueueEntry, error) {
	entries, err := s.queue.ListWaiting(ctx, hospitalID, locationID)
	if err != nil {
		return nil, err
	}
	rankEntries(entries, time.Now().UTC())
	return entries, nil
}

// rankEntries recomputes scores as of now, orders the slice best-first and
// stamps 1-based positions.
func rankEntries(entries []*QueueEntry, now time.Time) {
	for _, e := range entries {
		e.Score = Score(e.Priority, now.Sub(e.EnqueuedAt))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].EnqueuedAt.Before(entries[j].EnqueuedAt)
	})
	for i, e := range entries {
		e.Position = i + 1
	}
}

// ListAvailableBeds returns the hospital's free beds, optionally narrowed by
// location and bed type.
func (s *Service) ListAvailableBeds(ctx context.Context, hospitalID uuid.UUID, locationID *uuid.UUID, bedType string) ([]*hospital.Bed, error) {
	if bedType != "" && !hospital.ValidBedTypes[bedType] {
		return nil, fmt.Errorf("invalid bed type: %s", bedType)
	}
	return s.beds.ListAvailable(ctx, hospitalID, locationID, bedType)
}

// AllocateBed assigns the bed with the given number to the booking's waiting
// queue entry. Staff may pick any free bed; the entry's requested bed type
// is not enforced here.
func (s *Service) AllocateBed(ctx context.Context, hospitalID, bookingID uuid.UUID, bedNumber int) (*QueueEntry, error) {
	var (
		entry *QueueEntry
		bed   *hospital.Bed
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		bed, err = s.beds.GetByNumber(ctx, hospitalID, bedNumber)
		if err != nil {
			return ErrBedNotFound
		}
		entry, err = s.queue.GetWaitingByBooking(ctx, hospitalID, bookingID)
		if err != nil {
			return ErrNotInQueue
		}

		ok, err := s.beds.Occupy(ctx, bed.ID, entry.PatientID, bookingID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrBedOccupied
		}

		now := time.Now().UTC()
		ok, err = s.queue.MarkAllocated(ctx, entry.ID, bed.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotInQueue
		}
		entry.Status = StatusAllocated
		entry.AssignedBedID = &bed.ID
		entry.AllocatedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventBedAllocated, "bed", bed.ID.String(), hospitalID, map[string]interface{}{
		"bed_number": bed.BedNumber,
		"bed_type":   bed.BedType,
		"booking_id": bookingID,
		"patient_id": entry.PatientID,
	})
	s.notify(ctx, "bed-allocated", entry, bed)
	return entry, nil
}

// Pass-control results for a single auto-allocation attempt.
var (
	errBedTaken  = errors.New("bed taken meanwhile")
	errEntryGone = errors.New("entry left the queue meanwhile")
)

// allocatePair claims one bed for one queue entry in its own transaction.
func (s *Service) allocatePair(ctx context.Context, entry *QueueEntry, bed *hospital.Bed) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		ok, err := s.beds.Occupy(ctx, bed.ID, entry.PatientID, entry.BookingID)
		if err != nil {
			return err
		}
		if !ok {
			return errBedTaken
		}

		now := time.Now().UTC()
		ok, err = s.queue.MarkAllocated(ctx, entry.ID, bed.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			// The entry was withdrawn or allocated elsewhere; hand the
			// bed back.
			if _, err := s.beds.ReleaseByBooking(ctx, entry.HospitalID, entry.BookingID); err != nil {
				return err
			}
			return errEntryGone
		}
		entry.Status = StatusAllocated
		entry.AssignedBedID = &bed.ID
		entry.AllocatedAt = &now
		return nil
	})
}

// AutoAllocate walks the ranked queue once and gives each entry the first
// free bed of its requested type, lowest bed number first. Entries with no
// matching bed stay waiting and do not block later entries. It returns how
// many beds were assigned; a second run with nothing changed assigns none.
// Each assignment commits on its own, so an error partway through the pass
// leaves earlier assignments in place.
func (s *Service) AutoAllocate(ctx context.Context, hospitalID uuid.UUID, locationID *uuid.UUID) (int, error) {
	queue, err := s.BuildQueue(ctx, hospitalID, locationID)
	if err != nil {
		return 0, err
	}
	free, err := s.beds.ListAvailable(ctx, hospitalID, locationID, "")
	if err != nil {
		return 0, err
	}

	type assignment struct {
		entry *QueueEntry
		bed   *hospital.Bed
	}
	var assigned []assignment
	taken := make(map[uuid.UUID]bool)

	for _, entry := range queue {
		for _, bed := range free {
			if taken[bed.ID] || bed.BedType != entry.BedType {
				continue
			}
			err := s.allocatePair(ctx, entry, bed)
			if errors.Is(err, errBedTaken) {
				taken[bed.ID] = true
				continue
			}
			if errors.Is(err, errEntryGone) {
				break
			}
			if err != nil {
				return len(assigned), err
			}
			taken[bed.ID] = true
			assigned = append(assigned, assignment{entry: entry, bed: bed})
			break
		}
	}

	for _, a := range assigned {
		s.publish(ctx, EventBedAllocated, "bed", a.bed.ID.String(), hospitalID, map[string]interface{}{
			"bed_number": a.bed.BedNumber,
			"bed_type":   a.bed.BedType,
			"booking_id": a.entry.BookingID,
			"patient_id": a.entry.PatientID,
		})
		s.notify(ctx, "bed-allocated", a.entry, a.bed)
	}
	if len(assigned) > 0 {
		s.publish(ctx, EventQueueUpdated, "queue", "", hospitalID, map[string]interface{}{
			"allocated_count": len(assigned),
		})
	}
	return len(assigned), nil
}

// Withdraw takes the booking's waiting entry out of the queue.
func (s *Service) Withdraw(ctx context.Context, hospitalID, bookingID uuid.UUID) error {
	entry, err := s.queue.GetWaitingByBooking(ctx, hospitalID, bookingID)
	if err != nil {
		return ErrNotInQueue
	}
	ok, err := s.queue.MarkWithdrawn(ctx, entry.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotInQueue
	}

	s.publish(ctx, EventQueueUpdated, "queue", entry.ID.String(), hospitalID, map[string]interface{}{
		"booking_id": bookingID,
		"withdrawn":  true,
	})
	return nil
}

// ReleaseBed frees the bed held under the booking, typically at discharge.
func (s *Service) ReleaseBed(ctx context.Context, hospitalID, bookingID uuid.UUID) (*hospital.Bed, error) {
	bed, err := s.beds.ReleaseByBooking(ctx, hospitalID, bookingID)
	if err != nil {
		return nil, ErrBedNotFound
	}

	s.publish(ctx, EventBedReleased, "bed", bed.ID.String(), hospitalID, map[string]interface{}{
		"bed_number": bed.BedNumber,
		"bed_type":   bed.BedType,
		"booking_id": bookingID,
	})
	return bed, nil
}

func (s *Service) publish(ctx context.Context, eventType, resource, resourceID string, hospitalID uuid.UUID, payload interface{}) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("type", eventType).Msg("failed to marshal bed event payload")
		return
	}
	event := websocket.Event{
		Type:       eventType,
		Topic:      websocket.BedBoardTopic(hospitalID.String()),
		Resource:   resource,
		ResourceID: resourceID,
		Timestamp:  time.Now().UTC(),
		Data:       data,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("type", eventType).Msg("failed to publish bed event")
	}
}

// notify renders the template to the entry's patient by email. Delivery is
// best-effort: failures are logged and never surface to the caller.
func (s *Service) notify(ctx context.Context, templateID string, entry *QueueEntry, bed *hospital.Bed) {
	if s.notifier == nil || s.patients == nil {
		return
	}
	p, err := s.patients.GetByID(ctx, entry.PatientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("template", templateID).Msg("notification skipped: patient lookup failed")
		return
	}

	data := map[string]string{
		"patient_name": p.FullName(),
		"hospital":     s.hospitalName(ctx, entry.HospitalID),
	}
	if bed != nil {
		data["bed_type"] = bed.BedType
		data["bed_number"] = strconv.Itoa(bed.BedNumber)
	}
	if _, err := s.notifier.SendTemplated(ctx, templateID, p.Email, data); err != nil {
		s.logger.Warn().Err(err).Str("template", templateID).Msg("failed to send notification")
	}
}

func (s *Service) hospitalName(ctx context.Context, id uuid.UUID) string {
	if s.hospitals == nil {
		return "the hospital"
	}
	h, err := s.hospitals.GetByID(ctx, id)
	if err != nil {
		return "the hospital"
	}
	return h.Name
}
