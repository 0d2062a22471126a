package hospital

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	hospitals HospitalRepository
	locations LocationRepository
	beds      BedRepository
}

func NewService(hospitals HospitalRepository, locations LocationRepository, beds BedRepository) *Service {
	return &Service{hospitals: hospitals, locations: locations, beds: beds}
}

// -- Hospital --

func (s *Service) CreateHospital(ctx context.Context, h *Hospital) error {
	if h.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.hospitals.Create(ctx, h)
}

func (s *Service) GetHospital(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return s.hospitals.GetByID(ctx, id)
}

func (s *Service) UpdateHospital(ctx context.Context, h *Hospital) error {
	if h.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.hospitals.Update(ctx, h)
}

func (s *Service) DeleteHospital(ctx context.Context, id uuid.UUID) error {
	return s.hospitals.Delete(ctx, id)
}

func (s *Service) ListHospitals(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	return s.hospitals.List(ctx, limit, offset)
}

func (s *Service) SearchHospitals(ctx context.Context, params map[string]string, limit, offset int) ([]*Hospital, int, error) {
	return s.hospitals.Search(ctx, params, limit, offset)
}

// -- Location --

func (s *Service) CreateLocation(ctx context.Context, l *Location) error {
	if l.HospitalID == uuid.Nil {
		return fmt.Errorf("hospital_id is required")
	}
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.locations.Create(ctx, l)
}

func (s *Service) GetLocation(ctx context.Context, id uuid.UUID) (*Location, error) {
	return s.locations.GetByID(ctx, id)
}

func (s *Service) UpdateLocation(ctx context.Context, l *Location) error {
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.locations.Update(ctx, l)
}

func (s *Service) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	return s.locations.Delete(ctx, id)
}

func (s *Service) ListLocations(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Location, int, error) {
	return s.locations.ListByHospital(ctx, hospitalID, limit, offset)
}

// -- Bed --

func (s *Service) CreateBed(ctx context.Context, b *Bed) error {
	if b.HospitalID == uuid.Nil {
		return fmt.Errorf("hospital_id is required")
	}
	if b.BedNumber <= 0 {
		return fmt.Errorf("bed_number must be positive")
	}
	if !ValidBedTypes[b.BedType] {
		return fmt.Errorf("invalid bed_type: %s", b.BedType)
	}
	return s.beds.Create(ctx, b)
}

func (s *Service) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return s.beds.GetByID(ctx, id)
}

func (s *Service) UpdateBed(ctx context.Context, b *Bed) error {
	if b.BedNumber <= 0 {
		return fmt.Errorf("bed_number must be positive")
	}
	if !ValidBedTypes[b.BedType] {
		return fmt.Errorf("invalid bed_type: %s", b.BedType)
	}
	return s.beds.Update(ctx, b)
}

func (s *Service) DeleteBed(ctx context.Context, id uuid.UUID) error {
	return s.beds.Delete(ctx, id)
}

func (s *Service) ListBeds(ctx context.Context, hospitalID uuid.UUID, locationID *uuid.UUID, limit, offset int) ([]*Bed, int, error) {
	return s.beds.ListByHospital(ctx, hospitalID, locationID, limit, offset)
}

func (s *Service) ListAvailableBeds(ctx context.Context, hospitalID uuid.UUID, locationID *uuid.UUID, bedType string) ([]*Bed, error) {
	if bedType != "" && !ValidBedTypes[bedType] {
		return nil, fmt.Errorf("invalid bed_type: %s", bedType)
	}
	return s.beds.ListAvailable(ctx, hospitalID, locationID, bedType)
}
