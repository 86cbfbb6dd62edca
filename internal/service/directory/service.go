package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-chi/jwtauth/v5"
	"github.com/opsportal/backend-go/internal/domain/shift"
	"github.com/opsportal/backend-go/internal/domain/tenant"
	"github.com/opsportal/backend-go/internal/pkg/timeutil"
)

// DirectoryServiceImpl serves tenant configuration reads and shift template
// management for admins.
type DirectoryServiceImpl struct {
	shift.ShiftRepository
	tenant.PolicyRepository
}

func NewDirectoryService(shiftRepository shift.ShiftRepository, policyRepository tenant.PolicyRepository) *DirectoryServiceImpl {
	return &DirectoryServiceImpl{
		ShiftRepository:  shiftRepository,
		PolicyRepository: policyRepository,
	}
}

func tenantFromContext(ctx context.Context) (string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to extract claims from context: %w", err)
	}

	tenantID, ok := claims["tenant_id"].(string)
	if !ok || tenantID == "" {
		return "", fmt.Errorf("tenant_id claim is missing or invalid")
	}
	return tenantID, nil
}

// GetMyPolicy implements tenant.PolicyService.
func (d *DirectoryServiceImpl) GetMyPolicy(ctx context.Context) (tenant.PolicyResponse, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return tenant.PolicyResponse{}, err
	}

	policy, err := d.PolicyRepository.GetPolicy(ctx, tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrPolicyNotFound) {
			return tenant.PolicyResponse{}, err
		}
		return tenant.PolicyResponse{}, fmt.Errorf("failed to get tenant policy: %w", err)
	}

	return tenant.PolicyResponse{
		WorkStrategy:    policy.WorkStrategy,
		RadiusTolerance: policy.RadiusTolerance,
		LateGracePeriod: policy.LateGracePeriod,
		OfficeLatitude:  policy.OfficeLocation.Lat,
		OfficeLongitude: policy.OfficeLocation.Lng,
		OfficeStart:     policy.OfficeHours.Start,
		OfficeEnd:       policy.OfficeHours.End,
		Timezone:        policy.Timezone,
	}, nil
}

// CreateShift implements shift.ShiftService.
func (d *DirectoryServiceImpl) CreateShift(ctx context.Context, req shift.CreateShiftRequest) (shift.ShiftResponse, error) {
	if err := req.Validate(); err != nil {
		return shift.ShiftResponse{}, err
	}

	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	created, err := d.ShiftRepository.Create(ctx, shift.Shift{
		TenantID:    tenantID,
		Name:        req.Name,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsOvernight: isOvernight(req.StartTime, req.EndTime),
	})
	if err != nil {
		if errors.Is(err, shift.ErrShiftNameTaken) {
			return shift.ShiftResponse{}, err
		}
		return shift.ShiftResponse{}, fmt.Errorf("failed to create shift: %w", err)
	}

	return mapShiftToResponse(created), nil
}

// GetShift implements shift.ShiftService.
func (d *DirectoryServiceImpl) GetShift(ctx context.Context, id string) (shift.ShiftResponse, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	s, err := d.ShiftRepository.GetByID(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, shift.ErrShiftNotFound) {
			return shift.ShiftResponse{}, err
		}
		return shift.ShiftResponse{}, fmt.Errorf("failed to get shift: %w", err)
	}

	return mapShiftToResponse(s), nil
}

// ListShifts implements shift.ShiftService.
func (d *DirectoryServiceImpl) ListShifts(ctx context.Context) ([]shift.ShiftResponse, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	shifts, err := d.ShiftRepository.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}

	responses := make([]shift.ShiftResponse, 0, len(shifts))
	for _, s := range shifts {
		responses = append(responses, mapShiftToResponse(s))
	}
	return responses, nil
}

// UpdateShift implements shift.ShiftService.
func (d *DirectoryServiceImpl) UpdateShift(ctx context.Context, id string, req shift.CreateShiftRequest) (shift.ShiftResponse, error) {
	if err := req.Validate(); err != nil {
		return shift.ShiftResponse{}, err
	}

	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	existing, err := d.ShiftRepository.GetByID(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, shift.ErrShiftNotFound) {
			return shift.ShiftResponse{}, err
		}
		return shift.ShiftResponse{}, fmt.Errorf("failed to get shift: %w", err)
	}

	existing.Name = req.Name
	existing.StartTime = req.StartTime
	existing.EndTime = req.EndTime
	existing.IsOvernight = isOvernight(req.StartTime, req.EndTime)

	if err := d.ShiftRepository.Update(ctx, existing); err != nil {
		if errors.Is(err, shift.ErrShiftNameTaken) {
			return shift.ShiftResponse{}, err
		}
		return shift.ShiftResponse{}, fmt.Errorf("failed to update shift: %w", err)
	}

	return mapShiftToResponse(existing), nil
}

// DeleteShift implements shift.ShiftService.
func (d *DirectoryServiceImpl) DeleteShift(ctx context.Context, id string) error {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return err
	}

	if err := d.ShiftRepository.Delete(ctx, id, tenantID); err != nil {
		if errors.Is(err, shift.ErrShiftNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete shift: %w", err)
	}
	return nil
}

// isOvernight is derived, never client-supplied: an end clock at or before
// the start clock crosses midnight.
func isOvernight(start, end string) bool {
	startMins, err := timeutil.ParseClock(start)
	if err != nil {
		return false
	}
	endMins, err := timeutil.ParseClock(end)
	if err != nil {
		return false
	}
	return endMins <= startMins
}

func mapShiftToResponse(s shift.Shift) shift.ShiftResponse {
	return shift.ShiftResponse{
		ID:          s.ID,
		Name:        s.Name,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		IsOvernight: s.IsOvernight,
	}
}
