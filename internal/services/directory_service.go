package services

import (
	"errors"
	"fmt"

	"shift_planner_backend/internal/models"
	"shift_planner_backend/internal/repositories"

	"github.com/google/uuid"
)

// DirectoryService is the read surface over members and qualifications.
type DirectoryService interface {
	ListMembers() ([]models.Member, error)
	GetMemberByID(id uuid.UUID) (*models.Member, error)
	ListQualifications() ([]models.Qualification, error)
}

type directoryService struct {
	memberRepo repositories.MemberRepository
}

// NewDirectoryService creates a new instance of DirectoryService.
func NewDirectoryService(mr repositories.MemberRepository) DirectoryService {
	return &directoryService{memberRepo: mr}
}

func (s *directoryService) ListMembers() ([]models.Member, error) {
	members, err := s.memberRepo.GetMembers()
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

func (s *directoryService) GetMemberByID(id uuid.UUID) (*models.Member, error) {
	member, err := s.memberRepo.GetMemberByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrMemberNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch member: %w", err)
	}
	return member, nil
}

func (s *directoryService) ListQualifications() ([]models.Qualification, error) {
	qualifications, err := s.memberRepo.GetQualifications()
	if err != nil {
		return nil, fmt.Errorf("failed to list qualifications: %w", err)
	}
	return qualifications, nil
}
