package service

import (
	"fmt"

	"github.com/google/uuid"

	"lending-recon/internal/domain"
	"lending-recon/internal/repository"
	"lending-recon/pkg/logger"
)

type EntryService interface {
	Create(entry *domain.BankEntry) error
	BulkCreate(entries []domain.BankEntry) (int, error)
	GetByID(id string) (*domain.BankEntry, error)
	List(reconciled *bool) ([]domain.BankEntry, error)
}

type entryService struct {
	repo repository.BankEntryRepository
}

func NewEntryService(repo repository.BankEntryRepository) EntryService {
	return &entryService{repo: repo}
}

func (s *entryService) Create(entry *domain.BankEntry) error {
	if err := s.validate(entry); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	return s.repo.Create(entry)
}

// BulkCreate inserts the valid entries and reports how many were
// accepted. Invalid rows are skipped, not fatal; a statement import
// should not fail because one line is malformed.
func (s *entryService) BulkCreate(entries []domain.BankEntry) (int, error) {
	valid := make([]domain.BankEntry, 0, len(entries))
	for i := range entries {
		if err := s.validate(&entries[i]); err != nil {
			logger.GetLogger().WithError(err).WithField("index", i).Warn("Invalid bank entry, skipping")
			continue
		}
		if entries[i].ID == "" {
			entries[i].ID = uuid.New().String()
		}
		valid = append(valid, entries[i])
	}
	if len(valid) == 0 {
		return 0, fmt.Errorf("no valid bank entries to import")
	}
	if err := s.repo.BulkCreate(valid); err != nil {
		return 0, err
	}
	return len(valid), nil
}

func (s *entryService) GetByID(id string) (*domain.BankEntry, error) {
	if id == "" {
		return nil, fmt.Errorf("entry id cannot be empty")
	}
	return s.repo.GetByID(id)
}

func (s *entryService) List(reconciled *bool) ([]domain.BankEntry, error) {
	return s.repo.List(reconciled)
}

func (s *entryService) validate(entry *domain.BankEntry) error {
	if entry.Amount.IsZero() {
		return fmt.Errorf("amount must be non-zero")
	}
	if entry.Date.IsZero() {
		return fmt.Errorf("entry date is required")
	}
	if entry.Description == "" {
		return fmt.Errorf("description is required")
	}
	return nil
}
