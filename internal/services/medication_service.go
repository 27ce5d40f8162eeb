package services

import (
	"errors"
	"fmt"
	"pharmacist/internal/database"
	"pharmacist/internal/models"
	"strings"

	"gorm.io/gorm"
)

type MedicationService struct {
	db     *gorm.DB
	search *SearchService
}

func NewMedicationService() *MedicationService {
	return &MedicationService{
		db:     database.GetDB(),
		search: NewSearchService(),
	}
}

// List returns the user's medications newest first, filtered by search when given
func (s *MedicationService) List(userID uint, search string) ([]models.Medication, error) {
	var medications []models.Medication

	if strings.TrimSpace(search) != "" {
		found, err := s.search.SearchMedications(userID, search, 100, 0)
		if err != nil {
			return nil, err
		}
		medications = found
	} else if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&medications).Error; err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}

	if err := s.attachReminderCounts(medications); err != nil {
		return nil, err
	}
	return medications, nil
}

func (s *MedicationService) attachReminderCounts(medications []models.Medication) error {
	if len(medications) == 0 {
		return nil
	}

	ids := make([]uint, len(medications))
	for i, m := range medications {
		ids[i] = m.ID
	}

	var counts []struct {
		MedicationID uint
		Count        int64
	}
	if err := s.db.Model(&models.Reminder{}).
		Select("medication_id, COUNT(*) AS count").
		Where("medication_id IN ?", ids).
		Group("medication_id").
		Scan(&counts).Error; err != nil {
		return fmt.Errorf("failed to count reminders: %w", err)
	}

	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.MedicationID] = c.Count
	}
	for i := range medications {
		medications[i].RemindersCount = byID[medications[i].ID]
	}
	return nil
}

// Get returns one of the user's medications with its reminders and their times
func (s *MedicationService) Get(userID, id uint) (*models.Medication, error) {
	var medication models.Medication
	err := s.db.Where("id = ? AND user_id = ?", id, userID).
		Preload("Reminders", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Reminders.Times", func(db *gorm.DB) *gorm.DB { return db.Order("time") }).
		First(&medication).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load medication: %w", err)
	}
	medication.RemindersCount = int64(len(medication.Reminders))
	return &medication, nil
}

func (s *MedicationService) Create(userID uint, req models.MedicationRequest) (*models.Medication, error) {
	medication := models.Medication{
		UserID:      userID,
		Name:        NormalizeText(req.Name),
		Dosage:      strings.TrimSpace(req.Dosage),
		Description: req.Description,
	}
	if medication.Name == "" {
		return nil, invalidField("name", "name is required")
	}

	if err := s.db.Create(&medication).Error; err != nil {
		return nil, fmt.Errorf("failed to create medication: %w", err)
	}
	return &medication, nil
}

// Replace overwrites every editable field (PUT)
func (s *MedicationService) Replace(userID, id uint, req models.MedicationRequest) (*models.Medication, error) {
	name := NormalizeText(req.Name)
	dosage := strings.TrimSpace(req.Dosage)
	return s.Patch(userID, id, models.MedicationPatch{Name: &name, Dosage: &dosage, Description: &req.Description})
}

// Patch updates only the provided fields (PATCH)
func (s *MedicationService) Patch(userID, id uint, req models.MedicationPatch) (*models.Medication, error) {
	var medication models.Medication
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&medication).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load medication: %w", err)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := NormalizeText(*req.Name)
		if name == "" {
			return nil, invalidField("name", "name is required")
		}
		updates["name"] = name
	}
	if req.Dosage != nil {
		updates["dosage"] = strings.TrimSpace(*req.Dosage)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}

	if len(updates) > 0 {
		if err := s.db.Model(&medication).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update medication: %w", err)
		}
	}

	return s.Get(userID, id)
}

// Delete removes a medication together with its reminders, their times and logs
func (s *MedicationService) Delete(userID, id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var medication models.Medication
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&medication).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load medication: %w", err)
		}

		reminderIDs := tx.Model(&models.Reminder{}).Select("id").Where("medication_id = ?", id)
		if err := deleteReminderChildren(tx, reminderIDs); err != nil {
			return err
		}
		if err := tx.Where("medication_id = ?", id).Delete(&models.Reminder{}).Error; err != nil {
			return fmt.Errorf("failed to delete reminders: %w", err)
		}
		if err := tx.Delete(&medication).Error; err != nil {
			return fmt.Errorf("failed to delete medication: %w", err)
		}
		return nil
	})
}

// deleteReminderChildren removes logs, their notification records and times of the reminders
// selected by the reminderIDs subquery
func deleteReminderChildren(tx *gorm.DB, reminderIDs *gorm.DB) error {
	logIDs := tx.Model(&models.ReminderLog{}).Select("id").Where("reminder_id IN (?)", reminderIDs)
	if err := tx.Where("log_id IN (?)", logIDs).Delete(&models.NotificationLog{}).Error; err != nil {
		return fmt.Errorf("failed to delete notification logs: %w", err)
	}
	if err := tx.Where("reminder_id IN (?)", reminderIDs).Delete(&models.ReminderLog{}).Error; err != nil {
		return fmt.Errorf("failed to delete reminder logs: %w", err)
	}
	if err := tx.Where("reminder_id IN (?)", reminderIDs).Delete(&models.ReminderTime{}).Error; err != nil {
		return fmt.Errorf("failed to delete reminder times: %w", err)
	}
	return nil
}
