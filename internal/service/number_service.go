package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"go.uber.org/zap"
)

// NumberRegistry manages phone number mappings (greeting audio + follow-up
// SMS text). The backend owns every mapping; the registry keeps the last
// fetched list and patches it after successful mutations. Duplicated
// templates are kept apart as drafts and never sent to the backend.
type NumberRegistry struct {
	backend NumberBackend
	feed    *NotificationFeed
	logger  *zap.Logger

	mu      sync.RWMutex
	numbers []domain.NumberMapping
	drafts  []domain.NumberDraft
}

// NewNumberRegistry creates a new NumberRegistry instance
func NewNumberRegistry(backend NumberBackend, feed *NotificationFeed, logger *zap.Logger) *NumberRegistry {
	return &NumberRegistry{
		backend: backend,
		feed:    feed,
		logger:  logger,
		numbers: []domain.NumberMapping{},
		drafts:  []domain.NumberDraft{},
	}
}

// List fetches every mapping and replaces the cached list
func (s *NumberRegistry) List(ctx context.Context) ([]domain.NumberMapping, error) {
	numbers, err := s.backend.ListNumbers(ctx)
	if err != nil {
		berr := newBackendError(err, "Failed to fetch phone numbers.")
		s.feed.publishBackend(berr)
		s.logger.Error("failed to list numbers", zap.Error(err))
		return nil, berr
	}

	s.mu.Lock()
	s.numbers = append([]domain.NumberMapping(nil), numbers...)
	s.mu.Unlock()

	return s.Numbers(), nil
}

// Numbers returns a copy of the cached list
func (s *NumberRegistry) Numbers() []domain.NumberMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.NumberMapping, len(s.numbers))
	copy(out, s.numbers)
	return out
}

// Add registers a new number. All three fields are required; nothing is sent
// to the backend when one is missing.
func (s *NumberRegistry) Add(ctx context.Context, in domain.AddNumberInput) (*domain.NumberMapping, error) {
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if in.PhoneNumber == "" || strings.TrimSpace(in.TextContent) == "" || in.Audio == nil || len(in.Audio.Data) == 0 {
		verr := newValidationError("Missing Fields", "Please fill in all required fields.")
		s.feed.publishValidation(verr)
		return nil, verr
	}

	mapping, err := s.backend.AddNumber(ctx, in)
	if err != nil {
		berr := newBackendError(err, "Failed to add phone number.")
		s.feed.publishBackend(berr)
		s.logger.Error("failed to add number",
			zap.String("phone_number", in.PhoneNumber),
			zap.Error(err),
		)
		return nil, berr
	}

	s.mu.Lock()
	s.numbers = append(s.numbers, *mapping)
	s.mu.Unlock()

	s.feed.Success("Success", "Phone number added successfully!")
	s.logger.Info("number added",
		zap.Int64("id", mapping.ID),
		zap.String("phone_number", mapping.PhoneNumber),
	)
	return mapping, nil
}

// Duplicate copies a mapping into a local draft with an empty phone number
func (s *NumberRegistry) Duplicate(id int64) (*domain.NumberDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("number %d: %w", id, ErrNotFound)
	}

	copied := s.numbers[idx]
	copied.PhoneNumber = ""
	draft := domain.NumberDraft{
		Key:        uuid.New().String(),
		TemplateID: id,
		Mapping:    copied,
	}
	s.drafts = append(s.drafts, draft)

	s.feed.Success("Campaign Duplicated", "Campaign template has been duplicated. Update the phone number.")
	return &draft, nil
}

// Drafts returns the uncommitted duplicates in creation order
func (s *NumberRegistry) Drafts() []domain.NumberDraft {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.NumberDraft, len(s.drafts))
	copy(out, s.drafts)
	return out
}

// DiscardDraft drops a draft by key
func (s *NumberRegistry) DiscardDraft(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range s.drafts {
		if d.Key == key {
			s.drafts = append(s.drafts[:i], s.drafts[i+1:]...)
			return nil
		}
	}
	return ErrDraftNotFound
}

// EditText replaces the follow-up SMS text of a mapping
func (s *NumberRegistry) EditText(ctx context.Context, id int64, textContent string) (*domain.NumberMapping, error) {
	if strings.TrimSpace(textContent) == "" {
		verr := newValidationError("Missing Content", "Please provide text content.")
		s.feed.publishValidation(verr)
		return nil, verr
	}

	updated, err := s.backend.UpdateText(ctx, id, textContent)
	if err != nil {
		berr := newBackendError(err, "Failed to update text content.")
		s.feed.publishBackend(berr)
		s.logger.Error("failed to update text", zap.Int64("id", id), zap.Error(err))
		return nil, berr
	}

	s.mu.Lock()
	if idx := s.indexOf(id); idx >= 0 {
		s.numbers[idx].TextContent = textContent
		if updated.TextContent != "" {
			s.numbers[idx].TextContent = updated.TextContent
		}
	}
	s.mu.Unlock()

	s.feed.Success("Success", "Text content updated successfully!")
	return updated, nil
}

// ReplaceAudio uploads a new greeting and patches the cached audio URL
func (s *NumberRegistry) ReplaceAudio(ctx context.Context, id int64, audio *domain.AudioFile) (*domain.NumberMapping, error) {
	if audio == nil || len(audio.Data) == 0 {
		verr := newValidationError("Missing Audio File", "Please select an audio file.")
		s.feed.publishValidation(verr)
		return nil, verr
	}

	updated, err := s.backend.UpdateAudio(ctx, id, audio)
	if err != nil {
		berr := newBackendError(err, "Failed to replace audio file.")
		s.feed.publishBackend(berr)
		s.logger.Error("failed to replace audio",
			zap.Int64("id", id),
			zap.String("filename", audio.Filename),
			zap.Error(err),
		)
		return nil, berr
	}

	s.mu.Lock()
	if idx := s.indexOf(id); idx >= 0 {
		s.numbers[idx].AudioURL = updated.AudioURL
	}
	s.mu.Unlock()

	s.feed.Success("Success", "Audio file replaced successfully!")
	return updated, nil
}

// Delete removes a mapping. confirmed must be true; the console asks the
// operator before sending it.
func (s *NumberRegistry) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	if err := s.backend.DeleteNumber(ctx, id); err != nil {
		berr := newBackendError(err, "Failed to delete phone number.")
		s.feed.publishBackend(berr)
		s.logger.Error("failed to delete number", zap.Int64("id", id), zap.Error(err))
		return berr
	}

	s.mu.Lock()
	if idx := s.indexOf(id); idx >= 0 {
		s.numbers = append(s.numbers[:idx], s.numbers[idx+1:]...)
	}
	s.mu.Unlock()

	s.feed.Success("Success", "Phone number deleted successfully!")
	s.logger.Info("number deleted", zap.Int64("id", id))
	return nil
}

// ConfigureWebhook points the voice webhook of a cached mapping's number at
// the backend. Only a notification is produced; the list is not touched.
func (s *NumberRegistry) ConfigureWebhook(ctx context.Context, id int64) error {
	s.mu.RLock()
	idx := s.indexOf(id)
	var phoneNumber string
	if idx >= 0 {
		phoneNumber = s.numbers[idx].PhoneNumber
	}
	s.mu.RUnlock()

	if idx < 0 {
		return fmt.Errorf("number %d: %w", id, ErrNotFound)
	}
	if strings.TrimSpace(phoneNumber) == "" {
		verr := newValidationError("Missing Fields", "Please provide a phone number before configuring the webhook.")
		s.feed.publishValidation(verr)
		return verr
	}

	if err := s.backend.ConfigureWebhook(ctx, phoneNumber); err != nil {
		berr := newBackendError(err, "Failed to configure webhook on Twilio.")
		s.feed.publishBackend(berr)
		s.logger.Error("failed to configure webhook",
			zap.String("phone_number", phoneNumber),
			zap.Error(err),
		)
		return berr
	}

	s.feed.Success("Success", fmt.Sprintf("Webhook configured successfully for %s!", phoneNumber))
	return nil
}

// indexOf must be called with s.mu held
func (s *NumberRegistry) indexOf(id int64) int {
	for i, n := range s.numbers {
		if n.ID == id {
			return i
		}
	}
	return -1
}
