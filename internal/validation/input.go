package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

// Константы валидации
const (
	MinGigTitleLength         = 3
	MaxGigTitleLength         = 200
	MaxGigDescriptionLength   = 5000
	MaxProposalMessageLength  = 2000
	MaxProposalTimelineLength = 200
	MaxMilestoneDescription   = 500
	MaxDisputeReasonLength    = 2000
	MaxResolutionNoteLength   = 2000
	MaxSkillLength            = 50
	MaxSkillsCount            = 30
)

// ValidateLength проверяет длину строки в символах и возвращает VALIDATION_ERROR.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return apperror.Newf(apperror.ErrCodeValidation, "%s должно быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return apperror.Newf(apperror.ErrCodeValidation, "%s должно быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что после обрезки пробелов что-то осталось.
func ValidateNonEmpty(message, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperror.New(apperror.ErrCodeValidation, message)
	}
	return nil
}

func ValidateGigTitle(title string) error {
	if err := ValidateNonEmpty("название заказа обязательно", title); err != nil {
		return err
	}
	return ValidateLength("название заказа", strings.TrimSpace(title), MinGigTitleLength, MaxGigTitleLength)
}

func ValidateGigDescription(description string) error {
	if err := ValidateNonEmpty("описание заказа обязательно", description); err != nil {
		return err
	}
	return ValidateLength("описание заказа", description, 0, MaxGigDescriptionLength)
}

func ValidateProposalMessage(message string) error {
	if err := ValidateNonEmpty("сопроводительное сообщение обязательно", message); err != nil {
		return err
	}
	return ValidateLength("сопроводительное сообщение", message, 0, MaxProposalMessageLength)
}

// ValidateSkills проверяет количество и длину навыков. Дубликаты допустимы:
// набор нормализуется при создании заказа.
func ValidateSkills(skills []string) error {
	if len(skills) > MaxSkillsCount {
		return apperror.Newf(apperror.ErrCodeValidation, "количество навыков не может превышать %d", MaxSkillsCount)
	}
	for _, skill := range skills {
		if utf8.RuneCountInString(strings.TrimSpace(skill)) > MaxSkillLength {
			return apperror.Newf(apperror.ErrCodeValidation, "навык не может быть длиннее %d символов", MaxSkillLength)
		}
	}
	return nil
}

func ValidateDisputeReason(reason string) error {
	if err := ValidateNonEmpty("причина спора обязательна", reason); err != nil {
		return err
	}
	return ValidateLength("причина спора", reason, 0, MaxDisputeReasonLength)
}
