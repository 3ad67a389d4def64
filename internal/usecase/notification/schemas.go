package notification

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/ignatzorin/gigmarket/internal/domain/valueobject"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

var notificationTypes = []valueobject.NotificationType{
	valueobject.NotificationProposalAccepted,
	valueobject.NotificationProposalRejected,
	valueobject.NotificationConnectionRequest,
	valueobject.NotificationEscrowFunded,
	valueobject.NotificationEscrowReleased,
	valueobject.NotificationEscrowDisputed,
	valueobject.NotificationEscrowRefunded,
	valueobject.NotificationMilestoneApproved,
}

// SchemaSet хранит скомпилированные JSON-схемы payload по типу уведомления.
type SchemaSet struct {
	schemas map[valueobject.NotificationType]*jsonschema.Schema
}

// LoadSchemas компилирует встроенные схемы. Отсутствие схемы для типа считается ошибкой сборки.
func LoadSchemas() (*SchemaSet, error) {
	set := &SchemaSet{schemas: make(map[valueobject.NotificationType]*jsonschema.Schema, len(notificationTypes))}
	for _, t := range notificationTypes {
		raw, err := schemaFiles.ReadFile("schemas/" + string(t) + ".json")
		if err != nil {
			return nil, fmt.Errorf("notification: нет схемы для %s: %w", t, err)
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(raw, rs); err != nil {
			return nil, fmt.Errorf("notification: компиляция схемы %s: %w", t, err)
		}
		set.schemas[t] = rs
	}
	return set, nil
}

// Validate проверяет сериализованный payload против схемы его типа.
func (s *SchemaSet) Validate(ctx context.Context, t valueobject.NotificationType, payload []byte) error {
	rs, ok := s.schemas[t]
	if !ok {
		return apperror.Newf(apperror.ErrCodeValidation, "неизвестный тип уведомления %s", t)
	}

	keyErrs, err := rs.ValidateBytes(ctx, payload)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "payload уведомления не разобран")
	}
	if len(keyErrs) > 0 {
		msgs := make([]string, 0, len(keyErrs))
		for _, ke := range keyErrs {
			msgs = append(msgs, ke.PropertyPath+": "+ke.Message)
		}
		return apperror.Newf(apperror.ErrCodeValidation, "payload %s не соответствует схеме: %s", t, strings.Join(msgs, "; "))
	}
	return nil
}
