package shared

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAuditorWritesEntry(t *testing.T) {
	var buf bytes.Buffer
	auditor := LogAuditor{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	err := auditor.Record(context.Background(), AuditLog{
		ActorID:  4,
		Action:   "role.permissions.replace",
		Entity:   "role",
		EntityID: "2",
		Meta:     map[string]any{"permissions": []int64{1, 3}},
	})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"action":"role.permissions.replace"`)
	assert.Contains(t, buf.String(), `"entity_id":"2"`)
}

func TestAuditRequiresIdentity(t *testing.T) {
	var buf bytes.Buffer
	auditor := LogAuditor{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	err := auditor.Record(context.Background(), AuditLog{Action: "user.create", Entity: "user"})

	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestAuditLoggerWithoutPool(t *testing.T) {
	err := NewAuditLogger(nil).Record(context.Background(), AuditLog{Action: "a", Entity: "b", EntityID: "c"})

	assert.Error(t, err)
}
