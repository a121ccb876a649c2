package models

import (
	"encoding/json"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestTicketContactJSONKeys(t *testing.T) {
	contact := &Contact{ID: 1, Name: "Ana", Number: "5511999999999", Email: "ana@example.com", ProfilePicURL: "http://x"}
	contactID := contact.ID
	ticket := Ticket{ID: 3, Status: TicketOpen, ContactID: &contactID, Contact: contact.Summary()}

	raw, err := json.Marshal(ticket)
	require.NoError(t, err)

	var decoded struct {
		Contact map[string]interface{} `json:"contact"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	keys := make([]string, 0, len(decoded.Contact))
	for k := range decoded.Contact {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"id", "name", "number", "profilePicUrl"}, keys)
	assert.NotContains(t, string(raw), "ana@example.com")
}

func TestTicketContactUsesContactsTable(t *testing.T) {
	s, err := schema.Parse(&Ticket{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	rel, ok := s.Relationships.Relations["Contact"]
	require.True(t, ok)
	assert.Equal(t, "contacts", rel.FieldSchema.Table)
	require.Len(t, rel.References, 1)
	assert.Equal(t, "contact_id", rel.References[0].ForeignKey.DBName)
}
