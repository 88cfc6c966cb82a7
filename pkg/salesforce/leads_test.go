package salesforce

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeadRecord(t *testing.T) {
	t.Parallel()
	record := LeadRecord("Acme Inc", "https://acme.com", "Manufacturing",
		"Industrial anvils.", "Jane Q Doe", "CEO", "jane@acme.com", "+15551234567")

	assert.Equal(t, "Acme Inc", record["Company"])
	assert.Equal(t, "Jane Q", record["FirstName"])
	assert.Equal(t, "Doe", record["LastName"])
	assert.Equal(t, "CEO", record["Title"])
	assert.Equal(t, "jane@acme.com", record["Email"])
	assert.Equal(t, "Lead Generation Engine", record["LeadSource"])
}

func TestLeadRecord_NameEdgeCases(t *testing.T) {
	t.Parallel()
	record := LeadRecord("Acme Inc", "", "", "", "Cher", "", "", "")
	assert.Equal(t, "Cher", record["LastName"])
	assert.NotContains(t, record, "FirstName")
	assert.NotContains(t, record, "Website")

	record = LeadRecord("Acme Inc", "", "", "", "", "", "", "")
	assert.Equal(t, "Unknown", record["LastName"])
}
