package salesforce

import (
	"strings"
)

// LeadRecord builds a Salesforce Lead sObject from company and contact
// fields. Salesforce requires LastName and Company; a contact name with
// one token goes entirely into LastName.
func LeadRecord(companyName, website, industry, description, fullName, title, email, phone string) map[string]any {
	first, last := splitName(fullName)
	record := map[string]any{
		"Company":    companyName,
		"LastName":   last,
		"LeadSource": "Lead Generation Engine",
	}
	setIfPresent(record, "FirstName", first)
	setIfPresent(record, "Website", website)
	setIfPresent(record, "Industry", industry)
	setIfPresent(record, "Description", description)
	setIfPresent(record, "Title", title)
	setIfPresent(record, "Email", email)
	setIfPresent(record, "Phone", phone)
	return record
}

func setIfPresent(record map[string]any, field, value string) {
	if value != "" {
		record[field] = value
	}
}

func splitName(fullName string) (first, last string) {
	tokens := strings.Fields(strings.TrimSpace(fullName))
	switch len(tokens) {
	case 0:
		return "", "Unknown"
	case 1:
		return "", tokens[0]
	default:
		return strings.Join(tokens[:len(tokens)-1], " "), tokens[len(tokens)-1]
	}
}
