package webhook

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ExtractedFields is what a captured form could be mapped to.
type ExtractedFields struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   string
	Message   string
	Source    string
	Value     float64
	Tags      []string
}

func (e ExtractedFields) Name() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// IsIncomplete reports a submission that cannot become a lead: it needs a
// name and at least one way to reach the person.
func (e ExtractedFields) IsIncomplete() bool {
	return e.Name() == "" || (e.Phone == "" && e.Email == "")
}

type field int

const (
	fieldFirstName field = iota + 1
	fieldLastName
	fieldFullName
	fieldEmail
	fieldPhone
	fieldCompany
	fieldMessage
	fieldSource
	fieldValue
	fieldTags
)

// Form labels in English and Dutch, compared after normalizeLabel.
var fieldLabels = map[field][]string{
	fieldFirstName: {"first_name", "firstname", "voornaam", "given_name", "fname"},
	fieldLastName:  {"last_name", "lastname", "achternaam", "family_name", "surname", "lname"},
	fieldFullName:  {"name", "naam", "full_name", "your_name", "contact_name"},
	fieldEmail:     {"email", "e-mail", "email_address", "emailadres", "mail"},
	fieldPhone:     {"phone", "phone_number", "telephone", "tel", "telefoon", "telefoonnummer", "mobile", "mobiel", "gsm", "whatsapp"},
	fieldCompany:   {"company", "company_name", "bedrijf", "bedrijfsnaam", "organization", "organisation", "organisatie", "business"},
	fieldMessage:   {"message", "bericht", "opmerking", "opmerkingen", "comment", "comments", "notes", "description", "toelichting", "vraag", "question"},
	fieldSource:    {"source", "bron", "utm_source", "lead_source", "channel"},
	fieldValue:     {"value", "budget", "deal_value", "amount", "waarde", "bedrag"},
	fieldTags:      {"tags", "tag", "labels", "label"},
}

var labelIndex = buildLabelIndex()

func buildLabelIndex() map[string]field {
	index := make(map[string]field)
	for f, labels := range fieldLabels {
		for _, label := range labels {
			index[normalizeLabel(label)] = f
		}
	}
	return index
}

var labelNormalizer = strings.NewReplacer("-", "", "_", "", " ", "")

func normalizeLabel(label string) string {
	return labelNormalizer.Replace(strings.ToLower(strings.TrimSpace(label)))
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ExtractFields maps arbitrary form keys onto lead fields. Values are kept as
// entered; duplicate matching derives its own keys. Keys are visited
// in sorted order and the first usable value per field wins, so the result
// does not depend on map iteration. Explicit first and last names take
// precedence over a split full name.
func ExtractFields(data map[string]string) ExtractedFields {
	var out ExtractedFields
	var fullFirst, fullLast string

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		value := strings.TrimSpace(data[key])
		f, ok := labelIndex[normalizeLabel(key)]
		if value == "" || !ok {
			continue
		}

		switch f {
		case fieldFirstName:
			setOnce(&out.FirstName, value)
		case fieldLastName:
			setOnce(&out.LastName, value)
		case fieldFullName:
			if fullFirst == "" {
				fullFirst, fullLast, _ = strings.Cut(value, " ")
			}
		case fieldEmail:
			if emailPattern.MatchString(value) {
				setOnce(&out.Email, value)
			}
		case fieldPhone:
			setOnce(&out.Phone, value)
		case fieldCompany:
			setOnce(&out.Company, value)
		case fieldMessage:
			setOnce(&out.Message, value)
		case fieldSource:
			setOnce(&out.Source, strings.ToLower(value))
		case fieldValue:
			if v, ok := parseAmount(value); ok && out.Value == 0 {
				out.Value = v
			}
		case fieldTags:
			out.Tags = append(out.Tags, splitTags(value)...)
		}
	}

	if out.FirstName == "" && out.LastName == "" {
		out.FirstName, out.LastName = fullFirst, strings.TrimSpace(fullLast)
	}
	return out
}

func setOnce(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

// parseAmount reads a money amount in either decimal convention: "1500",
// "1.500,50", "1,500.50", "€ 1500". The separator that comes last is the
// decimal one.
func parseAmount(value string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			return r
		}
		return -1
	}, value)
	if cleaned == "" {
		return 0, false
	}

	if strings.LastIndexByte(cleaned, ',') > strings.LastIndexByte(cleaned, '.') {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func splitTags(value string) []string {
	var tags []string
	for part := range strings.SplitSeq(value, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
