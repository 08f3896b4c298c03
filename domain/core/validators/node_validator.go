// Package validators holds the input rules applied to edits before they
// reach the graph.
package validators

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"orgmap/domain/config"
	"orgmap/pkg/errors"
)

// InputValidator checks labels, relationship names and links typed by the user
type InputValidator struct {
	labelMaxLength        int
	relationshipMaxLength int
	urlMaxLength          int
}

// NewInputValidator creates a validator with the limits from rules
func NewInputValidator(rules *config.DomainConfig) *InputValidator {
	if rules == nil {
		rules = config.DefaultDomainConfig()
	}
	return &InputValidator{
		labelMaxLength:        rules.MaxLabelLength,
		relationshipMaxLength: rules.MaxRelationshipLength,
		urlMaxLength:          rules.MaxURLLength,
	}
}

// Labels trims both quick-editor labels and rejects blank or oversized ones
func (v *InputValidator) Labels(from, to string) (string, string, error) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" || to == "" {
		return "", "", errors.NewValidationError("both labels are required").WithCode(errors.CodeMissingLabel)
	}
	for _, label := range []string{from, to} {
		if err := v.Label(label); err != nil {
			return "", "", err
		}
	}
	return from, to, nil
}

// Label checks a single trimmed label
func (v *InputValidator) Label(label string) error {
	if strings.TrimSpace(label) == "" {
		return errors.NewValidationError("label cannot be empty").WithCode(errors.CodeMissingLabel)
	}
	if v.labelMaxLength > 0 && utf8.RuneCountInString(label) > v.labelMaxLength {
		return errors.NewValidationError(fmt.Sprintf("label must be at most %d characters", v.labelMaxLength)).
			WithDetail("field", "label").
			WithDetail("max_length", v.labelMaxLength)
	}
	return nil
}

// Relationship returns the trimmed relationship name
func (v *InputValidator) Relationship(relationship string) (string, error) {
	rel := strings.TrimSpace(relationship)
	if rel == "" {
		return "", errors.NewValidationError("relationship is required").WithCode(errors.CodeMissingRelation)
	}
	if v.relationshipMaxLength > 0 && utf8.RuneCountInString(rel) > v.relationshipMaxLength {
		return "", errors.NewValidationError(fmt.Sprintf("relationship must be at most %d characters", v.relationshipMaxLength)).
			WithDetail("field", "relationship").
			WithDetail("max_length", v.relationshipMaxLength)
	}
	return rel, nil
}

// URL returns the trimmed link. Empty clears the link. A link with a scheme
// must use http or https; bare hosts such as "acme.example" are kept as typed.
func (v *InputValidator) URL(raw string) (string, error) {
	link := strings.TrimSpace(raw)
	if link == "" {
		return "", nil
	}
	if v.urlMaxLength > 0 && len(link) > v.urlMaxLength {
		return "", errors.NewValidationError(fmt.Sprintf("url must be at most %d characters", v.urlMaxLength)).
			WithDetail("field", "url").
			WithDetail("max_length", v.urlMaxLength)
	}

	parsed, err := url.Parse(link)
	if err != nil {
		return "", errors.NewValidationError("invalid url format").
			WithDetail("field", "url").
			WithCause(err)
	}
	if parsed.Scheme == "" {
		return link, nil
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.NewValidationError("url must use http or https").
			WithDetail("field", "url").
			WithDetail("scheme", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", errors.NewValidationError("url must have a host").WithDetail("field", "url")
	}
	return link, nil
}
