package validators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgmap/domain/config"
	"orgmap/pkg/errors"
)

func TestLabels(t *testing.T) {
	v := NewInputValidator(nil)

	from, to, err := v.Labels("  Acme ", "Beta")
	require.NoError(t, err)
	assert.Equal(t, "Acme", from)
	assert.Equal(t, "Beta", to)

	_, _, err = v.Labels("Acme", "   ")
	assert.True(t, errors.HasCode(err, errors.CodeMissingLabel))

	_, _, err = v.Labels(strings.Repeat("a", 201), "Beta")
	assert.True(t, errors.IsValidation(err))
}

func TestRelationship(t *testing.T) {
	rules := config.DefaultDomainConfig()
	rules.MaxRelationshipLength = 5
	v := NewInputValidator(rules)

	rel, err := v.Relationship(" peer ")
	require.NoError(t, err)
	assert.Equal(t, "peer", rel)

	_, err = v.Relationship("")
	assert.True(t, errors.HasCode(err, errors.CodeMissingRelation))

	_, err = v.Relationship("partnership")
	assert.True(t, errors.IsValidation(err))
}

func TestURL(t *testing.T) {
	v := NewInputValidator(nil)

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"   ", "", false},
		{" https://acme.example ", "https://acme.example", false},
		{"acme.example/about", "acme.example/about", false},
		{"javascript:alert(1)", "", true},
		{"ftp://files.example", "", true},
		{"https://", "", true},
		{"https://x.example/" + strings.Repeat("a", 2048), "", true},
	}
	for _, tt := range tests {
		got, err := v.URL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
