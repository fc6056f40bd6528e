package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookshelf-server/internal/domain"
	domainerrors "github.com/listenupapp/bookshelf-server/internal/errors"
	"github.com/listenupapp/bookshelf-server/internal/validation"
)

func ptr[T any](v T) *T { return &v }

func TestValidator_BookUpdateValid(t *testing.T) {
	v := validation.New()
	err := v.Validate(domain.BookUpdate{
		Title:           ptr("Persuasion"),
		PublicationYear: ptr(1817),
		Tags:            []string{"classic", "regency"},
	})
	assert.NoError(t, err)

	assert.NoError(t, v.Validate(domain.BookUpdate{}))
}

func TestValidator_BookUpdateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		update    domain.BookUpdate
		wantField string
		wantMsg   string
	}{
		{
			name:      "empty title",
			update:    domain.BookUpdate{Title: ptr("")},
			wantField: "title",
			wantMsg:   "must be at least 1 characters",
		},
		{
			name:      "year out of range",
			update:    domain.BookUpdate{PublicationYear: ptr(99999)},
			wantField: "publication_year",
			wantMsg:   "must not exceed 2200",
		},
		{
			name:      "blank tag",
			update:    domain.BookUpdate{Tags: []string{"ok", ""}},
			wantField: "tags[1]",
			wantMsg:   "must be at least 1 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.update)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField])
		})
	}
}
