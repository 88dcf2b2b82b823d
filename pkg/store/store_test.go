package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/kunalt17/echochat/pkg/models"
)

func TestValidateMessageBody(t *testing.T) {
	img := "https://cdn.example.com/pic.png"
	blank := "   "

	tests := []struct {
		name     string
		text     string
		imageURL *string
		want     string
		wantErr  bool
	}{
		{"plain text", "hello", nil, "hello", false},
		{"text is trimmed", "  hello  ", nil, "hello", false},
		{"image only", "", &img, "", false},
		{"text and image", "look", &img, "look", false},
		{"empty body", "", nil, "", true},
		{"whitespace only", "   \t\n", nil, "", true},
		{"blank image does not count", "", &blank, "", true},
		{"at the limit", strings.Repeat("a", models.MaxTextLength), nil, strings.Repeat("a", models.MaxTextLength), false},
		{"over the limit", strings.Repeat("a", models.MaxTextLength+1), nil, "", true},
		// Multi-byte runes count as one character each.
		{"multibyte at the limit", strings.Repeat("é", models.MaxTextLength), nil, strings.Repeat("é", models.MaxTextLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateMessageBody(tt.text, tt.imageURL)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected a validation error")
				}
				if !errors.Is(err, models.ErrValidation) {
					t.Errorf("error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{1, 20, 1, 20},
		{0, 0, 1, DefaultPageLimit},
		{-3, -1, 1, DefaultPageLimit},
		{2, MaxPageLimit + 100, 2, MaxPageLimit},
		{5, 1, 5, 1},
	}

	for _, tt := range tests {
		gotPage, gotLimit := NormalizePage(tt.page, tt.limit)
		if gotPage != tt.wantPage || gotLimit != tt.wantLimit {
			t.Errorf("NormalizePage(%d, %d) = (%d, %d), want (%d, %d)",
				tt.page, tt.limit, gotPage, gotLimit, tt.wantPage, tt.wantLimit)
		}
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name              string
		page, limit, total int
		want              models.Pagination
	}{
		{
			"middle page", 2, 10, 25,
			models.Pagination{CurrentPage: 2, TotalPages: 3, TotalMessages: 25, HasNextPage: true, HasPrevPage: true},
		},
		{
			"first page", 1, 10, 25,
			models.Pagination{CurrentPage: 1, TotalPages: 3, TotalMessages: 25, HasNextPage: true, HasPrevPage: false},
		},
		{
			"last page", 3, 10, 25,
			models.Pagination{CurrentPage: 3, TotalPages: 3, TotalMessages: 25, HasNextPage: false, HasPrevPage: true},
		},
		{
			"exact fit", 2, 10, 20,
			models.Pagination{CurrentPage: 2, TotalPages: 2, TotalMessages: 20, HasNextPage: false, HasPrevPage: true},
		},
		{
			"empty conversation", 1, 10, 0,
			models.Pagination{CurrentPage: 1, TotalPages: 0, TotalMessages: 0, HasNextPage: false, HasPrevPage: false},
		},
		{
			"page past the end", 9, 10, 25,
			models.Pagination{CurrentPage: 9, TotalPages: 3, TotalMessages: 25, HasNextPage: false, HasPrevPage: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewPagination(tt.page, tt.limit, tt.total); got != tt.want {
				t.Errorf("NewPagination(%d, %d, %d) = %+v, want %+v",
					tt.page, tt.limit, tt.total, got, tt.want)
			}
		})
	}
}
