package library

import (
	"strings"

	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/sahilm/fuzzy"
)

type bookSource []*models.Book

func (s bookSource) String(i int) string {
	b := s[i]
	if author := b.DisplayAuthor(); author != "" {
		return b.Title + " " + author
	}
	return b.Title
}

func (s bookSource) Len() int {
	return len(s)
}

// Search fuzzy-matches query against title and author, best match first. An
// empty query returns books unchanged.
func Search(books []*models.Book, query string) []*models.Book {
	query = strings.TrimSpace(query)
	if query == "" {
		return books
	}
	matches := fuzzy.FindFrom(query, bookSource(books))
	results := make([]*models.Book, 0, len(matches))
	for _, m := range matches {
		results = append(results, books[m.Index])
	}
	return results
}
