package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/bookshelf-server/internal/domain"
	"github.com/listenupapp/bookshelf-server/internal/service"
	"github.com/listenupapp/bookshelf-server/internal/store"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/books",
		Summary:     "List books",
		Description: "Returns a page of book records with the stats of their source files. An empty catalog is seeded from the books listing on the first page request.",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/books/search",
		Summary:     "Search books",
		Description: "Filters records by free text, author and genre. Every given criterion must match.",
		Tags:        []string{"Books"},
	}, s.handleSearchBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book record by ID",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPut,
		Path:        "/books/{id}",
		Summary:     "Update book",
		Description: "Applies a partial update to a book record",
		Tags:        []string{"Books"},
	}, s.handleUpdateBook)
}

// === DTOs ===

// ListBooksInput contains parameters for listing books.
type ListBooksInput struct {
	Limit  int    `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Page size"`
	Cursor string `query:"cursor" doc:"Cursor from the previous page"`
}

// ListBooksOutput wraps the book page for Huma.
type ListBooksOutput struct {
	Body *service.BookPage
}

// SearchBooksInput contains search parameters.
type SearchBooksInput struct {
	Query  string `query:"q" doc:"Free text matched against title, author and description"`
	Author string `query:"author" doc:"Author filter (case-insensitive)"`
	Genre  string `query:"genre" doc:"Genre filter (case-insensitive exact)"`
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"100" doc:"Max results"`
}

// SearchBooksResponse contains search results.
type SearchBooksResponse struct {
	Books []*domain.Book `json:"books" doc:"Matching records"`
	Total int            `json:"total" doc:"Number of records returned"`
}

// SearchBooksOutput wraps the search response for Huma.
type SearchBooksOutput struct {
	Body SearchBooksResponse
}

// GetBookInput contains parameters for getting a book.
type GetBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// BookOutput wraps a book record for Huma.
type BookOutput struct {
	Body *domain.Book
}

// UpdateBookInput contains parameters for updating a book.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body domain.BookUpdate
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	params := store.PaginationParams{Limit: input.Limit, Cursor: input.Cursor}
	params.Validate()

	page, err := s.services.Book.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return &ListBooksOutput{Body: page}, nil
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*SearchBooksOutput, error) {
	books, err := s.services.Book.Search(ctx, service.SearchQuery{
		Query:  input.Query,
		Author: input.Author,
		Genre:  input.Genre,
		Limit:  input.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &SearchBooksOutput{Body: SearchBooksResponse{Books: books, Total: len(books)}}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, err := s.services.Book.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	book, err := s.services.Book.Update(ctx, input.ID, &input.Body)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}
