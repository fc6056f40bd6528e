package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerGenreRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listGenres",
		Method:      http.MethodGet,
		Path:        "/genres",
		Summary:     "List genres",
		Description: "Returns the distinct stored genres, sorted, followed by common genres not yet in use",
		Tags:        []string{"Genres"},
	}, s.handleListGenres)
}

// ListGenresResponse contains the genre list.
type ListGenresResponse struct {
	Genres []string `json:"genres" doc:"Genre names"`
}

// ListGenresOutput wraps the genre list for Huma.
type ListGenresOutput struct {
	Body ListGenresResponse
}

func (s *Server) handleListGenres(ctx context.Context, _ *struct{}) (*ListGenresOutput, error) {
	genres, err := s.services.Book.Genres(ctx)
	if err != nil {
		return nil, err
	}
	return &ListGenresOutput{Body: ListGenresResponse{Genres: genres}}, nil
}
