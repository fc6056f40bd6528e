package api

import (
	"github.com/listenupapp/bookshelf-server/internal/service"
)

// Services groups the business logic used by the API server.
type Services struct {
	Book  *service.BookService
	Cover *service.CoverService
}
