package server

// Route is one documented endpoint, in OpenAPI path syntax.
type Route struct {
	Method string
	Path   string
}

// Routes lists every endpoint the router dispatches. The OpenAPI document
// is checked against it by cmd/check_openapi.
var Routes = []Route{
	{"GET", "/"},
	{"GET", "/healthz"},
	{"POST", "/api/users/register"},
	{"POST", "/api/users/login"},
	{"POST", "/api/users/logout"},
	{"GET", "/api/books"},
	{"POST", "/api/books/add"},
	{"PATCH", "/api/books/update/{bookId}"},
	{"GET", "/api/books/{bookId}"},
	{"DELETE", "/api/books/{bookId}"},
	{"PATCH", "/api/books/{bookId}/like"},
	{"POST", "/api/rate/{bookId}"},
	{"DELETE", "/api/rate/{bookId}/{ratingId}"},
	{"GET", "/api/rate/book/{bookId}"},
	{"GET", "/api/rate/author/{authorId}"},
	{"GET", "/api/insight/averageRating/{authorId}"},
	{"GET", "/api/insight/heighestRatedBook/{authorId}"},
	{"GET", "/api/insight/recentRating/{authorId}"},
}
