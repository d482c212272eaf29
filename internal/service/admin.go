package service

import (
	"context"
	"crypto/subtle"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/movie-review-api/internal/apperr"
	"github.com/iliyamo/movie-review-api/internal/model"
)

// topAuthors caps the per-author section of the stats.
const topAuthors = 50

const (
	msgAdminCredentials = "Invalid admin credentials"
	msgAdminStats       = "Failed to load admin stats"
)

// AdminCredentials is the static admin login and the bearer token it
// issues.
type AdminCredentials struct {
	Username string
	Password string
	Token    string
}

// AdminToken is the response of a successful admin login.
type AdminToken struct {
	Token string `json:"token"`
}

type AdminService struct {
	creds   AdminCredentials
	users   Counter
	movies  Counter
	reviews ReviewStats
}

// ReviewStats counts reviews and aggregates them per author.
type ReviewStats interface {
	Counter
	AuthorStatser
}

func NewAdminService(creds AdminCredentials, users, movies Counter, reviews ReviewStats) *AdminService {
	return &AdminService{creds: creds, users: users, movies: movies, reviews: reviews}
}

// Login exchanges the admin credentials for the configured token.
func (s *AdminService) Login(username, password string) (AdminToken, error) {
	if !equal(username, s.creds.Username) || !equal(password, s.creds.Password) {
		return AdminToken{}, apperr.Auth(msgAdminCredentials)
	}
	return AdminToken{Token: s.creds.Token}, nil
}

// Stats gathers the collection counts and the per-author summary
// concurrently.
func (s *AdminService) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { st.UserCount, err = s.users.Count(gctx); return })
	g.Go(func() (err error) { st.ReviewCount, err = s.reviews.Count(gctx); return })
	g.Go(func() (err error) { st.MovieCount, err = s.movies.Count(gctx); return })
	g.Go(func() (err error) { st.Users, err = s.reviews.AuthorStats(gctx, topAuthors); return })
	if err := g.Wait(); err != nil {
		return model.Stats{}, apperr.Infra(msgAdminStats, err)
	}
	return st, nil
}

// equal compares exact strings in constant time.
func equal(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
