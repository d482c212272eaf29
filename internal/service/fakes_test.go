package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/movie-review-api/internal/model"
	"github.com/iliyamo/movie-review-api/internal/repository"
)

// fakeUsers mimics the users table including its unique indexes.
type fakeUsers struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.User

	setCalls int

	// hooks let tests simulate concurrent writers
	onSetUsername func(id uint64, name string) (handled, ok bool, err error)
	existsErr     error
}

func newFakeUsers() *fakeUsers { return &fakeUsers{nextID: 1, rows: map[uint64]model.User{}} }

func (f *fakeUsers) conflict(u model.User, skip uint64) error {
	for id, r := range f.rows {
		if id == skip {
			continue
		}
		if u.Email != nil && r.Email != nil && *u.Email == *r.Email {
			return repository.ErrDuplicateEmail
		}
		if u.Username != nil && r.Username != nil && *u.Username == *r.Username {
			return repository.ErrDuplicateUsername
		}
	}
	return nil
}

func (f *fakeUsers) Create(_ context.Context, u model.User) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.conflict(u, 0); err != nil {
		return 0, err
	}
	u.ID = f.nextID
	f.nextID++
	f.rows[u.ID] = u
	return u.ID, nil
}

// insertLegacy stores a record without a username under a chosen id.
func (f *fakeUsers) insertLegacy(id uint64, email *string, hash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id] = model.User{ID: id, Email: email, PasswordHash: hash}
	if id >= f.nextID {
		f.nextID = id + 1
	}
}

func (f *fakeUsers) find(match func(model.User) bool) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if match(r) {
			return r, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	return f.find(func(u model.User) bool { return u.Username != nil && *u.Username == username })
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	return f.find(func(u model.User) bool { return u.Email != nil && *u.Email == email })
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	return f.find(func(u model.User) bool { return u.ID == id })
}

func (f *fakeUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, err := f.GetByUsername(ctx, username)
	return err == nil, nil
}

func (f *fakeUsers) SetUsername(_ context.Context, id uint64, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.onSetUsername != nil {
		if handled, ok, err := f.onSetUsername(id, name); handled {
			return ok, err
		}
	}
	u, found := f.rows[id]
	if !found || u.HasUsername() {
		return false, nil
	}
	u.Username = &name
	if err := f.conflict(u, id); err != nil {
		return false, err
	}
	f.rows[id] = u
	return true, nil
}

func (f *fakeUsers) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows), nil
}

// fakeMovies applies the same shallow merge as the SQL upsert.
type fakeMovies struct {
	mu        sync.Mutex
	nextID    uint64
	rows      map[string]model.Movie
	upsertErr error
	deletes   []string
}

func newFakeMovies() *fakeMovies { return &fakeMovies{nextID: 1, rows: map[string]model.Movie{}} }

func (f *fakeMovies) Upsert(_ context.Context, p model.MoviePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	m, ok := f.rows[p.Title]
	if !ok {
		m = model.Movie{ID: f.nextID, Title: p.Title, CreatedAt: time.Now()}
		f.nextID++
	}
	if p.Image != nil {
		m.Image = p.Image
	}
	if p.Description != nil {
		m.Description = p.Description
	}
	if p.Director != nil {
		m.Director = p.Director
	}
	if p.Year != nil {
		m.Year = p.Year
	}
	if p.Genre != nil {
		m.Genre = p.Genre
	}
	m.UpdatedAt = time.Now()
	f.rows[p.Title] = m
	return nil
}

func (f *fakeMovies) List(context.Context) ([]model.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Movie, 0, len(f.rows))
	for _, m := range f.rows {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (f *fakeMovies) GetByTitle(_ context.Context, title string) (model.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[title]
	if !ok {
		return model.Movie{}, repository.ErrNotFound
	}
	return m, nil
}

func (f *fakeMovies) DeleteByTitle(_ context.Context, title string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, "title:"+title)
	if _, ok := f.rows[title]; !ok {
		return 0, nil
	}
	delete(f.rows, title)
	return 1, nil
}

func (f *fakeMovies) DeleteByID(_ context.Context, id uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, "id")
	for title, m := range f.rows {
		if m.ID == id {
			delete(f.rows, title)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeMovies) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows), nil
}

type fakeReviews struct {
	mu       sync.Mutex
	rows     []model.Review
	clock    time.Time
	createEr error
	listErr  error
}

func (f *fakeReviews) Create(_ context.Context, title, username string, rating int, text string) (model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createEr != nil {
		return model.Review{}, f.createEr
	}
	f.clock = f.clock.Add(time.Second)
	rv := model.Review{ID: uint64(len(f.rows) + 1), Title: title, Username: username, Rating: rating, Text: text, CreatedAt: f.clock, UpdatedAt: f.clock}
	f.rows = append(f.rows, rv)
	return rv, nil
}

func (f *fakeReviews) List(_ context.Context, title string) ([]model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.Review{}
	for _, r := range f.rows {
		if title == "" || r.Title == title {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeReviews) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows), nil
}

func (f *fakeReviews) AuthorStats(_ context.Context, limit int) ([]model.AuthorStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := map[string]int{}
	var out []model.AuthorStats
	sums := map[string]int{}
	for _, r := range f.rows {
		i, ok := idx[r.Username]
		if !ok {
			i = len(out)
			idx[r.Username] = i
			out = append(out, model.AuthorStats{Username: r.Username})
		}
		out[i].Reviews++
		sums[r.Username] += r.Rating
	}
	for i := range out {
		out[i].AvgRating = float64(sums[out[i].Username]) / float64(out[i].Reviews)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Reviews > out[j].Reviews })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type failingCounter struct{}

func (failingCounter) Count(context.Context) (int, error) { return 0, errors.New("db down") }

// plainHasher keeps tests fast; bcrypt itself is covered in package utils.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }
func (plainHasher) Verify(h, p string) bool       { return h == "hashed:"+p }

type recordingEvents struct {
	mu   sync.Mutex
	got  []model.Review
	fail error
}

func (r *recordingEvents) ReviewCreated(_ context.Context, rv model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, rv)
	return r.fail
}

type fakeSaver struct {
	name string
	got  []byte
	err  error
}

func (s *fakeSaver) Save(original string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.got = b
	return s.name, nil
}
