package usecase_test

import (
	"context"
	"sync"

	"github.com/ErlanBelekov/xblt/internal/domain"
	"github.com/ErlanBelekov/xblt/internal/email"
)

// ---- fakes ----

type fakeUserRepo struct {
	findByID       func(ctx context.Context, id string) (*domain.User, error)
	findByEmail    func(ctx context.Context, email string) (*domain.User, error)
	create         func(ctx context.Context, user *domain.User) (*domain.User, error)
	attachGoogleID func(ctx context.Context, userID, googleID string) error
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findByID(ctx, id)
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findByEmail(ctx, email)
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	return r.create(ctx, user)
}

func (r *fakeUserRepo) AttachGoogleID(ctx context.Context, userID, googleID string) error {
	return r.attachGoogleID(ctx, userID, googleID)
}

func noUsers() *fakeUserRepo {
	return &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
	}
}

// memOTPStore keeps every created record, like the non-exclusive stores.
type memOTPStore struct {
	mu        sync.Mutex
	records   []*domain.OTP
	findErr   error
	createErr error
}

func (s *memOTPStore) FindLatest(_ context.Context, email string) (*domain.OTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].Email == email {
			otp := *s.records[i]
			return &otp, nil
		}
	}
	return nil, domain.ErrOTPNotFound
}

func (s *memOTPStore) Create(_ context.Context, otp *domain.OTP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	stored := *otp
	s.records = append(s.records, &stored)
	return nil
}

func (s *memOTPStore) count(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.Email == email {
			n++
		}
	}
	return n
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (s *fakeEmailSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *fakeEmailSender) messages() []email.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]email.Message(nil), s.sent...)
}

type fakeTokenIssuer struct {
	issue func(user *domain.User) (string, error)
}

func (f *fakeTokenIssuer) Issue(user *domain.User) (string, error) {
	return f.issue(user)
}
