package users

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("users: not found")
	ErrInvalidArgument = errors.New("users: invalid argument")
)

// ValidationError carries a caller-facing reason and matches ErrInvalidArgument.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// Repository is the persistence contract for user configuration records.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, userID string) (User, error)
	GetByPhoneNumber(ctx context.Context, phone string) (User, error)
	Update(ctx context.Context, userID string, f Fields, now time.Time) (User, error)
}

// Service validates and normalizes reads/updates of user configuration.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	if s.repo == nil {
		return nil, errors.New("users: repository not configured")
	}
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	if s.repo == nil {
		return User{}, errors.New("users: repository not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, &ValidationError{Reason: "user_id is required"}
	}
	return s.repo.Get(ctx, userID)
}

// GetByPhoneNumber looks up the record owning a provider phone number.
func (s *Service) GetByPhoneNumber(ctx context.Context, phone string) (User, error) {
	if s.repo == nil {
		return User{}, errors.New("users: repository not configured")
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return User{}, &ValidationError{Reason: "phone is required"}
	}
	return s.repo.GetByPhoneNumber(ctx, phone)
}

func (s *Service) Update(ctx context.Context, userID string, req UpdateRequest) (User, error) {
	if s.repo == nil {
		return User{}, errors.New("users: repository not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, &ValidationError{Reason: "user_id is required"}
	}
	f, err := normalize(req)
	if err != nil {
		return User{}, err
	}
	return s.repo.Update(ctx, userID, f, s.clock().UTC())
}

func normalize(req UpdateRequest) (Fields, error) {
	f := Fields{
		BusinessName:   strings.TrimSpace(req.BusinessName),
		Industry:       strings.TrimSpace(req.Industry),
		ServiceTypes:   req.ServiceTypes,
		BusinessQA:     req.BusinessQA,
		CallbackWindow: strings.TrimSpace(req.CallbackWindow),
	}
	if f.BusinessName == "" || f.Industry == "" {
		return Fields{}, &ValidationError{Reason: "business_name and industry are required"}
	}
	if f.ServiceTypes == nil {
		f.ServiceTypes = []string{}
	}
	if f.BusinessQA == nil {
		f.BusinessQA = map[string]string{}
	}
	if f.CallbackWindow == "" {
		f.CallbackWindow = DefaultCallbackWindow
	}
	f.NotificationPhone = optional(req.NotificationPhone)
	f.NotificationEmail = optional(req.NotificationEmail)
	return f, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
