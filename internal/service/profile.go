package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/auth"
	"github.com/sakif/accounts-api/internal/model"
	"github.com/sakif/accounts-api/internal/repository"
)

const (
	MsgProfileEditForbidden = "You do not have permission to edit this profile."
	MsgProfileCreate        = "User profiles are created automatically upon user registration."
	MsgProfileDelete        = "User profiles cannot be deleted directly. Delete the associated user account."
)

// MeRef addresses the caller's own profile in place of a numeric id.
const MeRef = "me"

// ProfileView is the public shape of a profile. Identity fields come from
// the owning user; the counters are read-only.
type ProfileView struct {
	ID                   int64     `json:"id"`
	Username             string    `json:"username"`
	Email                string    `json:"email"`
	DisplayName          *string   `json:"display_name"`
	Bio                  *string   `json:"bio"`
	Location             *string   `json:"location"`
	Website              *string   `json:"website"`
	GitHub               *string   `json:"github"`
	Twitter              *string   `json:"twitter"`
	Reputation           int       `json:"reputation"`
	QuestionsCount       int       `json:"questions_count"`
	AnswersCount         int       `json:"answers_count"`
	BadgesCount          int       `json:"badges_count"`
	UpvotesCount         int       `json:"upvotes_count"`
	AcceptedAnswersCount int       `json:"accepted_answers_count"`
	JoinDate             time.Time `json:"join_date"`
}

func newProfileView(p *model.ProfileWithUser) ProfileView {
	return ProfileView{
		ID:                   p.ID,
		Username:             p.Username,
		Email:                p.Email,
		DisplayName:          p.DisplayName,
		Bio:                  p.Bio,
		Location:             p.Location,
		Website:              p.Website,
		GitHub:               p.GitHub,
		Twitter:              p.Twitter,
		Reputation:           p.Reputation,
		QuestionsCount:       p.QuestionsCount,
		AnswersCount:         p.AnswersCount,
		BadgesCount:          p.BadgesCount,
		UpvotesCount:         p.UpvotesCount,
		AcceptedAnswersCount: p.AcceptedAnswersCount,
		JoinDate:             p.DateJoined,
	}
}

// ProfileUpdateInput holds the editable fields. A nil pointer means "not
// sent" and leaves the stored value alone; an empty string is a value.
//
// There is deliberately no slot for reputation, the counters, username or
// email: whatever a client sends for them is dropped by the JSON decoder.
type ProfileUpdateInput struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=255"`
	Bio         *string `json:"bio"`
	Location    *string `json:"location" validate:"omitempty,max=100"`
	Website     *string `json:"website" validate:"omitempty,max=200,optional_url"`
	GitHub      *string `json:"github" validate:"omitempty,max=100"`
	Twitter     *string `json:"twitter" validate:"omitempty,max=100"`
}

func (in ProfileUpdateInput) applyTo(p *model.Profile) {
	if in.DisplayName != nil {
		p.DisplayName = in.DisplayName
	}
	if in.Bio != nil {
		p.Bio = in.Bio
	}
	if in.Location != nil {
		p.Location = in.Location
	}
	if in.Website != nil {
		p.Website = in.Website
	}
	if in.GitHub != nil {
		p.GitHub = in.GitHub
	}
	if in.Twitter != nil {
		p.Twitter = in.Twitter
	}
}

// ProfileService reads and edits profiles. Profiles are never created or
// deleted here: they live and die with their user.
type ProfileService struct {
	store    repository.Store
	validate *validator.Validate
	logger   *slog.Logger
}

func NewProfileService(store repository.Store, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		store:    store,
		validate: newValidator(),
		logger:   logger,
	}
}

// List returns every profile to a superuser and only the caller's own
// profile to everyone else.
func (s *ProfileService) List(ctx context.Context, actor *model.User) ([]ProfileView, error) {
	if actor.IsSuperuser {
		profiles, err := s.store.Profiles().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("service/profile: listing: %w", err)
		}
		views := make([]ProfileView, 0, len(profiles))
		for i := range profiles {
			views = append(views, newProfileView(&profiles[i]))
		}
		return views, nil
	}

	own, err := s.store.Profiles().GetByUserID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return []ProfileView{}, nil
		}
		return nil, fmt.Errorf("service/profile: listing own: %w", err)
	}
	return []ProfileView{newProfileView(own)}, nil
}

// Get returns the profile addressed by ref ("me" or a numeric id). Any
// authenticated user may read any profile.
func (s *ProfileService) Get(ctx context.Context, actor *model.User, ref string) (*ProfileView, error) {
	p, err := s.resolve(ctx, actor, ref)
	if err != nil {
		return nil, err
	}
	view := newProfileView(p)
	return &view, nil
}

// Update is PUT. Every profile field is optional, so a full update and a
// partial one apply the same way: fields that were sent replace the stored
// ones, the rest stay.
func (s *ProfileService) Update(ctx context.Context, actor *model.User, ref string, in ProfileUpdateInput) (*ProfileView, error) {
	return s.update(ctx, actor, ref, in)
}

// PartialUpdate is PATCH.
func (s *ProfileService) PartialUpdate(ctx context.Context, actor *model.User, ref string, in ProfileUpdateInput) (*ProfileView, error) {
	return s.update(ctx, actor, ref, in)
}

func (s *ProfileService) update(ctx context.Context, actor *model.User, ref string, in ProfileUpdateInput) (*ProfileView, error) {
	p, err := s.resolve(ctx, actor, ref)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccess(actor, p.UserID) {
		return nil, apperror.Forbidden(MsgProfileEditForbidden)
	}
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	in.applyTo(&p.Profile)
	if err := s.store.Profiles().Update(ctx, &p.Profile); err != nil {
		return nil, fmt.Errorf("service/profile: updating %d: %w", p.ID, err)
	}

	s.logger.Info("profile updated",
		slog.Int64("profileID", p.ID),
		slog.Int64("actorID", actor.ID),
	)

	view := newProfileView(p)
	return &view, nil
}

// Create always refuses.
func (s *ProfileService) Create(context.Context, *model.User) error {
	return apperror.MethodNotAllowed(MsgProfileCreate)
}

// Delete always refuses; deleting the user removes the profile.
func (s *ProfileService) Delete(context.Context, *model.User, string) error {
	return apperror.MethodNotAllowed(MsgProfileDelete)
}

func (s *ProfileService) resolve(ctx context.Context, actor *model.User, ref string) (*model.ProfileWithUser, error) {
	var (
		p   *model.ProfileWithUser
		err error
	)
	if ref == MeRef {
		p, err = s.store.Profiles().GetByUserID(ctx, actor.ID)
	} else {
		id, perr := strconv.ParseInt(ref, 10, 64)
		if perr != nil || id <= 0 {
			return nil, apperror.NotFound("profile", ref)
		}
		p, err = s.store.Profiles().GetByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/profile: resolving %q: %w", ref, err)
	}
	return p, nil
}
