package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/model"
)

type profileRepo struct {
	s *Store
}

// Every profile read joins the owner so the public view can project
// username, email and join date without a second query.
const profileSelect = `SELECT p.id, p.user_id, p.display_name, p.bio, p.location,
	p.website, p.github, p.twitter, p.reputation, p.questions_count,
	p.answers_count, p.badges_count, p.upvotes_count, p.accepted_answers_count,
	u.username, u.email, u.date_joined
	FROM profiles p JOIN users u ON u.id = p.user_id`

func scanProfile(row scanner) (*model.ProfileWithUser, error) {
	var p model.ProfileWithUser
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.DisplayName,
		&p.Bio,
		&p.Location,
		&p.Website,
		&p.GitHub,
		&p.Twitter,
		&p.Reputation,
		&p.QuestionsCount,
		&p.AnswersCount,
		&p.BadgesCount,
		&p.UpvotesCount,
		&p.AcceptedAnswersCount,
		&p.Username,
		&p.Email,
		&p.DateJoined,
	)
	if err != nil {
		return nil, err
	}
	p.DateJoined = p.DateJoined.UTC()
	return &p, nil
}

// Create inserts a profile, statistics included, and sets profile.ID.
func (r *profileRepo) Create(ctx context.Context, profile *model.Profile) error {
	err := r.s.queryRow(ctx,
		`INSERT INTO profiles (user_id, display_name, bio, location, website, github,
			twitter, reputation, questions_count, answers_count, badges_count,
			upvotes_count, accepted_answers_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		profile.UserID,
		profile.DisplayName,
		profile.Bio,
		profile.Location,
		profile.Website,
		profile.GitHub,
		profile.Twitter,
		profile.Reputation,
		profile.QuestionsCount,
		profile.AnswersCount,
		profile.BadgesCount,
		profile.UpvotesCount,
		profile.AcceptedAnswersCount,
	).Scan(&profile.ID)
	if err != nil {
		if field, ok := r.s.uniqueField(err); ok {
			return apperror.Conflict("profile", field)
		}
		return fmt.Errorf("sqlstore: inserting profile for user %d: %w", profile.UserID, err)
	}
	return nil
}

func (r *profileRepo) GetByID(ctx context.Context, id int64) (*model.ProfileWithUser, error) {
	p, err := scanProfile(r.s.queryRow(ctx, profileSelect+` WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlstore: getting profile %d: %w", id, err)
	}
	return p, nil
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID int64) (*model.ProfileWithUser, error) {
	p, err := scanProfile(r.s.queryRow(ctx, profileSelect+` WHERE p.user_id = ?`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", "user_id="+strconv.FormatInt(userID, 10))
		}
		return nil, fmt.Errorf("sqlstore: getting profile of user %d: %w", userID, err)
	}
	return p, nil
}

func (r *profileRepo) List(ctx context.Context) ([]model.ProfileWithUser, error) {
	rows, err := r.s.query(ctx, profileSelect+` ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing profiles: %w", err)
	}
	defer rows.Close()

	profiles := []model.ProfileWithUser{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating profiles: %w", err)
	}
	return profiles, nil
}

// Update writes the user-editable columns only. The statistics columns are
// absent from the statement on purpose: no caller can change them here.
func (r *profileRepo) Update(ctx context.Context, profile *model.Profile) error {
	res, err := r.s.exec(ctx,
		`UPDATE profiles
		 SET display_name = ?, bio = ?, location = ?, website = ?, github = ?, twitter = ?
		 WHERE id = ?`,
		profile.DisplayName,
		profile.Bio,
		profile.Location,
		profile.Website,
		profile.GitHub,
		profile.Twitter,
		profile.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating profile %d: %w", profile.ID, err)
	}
	return mustAffect(res, "profile", profile.ID)
}

// DeleteByUserID is only reachable from user deletion. Deleting nothing is
// not an error: the row may already be gone through the FK cascade.
func (r *profileRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	if _, err := r.s.exec(ctx, `DELETE FROM profiles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlstore: deleting profile of user %d: %w", userID, err)
	}
	return nil
}
