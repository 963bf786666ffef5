package models

import "time"

// Contest is one rated contest a student took part in.
type Contest struct {
	ID               int64     `json:"id"`
	StudentID        int64     `json:"student_id"`
	ContestID        int       `json:"contest_id"`
	ContestName      string    `json:"contest_name"`
	Rank             int       `json:"rank"`
	OldRating        int       `json:"old_rating"`
	NewRating        int       `json:"new_rating"`
	RatingChange     int       `json:"rating_change"`
	ProblemsSolved   int       `json:"problems_solved"`
	ProblemsUnsolved int       `json:"problems_unsolved"`
	ParticipatedAt   time.Time `json:"participated_at"`
	CreatedAt        time.Time `json:"created_at"`
}

type RatingChange struct {
	ID          int64     `json:"id"`
	StudentID   int64     `json:"student_id"`
	ContestID   int       `json:"contest_id"`
	ContestName string    `json:"contest_name"`
	Rank        int       `json:"rank"`
	OldRating   int       `json:"old_rating"`
	NewRating   int       `json:"new_rating"`
	ChangedAt   time.Time `json:"changed_at"`
	CreatedAt   time.Time `json:"created_at"`
}
