package models

import "time"

const VerdictOK = "OK"

type Submission struct {
	ID              int64     `json:"id"`
	StudentID       int64     `json:"student_id"`
	SubmissionID    int64     `json:"submission_id"`
	ContestID       int       `json:"contest_id"`
	ProblemIndex    string    `json:"problem_index"`
	ProblemName     string    `json:"problem_name"`
	ProblemRating   int       `json:"problem_rating"`
	Tags            []string  `json:"tags"`
	Verdict         string    `json:"verdict"`
	Language        string    `json:"language"`
	ParticipantType string    `json:"participant_type"`
	SubmittedAt     time.Time `json:"submitted_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// ProblemKey identifies a problem across submissions.
func (s Submission) ProblemKey() string {
	if s.ContestID == 0 {
		return s.ProblemName
	}
	return itoa(s.ContestID) + s.ProblemIndex
}

// Solved reports whether the submission was accepted.
func (s Submission) Solved() bool {
	return s.Verdict == VerdictOK
}
