package codeforces

import "time"

// User is the subset of the user.info payload the tracker stores.
type User struct {
	Handle                  string `json:"handle"`
	FirstName               string `json:"firstName"`
	LastName                string `json:"lastName"`
	Rating                  int    `json:"rating"`
	MaxRating               int    `json:"maxRating"`
	Rank                    string `json:"rank"`
	MaxRank                 string `json:"maxRank"`
	Avatar                  string `json:"avatar"`
	TitlePhoto              string `json:"titlePhoto"`
	LastOnlineTimeSeconds   int64  `json:"lastOnlineTimeSeconds"`
	RegistrationTimeSeconds int64  `json:"registrationTimeSeconds"`
}

type RatingChange struct {
	ContestID               int    `json:"contestId"`
	ContestName             string `json:"contestName"`
	Handle                  string `json:"handle"`
	Rank                    int    `json:"rank"`
	RatingUpdateTimeSeconds int64  `json:"ratingUpdateTimeSeconds"`
	OldRating               int    `json:"oldRating"`
	NewRating               int    `json:"newRating"`
}

// UpdatedAt is when the platform applied the rating change.
func (r RatingChange) UpdatedAt() time.Time {
	return time.Unix(r.RatingUpdateTimeSeconds, 0).UTC()
}

type Problem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating"`
	Tags      []string `json:"tags"`
}

type Party struct {
	ParticipantType string `json:"participantType"`
}

type Submission struct {
	ID                  int64   `json:"id"`
	ContestID           int     `json:"contestId"`
	CreationTimeSeconds int64   `json:"creationTimeSeconds"`
	Problem             Problem `json:"problem"`
	Author              Party   `json:"author"`
	ProgrammingLanguage string  `json:"programmingLanguage"`
	Verdict             string  `json:"verdict"`
}

func (s Submission) CreatedAt() time.Time {
	return time.Unix(s.CreationTimeSeconds, 0).UTC()
}
