package sync

import (
	"time"

	"github.com/vytor/cftracker/internal/codeforces"
	"github.com/vytor/cftracker/internal/models"
)

// participant types whose submissions count toward a contest's solved and
// unsolved tallies; an empty type is kept for payloads that omit it
var contestParticipants = map[string]bool{
	"CONTESTANT":         true,
	"OUT_OF_COMPETITION": true,
	"":                   true,
}

// BuildUpdate turns fetched remote state into the rows a sync has to
// write. Records already in keys, and repeats inside the payload, are
// dropped.
func BuildUpdate(info *codeforces.User, ratings []codeforces.RatingChange, subs []codeforces.Submission, keys *models.ExistingKeys, now time.Time) models.SyncUpdate {
	if keys == nil {
		keys = &models.ExistingKeys{}
	}

	update := models.SyncUpdate{
		Profile:       profileFrom(info),
		RatingChanges: []models.RatingChange{},
		Contests:      []models.Contest{},
		Submissions:   []models.Submission{},
		SyncedAt:      now.UTC(),
	}

	tallies := tallyContests(subs)

	seenRatings := make(map[int]bool)
	seenContests := make(map[int]bool)
	for _, rc := range ratings {
		if !keys.RatingContestIDs[rc.ContestID] && !seenRatings[rc.ContestID] {
			seenRatings[rc.ContestID] = true
			update.RatingChanges = append(update.RatingChanges, models.RatingChange{
				ContestID:   rc.ContestID,
				ContestName: rc.ContestName,
				Rank:        rc.Rank,
				OldRating:   rc.OldRating,
				NewRating:   rc.NewRating,
				ChangedAt:   rc.UpdatedAt(),
			})
		}
		if !keys.ContestIDs[rc.ContestID] && !seenContests[rc.ContestID] {
			seenContests[rc.ContestID] = true
			t := tallies[rc.ContestID]
			update.Contests = append(update.Contests, models.Contest{
				ContestID:        rc.ContestID,
				ContestName:      rc.ContestName,
				Rank:             rc.Rank,
				OldRating:        rc.OldRating,
				NewRating:        rc.NewRating,
				RatingChange:     rc.NewRating - rc.OldRating,
				ProblemsSolved:   t.solved(),
				ProblemsUnsolved: t.unsolved(),
				ParticipatedAt:   rc.UpdatedAt(),
			})
		}
	}

	seenSubs := make(map[int64]bool)
	for _, s := range subs {
		if keys.SubmissionIDs[s.ID] || seenSubs[s.ID] {
			continue
		}
		seenSubs[s.ID] = true
		update.Submissions = append(update.Submissions, submissionFrom(s))
	}

	return update
}

func profileFrom(info *codeforces.User) models.ProfileUpdate {
	if info == nil {
		return models.ProfileUpdate{}
	}
	p := models.ProfileUpdate{
		CurrentRating: info.Rating,
		MaxRating:     info.MaxRating,
		Rank:          info.Rank,
		MaxRank:       info.MaxRank,
		Avatar:        info.TitlePhoto,
	}
	if p.Avatar == "" {
		p.Avatar = info.Avatar
	}
	if p.MaxRating < p.CurrentRating {
		p.MaxRating = p.CurrentRating
	}
	return p
}

func submissionFrom(s codeforces.Submission) models.Submission {
	contestID := s.ContestID
	if contestID == 0 {
		contestID = s.Problem.ContestID
	}
	tags := s.Problem.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.Submission{
		SubmissionID:    s.ID,
		ContestID:       contestID,
		ProblemIndex:    s.Problem.Index,
		ProblemName:     s.Problem.Name,
		ProblemRating:   s.Problem.Rating,
		Tags:            tags,
		Verdict:         s.Verdict,
		Language:        s.ProgrammingLanguage,
		ParticipantType: s.Author.ParticipantType,
		SubmittedAt:     s.CreatedAt(),
	}
}

// contestTally tracks, per problem index, whether any attempt was accepted.
type contestTally map[string]bool

func (t contestTally) solved() int {
	n := 0
	for _, ok := range t {
		if ok {
			n++
		}
	}
	return n
}

func (t contestTally) unsolved() int {
	return len(t) - t.solved()
}

func tallyContests(subs []codeforces.Submission) map[int]contestTally {
	tallies := make(map[int]contestTally)
	for _, s := range subs {
		if s.ContestID == 0 || !contestParticipants[s.Author.ParticipantType] {
			continue
		}
		t, ok := tallies[s.ContestID]
		if !ok {
			t = make(contestTally)
			tallies[s.ContestID] = t
		}
		t[s.Problem.Index] = t[s.Problem.Index] || s.Verdict == models.VerdictOK
	}
	return tallies
}
