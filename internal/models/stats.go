package models

type SolvedProblem struct {
	Name      string `json:"name"`
	ContestID int    `json:"contest_id"`
	Index     string `json:"index"`
	Rating    int    `json:"rating"`
}

type RatingBucket struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

type HeatmapDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ProblemStats summarises a student's solving over a window of days.
type ProblemStats struct {
	Days          int            `json:"days"`
	TotalSolved   int            `json:"total_solved"`
	MostDifficult *SolvedProblem `json:"most_difficult"`
	AverageRating float64        `json:"average_rating"`
	AveragePerDay float64        `json:"average_per_day"`
	RatingBuckets []RatingBucket `json:"rating_buckets"`
	Heatmap       []HeatmapDay   `json:"heatmap"`
}
