package model

// Exam is a single exam record owned by exactly one user. Grade uses the
// German scale where 1.0 is best and 5.0 is worst; a passed exam is not
// required to carry a grade.
type Exam struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Ects      int        `json:"ects"`
	Attempt   int        `json:"attempt"`
	Passed    bool       `json:"passed"`
	Date      *Date      `json:"date,omitempty"`
	Grade     *float64   `json:"grade,omitempty"`
	UserID    int64      `json:"user_id"`
	Resources []Resource `json:"resources"`
}

// Resource is a named artifact attached to an exam, e.g. a study material
// reference. Resources are cascade-owned by their exam.
type Resource struct {
	ID     int64  `json:"id"`
	ExamID int64  `json:"exam_id"`
	Name   string `json:"name"`
}

// ExamAverage is the derived average grade over a user's graded exams.
type ExamAverage struct {
	Average float64 `json:"average"`
}

// ExamTotalEcts is the derived ECTS credit sum over a user's exams.
type ExamTotalEcts struct {
	TotalEcts int `json:"total_ects"`
}
