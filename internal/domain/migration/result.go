package migration

// ItemTypeResult is the per-item-type slice of an enrollment result.
type ItemTypeResult struct {
	Completed int `json:"completed"`
	Passed    int `json:"passed"`
	Total     int `json:"total"`
}

// EnrollmentResult is the aggregate stored on an enrollment, shaped like
// the target platform's own evaluation payload.
type EnrollmentResult struct {
	CountItems     int                       `json:"count_items"`
	CompletedItems int                       `json:"completed_items"`
	Items          map[string]ItemTypeResult `json:"items"`
	EvaluateType   string                    `json:"evaluate_type"`
	Pass           bool                      `json:"pass"`
	Result         float64                   `json:"result"`
}

// MatchingOption is the full option payload repeated on matching question
// results so an attempt can be re-rendered without touching the question.
type MatchingOption struct {
	Title           string           `json:"title"`
	Value           string           `json:"value"`
	IsCorrect       bool             `json:"is_true"`
	MatchTarget     string           `json:"match_target"`
	Position        int              `json:"order"`
	ShuffledTargets []ShuffledTarget `json:"shuffled_targets"`
}

// QuestionResult is one student answer re-encoded in the target's per-type
// shape. Answered is a scalar token for single choice, a token list for
// multi choice and sorting, and a blank-id → text map for fill-in-blanks.
type QuestionResult struct {
	Answered    any              `json:"answered"`
	Correct     bool             `json:"correct"`
	Mark        float64          `json:"mark"`
	UserMark    float64          `json:"user_mark"`
	Explanation string           `json:"explanation"`
	Options     []MatchingOption `json:"options,omitempty"`
}

// AttemptResult is the single attempt-result record persisted with a quiz
// attempt: the question results plus the derived counters.
type AttemptResult struct {
	Questions        map[string]QuestionResult `json:"questions"`
	Mark             float64                   `json:"mark"`
	UserMark         float64                   `json:"user_mark"`
	MinusPoint       float64                   `json:"minus_point"`
	QuestionCount    int                       `json:"question_count"`
	QuestionEmpty    int                       `json:"question_empty"`
	QuestionAnswered int                       `json:"question_answered"`
	QuestionWrong    int                       `json:"question_wrong"`
	QuestionCorrect  int                       `json:"question_correct"`
	Result           float64                   `json:"result"`
	TimeSpend        string                    `json:"time_spend"`
	PassingGrade     string                    `json:"passing_grade"`
	Pass             bool                      `json:"pass"`
}
