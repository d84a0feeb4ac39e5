package domain

import "time"

// OptionKey identifies one of the four options of a question. The zero value means "unanswered".
type OptionKey string

const (
	NoAnswer OptionKey = ""
	OptionA  OptionKey = "A"
	OptionB  OptionKey = "B"
	OptionC  OptionKey = "C"
	OptionD  OptionKey = "D"
)

// OptionKeys lists the keys in their fixed display order.
var OptionKeys = [4]OptionKey{OptionA, OptionB, OptionC, OptionD}

// ParseOptionKey maps raw input to a key. Anything but an exact "A".."D" is unanswered.
func ParseOptionKey(raw string) OptionKey {
	switch k := OptionKey(raw); k {
	case OptionA, OptionB, OptionC, OptionD:
		return k
	default:
		return NoAnswer
	}
}

// Options holds the text of the four options of a question.
type Options struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// Text returns the option text for key, or "" for an unknown key.
func (o Options) Text(key OptionKey) string {
	switch key {
	case OptionA:
		return o.A
	case OptionB:
		return o.B
	case OptionC:
		return o.C
	case OptionD:
		return o.D
	default:
		return ""
	}
}

// KeyOf returns the first key (in A..D order) whose text equals text.
func (o Options) KeyOf(text string) (OptionKey, bool) {
	for _, key := range OptionKeys {
		if o.Text(key) == text {
			return key, true
		}
	}
	return NoAnswer, false
}

// Question models a four-option MCQ whose correct answer is stored as option text.
type Question struct {
	ID            int     `json:"id"`
	Prompt        string  `json:"question"`
	Options       Options `json:"options"`
	CorrectAnswer string  `json:"correctAnswer"`
}

// CorrectKey resolves the correct answer text to its option key.
// Questions without a correct answer, or whose answer matches no option, have none.
func (q Question) CorrectKey() (OptionKey, bool) {
	if q.CorrectAnswer == "" {
		return NoAnswer, false
	}
	return q.Options.KeyOf(q.CorrectAnswer)
}

// ResolveAnswer accepts a key ("A".."D") or the text of one of the options, which is
// what older clients send. Anything else counts as unanswered.
func (q Question) ResolveAnswer(raw string) OptionKey {
	if key := ParseOptionKey(raw); key != NoAnswer {
		return key
	}
	if raw == "" {
		return NoAnswer
	}
	key, _ := q.Options.KeyOf(raw)
	return key
}

// Public strips the correct answer before a question is sent to participants.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Prompt: q.Prompt, Options: q.Options}
}

// PublicQuestion is the participant-facing view of a question.
type PublicQuestion struct {
	ID      int     `json:"id"`
	Prompt  string  `json:"question"`
	Options Options `json:"options"`
}

// QuestionSet is what a participant receives when starting a test.
type QuestionSet struct {
	AttemptID    string           `json:"sessionId"`
	Questions    []PublicQuestion `json:"questions"`
	TestDuration int              `json:"testDuration"` // minutes
}

// Attempt remembers the shuffled order issued to one participant.
type Attempt struct {
	ID          string    `json:"id"`
	QuestionIDs []int     `json:"questionIds"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// Submission is a finished test as reported by a client.
type Submission struct {
	AttemptID   string
	QuestionIDs []int
	Name        string
	Phone       string
	// Answers and AnswersByID may hold option text instead of keys; they are
	// resolved against the questions when graded.
	Answers []OptionKey
	// AnswersByID is set instead of Answers by clients that key answers by question id.
	AnswersByID map[int]OptionKey
	// TimeSpent is in seconds; negative means the client did not report it.
	TimeSpent int
}

// ScoreSummary is the outcome of scoring one answer sheet.
type ScoreSummary struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// AnswerDetail describes how one question position was answered.
type AnswerDetail struct {
	QuestionNumber    int       `json:"questionNumber"`
	QuestionID        int       `json:"questionId"`
	QuestionText      string    `json:"questionText"`
	UserAnswer        OptionKey `json:"userAnswer"`
	UserAnswerText    string    `json:"userAnswerText"`
	CorrectAnswer     OptionKey `json:"correctAnswer"`
	CorrectAnswerText string    `json:"correctAnswerText"`
	IsCorrect         bool      `json:"isCorrect"`
	Options           Options   `json:"options"`
}

// Result is a completed test. It is never modified after creation.
type Result struct {
	Name           string         `json:"userName"`
	Phone          string         `json:"userPhone"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	Details        []AnswerDetail `json:"detailedAnswers"`
	Timestamp      time.Time      `json:"timestamp"`
	TimeSpent      int            `json:"timeSpent"` // seconds
}

// RankedResult is a Result placed on a leaderboard.
type RankedResult struct {
	Result
	Percentage int `json:"percentage"`
	Rank       int `json:"rank"`
}

// Summary aggregates a ranked result collection.
type Summary struct {
	Participants      int           `json:"participants"`
	AverageScore      int           `json:"averageScore"`
	AveragePercentage int           `json:"averagePercentage"`
	HighestScore      int           `json:"highestScore"`
	FastestTime       int           `json:"fastestTime"`
	Winner            *RankedResult `json:"winner,omitempty"`
}

// Leaderboard captures the ordered results at a point in time.
type Leaderboard struct {
	Entries   []RankedResult `json:"entries"`
	TieBreak  string         `json:"tieBreak"`
	Summary   Summary        `json:"summary"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Outcome is returned to a participant after submitting.
type Outcome struct {
	Result    Result       `json:"result"`
	Score     ScoreSummary `json:"score"`
	Persisted bool         `json:"persisted"`
}
