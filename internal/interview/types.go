// Package interview holds the core domain model: templates, live sessions,
// the answer ledger, and scoring results.
package interview

// Difficulty selects question count and pacing for a session.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuestionCount returns how many questions the generator produces per run.
func (d Difficulty) QuestionCount() int {
	switch d {
	case DifficultyMedium:
		return 8
	case DifficultyHard:
		return 10
	default:
		return 5
	}
}

// DefaultDurationMinutes maps difficulty to session length for custom
// templates that carry no explicit duration.
func (d Difficulty) DefaultDurationMinutes() int {
	switch d {
	case DifficultyEasy:
		return 15
	case DifficultyHard:
		return 45
	default:
		return 30
	}
}

// Template is a stored or built-in bundle of role metadata plus a question set.
type Template struct {
	ID              string     `yaml:"id" json:"id"`
	Title           string     `yaml:"title" json:"title"`
	Category        string     `yaml:"category" json:"category"`
	Difficulty      Difficulty `yaml:"difficulty" json:"difficulty"`
	DurationMinutes int        `yaml:"duration_minutes" json:"duration_minutes"`
	Role            string     `yaml:"role,omitempty" json:"role,omitempty"`
	Description     string     `yaml:"description,omitempty" json:"description,omitempty"`
	Experience      string     `yaml:"experience,omitempty" json:"experience,omitempty"`
	Questions       []string   `yaml:"questions" json:"questions"`
}

// GeneratorRole returns the role string passed to the question generator.
func (t Template) GeneratorRole() string {
	if t.Role != "" {
		return t.Role
	}
	if t.Title != "" {
		return t.Title
	}
	return "Interview"
}

// SkillBreakdown is the fixed six-category score decomposition.
type SkillBreakdown struct {
	TechnicalKnowledge int `json:"technicalKnowledge"`
	Communication      int `json:"communication"`
	ProblemSolving     int `json:"problemSolving"`
	DomainExpertise    int `json:"domainExpertise"`
	Articulation       int `json:"articulation"`
	ConfidenceLevel    int `json:"confidenceLevel"`
}

// SkillNames lists the breakdown keys in display order.
func SkillNames() []string {
	return []string{
		"technicalKnowledge",
		"communication",
		"problemSolving",
		"domainExpertise",
		"articulation",
		"confidenceLevel",
	}
}

// AnswerFeedback is the evaluation of one question/answer pair.
type AnswerFeedback struct {
	Question     string   `json:"question"`
	Answer       string   `json:"answer"`
	Score        int      `json:"score"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// TrendPoint is one per-question entry of the performance trend.
type TrendPoint struct {
	Question string `json:"question"`
	Score    int    `json:"score"`
}

// ScoringResult is the immutable session outcome produced at session end.
type ScoringResult struct {
	OverallScore int              `json:"overallScore"`
	Feedback     string           `json:"feedback"`
	Skills       SkillBreakdown   `json:"skillBreakdown"`
	Answers      []AnswerFeedback `json:"answerFeedback"`
	Trend        []TrendPoint     `json:"performanceTrend"`
}

// Clamp bounds a score to the [0,100] range.
func Clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
