package recordstore

// TemplateRecord is a stored interview template row.
type TemplateRecord struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id,omitempty"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	Difficulty      string `json:"difficulty"`
	DurationMinutes int    `json:"duration_minutes"`
	Role            string `json:"role,omitempty"`
	Description     string `json:"description,omitempty"`
	Experience      string `json:"experience,omitempty"`
}

// TemplateQuestion is one stored question row belonging to a template.
type TemplateQuestion struct {
	ID         string `json:"id,omitempty"`
	TemplateID string `json:"template_id"`
	Position   int    `json:"position"`
	Text       string `json:"text"`
}

// InterviewRecord is a stored interview row, created when a session starts
// and updated with the score when it finishes.
type InterviewRecord struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id,omitempty"`
	TemplateID      string `json:"template_id,omitempty"`
	Title           string `json:"title"`
	Type            string `json:"type"`
	Score           *int   `json:"score,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Date            string `json:"date"`
	Status          string `json:"status"`
}

// AnswerRecord is one stored question/answer pair of a finished interview.
type AnswerRecord struct {
	ID          string `json:"id,omitempty"`
	InterviewID string `json:"interview_id"`
	Position    int    `json:"position"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Score       int    `json:"score"`
	Feedback    string `json:"feedback,omitempty"`
}

// Interview status values.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)
