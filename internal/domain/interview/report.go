package interview

import (
	"time"

	"gorm.io/datatypes"
)

// Report is the result of an interview as shown to the recruiter.
type Report struct {
	SessionID       string           `json:"session_id"`
	JobTitle        string           `json:"job_title,omitempty"`
	Skills          []string         `json:"skills"`
	ScoresBySkill   map[string][]int `json:"scores_by_skill"`
	TotalScore      int              `json:"total_score"`
	MaxScore        int              `json:"max_score"`
	Percentage      float64          `json:"percentage"`
	Narrative       string           `json:"summary"`
	NarrativeFailed bool             `json:"summary_failed,omitempty"`
	ConversationLog []string         `json:"conversation_log"`
	Completed       bool             `json:"completed"`
}

// HasScores reports whether any skill received a score.
func (r Report) HasScores() bool {
	for _, scores := range r.ScoresBySkill {
		if len(scores) > 0 {
			return true
		}
	}
	return false
}

// InterviewReport is the archived form of a completed interview. Sessions are
// in-memory only; this row keeps results readable after the session is evicted.
type InterviewReport struct {
	SessionID       string         `gorm:"column:session_id;primaryKey;size:255" json:"session_id"`
	JobTitle        string         `gorm:"column:job_title" json:"job_title"`
	Skills          datatypes.JSON `gorm:"column:skills" json:"skills"`
	ScoresBySkill   datatypes.JSON `gorm:"column:scores_by_skill" json:"scores_by_skill"`
	TotalScore      int            `gorm:"column:total_score;not null;default:0" json:"total_score"`
	MaxScore        int            `gorm:"column:max_score;not null;default:0" json:"max_score"`
	Percentage      float64        `gorm:"column:percentage;not null;default:0" json:"percentage"`
	Narrative       string         `gorm:"column:narrative" json:"narrative"`
	ConversationLog datatypes.JSON `gorm:"column:conversation_log" json:"conversation_log"`
	History         datatypes.JSON `gorm:"column:history" json:"history"`
	TurnCount       int            `gorm:"column:turn_count;not null;default:0" json:"turn_count"`
	CompletedAt     time.Time      `gorm:"column:completed_at;index" json:"completed_at"`
	CreatedAt       time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (InterviewReport) TableName() string { return "interview_report" }
