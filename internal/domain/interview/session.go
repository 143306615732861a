package interview

import (
	"strings"
	"time"
)

// Stages a skill goes through: base question, two clarifying questions, done.
const StagesDone = 3

// MaxScorePerAnswer is the top of the 1..10 rubric.
const MaxScorePerAnswer = 10

const DefaultAddressForm = "Кандидат"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender accepts the front-end's "МУЖ"/"ЖЕН" markers as well as plain English.
// Anything unrecognised is treated as female, matching the default voice.
func ParseGender(raw string) Gender {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "муж", "м", "male", "m", "man":
		return GenderMale
	default:
		return GenderFemale
	}
}

type ResumeContext struct {
	Specialization      string   `json:"specialization,omitempty"`
	KeySkills           []string `json:"key_skills,omitempty"`
	KeyResponsibilities []string `json:"key_responsibilities,omitempty"`
	WorkExperience      []string `json:"work_experience,omitempty"`
	ExperienceYears     float64  `json:"general_experience_number,omitempty"`
}

func (r *ResumeContext) Clone() *ResumeContext {
	if r == nil {
		return nil
	}
	out := *r
	out.KeySkills = append([]string(nil), r.KeySkills...)
	out.KeyResponsibilities = append([]string(nil), r.KeyResponsibilities...)
	out.WorkExperience = append([]string(nil), r.WorkExperience...)
	return &out
}

type Turn struct {
	UserText string `json:"user"`
	AIText   string `json:"ai,omitempty"`
}

// Session is the whole state of one interview.
type Session struct {
	ID       string
	Skills   []string
	JobTitle string
	Gender   Gender
	Voice    string
	Resume   *ResumeContext

	BaseQuestions map[string]string
	Stages        map[string]int
	Scores        map[string][]int
	History       []Turn

	AddressForm   string
	FirstTurnSeen bool
	Completed     bool

	// TemplateVideo is the local path of the fetched talking-head template.
	TemplateVideo string
	TurnCount     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSession returns a session at stage 0 for every skill, with duplicate and
// blank skill names dropped while keeping first-seen order.
func NewSession(id string, skills []string, jobTitle string, gender Gender, voice string, resume *ResumeContext) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:            strings.TrimSpace(id),
		Skills:        NormalizeSkills(skills),
		JobTitle:      strings.TrimSpace(jobTitle),
		Gender:        gender,
		Voice:         voice,
		Resume:        resume.Clone(),
		BaseQuestions: map[string]string{},
		Stages:        map[string]int{},
		Scores:        map[string][]int{},
		AddressForm:   DefaultAddressForm,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, sk := range s.Skills {
		s.Stages[sk] = 0
		s.Scores[sk] = []int{}
	}
	return s
}

func NormalizeSkills(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, raw := range in {
		sk := strings.TrimSpace(raw)
		key := strings.ToLower(sk)
		if sk == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sk)
	}
	return out
}

// SplitSkills accepts the comma separated form the original front-end sends.
func SplitSkills(raw string) []string {
	return NormalizeSkills(strings.Split(raw, ","))
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Skills = append([]string(nil), s.Skills...)
	out.Resume = s.Resume.Clone()
	out.BaseQuestions = make(map[string]string, len(s.BaseQuestions))
	for k, v := range s.BaseQuestions {
		out.BaseQuestions[k] = v
	}
	out.Stages = make(map[string]int, len(s.Stages))
	for k, v := range s.Stages {
		out.Stages[k] = v
	}
	out.Scores = make(map[string][]int, len(s.Scores))
	for k, v := range s.Scores {
		out.Scores[k] = append([]int{}, v...)
	}
	out.History = append([]Turn(nil), s.History...)
	return &out
}

// AppendScore records one evaluation for skill. It refuses scores outside
// 1..10 and a fourth score for the same skill.
func (s *Session) AppendScore(skill string, score int) bool {
	if score < 1 || score > MaxScorePerAnswer {
		return false
	}
	if len(s.Scores[skill]) >= StagesDone {
		return false
	}
	if s.Scores == nil {
		s.Scores = map[string][]int{}
	}
	s.Scores[skill] = append(s.Scores[skill], score)
	return true
}

// Advance moves skill one stage forward; it never goes past StagesDone.
func (s *Session) Advance(skill string) bool {
	if s.Stages[skill] >= StagesDone {
		return false
	}
	s.Stages[skill]++
	return true
}

// LastAIText returns the most recent question or closing message, if any.
func (s *Session) LastAIText() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].AIText != "" {
			return s.History[i].AIText
		}
	}
	return ""
}

// LastQuestion is the question the candidate's next answer responds to:
// the last AI text, or the base question of skill when nothing was asked yet.
func (s *Session) LastQuestion(skill string) string {
	if q := s.LastAIText(); q != "" {
		return q
	}
	return s.BaseQuestions[skill]
}

func (s *Session) ScoredSkills() int {
	n := 0
	for _, sk := range s.Skills {
		if len(s.Scores[sk]) > 0 {
			n++
		}
	}
	return n
}

func (s *Session) HasScores() bool { return s.ScoredSkills() > 0 }

// ConversationLog renders history the way the recruiter dashboard shows it.
func (s *Session) ConversationLog() []string {
	out := make([]string, 0, len(s.History)*2)
	for _, t := range s.History {
		if t.UserText != "" {
			out = append(out, "Пользователь: "+t.UserText)
		}
		if t.AIText != "" {
			out = append(out, "Бот: "+t.AIText)
		}
	}
	return out
}
