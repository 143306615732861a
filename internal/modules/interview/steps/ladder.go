package steps

import domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"

// NextSkill returns the first skill, in the order the session was created
// with, that has not reached the final stage. Each skill is exhausted before
// the next one starts. ok is false once every skill is done.
func NextSkill(s *domain.Session) (skill string, ok bool) {
	if s == nil {
		return "", false
	}
	for _, sk := range s.Skills {
		if s.Stages[sk] < domain.StagesDone {
			return sk, true
		}
	}
	return "", false
}
