package interview

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionInitialState(t *testing.T) {
	s := NewSession(" link-1 ", []string{"Python", " SQL ", "python", ""}, "Backend", GenderMale, "zahar", nil)

	assert.Equal(t, "link-1", s.ID)
	assert.Equal(t, []string{"Python", "SQL"}, s.Skills)
	assert.Equal(t, map[string]int{"Python": 0, "SQL": 0}, s.Stages)
	assert.Equal(t, DefaultAddressForm, s.AddressForm)
	assert.False(t, s.FirstTurnSeen)
	assert.False(t, s.Completed)
}

func TestParseGender(t *testing.T) {
	assert.Equal(t, GenderMale, ParseGender("МУЖ"))
	assert.Equal(t, GenderMale, ParseGender("male"))
	assert.Equal(t, GenderFemale, ParseGender("ЖЕН"))
	assert.Equal(t, GenderFemale, ParseGender(""))
}

func TestSplitSkills(t *testing.T) {
	assert.Equal(t, []string{"Go", "Kafka", "SQL"}, SplitSkills("Go, Kafka,,SQL , go"))
}

func TestCloneIsDeep(t *testing.T) {
	s := NewSession("a", []string{"Go"}, "", GenderFemale, "oksana", &ResumeContext{KeySkills: []string{"Go"}})
	s.History = append(s.History, Turn{UserText: "hi"})
	s.AppendScore("Go", 5)

	c := s.Clone()
	c.Stages["Go"] = 2
	c.Scores["Go"][0] = 9
	c.History[0].AIText = "q"
	c.Resume.KeySkills[0] = "Rust"
	c.Skills[0] = "Java"

	assert.Equal(t, 0, s.Stages["Go"])
	assert.Equal(t, []int{5}, s.Scores["Go"])
	assert.Equal(t, "", s.History[0].AIText)
	assert.Equal(t, "Go", s.Resume.KeySkills[0])
	assert.Equal(t, "Go", s.Skills[0])
}

func TestAppendScoreBounds(t *testing.T) {
	s := NewSession("a", []string{"Go"}, "", GenderFemale, "", nil)
	assert.False(t, s.AppendScore("Go", 0))
	assert.False(t, s.AppendScore("Go", 11))
	for i := 0; i < 3; i++ {
		require.True(t, s.AppendScore("Go", 7))
	}
	assert.False(t, s.AppendScore("Go", 7), "a fourth score must be refused")
	assert.Len(t, s.Scores["Go"], 3)
}

func TestAdvanceStopsAtDone(t *testing.T) {
	s := NewSession("a", []string{"Go"}, "", GenderFemale, "", nil)
	for i := 0; i < StagesDone; i++ {
		require.True(t, s.Advance("Go"))
	}
	assert.False(t, s.Advance("Go"))
	assert.Equal(t, StagesDone, s.Stages["Go"])
}

func TestConversationLogAndLastAIText(t *testing.T) {
	s := NewSession("a", []string{"Go"}, "", GenderFemale, "", nil)
	assert.Equal(t, "", s.LastAIText())
	s.BaseQuestions["Go"] = "Что такое горутина?"
	assert.Equal(t, "Что такое горутина?", s.LastQuestion("Go"))

	s.History = []Turn{{UserText: "Иван", AIText: "Иван, что такое горутина?"}, {UserText: "поток"}}
	assert.Equal(t, "Иван, что такое горутина?", s.LastAIText())
	assert.Equal(t, []string{
		"Пользователь: Иван",
		"Бот: Иван, что такое горутина?",
		"Пользователь: поток",
	}, s.ConversationLog())
}

func TestErrorKindsMatchSentinels(t *testing.T) {
	err := fmt.Errorf("turn: %w", E(KindUpstreamSynthesisFailure, "synthesize", errors.New("503")))

	assert.True(t, errors.Is(err, ErrUpstreamSynthesisFailure))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindUpstreamSynthesisFailure, KindOf(err))
	assert.True(t, IsUpstream(err))
	assert.Contains(t, err.Error(), "synthesize: upstream_synthesis_failure: 503")

	assert.False(t, IsUpstream(ErrNotFound))
	assert.True(t, IsUpstream(E(KindUpstreamTemplateFailure, "fetch_template", errors.New("404"))))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
