package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/modules/interview/steps"
)

// Routes kept for the original candidate front-end. They answer in its shapes:
// errors as {"detail": "..."} and results with a formatted percentage.

func respondDetail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

func respondCompatError(c *gin.Context, err error) {
	_ = c.Error(err)
	ae := toAPIError(err)
	msg := "Произошла ошибка"
	switch ae.Status {
	case http.StatusNotFound:
		msg = "Сессия не найдена"
	case http.StatusConflict:
		msg = "Сессия уже существует"
		if ae.Code == string(domain.KindAlreadyCompleted) {
			msg = "Интервью уже завершено"
		}
	case http.StatusBadRequest:
		msg = "Не переданы обязательные параметры"
	default:
		if pub := ae.Public(); pub != "" {
			msg = fmt.Sprintf("Произошла ошибка: %s", pub)
		}
	}
	// The old client treats every completed-interview answer as 400.
	status := ae.Status
	if status == http.StatusConflict && ae.Code == string(domain.KindAlreadyCompleted) {
		status = http.StatusBadRequest
	}
	respondDetail(c, status, msg)
}

// POST /upload_video_link/
func (h *InterviewHandler) LegacyUploadVideoLink(c *gin.Context) {
	in, aerr := bindInitialize(c)
	if aerr != nil {
		respondDetail(c, http.StatusBadRequest, "Не переданы обязательные параметры")
		return
	}
	out, err := h.engine.Initialize(c.Request.Context(), in)
	if err != nil {
		respondCompatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "Видео успешно загружено",
		"session_id":     out.SessionID,
		"base_questions": out.BaseQuestions,
	})
}

// POST /process_audio/ (multipart: file, session_id)
func (h *InterviewHandler) LegacyProcessAudio(c *gin.Context) {
	audio, filename, aerr := h.readAudio(c)
	if aerr != nil {
		respondDetail(c, aerr.Status, aerr.Error())
		return
	}
	out, err := h.engine.ProcessTurn(c.Request.Context(), turnInput(c.PostForm("session_id"), audio, filename))
	if err != nil {
		respondCompatError(c, err)
		return
	}
	writeTurn(c, out)
}

// GET /get_results/:id
func (h *InterviewHandler) LegacyResults(c *gin.Context) {
	rep, err := h.engine.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondCompatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":       rep.SessionID,
		"scores_by_skill":  rep.ScoresBySkill,
		"percentage_match": fmt.Sprintf("%.2f%%", rep.Percentage),
		"summary":          rep.Narrative,
		"conversation_log": rep.ConversationLog,
	})
}

// GET /current_question/:id
func (h *InterviewHandler) LegacyCurrentQuestion(c *gin.Context) {
	out, err := h.engine.CurrentQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondCompatError(c, err)
		return
	}
	body := gin.H{"question": out.Question}
	if out.Question != steps.CompletedSentinel && out.Question != steps.NoQuestionSentinel {
		body["session_id"] = out.SessionID
	}
	c.JSON(http.StatusOK, body)
}
