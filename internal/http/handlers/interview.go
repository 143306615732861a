package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	domain "github.com/yungbote/avatar-interview-backend/internal/domain/interview"
	"github.com/yungbote/avatar-interview-backend/internal/http/middleware"
	"github.com/yungbote/avatar-interview-backend/internal/http/response"
	"github.com/yungbote/avatar-interview-backend/internal/modules/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/apierr"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

const defaultMaxAudioBytes = 25 << 20

// InterviewEngine is the part of the interview module the HTTP layer drives.
type InterviewEngine interface {
	Initialize(ctx context.Context, in interview.InitializeInput) (interview.InitializeOutput, error)
	ProcessTurn(ctx context.Context, in interview.TurnInput) (interview.TurnOutput, error)
	Results(ctx context.Context, sessionID string) (domain.Report, error)
	CurrentQuestion(ctx context.Context, sessionID string) (interview.QuestionOutput, error)
}

type InterviewHandlerDeps struct {
	Log           *logger.Logger
	Engine        InterviewEngine
	MaxAudioBytes int64
}

type InterviewHandler struct {
	log           *logger.Logger
	engine        InterviewEngine
	maxAudioBytes int64
}

func NewInterviewHandlerWithDeps(deps InterviewHandlerDeps) *InterviewHandler {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	max := deps.MaxAudioBytes
	if max <= 0 {
		max = defaultMaxAudioBytes
	}
	return &InterviewHandler{log: log.With("handler", "InterviewHandler"), engine: deps.Engine, maxAudioBytes: max}
}

// skillList accepts a JSON array or a comma separated string.
type skillList []string

func (s *skillList) UnmarshalJSON(b []byte) error {
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*s = arr
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("skills must be an array or a comma separated string")
	}
	*s = domain.SplitSkills(str)
	return nil
}

type initializeRequest struct {
	SessionID string `json:"session_id"`
	// InterviewUniqueLink is the legacy name of session_id.
	InterviewUniqueLink string                `json:"interview_unique_link"`
	Skills              skillList             `json:"skills"`
	JobTitle            string                `json:"job_title"`
	Title               string                `json:"title"`
	Gender              string                `json:"gender"`
	VideoURL            string                `json:"video_url"`
	Resume              *domain.ResumeContext `json:"resume,omitempty"`
}

func (r initializeRequest) input() interview.InitializeInput {
	id := r.SessionID
	if strings.TrimSpace(id) == "" {
		id = r.InterviewUniqueLink
	}
	title := r.JobTitle
	if strings.TrimSpace(title) == "" {
		title = r.Title
	}
	return interview.InitializeInput{
		SessionID: id,
		Skills:    r.Skills,
		JobTitle:  title,
		Gender:    domain.ParseGender(r.Gender),
		VideoRef:  r.VideoURL,
		Resume:    r.Resume,
	}
}

func bindInitialize(c *gin.Context) (interview.InitializeInput, *apierr.Error) {
	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return interview.InitializeInput{}, apierr.New(http.StatusBadRequest, "invalid_request", err)
	}
	return req.input(), nil
}

// POST /api/interviews
func (h *InterviewHandler) Create(c *gin.Context) {
	in, aerr := bindInitialize(c)
	if aerr != nil {
		response.RespondAPIError(c, aerr)
		return
	}
	out, err := h.engine.Initialize(c.Request.Context(), in)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// readAudio takes the multipart "file" field or, failing that, the raw body.
func (h *InterviewHandler) readAudio(c *gin.Context) ([]byte, string, *apierr.Error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxAudioBytes+1<<20)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return nil, "", apierr.New(http.StatusRequestEntityTooLarge, "audio_too_large", err)
			}
			return nil, "", apierr.New(http.StatusBadRequest, string(domain.KindMissingParameters), fmt.Errorf("audio file required: %w", err))
		}
		if fh.Size > h.maxAudioBytes {
			return nil, "", apierr.New(http.StatusRequestEntityTooLarge, "audio_too_large", fmt.Errorf("audio exceeds %d bytes", h.maxAudioBytes))
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", apierr.New(http.StatusBadRequest, "invalid_audio", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", apierr.New(http.StatusBadRequest, "invalid_audio", err)
		}
		return data, filepath.Base(fh.Filename), nil
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxAudioBytes+1))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, "", apierr.New(http.StatusRequestEntityTooLarge, "audio_too_large", err)
		}
		return nil, "", apierr.New(http.StatusBadRequest, "invalid_audio", err)
	}
	if len(data) == 0 {
		return nil, "", apierr.New(http.StatusBadRequest, string(domain.KindMissingParameters), fmt.Errorf("audio required"))
	}
	if int64(len(data)) > h.maxAudioBytes {
		return nil, "", apierr.New(http.StatusRequestEntityTooLarge, "audio_too_large", fmt.Errorf("audio exceeds %d bytes", h.maxAudioBytes))
	}
	return data, "answer" + extForContentType(c.ContentType()), nil
}

func extForContentType(ct string) string {
	switch {
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return ".mp3"
	default:
		return ".wav"
	}
}

func turnInput(sessionID string, audio []byte, filename string) interview.TurnInput {
	return interview.TurnInput{SessionID: sessionID, Audio: audio, Filename: filename}
}

func writeTurn(c *gin.Context, out interview.TurnOutput) {
	c.Header(middleware.HeaderResponseText, url.PathEscape(out.ResponseText))
	c.Header(middleware.HeaderCompleted, strconv.FormatBool(out.Completed))
	if out.Skill != "" {
		c.Header(middleware.HeaderSkill, url.PathEscape(out.Skill))
		c.Header(middleware.HeaderStage, strconv.Itoa(out.Stage))
	}
	c.Header("Content-Disposition", `inline; filename="response_video.webm"`)
	c.Data(http.StatusOK, "video/webm", out.Video)
}

// POST /api/interviews/:id/turns
func (h *InterviewHandler) ProcessTurn(c *gin.Context) {
	audio, filename, aerr := h.readAudio(c)
	if aerr != nil {
		response.RespondAPIError(c, aerr)
		return
	}
	out, err := h.engine.ProcessTurn(c.Request.Context(), turnInput(c.Param("id"), audio, filename))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	writeTurn(c, out)
}

// GET /api/interviews/:id/results
func (h *InterviewHandler) Results(c *gin.Context) {
	rep, err := h.engine.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	response.RespondOK(c, rep)
}

// GET /api/interviews/:id/question
func (h *InterviewHandler) CurrentQuestion(c *gin.Context) {
	out, err := h.engine.CurrentQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	response.RespondOK(c, out)
}
