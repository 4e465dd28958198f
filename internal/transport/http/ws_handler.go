package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"adaptive-quiz-engine/internal/app"
	"adaptive-quiz-engine/internal/domain"
)

// WSHandler exposes the quiz engine over one websocket per user. The chat
// front end drives it with start/answer/end/leaderboard/stats messages and
// renders the structured payloads itself.
type WSHandler struct {
	sessions    *app.SessionManager
	leaderboard app.LeaderboardProvider
	stats       *app.StatsService
	catalog     app.CatalogRepository
	upgrader    websocket.Upgrader
}

func NewWSHandler(sessions *app.SessionManager, leaderboard app.LeaderboardProvider, stats *app.StatsService, catalog app.CatalogRepository) *WSHandler {
	return &WSHandler{
		sessions:    sessions,
		leaderboard: leaderboard,
		stats:       stats,
		catalog:     catalog,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type startPayload struct {
	ChapterID      int64 `json:"chapterId"`
	TotalQuestions int   `json:"totalQuestions"`
}

type answerPayload struct {
	Answer       string  `json:"answer"`
	ResponseTime float64 `json:"responseTime"`
}

type leaderboardPayload struct {
	Timeframe string `json:"timeframe"`
	Limit     int    `json:"limit"`
}

// questionView strips the correct option and explanation before a question
// goes over the wire.
type questionView struct {
	QuestionID int64  `json:"questionId"`
	Text       string `json:"text"`
	OptionA    string `json:"optionA"`
	OptionB    string `json:"optionB"`
	OptionC    string `json:"optionC"`
	OptionD    string `json:"optionD"`
	Difficulty int    `json:"difficulty"`
	Number     int    `json:"number"`
	Total      int    `json:"total"`
}

func viewOf(q domain.Question, number, total int) questionView {
	return questionView{
		QuestionID: q.QuestionID,
		Text:       q.Text,
		OptionA:    q.OptionA,
		OptionB:    q.OptionB,
		OptionC:    q.OptionC,
		OptionD:    q.OptionD,
		Difficulty: q.Difficulty,
		Number:     number,
		Total:      total,
	}
}

// answerView mirrors AnswerOutcome but swaps the raw next question for its
// answer-free view.
type answerView struct {
	domain.AnswerOutcome
	NextQuestion *questionView `json:"nextQuestion,omitempty"`
}

// statsView bundles the profile reads into one payload.
type statsView struct {
	User               domain.User                 `json:"user"`
	Rank               app.RankProgress            `json:"rank"`
	ChapterPerformance []domain.ChapterPerformance `json:"chapterPerformance"`
}

// ServeWS upgrades the request and runs the per-user message loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	displayName := r.URL.Query().Get("name")
	if err != nil || userID <= 0 || displayName == "" {
		http.Error(w, "missing or invalid userId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, errors.New("invalid start payload"))
				continue
			}
			result, err := h.sessions.Start(r.Context(), userID, displayName, payload.ChapterID, payload.TotalQuestions)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			h.send(conn, "question", viewOf(result.Question, 1, result.Session.TotalQuestions))

		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, errors.New("invalid answer payload"))
				continue
			}
			outcome, err := h.sessions.Answer(r.Context(), userID, payload.Answer, payload.ResponseTime)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			view := answerView{AnswerOutcome: outcome}
			if outcome.NextQuestion != nil {
				v := viewOf(*outcome.NextQuestion, outcome.QuestionNumber+1, outcome.TotalQuestions)
				view.NextQuestion = &v
				view.AnswerOutcome.NextQuestion = nil
			}
			h.send(conn, "answerResult", view)
			if outcome.Completed {
				h.send(conn, "sessionComplete", outcome.FinalStats)
			}

		case "end":
			stats, err := h.sessions.End(r.Context(), userID)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			h.send(conn, "sessionComplete", stats)

		case "leaderboard":
			var payload leaderboardPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, errors.New("invalid leaderboard payload"))
				continue
			}
			rows, err := h.leaderboard.Leaderboard(r.Context(), domain.Timeframe(payload.Timeframe), payload.Limit)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			h.send(conn, "leaderboard", rows)

		case "stats":
			user, err := h.stats.UserStats(r.Context(), userID)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			rank, err := h.stats.RankProgress(r.Context(), userID)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			chapters, err := h.stats.ChapterPerformance(r.Context(), userID)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			h.send(conn, "stats", statsView{
				User:               user,
				Rank:               rank,
				ChapterPerformance: chapters,
			})

		case "chapters":
			chapters, err := h.catalog.Chapters(r.Context())
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			h.send(conn, "chapters", chapters)

		default:
			h.sendError(conn, errors.New("unsupported message type"))
		}
	}
}

func (h *WSHandler) send(conn *websocket.Conn, msgType string, payload any) {
	if err := conn.WriteJSON(outboundMessage[any]{Type: msgType, Payload: payload}); err != nil {
		log.Printf("ws write error: %v", err)
	}
}

// sendError reports validation and lifecycle failures verbatim so the client
// can act on them; storage failures go out as a generic retry hint.
func (h *WSHandler) sendError(conn *websocket.Conn, err error) {
	msg := err.Error()
	if errors.Is(err, domain.ErrStorageUnavailable) {
		msg = "temporarily unavailable, please try again"
	} else if errors.Is(err, domain.ErrConcurrentUpdate) {
		msg = "please retry your answer"
	}
	h.send(conn, "error", errorPayload{Message: msg})
}
