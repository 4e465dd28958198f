package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"adaptive-quiz-engine/internal/app"
	"adaptive-quiz-engine/internal/domain"
	"adaptive-quiz-engine/internal/infra/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	catalog := memory.NewStaticCatalog(
		[]domain.Chapter{{ChapterID: 1, Name: "Algorithms"}},
		[]domain.Question{
			{QuestionID: 1, ChapterID: 1, Text: "What does FIFO mean?", OptionA: "First in, first out", OptionB: "Fast input", OptionC: "Final output", OptionD: "None", CorrectOption: "A", Difficulty: 1, Explanation: "Queue ordering."},
			{QuestionID: 2, ChapterID: 1, Text: "What is a stack?", OptionA: "FIFO", OptionB: "LIFO", OptionC: "Tree", OptionD: "Graph", CorrectOption: "B", Difficulty: 1},
			{QuestionID: 3, ChapterID: 1, Text: "Binary search complexity?", OptionA: "O(n)", OptionB: "O(1)", OptionC: "O(log n)", OptionD: "O(n log n)", CorrectOption: "C", Difficulty: 1},
		},
	)
	store := memory.NewStore(domain.DefaultRankLadder)
	store.SetChapterNames(catalog.ChapterNames())

	selector := app.NewSelector(catalog, store, 0)
	recorder := app.NewRecorder(store)
	sessions := app.NewSessionManager(store, store, catalog, selector, recorder, app.DefaultPolicy())
	leaderboard := app.NewLeaderboardAggregator(store, store)
	stats := app.NewStatsService(store, store, domain.DefaultRankLadder)
	handler := NewWSHandler(sessions, leaderboard, stats, catalog)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dialWS(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (payload %s)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}

func TestWebSocketSessionFlow(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server, "userId=1&name=Alice")

	start := map[string]any{
		"type":    "start",
		"payload": map[string]any{"chapterId": 1, "totalQuestions": 2},
	}
	if err := conn.WriteJSON(start); err != nil {
		t.Fatalf("write start: %v", err)
	}

	_, raw := readNext(conn, t, "question")
	var question struct {
		QuestionID    int64  `json:"questionId"`
		Text          string `json:"text"`
		CorrectOption string `json:"correctOption"`
		Total         int    `json:"total"`
	}
	if err := json.Unmarshal(raw, &question); err != nil {
		t.Fatalf("decode question: %v", err)
	}
	if question.Text == "" || question.Total != 2 {
		t.Fatalf("unexpected question payload %s", raw)
	}
	if question.CorrectOption != "" {
		t.Fatalf("correct option must not leave the server: %s", raw)
	}

	correct := map[int64]string{1: "A", 2: "B", 3: "C"}

	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"answer": correct[question.QuestionID], "responseTime": 3.5},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	_, raw = readNext(conn, t, "answerResult")
	var result struct {
		IsCorrect    bool `json:"isCorrect"`
		PointsEarned int  `json:"pointsEarned"`
		NextQuestion *struct {
			QuestionID int64 `json:"questionId"`
		} `json:"nextQuestion"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode answer result: %v", err)
	}
	if !result.IsCorrect || result.PointsEarned != 1 {
		t.Fatalf("expected correct first answer, got %s", raw)
	}
	if result.NextQuestion == nil {
		t.Fatalf("expected a next question in %s", raw)
	}

	// Second (last) answer completes the session.
	answer["payload"] = map[string]any{"answer": correct[result.NextQuestion.QuestionID], "responseTime": 2.0}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	readNext(conn, t, "answerResult")
	_, raw = readNext(conn, t, "sessionComplete")
	var stats struct {
		TotalQuestions int `json:"totalQuestions"`
		CorrectAnswers int `json:"correctAnswers"`
	}
	if err := json.Unmarshal(raw, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalQuestions != 2 || stats.CorrectAnswers != 2 {
		t.Fatalf("unexpected final stats %s", raw)
	}
}

func TestWebSocketLeaderboardAndChapters(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server, "userId=1&name=Alice")

	if err := conn.WriteJSON(map[string]any{
		"type":    "leaderboard",
		"payload": map[string]any{"timeframe": "daily", "limit": 10},
	}); err != nil {
		t.Fatalf("write leaderboard: %v", err)
	}
	_, raw := readNext(conn, t, "leaderboard")
	var rows []domain.LeaderboardRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "chapters",
		"payload": map[string]any{},
	}); err != nil {
		t.Fatalf("write chapters: %v", err)
	}
	_, raw = readNext(conn, t, "chapters")
	var chapters []domain.Chapter
	if err := json.Unmarshal(raw, &chapters); err != nil {
		t.Fatalf("decode chapters: %v", err)
	}
	if len(chapters) != 1 || chapters[0].Name != "Algorithms" {
		t.Fatalf("unexpected chapters %s", raw)
	}
}

func TestWebSocketStatsProfile(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server, "userId=1&name=Alice")

	// A session registers the user before the profile read.
	if err := conn.WriteJSON(map[string]any{
		"type":    "start",
		"payload": map[string]any{"chapterId": 1, "totalQuestions": 3},
	}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	readNext(conn, t, "question")

	if err := conn.WriteJSON(map[string]any{
		"type":    "stats",
		"payload": map[string]any{},
	}); err != nil {
		t.Fatalf("write stats: %v", err)
	}
	_, raw := readNext(conn, t, "stats")
	var profile struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
		Rank struct {
			CurrentRank string `json:"currentRank"`
			NextRank    string `json:"nextRank"`
		} `json:"rank"`
	}
	if err := json.Unmarshal(raw, &profile); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if profile.User.Username != "Alice" {
		t.Fatalf("unexpected profile %s", raw)
	}
	if profile.Rank.CurrentRank != "QA Pleasant" || profile.Rank.NextRank != "QA Baron" {
		t.Fatalf("unexpected rank progress %s", raw)
	}
}

func TestWebSocketErrorPaths(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server, "userId=1&name=Alice")

	// Answering without a session is a lifecycle error, not a disconnect.
	if err := conn.WriteJSON(map[string]any{
		"type":    "answer",
		"payload": map[string]any{"answer": "A", "responseTime": 1.0},
	}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	_, raw := readNext(conn, t, "error")
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if e.Message != domain.ErrSessionNotFound.Error() {
		t.Fatalf("expected session-not-found message, got %q", e.Message)
	}

	if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("write bogus: %v", err)
	}
	readNext(conn, t, "error")
}

func TestWebSocketRejectsMissingIdentity(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/ws?userId=0&name=")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
