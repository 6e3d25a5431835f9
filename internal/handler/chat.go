// Chat proxy for the support widget.  Requests are forwarded to an
// OpenAI-compatible chat-completions endpoint with a system prompt built
// from live catalogue data; any upstream failure degrades to a canned reply
// so the widget never blocks the booking flow.

package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cineflow/cineflow/internal/config"
	"github.com/cineflow/cineflow/internal/repository"
)

const chatFallbackReply = "Our assistant is unavailable right now. You can browse movies and book seats directly on the site."

// ChatHandler proxies support-chat messages to an external LLM API.
type ChatHandler struct {
	MovieRepo   *repository.MovieRepo
	SessionRepo *repository.SessionRepo

	apiURL string
	apiKey string
	model  string
	client *http.Client
}

// NewChatHandler constructs a ChatHandler from the chat section of the
// configuration.  An empty API key disables the proxy; Send then always
// answers with the fallback reply.
func NewChatHandler(movies *repository.MovieRepo, sessions *repository.SessionRepo, cfg *config.Config) *ChatHandler {
	if movies == nil || sessions == nil {
		panic("nil repository passed to NewChatHandler")
	}
	return &ChatHandler{
		MovieRepo:   movies,
		SessionRepo: sessions,
		apiURL:      cfg.ChatAPIURL,
		apiKey:      cfg.ChatAPIKey,
		model:       cfg.ChatModel,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Send handles POST /v1/chat.
func (h *ChatHandler) Send(c echo.Context) error {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Message = strings.TrimSpace(body.Message)
	if body.Message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message is required"})
	}
	if h.apiKey == "" {
		return c.JSON(http.StatusOK, echo.Map{"reply": chatFallbackReply})
	}

	system := h.buildSystemPrompt(c, body.Message)

	payload, err := json.Marshal(chatCompletionRequest{
		Model: h.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: body.Message},
		},
	})
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"reply": chatFallbackReply})
	}

	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodPost, h.apiURL, bytes.NewReader(payload))
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"reply": chatFallbackReply})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"reply": chatFallbackReply})
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.JSON(http.StatusOK, echo.Map{"reply": chatFallbackReply})
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil || len(completion.Choices) == 0 {
		return c.JSON(http.StatusOK, echo.Map{"reply": chatFallbackReply})
	}
	reply := strings.TrimSpace(completion.Choices[0].Message.Content)
	if reply == "" {
		reply = chatFallbackReply
	}
	return c.JSON(http.StatusOK, echo.Map{"reply": reply})
}

// buildSystemPrompt assembles the assistant instructions plus small data
// summaries keyed off words in the customer's message, so the model answers
// from current catalogue state instead of guessing.
func (h *ChatHandler) buildSystemPrompt(c echo.Context, message string) string {
	var b strings.Builder
	b.WriteString("You are the support assistant of a cinema ticketing site. ")
	b.WriteString("Answer briefly and only about movies, sessions and reservations.")

	ctx := c.Request().Context()
	lower := strings.ToLower(message)

	if containsAny(lower, "movie", "film", "filme", "poster", "catalog") {
		if movies, err := h.MovieRepo.ListActive(ctx); err == nil && len(movies) > 0 {
			b.WriteString("\nMovies currently showing:")
			for i := range movies {
				fmt.Fprintf(&b, "\n- %s (%s, %d min, rating %s)",
					movies[i].Title, movies[i].Genre, movies[i].DurationMin, movies[i].Rating)
			}
		}
	}
	if containsAny(lower, "session", "sessao", "sessão", "time", "horario", "today", "schedule", "when") {
		start, _ := dayWindow(time.Now())
		if sessions, err := h.SessionRepo.ListBetween(ctx, start, start.AddDate(0, 0, 7)); err == nil && len(sessions) > 0 {
			b.WriteString("\nSessions over the next seven days:")
			for i := range sessions {
				fmt.Fprintf(&b, "\n- %s in room %s at %s, %d.%02d per seat",
					sessions[i].MovieTitle, sessions[i].Room,
					sessions[i].StartsAt.UTC().Format("Mon 2006-01-02 15:04"),
					sessions[i].PriceCents/100, sessions[i].PriceCents%100)
			}
		}
	}
	if containsAny(lower, "full", "occupancy", "busy", "popular", "lotado", "ocupa") {
		if stats, err := h.SessionRepo.ListStats(ctx, time.Time{}, time.Time{}); err == nil && len(stats) > 0 {
			b.WriteString("\nOccupancy per session:")
			for i := range stats {
				fmt.Fprintf(&b, "\n- %s at %s: %d%% full",
					stats[i].MovieTitle, stats[i].StartsAt.UTC().Format("2006-01-02 15:04"),
					stats[i].OccupancyPercent)
			}
		}
	}
	return b.String()
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
