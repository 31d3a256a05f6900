// Package telegram delivers order plans through the Telegram Bot API.
package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jinsol-dev/ladder/internal/core"
	"github.com/jinsol-dev/ladder/internal/notifier"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token, ok := cfg.Params["bot_token"].(string); ok {
		t.botToken = token
	}
	if chatID, ok := cfg.Params["chat_id"].(string); ok {
		t.chatID = chatID
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}

	if t.apiBase == "" {
		t.apiBase = defaultAPIBase
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (t *Telegram) Send(plan core.OrderPlan) error {
	return t.sendMessage(t.formatPlan(plan))
}

func (t *Telegram) formatPlan(plan core.OrderPlan) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📋 *%s* — %s\n", plan.PortfolioName, plan.Stock))
	sb.WriteString(fmt.Sprintf("🧭 Phase: %s", plan.Phase))
	if plan.Section > 0 {
		sb.WriteString(fmt.Sprintf(" (section %d)", plan.Section))
	}
	sb.WriteString("\n\n")

	for _, leg := range plan.Legs {
		sb.WriteString(formatLeg(leg))
		sb.WriteString("\n")
	}
	if plan.IsEmpty() {
		sb.WriteString("No orders today.\n")
	}

	sb.WriteString(fmt.Sprintf("\n⏰ %s", plan.GeneratedAt.Format("2006-01-02 15:04:05")))
	return sb.String()
}

func formatLeg(leg core.Leg) string {
	emoji := "📈"
	switch leg.Label {
	case core.LegLOCSell, core.LegLimitSell:
		emoji = "📉"
	case core.LegMOCSell:
		emoji = "🛑"
	}

	if leg.Price <= 0 {
		// MOC trigger sale executes at whatever the close is.
		return fmt.Sprintf("%s %s: %s x %v at market close", emoji, leg.Label, leg.Stock, leg.Quantity)
	}
	return fmt.Sprintf("%s %s: %s x %v @ $%.2f", emoji, leg.Label, leg.Stock, leg.Quantity, leg.Price)
}

func (t *Telegram) sendMessage(text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	resp, err := t.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
