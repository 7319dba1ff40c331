package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/events"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/telemetry"
)

// TopTeams is how many projected rankings a summary embed lists.
const TopTeams = 8

type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) Enabled() bool { return n.webhookURL != "" }

type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

func (n *Notifier) SendText(ctx context.Context, msg string) error {
	return n.send(ctx, webhookPayload{Content: msg})
}

func (n *Notifier) SendEmbed(ctx context.Context, embed Embed) error {
	if embed.Timestamp == "" {
		embed.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return n.send(ctx, webhookPayload{Embeds: []Embed{embed}})
}

func (n *Notifier) send(ctx context.Context, payload webhookPayload) error {
	if !n.Enabled() {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		telemetry.Warnf("discord: rate limited")
		return fmt.Errorf("discord rate limited")
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook: status=%d", resp.StatusCode)
	}

	return nil
}

const (
	ColorGreen  = 0x2ECC71
	ColorRed    = 0xE74C3C
	ColorYellow = 0xF1C40F
	ColorBlue   = 0x3498DB
)

// Subscribe posts a standings summary whenever an event's rankings are
// recomputed. Posts happen off the publisher's goroutine.
func (n *Notifier) Subscribe(bus *events.Bus) {
	if !n.Enabled() {
		return
	}
	bus.Subscribe(events.EventRankingsUpdated, func(e events.Event) error {
		ru, ok := e.Payload.(events.RankingsUpdated)
		if !ok {
			return fmt.Errorf("discord: unexpected payload %T", e.Payload)
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := n.RankingsUpdate(ctx, ru); err != nil {
				telemetry.Warnf("discord: %s: %v", ru.EventKey, err)
			}
		}()
		return nil
	})
}

// RankingsUpdate posts the projected top of the standings for one event.
func (n *Notifier) RankingsUpdate(ctx context.Context, ru events.RankingsUpdated) error {
	return n.SendEmbed(ctx, RankingsEmbed(ru))
}

func RankingsEmbed(ru events.RankingsUpdated) Embed {
	through := ru.LastPlayedMatch
	if through == "" {
		through = "no matches played"
	}
	embed := Embed{
		Title:       fmt.Sprintf("Projected rankings: %s", ru.EventKey),
		Description: fmt.Sprintf("Through %s", through),
		Color:       ColorBlue,
	}
	if ru.Ranking == nil {
		return embed
	}
	embed.Description += fmt.Sprintf(" (%d replays)", ru.Ranking.Replays)

	var b strings.Builder
	for i, p := range ru.Ranking.Teams {
		if i == TopTeams {
			break
		}
		fmt.Fprintf(&b, "%d. %s  mean rank %.1f (%d-%d), %.1f RP\n",
			i+1, strings.TrimPrefix(p.Team, "frc"), p.MeanRank, p.MinRank, p.MaxRank, p.MeanRP)
	}
	if b.Len() > 0 {
		embed.Fields = append(embed.Fields, Field{Name: "Top teams", Value: b.String()})
	}
	return embed
}
