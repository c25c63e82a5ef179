package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/forest-guardian/eds-change-cli/internal/properties"
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []DiscordField `json:"fields,omitempty"`
}

const (
	colorRed   = 16711680
	colorGreen = 65280
)

var client = &http.Client{Timeout: 10 * time.Second}

// post sends a message to a webhook. An empty URL disables the
// notification.
func post(url string, message DiscordMessage) error {
	if url == "" {
		return nil
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	resp, err := client.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}
	return nil
}

func SendDiscordErrorNotification(errorMessage string) error {
	return post(properties.DiscordErrorNotificationUrl(), DiscordMessage{
		Embeds: []DiscordEmbed{{
			Title:       "🚨 Change detection failed",
			Description: errorMessage,
			Color:       colorRed,
		}},
	})
}

// SendDiscordSuccessNotification reports a finished run with one field per
// summary entry, in the order given.
func SendDiscordSuccessNotification(title string, summary [][2]string) error {
	embed := DiscordEmbed{Title: "✅ " + title, Color: colorGreen}
	for _, kv := range summary {
		embed.Fields = append(embed.Fields, DiscordField{Name: kv[0], Value: kv[1], Inline: true})
	}
	return post(properties.DiscordSuccessNotificationUrl(), DiscordMessage{Embeds: []DiscordEmbed{embed}})
}
