// Manual test client: connects a handful of participants with different
// languages to one room, has the first one chat, and prints what every
// participant receives. Useful for eyeballing fan-out and translation
// behavior against a running relay.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"

	"babel-relay/auth"
)

type Config struct {
	Addr string `envconfig:"TESTER_ADDR" default:"localhost:8080"`
	Room string `envconfig:"TESTER_ROOM" default:"lobby"`
	// Semicolon-separated id:language pairs, first entry is the speaker
	Participants string `envconfig:"TESTER_PARTICIPANTS" default:"alice:en;bob:es;carol:fr"`
	Messages     int    `envconfig:"TESTER_MESSAGES" default:"3"`
	// When set, tokens are minted locally with the relay's secret
	AuthSecret string `envconfig:"AUTH_SECRET"`
	Colours    bool   `envconfig:"TESTER_COLOURS" default:"true"`
}

type participant struct {
	id       string
	language string
	conn     *websocket.Conn
}

var chatter = []string{
	"Hello everyone, glad to be here!",
	"How is the weather on your side?",
	"This is working better than I expected.",
	"Alright, talk to you all later.",
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	var tokens *auth.TokenService
	if cfg.AuthSecret != "" {
		tokens = auth.NewTokenService(cfg.AuthSecret, time.Hour)
	}

	participants := parseParticipants(cfg.Participants)
	if len(participants) == 0 {
		log.Fatal("TESTER_PARTICIPANTS is empty")
	}

	var wg sync.WaitGroup
	for i := range participants {
		p := &participants[i]
		if err := connect(cfg, tokens, p); err != nil {
			log.Fatalf("%s failed to join: %v", p.id, err)
		}
		defer p.conn.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			listen(cfg, p)
		}()
	}

	speaker := participants[0]
	for i := 0; i < cfg.Messages; i++ {
		text := chatter[i%len(chatter)]
		banner(cfg, fmt.Sprintf(">>> %s says: %s", speaker.id, text))
		err := speaker.conn.WriteJSON(map[string]any{"type": "chat", "content": text})
		if err != nil {
			log.Fatalf("send failed: %v", err)
		}
		time.Sleep(2 * time.Second)
	}

	for _, p := range participants {
		_ = p.conn.WriteJSON(map[string]any{"type": "leave"})
	}
	wg.Wait()
}

func parseParticipants(raw string) []participant {
	var out []participant
	for _, pair := range strings.Split(raw, ";") {
		id, language, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || id == "" || language == "" {
			continue
		}
		out = append(out, participant{id: id, language: language})
	}
	return out
}

func connect(cfg Config, tokens *auth.TokenService, p *participant) error {
	url := fmt.Sprintf("ws://%s/ws/%s", cfg.Addr, cfg.Room)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return err
	}
	p.conn = conn

	join := map[string]any{"participant_id": p.id, "language": p.language}
	if tokens != nil {
		token, err := tokens.Generate(p.id)
		if err != nil {
			return err
		}
		join["token"] = token
	}
	if err := conn.WriteJSON(join); err != nil {
		return err
	}

	var connected struct {
		Type   string `json:"type"`
		Room   string `json:"room"`
		Roster []struct {
			ParticipantID string `json:"participant_id"`
			Language      string `json:"language"`
		} `json:"roster"`
	}
	if err := conn.ReadJSON(&connected); err != nil {
		return err
	}
	if connected.Type != "connected" {
		return fmt.Errorf("expected connected frame, got %q", connected.Type)
	}

	banner(cfg, fmt.Sprintf("%s joined %s (%s)", p.id, connected.Room, p.language))
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Participant", "Language"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, entry := range connected.Roster {
		table.Append([]string{entry.ParticipantID, entry.Language})
	}
	table.Render()
	return nil
}

func listen(cfg Config, p *participant) {
	for {
		var f map[string]any
		if err := p.conn.ReadJSON(&f); err != nil {
			return
		}
		switch f["type"] {
		case "message":
			line := fmt.Sprintf("[%s <- %v] (%v, emotion=%v) %v",
				p.id, f["sender_id"], f["language"], f["emotion"], f["content"])
			if failed, ok := f["translation_failed"].(bool); ok && failed {
				line += "  (translation failed, original shown)"
			}
			say(cfg, color.FgGreen, line)
		case "user_joined", "user_left":
			say(cfg, color.FgYellow, fmt.Sprintf("[%s] %v", p.id, f["message"]))
		case "typing":
			say(cfg, color.FgGray, fmt.Sprintf("[%s] %v typing=%v", p.id, f["participant_id"], f["is_typing"]))
		case "error":
			say(cfg, color.FgRed, fmt.Sprintf("[%s] error %v: %v", p.id, f["code"], f["message"]))
		}
	}
}

func banner(cfg Config, text string) {
	if cfg.Colours {
		fmt.Println(color.New(color.BgBlack, color.FgCyan).Render(text))
		return
	}
	fmt.Println(text)
}

func say(cfg Config, fg color.Color, text string) {
	if cfg.Colours {
		fg.Println(text)
		return
	}
	fmt.Println(text)
}
