// Command monitor is a terminal dashboard for the competition engine.
// It joins the realtime rooms, overlays pushed deltas on the fetched
// schedule, and redraws as passages move through their day.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/client"
	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/realtime"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("57")).Padding(0, 1)
	liveStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	schedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type fetchedMsg struct {
	passages []client.Passage
	err      error
}

type refreshMsg struct{}

type pushMsg struct{}

type scheduleResponse struct {
	Items []client.Passage `json:"items"`
}

type dashboard struct {
	api *resty.Client
	rec *client.Reconciler

	passages []client.Passage
	err      error
	fetchAt  time.Time
	width    int
}

func (d *dashboard) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		var out scheduleResponse
		resp, err := d.api.R().SetResult(&out).Get("/v1/schedule")
		if err != nil {
			return fetchedMsg{err: err}
		}
		if resp.IsError() {
			return fetchedMsg{err: fmt.Errorf("schedule fetch: %s", resp.Status())}
		}
		return fetchedMsg{passages: out.Items}
	}
}

func (d *dashboard) Init() tea.Cmd {
	return d.fetchCmd()
}

func (d *dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		switch m.String() {
		case "q", "ctrl+c":
			return d, tea.Quit
		case "r":
			return d, d.fetchCmd()
		}
	case tea.WindowSizeMsg:
		d.width = m.Width
	case fetchedMsg:
		d.err = m.err
		if m.err == nil {
			d.passages = m.passages
			d.fetchAt = time.Now()
		}
	case refreshMsg:
		return d, d.fetchCmd()
	case pushMsg:
		// Overlay changed; the render below calls ApplyAll.
	}
	return d, nil
}

func (d *dashboard) View() string {
	var b []byte
	b = append(b, titleStyle.Render("Suivi compétition")...)
	b = append(b, '\n')

	if d.err != nil {
		b = append(b, errStyle.Render("erreur: "+d.err.Error())...)
		b = append(b, '\n')
	}

	passages := d.rec.ApplyAll(d.passages)
	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].StartTime.Before(passages[j].StartTime)
	})

	for _, p := range passages {
		line := fmt.Sprintf("%s  %-22s %-18s %-10s",
			p.StartTime.Local().Format("15:04"), p.GroupName, p.ApparatusName, p.Location)
		switch p.Status {
		case model.StatusLive:
			line = liveStyle.Render("● " + line + "  EN DIRECT")
		case model.StatusFinished:
			score := ""
			if p.Score != nil {
				score = fmt.Sprintf("  %.3f", *p.Score)
			}
			line = doneStyle.Render("  " + line + score)
		default:
			line = schedStyle.Render("  " + line)
		}
		b = append(b, line...)
		b = append(b, '\n')
	}

	footer := fmt.Sprintf("maj %s · %d en attente · r pour recharger, q pour quitter",
		d.fetchAt.Local().Format("15:04:05"), d.rec.Pending())
	b = append(b, dimStyle.Render(footer)...)
	b = append(b, '\n')
	return string(b)
}

func main() {
	baseURL := flag.String("base", envOr("MONITOR_BASE_URL", "http://localhost:8080"), "API base URL")
	wsURL := flag.String("ws", envOr("MONITOR_WS_URL", "ws://localhost:8080/ws"), "websocket URL")
	flag.Parse()

	logger := zap.NewNop()

	d := &dashboard{
		api: resty.New().SetBaseURL(*baseURL).SetTimeout(10 * time.Second),
	}
	program := tea.NewProgram(d, tea.WithAltScreen())

	d.rec = client.NewReconciler(client.DefaultDeferDelay, func() {
		program.Send(refreshMsg{})
	})

	sock := client.NewSocket(*wsURL, logger)
	rooms := client.NewRoomManager(sock)
	sock.OnConnect(rooms.Resubscribe)
	rooms.Subscribe(realtime.RoomScheduleUpdates, realtime.RoomLiveScores, realtime.RoomStreams)

	sock.On(realtime.EventStatusUpdate, func(env realtime.Envelope) {
		var p realtime.StatusUpdatePayload
		if err := decode(env, &p); err != nil {
			return
		}
		d.rec.HandleStatusUpdate(p)
		program.Send(pushMsg{})
	})
	sock.On(realtime.EventScoreUpdate, func(env realtime.Envelope) {
		var p realtime.ScoreUpdatePayload
		if err := decode(env, &p); err != nil {
			return
		}
		d.rec.HandleScoreUpdate(p)
		program.Send(pushMsg{})
	})
	sock.On(realtime.EventScheduleUpdate, func(realtime.Envelope) {
		d.rec.HandleScheduleUpdate()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sock.Run(ctx)

	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	d.rec.Stop()
}

func decode(env realtime.Envelope, v any) error {
	return json.Unmarshal(env.Data, v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
