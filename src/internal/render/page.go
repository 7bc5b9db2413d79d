package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"runtime"
	"strings"
	"time"

	"status-image/src/internal/bot"
)

//go:embed templates/status.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/status.html"))

// BotCard is the per-bot block of the status page.
type BotCard struct {
	Name     string
	Avatar   string
	Platform string
	Status   bot.Status
	Uptime   time.Duration
	Sent     int64
	Received int64
}

// Info is everything the status page displays.
type Info struct {
	// AssetURL is the base URL css/ and icon/ are served under.
	AssetURL    string
	Background  string
	DarkMode    bool
	MaskOpacity float64
	Locale      string
	Bots        []BotCard
	CPU         float64
	Memory      float64
	OS          string
	AppName     string
	AppVersion  string
}

type pageText struct {
	Uptime   string
	Sent     string
	Received string
	System   string
}

var texts = map[string]pageText{
	"zh-cn": {Uptime: "已运行", Sent: "昨日发送", Received: "昨日接收", System: "系统"},
	"en":    {Uptime: "Up", Sent: "Sent yesterday", Received: "Received yesterday", System: "System"},
}

type cardView struct {
	Name        string
	Avatar      template.URL
	Platform    string
	StatusClass string
	StatusLabel string
	Uptime      string
	Sent        int64
	Received    int64
}

type gaugeView struct {
	Name   string
	Circle Circle
}

type pageView struct {
	Lang        string
	AssetURL    template.URL
	Background  template.URL
	DarkMode    bool
	MaskOpacity string
	Text        pageText
	Bots        []cardView
	Gauges      []gaugeView
	OS          string
	AppName     string
	AppVersion  string
	GoVersion   string
}

// Page renders the status page HTML.
func Page(info Info) (string, error) {
	text, ok := texts[info.Locale]
	if !ok {
		info.Locale = "en"
		text = texts["en"]
	}

	view := pageView{
		Lang:        info.Locale,
		AssetURL:    template.URL(strings.TrimRight(info.AssetURL, "/")),
		Background:  template.URL(info.Background),
		DarkMode:    info.DarkMode,
		MaskOpacity: fmt.Sprintf("%.2f", info.MaskOpacity),
		Text:        text,
		Gauges: []gaugeView{
			{Name: "CPU", Circle: Gauge(info.CPU)},
			{Name: "RAM", Circle: Gauge(info.Memory)},
		},
		OS:         info.OS,
		AppName:    info.AppName,
		AppVersion: info.AppVersion,
		GoVersion:  strings.TrimPrefix(runtime.Version(), "go"),
	}
	for _, b := range info.Bots {
		avatar := b.Avatar
		if avatar == "" {
			avatar = string(view.AssetURL) + "/icon/avatar.svg"
		}
		view.Bots = append(view.Bots, cardView{
			Name:        b.Name,
			Avatar:      template.URL(avatar),
			Platform:    b.Platform,
			StatusClass: b.Status.String(),
			StatusLabel: b.Status.Label(info.Locale),
			Uptime:      FormatDuration(b.Uptime, info.Locale),
			Sent:        b.Sent,
			Received:    b.Received,
		})
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("execute status template: %w", err)
	}
	return buf.String(), nil
}
