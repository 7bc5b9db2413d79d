package channels

import (
	"testing"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"
)

func TestAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		allow []string
		block []string
		ids   []string
		want  bool
	}{
		{"open", nil, nil, []string{"#ops", "alice"}, true},
		{"blocked sender", nil, []string{"mallory"}, []string{"#ops", "mallory"}, false},
		{"blocked chat", []string{"alice"}, []string{"#spam"}, []string{"#spam", "alice"}, false},
		{"allowed chat", []string{"#ops"}, nil, []string{"#ops", "bob"}, true},
		{"allowed sender", []string{"alice"}, nil, []string{"#random", "alice"}, true},
		{"not allowed", []string{"alice"}, nil, []string{"#random", "bob"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := allowed(tt.allow, tt.block, tt.ids...); got != tt.want {
				t.Errorf("allowed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReplyTarget(t *testing.T) {
	t.Parallel()

	if got := replyTarget("#ops", "alice"); got != "#ops" {
		t.Errorf("channel message replied to %q", got)
	}
	if got := replyTarget("&local", "alice"); got != "&local" {
		t.Errorf("local channel message replied to %q", got)
	}
	if got := replyTarget("statusbot", "alice"); got != "alice" {
		t.Errorf("direct message replied to %q", got)
	}
}

func TestMessageText(t *testing.T) {
	t.Parallel()

	if got := messageText(nil); got != "" {
		t.Errorf("nil message = %q", got)
	}
	if got := messageText(&waE2E.Message{Conversation: proto.String("/status-image")}); got != "/status-image" {
		t.Errorf("conversation = %q", got)
	}
	ext := &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("!status-image")}}
	if got := messageText(ext); got != "!status-image" {
		t.Errorf("extended text = %q", got)
	}
}

func TestImageMessage(t *testing.T) {
	t.Parallel()

	up := whatsmeow.UploadResponse{
		URL:        "https://mmg.whatsapp.net/x",
		DirectPath: "/v/x",
		MediaKey:   []byte{1},
		FileLength: 42,
	}
	msg := imageMessage(up, "")
	img := msg.GetImageMessage()
	if img.GetURL() != up.URL || img.GetDirectPath() != up.DirectPath || img.GetFileLength() != 42 {
		t.Errorf("image message = %v", img)
	}
	if img.GetMimetype() != "image/png" || img.Caption != nil {
		t.Errorf("mimetype %q caption %v", img.GetMimetype(), img.Caption)
	}
	if got := imageMessage(up, "status").GetImageMessage().GetCaption(); got != "status" {
		t.Errorf("caption = %q", got)
	}
}
