package ui

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

func TestFlashLevelsAndWatch(t *testing.T) {
	f := NewFlashModel()
	f.Info("saved")
	if got := f.Get(); got != "saved" {
		t.Errorf("Get() = %q, want saved", got)
	}
	f.Err(errors.New("number not found"))
	m := f.GetMessage()
	if m == nil || m.Level != FlashErr || m.Text != "number not found" {
		t.Fatalf("GetMessage() = %+v", m)
	}

	select {
	case got := <-f.Watch():
		if got.Text != "saved" {
			t.Errorf("first watched message = %q, want saved", got.Text)
		}
	default:
		t.Fatal("expected a watched message")
	}
}

func TestFlashExpires(t *testing.T) {
	f := NewFlashModel()
	f.set("brief", FlashInfo, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if got := f.Get(); got != "" {
		t.Errorf("Get() after expiry = %q", got)
	}
	if f.GetMessage() != nil {
		t.Error("GetMessage() after expiry should be nil")
	}
}

func TestFlashRepeatsAreCollapsed(t *testing.T) {
	f := NewFlashModel()
	for i := 0; i < 20; i++ {
		f.Warn("chats stream stopped")
	}
	if f.Get() != "chats stream stopped" {
		t.Error("latest message lost")
	}
	if n := len(f.Watch()); n != 1 {
		t.Errorf("watch queue has %d messages, want 1", n)
	}
}

func TestFlashWatchDoesNotBlock(t *testing.T) {
	f := NewFlashModel()
	for i := 0; i < 20; i++ {
		f.Info(fmt.Sprintf("message %d", i))
	}
	if f.Get() != "message 19" {
		t.Errorf("Get() = %q, want message 19", f.Get())
	}
}

func TestFlashErrUsesStatus(t *testing.T) {
	tests := []struct {
		err   error
		text  string
		level FlashLevel
	}{
		{grpcstatus.Error(codes.NotFound, "number not found"), "number not found", FlashWarn},
		{grpcstatus.Error(codes.AlreadyExists, "chat already exists"), "chat already exists", FlashWarn},
		{grpcstatus.Error(codes.Unavailable, "backing store unavailable"), "backing store unavailable", FlashErr},
		{errors.New("read avatar: no such file"), "read avatar: no such file", FlashErr},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			f := NewFlashModel()
			f.Err(tt.err)
			m := f.GetMessage()
			if m == nil || m.Text != tt.text || m.Level != tt.level {
				t.Errorf("GetMessage() = %+v, want %q level %d", m, tt.text, tt.level)
			}
		})
	}
}
