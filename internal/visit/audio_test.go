package visit_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"visitnotes/internal/testutil"
	"visitnotes/internal/visit"
)

func TestService_ProcessAudio(t *testing.T) {
	ctx := context.Background()
	ts := testutil.NewTestService(t)
	user, _ := registerAndLogin(t, ts, "pat@example.com")
	appt, err := ts.CreateAppointment(user.ID, visit.AppointmentInput{Doctor: "Dr. Lee", Date: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("CreateAppointment() error = %v", err)
	}

	res, err := ts.ProcessAudio(ctx, user.ID, visit.AudioInput{
		AppointmentID: appt.ID,
		Filename:      "visit.webm",
		MimeType:      "audio/webm",
		Body:          strings.NewReader("0123456789"),
	})
	if err != nil {
		t.Fatalf("ProcessAudio() error = %v", err)
	}
	if res.Transcript != "Transcript of 10 bytes of audio/webm audio." {
		t.Errorf("Transcript = %q", res.Transcript)
	}
	if !strings.HasPrefix(res.Summary, "Summary: Transcript of 10 bytes") {
		t.Errorf("Summary = %q", res.Summary)
	}
	if !res.ProcessedAt.Equal(ts.Clock.Now()) {
		t.Errorf("ProcessedAt = %v, want %v", res.ProcessedAt, ts.Clock.Now())
	}

	t.Run("audio is stored encrypted and readable", func(t *testing.T) {
		uploads, err := ts.ListAudio(user.ID)
		if err != nil {
			t.Fatalf("ListAudio() error = %v", err)
		}
		if len(uploads) != 1 {
			t.Fatalf("len(uploads) = %d, want 1", len(uploads))
		}
		if uploads[0].AppointmentID != appt.ID || uploads[0].Size != 10 {
			t.Errorf("upload = %+v", uploads[0])
		}

		var stored bytes.Buffer
		ts.Vault.Get(uploads[0].VaultKey, &stored)
		if stored.String() == "0123456789" {
			t.Error("vault holds plaintext audio")
		}

		dec, _ := testutil.NewTestEncryptor().Unlock("")
		var out bytes.Buffer
		if err := ts.ReadAudio(user.ID, uploads[0].ID, dec, &out); err != nil {
			t.Fatalf("ReadAudio() error = %v", err)
		}
		if out.String() != "0123456789" {
			t.Errorf("ReadAudio() = %q", out.String())
		}
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			in   visit.AudioInput
			want error
		}{
			{"no body", visit.AudioInput{MimeType: "audio/webm"}, visit.ErrInvalidInput},
			{"not audio", visit.AudioInput{MimeType: "text/plain", Body: strings.NewReader("x")}, visit.ErrInvalidInput},
			{"empty", visit.AudioInput{MimeType: "audio/wav", Body: strings.NewReader("")}, visit.ErrInvalidInput},
			{"unknown appointment", visit.AudioInput{AppointmentID: "nope", MimeType: "audio/wav", Body: strings.NewReader("x")}, visit.ErrNotFound},
			{"too large", visit.AudioInput{MimeType: "audio/wav", Body: bytes.NewReader(make([]byte, visit.MaxAudioSize+1))}, visit.ErrInvalidInput},
		}
		for _, tt := range tests {
			if _, err := ts.ProcessAudio(ctx, user.ID, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("%s: error = %v, want %v", tt.name, err, tt.want)
			}
		}
	})

	t.Run("provider errors pass through", func(t *testing.T) {
		ts.Transcriber.Err = visit.ErrQuotaExceeded
		defer func() { ts.Transcriber.Err = nil }()

		_, err := ts.ProcessAudio(ctx, user.ID, visit.AudioInput{MimeType: "audio/wav", Body: strings.NewReader("x")})
		if !errors.Is(err, visit.ErrQuotaExceeded) {
			t.Errorf("ProcessAudio() error = %v, want ErrQuotaExceeded", err)
		}
	})
}

func TestIsAudioType(t *testing.T) {
	for in, want := range map[string]bool{
		"audio/webm;codecs=opus": true,
		"audio/mpeg":             true,
		"video/mp4":              false,
		"":                       false,
	} {
		if got := visit.IsAudioType(in); got != want {
			t.Errorf("IsAudioType(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestService_GetAudioInfo(t *testing.T) {
	ts := testutil.NewTestService(t)
	info := ts.GetAudioInfo()
	if info.MaxFileSize != "50MB" || len(info.SupportedFormats) != 9 {
		t.Errorf("GetAudioInfo() = %+v", info)
	}
}
