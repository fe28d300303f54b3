package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iago/youtube-agent-back/internal/domain"
)

func TestNormalizeNumber(t *testing.T) {
	cases := map[string]string{
		"whatsapp:+5511999990000": "+5511999990000",
		"+55 (11) 99999-0000":     "+5511999990000",
		"5511999990000":           "+5511999990000",
		"":                        "",
	}
	for input, want := range cases {
		if got := NormalizeNumber(input); got != want {
			t.Fatalf("NormalizeNumber(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestMaskNumberKeepsLastFourDigits(t *testing.T) {
	masked := MaskNumber("whatsapp:+5511999990000")
	if !strings.HasSuffix(masked, "0000") {
		t.Fatalf("expected last four digits kept, got %q", masked)
	}
	if strings.Contains(masked, "99999") {
		t.Fatalf("expected middle digits masked, got %q", masked)
	}
}

func TestTwilioClientSendsFormEncodedMessage(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"From": r.PostFormValue("From"),
			"To":   r.PostFormValue("To"),
			"Body": r.PostFormValue("Body"),
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM123"}`))
	}))
	defer server.Close()

	client := NewTwilioClient(TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+14155238886",
		BaseURL:    server.URL,
		Timeout:    5 * time.Second,
	})

	err := client.SendMessage(context.Background(), "whatsapp:+5511999990000", "hello")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if gotForm["From"] != "whatsapp:+14155238886" {
		t.Fatalf("unexpected From %q", gotForm["From"])
	}
	if gotForm["To"] != "whatsapp:+5511999990000" {
		t.Fatalf("unexpected To %q", gotForm["To"])
	}
	if gotForm["Body"] != "hello" {
		t.Fatalf("unexpected Body %q", gotForm["Body"])
	}
}

func TestFormatResultScheduled(t *testing.T) {
	nextRun := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	message := FormatResult(domain.AnalysisResult{
		Type:    domain.ResultTypeScheduled,
		NextRun: &nextRun,
	})
	if !strings.Contains(message, "Analysis scheduled") {
		t.Fatalf("expected scheduling confirmation, got %q", message)
	}
	if !strings.Contains(message, "Next run") {
		t.Fatalf("expected next run line, got %q", message)
	}
}

func TestFormatResultBatchIncludesLinksAndStats(t *testing.T) {
	message := FormatResult(domain.AnalysisResult{
		Type:            domain.ResultTypeBatch,
		ReportLinks:     []string{"docs/batches/b1/reports/video.md"},
		FinalReportLink: "docs/batches/b1/final_report.md",
		Statistics: &domain.BatchStatistics{
			TotalVideos: 3,
			Successful:  2,
			SuccessRate: 2.0 / 3.0,
		},
	})
	for _, want := range []string{"Batch Analysis Results", "final_report.md", "3 videos analyzed"} {
		if !strings.Contains(message, want) {
			t.Fatalf("expected %q in message %q", want, message)
		}
	}
}
