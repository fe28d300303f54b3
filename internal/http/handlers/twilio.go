package handlers

import (
	"net/http"
	"strings"

	"github.com/iago/youtube-agent-back/internal/domain"
	"github.com/iago/youtube-agent-back/internal/whatsapp"
)

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// TwilioWebhook receives inbound WhatsApp messages from Twilio. The webhook
// always acknowledges with empty TwiML; user-facing replies go out through
// the Messages API so slow analyses never hit Twilio's webhook timeout.
func (api *API) TwilioWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid form payload")
		return
	}

	from := whatsapp.NormalizeNumber(r.PostFormValue("From"))
	body := strings.TrimSpace(r.PostFormValue("Body"))
	if from == "" || body == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "From and Body are required")
		return
	}
	if api.logger != nil {
		api.logger.Printf("inbound whatsapp message from=%s", whatsapp.MaskNumber(from))
	}

	spec, err := api.parser.Parse(r.Context(), body)
	if err != nil {
		api.sendReply(r, from, "Sorry, I could not understand that request. Try something like \"summarize the latest videos about AI agents\".")
		writeTwiML(w)
		return
	}

	response, _, err := api.dispatchSpec(r.Context(), from, spec)
	if err != nil {
		api.sendReply(r, from, whatsapp.FormatFailure("could not start the analysis, please try again"))
		writeTwiML(w)
		return
	}

	if jobID, ok := response["job_id"].(string); ok {
		if job, jobErr := api.scheduler.GetJob(r.Context(), jobID); jobErr == nil {
			nextRun := job.NextRun
			api.sendReply(r, from, whatsapp.FormatResult(domain.AnalysisResult{
				Type:    domain.ResultTypeScheduled,
				NextRun: &nextRun,
			}))
		}
	} else {
		api.sendReply(r, from, "⏳ Got it! Your analysis is running, I'll send the results here shortly.")
	}

	writeTwiML(w)
}

func (api *API) sendReply(r *http.Request, to, message string) {
	if api.sender == nil {
		return
	}
	if err := api.sender.SendMessage(r.Context(), to, message); err != nil && api.logger != nil {
		api.logger.Printf("webhook reply failed to=%s: %v", whatsapp.MaskNumber(to), err)
	}
}

func writeTwiML(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(emptyTwiML))
}
