package notifications

import (
	"log/slog"
	"strings"
	"text/template"
	"time"
)

type LeaveMail struct {
	EmployeeName string
	LeaveType    string
	FromDate     time.Time
	ToDate       time.Time
	ActorName    string
}

func (m LeaveMail) Period() string {
	return m.FromDate.Format("02 Jan 2006") + " to " + m.ToDate.Format("02 Jan 2006")
}

type mailData struct {
	LeaveMail
	Verb     string
	Approver string
}

// Each template defines "subject" and "body".
var mailTemplates = map[string]*template.Template{
	"decision": parseMail("decision",
		`{{define "subject"}}{{.LeaveType}} request {{.Verb}}{{end}}`+
			`{{define "body"}}Dear {{.EmployeeName}},

Your {{.LeaveType}} request for {{.Period}} has been {{.Verb}}{{with .ActorName}} by {{.}}{{end}}.

Regards,
HR Team
{{end}}`),
	"cc": parseMail("cc",
		`{{define "subject"}}{{.LeaveType}} of {{.EmployeeName}} {{.Verb}}{{end}}`+
			`{{define "body"}}Hello,

The {{.LeaveType}} request of {{.EmployeeName}} for {{.Period}} has been {{.Verb}}.

Regards,
HR Team
{{end}}`),
	"reminder": parseMail("reminder",
		`{{define "subject"}}Reminder: {{.LeaveType}} request of {{.EmployeeName}} awaiting action{{end}}`+
			`{{define "body"}}Dear {{.Approver}},

The {{.LeaveType}} request of {{.EmployeeName}} for {{.Period}} is still awaiting your action.

Regards,
HR Team
{{end}}`),
}

func parseMail(name, text string) *template.Template {
	return template.Must(template.New(name).Option("missingkey=error").Parse(text))
}

func render(name string, data mailData) (string, string) {
	tmpl := mailTemplates[name]
	var subject, body strings.Builder
	if err := tmpl.ExecuteTemplate(&subject, "subject", data); err != nil {
		slog.Warn("mail subject render failed", "template", name, "err", err)
	}
	if err := tmpl.ExecuteTemplate(&body, "body", data); err != nil {
		slog.Warn("mail body render failed", "template", name, "err", err)
	}
	return subject.String(), body.String()
}

func decisionVerb(kind string) string {
	if kind == KindLeaveReject {
		return "rejected"
	}
	return "approved"
}

// LeaveDecision renders the applicant email for an approval or rejection kind.
func LeaveDecision(kind string, m LeaveMail) (string, string) {
	return render("decision", mailData{LeaveMail: m, Verb: decisionVerb(kind)})
}

// LeaveCC renders the notice sent to the CC list of a decided request.
func LeaveCC(kind string, m LeaveMail) (string, string) {
	return render("cc", mailData{LeaveMail: m, Verb: decisionVerb(kind)})
}

// LeaveReminder renders the reminder sent to an approver of a pending request.
func LeaveReminder(approverName string, m LeaveMail) (string, string) {
	return render("reminder", mailData{LeaveMail: m, Approver: approverName})
}
