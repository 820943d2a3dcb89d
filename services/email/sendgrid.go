package emailsvc

import (
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/talimhq/talim/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type sendgridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) *sendgridService {
	return &sendgridService{
		key:        conf.SendgridAPIKey,
		from:       sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(); err != nil {
				svc.logger.Error("rendering email", errors.Wrap(err, msg.Subject))
				return
			}
			if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
				svc.send(*msg)
			}
		}()
	}
}

func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject

	for _, to := range msg.To {
		p.AddTos(svc.getSGEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(svc.getSGEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(svc.getSGEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)

	m.AddContent(
		sgmail.NewContent("text/plain", msg.TextContent),
		sgmail.NewContent("text/html", msg.HTMLContent),
	)

	for _, a := range msg.Attachments {
		m.AddAttachment(svc.getSGAttachment(a))
	}

	return m
}

func (svc sendgridService) getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (svc sendgridService) getSGAttachment(at core.Attachment) *sgmail.Attachment {
	return &sgmail.Attachment{
		Content:     at.Content.String(),
		Type:        at.ContentType,
		Filename:    at.Filename,
		Disposition: "attachment",
	}
}

func (svc sendgridService) send(msg core.EmailMessage) {
	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		svc.logger.Error("sending email", errors.Wrap(err, msg.Subject))
		return
	}
	if res.StatusCode >= http.StatusBadRequest { // todo: retries !!
		svc.logger.Error("sending email", errors.Errorf("%s: sendgrid returned %d", msg.Subject, res.StatusCode))
	}
}
