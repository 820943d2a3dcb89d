package core

import (
	"bytes"
	"encoding/base64"
	htmltmpl "html/template"
	"io"
	"net/http"
	"net/mail"
	"os"
	"path"
	"path/filepath"
	"strings"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/talimhq/talim/fs"
)

const emailTemplateDir = "templates/email"

var (
	templates    tmplCache
	tmplBaseURL  string
	tmplStrict   bool
	tmplParseErr error
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: tmplCacheEntry}

	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) getContextData() ContextData {
	return ContextData{
		FrontendBaseURL: tmplBaseURL,
		Data:            m.TemplateData,
	}
}

func (m *EmailMessage) getTemplate(ext string) (interface{}, bool) {
	cache, ok := templates[m.TemplateName]
	if !ok {
		return nil, ok
	}
	tmplEntry, ok := cache[ext]
	return tmplEntry, ok
}

func (m *EmailMessage) renderText() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".txt")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*texttmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData()); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML() error {
	if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".gohtml")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*htmltmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData()); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) Render() error {
	if m.TemplateName != "" && tmplParseErr != nil {
		return tmplParseErr
	}
	if err := m.renderText(); err != nil {
		return err
	}
	return m.renderHTML()
}

func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}
	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err := encoder.Write(content); err != nil {
		return err
	}
	_ = encoder.Close()

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) AttachFile(fpath string, contentType ...string) error {
	f, err := os.Open(fpath)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Attach(f, filepath.Base(fpath), contentType...)
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// ParseEmailTemplates loads the embedded email templates once at startup.
// Every "<name>.txt"/"<name>.gohtml" pair under fs/templates/email becomes
// addressable as EmailMessage.TemplateName = "<name>".
func ParseEmailTemplates(conf *Config, logger Logger) {
	templates = make(tmplCache)
	tmplBaseURL = conf.FrontendBaseURL
	tmplStrict = conf.Debug || conf.TestMode
	tmplParseErr = nil

	entries, err := appfs.FS.ReadDir(emailTemplateDir)
	if err != nil {
		tmplParseErr = errors.Wrap(err, "reading email template dir")
		logger.Error("parsing email templates", tmplParseErr)
		return
	}

	for _, entry := range entries {
		fname := entry.Name()
		ext := filepath.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := fname[:strings.LastIndex(fname, ".")]
		cache, ok := templates[name]
		if !ok {
			cache = make(tmplCacheEntry)
			templates[name] = cache
		}

		fp := path.Join(emailTemplateDir, fname)
		base := path.Join(emailTemplateDir, "_base"+ext)
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(appfs.FS, base, fp)
			if err != nil {
				logger.Error("parsing email templates", errors.Wrap(err, fp))
				continue
			}
			if tmplStrict {
				tmpl = tmpl.Option("missingkey=error")
			}
			cache[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(appfs.FS, base, fp)
			if err != nil {
				logger.Error("parsing email templates", errors.Wrap(err, fp))
				continue
			}
			if tmplStrict {
				tmpl = tmpl.Option("missingkey=error")
			}
			cache[ext] = tmpl
		}
	}
}
