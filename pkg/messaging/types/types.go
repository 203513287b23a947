package types

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type LocalizedTemplate struct {
	Lang    string `yaml:"lang" json:"lang"`
	Subject string `yaml:"subject" json:"subject"`
	// TemplateDef is the base64 encoded html/template source.
	TemplateDef string `yaml:"templateDef" json:"templateDef"`
}

type HeaderOverrides struct {
	From      string   `yaml:"from" json:"from"`
	Sender    string   `yaml:"sender" json:"sender"`
	ReplyTo   []string `yaml:"replyTo" json:"replyTo"`
	NoReplyTo bool     `yaml:"noReplyTo" json:"noReplyTo"`
}

type EmailTemplate struct {
	MessageType     string              `yaml:"messageType" json:"messageType"`
	DefaultLanguage string              `yaml:"defaultLanguage" json:"defaultLanguage"`
	HeaderOverrides *HeaderOverrides    `yaml:"headerOverrides" json:"headerOverrides"`
	Translations    []LocalizedTemplate `yaml:"translations" json:"translations"`
}

type SMSTemplate struct {
	MessageType     string              `yaml:"messageType" json:"messageType"`
	DefaultLanguage string              `yaml:"defaultLanguage" json:"defaultLanguage"`
	From            string              `yaml:"from" json:"from"`
	Translations    []LocalizedTemplate `yaml:"translations" json:"translations"`
}

// TemplateCatalog holds all message templates, loaded once at startup.
type TemplateCatalog struct {
	EmailTemplates []EmailTemplate `yaml:"emailTemplates"`
	SMSTemplates   []SMSTemplate   `yaml:"smsTemplates"`
}

func (tc *TemplateCatalog) ReadFromFile(fname string) (err error) {
	yamlFile, err := os.ReadFile(fname)
	if err != nil {
		slog.Error("could not read template catalog file", slog.String("file", fname), slog.String("error", err.Error()))
		return err
	}
	err = yaml.UnmarshalStrict(yamlFile, &tc)
	return
}

func (tc TemplateCatalog) EmailTemplateByType(messageType string) (EmailTemplate, bool) {
	for _, t := range tc.EmailTemplates {
		if t.MessageType == messageType {
			return t, true
		}
	}
	return EmailTemplate{}, false
}

func (tc TemplateCatalog) SMSTemplateByType(messageType string) (SMSTemplate, bool) {
	for _, t := range tc.SMSTemplates {
		if t.MessageType == messageType {
			return t, true
		}
	}
	return SMSTemplate{}, false
}

type SMSGatewayConfig struct {
	URL            string        `yaml:"url" json:"url"`
	APIKey         string        `yaml:"api_key" json:"api_key"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// OutgoingEmail is a fully rendered message ready for the SMTP pool.
type OutgoingEmail struct {
	MessageType     string           `json:"messageType"`
	To              []string         `json:"to"`
	Subject         string           `json:"subject"`
	HeaderOverrides *HeaderOverrides `json:"headerOverrides"`
	Content         string           `json:"content"`
}
